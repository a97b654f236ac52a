// Package validate wraps go-playground/validator with the rules request
// payloads use:
//
//	username      letters, digits and underscores, at most 30 characters
//	pin           4 to 8 digits
//	maxgraphemes  user-perceived character limit, e.g. maxgraphemes=160
//
// Field names in messages come from json tags.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/policy/usernamepolicy"
	"github.com/go-playground/validator/v10"
	"github.com/rivo/uniseg"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	pinRe      = regexp.MustCompile(`^[0-9]{4,8}$`)
)

// Error lists every failed field of a payload.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+" "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// FieldErrors returns the per-field messages.
func (e *Error) FieldErrors() map[string]string { return e.Fields }

// New returns a validator with the custom rules registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || (usernameRe.MatchString(s) && len(s) <= usernamepolicy.MaxLength)
	})
	_ = v.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return pinRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("maxgraphemes", func(fl validator.FieldLevel) bool {
		max, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return uniseg.GraphemeClusterCount(fl.Field().String()) <= max
	})
	return v
}

var std = New()

// Struct validates v with the shared validator and returns *Error
// describing every failed field, or nil.
func Struct(v any) error {
	err := std.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		out.Fields[fieldPath(fe)] = message(fe)
	}
	return out
}

// Var validates a single value against tag.
func Var(v any, tag string) error {
	return std.Var(v, tag)
}

// IsPIN reports whether s is an acceptable PIN.
func IsPIN(s string) bool { return pinRe.MatchString(s) }

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("may have at most %s entries", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "maxgraphemes":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "username":
		return "may only contain letters, numbers and underscores (max 30)"
	case "pin":
		return "must be 4 to 8 digits"
	}
	return "is invalid"
}
