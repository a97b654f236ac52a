// Package respond writes JSON responses and logs failures consistently.
package respond

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/cardhub/internal/app/system/limits"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// InvalidBody is the JSON shape of a payload validation failure.
type InvalidBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, r *http.Request, v any) {
	JSON(w, r, http.StatusOK, v)
}

// Created writes v with status 201.
func Created(w http.ResponseWriter, r *http.Request, v any) {
	JSON(w, r, http.StatusCreated, v)
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes {"error": msg} with the given status.
func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, ErrorBody{Error: msg})
}

// Fail logs err and writes msg to the client. 5xx are logged at error level,
// 4xx at warn. Canceled requests are dropped silently.
func Fail(w http.ResponseWriter, r *http.Request, log *zap.Logger, status int, msg string, err error, fields ...zap.Field) {
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}
	if log != nil {
		fields = append(fields,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
		switch {
		case status >= 500:
			log.Error(msg, fields...)
		case status >= 400:
			log.Warn(msg, fields...)
		}
	}
	Error(w, r, status, msg)
}

// BadRequest is Fail with 400.
func BadRequest(w http.ResponseWriter, r *http.Request, log *zap.Logger, msg string, err error) {
	Fail(w, r, log, http.StatusBadRequest, msg, err)
}

// ServerError is Fail with 500 and a generic client message.
func ServerError(w http.ResponseWriter, r *http.Request, log *zap.Logger, what string, err error) {
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}
	if log != nil {
		log.Error(what,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	Error(w, r, http.StatusInternalServerError, "something went wrong, please try again")
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusNotFound, "not found")
}

// Forbidden writes a 403.
func Forbidden(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusForbidden, "forbidden")
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusUnauthorized, "sign in required")
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	return render.DecodeJSON(io.LimitReader(r.Body, limits.MaxJSONBody), v)
}

type fieldErrors interface {
	FieldErrors() map[string]string
}

// Invalid writes a 400 for a failed payload validation. Errors that carry
// per-field messages have them listed under "fields".
func Invalid(w http.ResponseWriter, r *http.Request, err error) {
	body := InvalidBody{Error: "invalid request"}
	var fe fieldErrors
	if errors.As(err, &fe) {
		body.Fields = fe.FieldErrors()
	} else if err != nil {
		body.Error = err.Error()
	}
	JSON(w, r, http.StatusBadRequest, body)
}

// TooManyRequests writes a 429 with a Retry-After header when retryAfter
// is positive.
func TooManyRequests(w http.ResponseWriter, r *http.Request, msg string, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	Error(w, r, http.StatusTooManyRequests, msg)
}
