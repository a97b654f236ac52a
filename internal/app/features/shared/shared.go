// Package shared holds request helpers used by more than one feature.
package shared

import (
	"errors"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/policy/usernamepolicy"
	"github.com/dalemusser/cardhub/internal/app/store/usernames"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ObjectIDParam parses the chi URL parameter name as an ObjectID. On
// failure it writes a 404 and returns ok=false; a malformed id cannot name
// anything.
func ObjectIDParam(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		respond.NotFound(w, r)
		return primitive.NilObjectID, false
	}
	return oid, true
}

// UsernameClaimError writes the response for a failed username claim:
//
//	validation  400
//	cooldown    422
//	taken       409
//	no user     404
func UsernameClaimError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var ve *usernamepolicy.ValidationError
	var ce *usernamepolicy.CooldownError
	switch {
	case errors.As(err, &ve):
		respond.Fail(w, r, log, http.StatusBadRequest, ve.Error(), err)
	case errors.As(err, &ce):
		respond.Fail(w, r, log, http.StatusUnprocessableEntity, ce.Error(), err)
	case errors.Is(err, usernames.ErrTaken):
		respond.Fail(w, r, log, http.StatusConflict, err.Error(), err)
	case errors.Is(err, usernames.ErrUserNotFound):
		respond.NotFound(w, r)
	default:
		respond.ServerError(w, r, log, "username claim failed", err)
	}
}
