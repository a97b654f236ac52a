// Package reportpolicy holds the report workflow and who may act on it.
//
// Rules:
//   - Any signed-in user may report another user, never themselves
//   - Reports move pending → resolved or pending → dismissed and stay there
//   - Only admin and super_admin may list, close or moderate
package reportpolicy

import (
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CanClose reports whether a report in status from may move to to.
func CanClose(from, to string) bool {
	if from != models.ReportPending {
		return false
	}
	return to == models.ReportResolved || to == models.ReportDismissed
}

// CanSubmit reports whether the current user may report target.
func CanSubmit(r *http.Request, target primitive.ObjectID) bool {
	_, _, uid, ok := authz.UserCtx(r)
	return ok && uid != target
}

// CanModerate reports whether the current user may review reports and act
// on reported users.
func CanModerate(r *http.Request) bool {
	return authz.IsAdmin(r)
}
