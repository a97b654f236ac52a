// internal/app/features/reports/handler.go
package reports

import (
	reportstore "github.com/dalemusser/cardhub/internal/app/store/reports"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler owns report submission and the admin moderation queue.
//
// Moderation on the reported user (warn, ban) lives in adminusers; closing
// a report never touches the user.
type Handler struct {
	Reports  *reportstore.Store
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs a reports Handler.
func NewHandler(reports *reportstore.Store, users *userstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Reports:  reports,
		Users:    users,
		AuditLog: audit,
		Log:      logger,
	}
}
