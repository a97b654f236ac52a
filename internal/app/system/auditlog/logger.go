// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/cardhub/internal/app/store/audit"
	"github.com/dalemusser/cardhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config selects where each category of events goes.
// Empty values behave like All.
type Config struct {
	Auth  string
	Admin string
}

// Logger records audit events to the audit store and to zap.
// A nil *Logger is a valid no-op.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryAdmin:
		s = l.config.Admin
	}
	if s == "" {
		return All
	}
	return s
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to the category's configured destination.
// Store failures are logged, never returned: auditing must not fail the
// request that triggered it.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	dest := l.setting(event.Category)
	if dest == Off {
		return
	}
	if (dest == All || dest == Log) && l.zapLog != nil {
		l.logToZap(event)
	}
	if (dest == All || dest == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil && l.zapLog != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

// fromRequest fills IP and user agent. r may be nil for CLI-originated events.
func fromRequest(r *http.Request, e audit.Event) audit.Event {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	} else if e.IP == "" {
		e.IP = "cli"
	}
	return e
}

func oidPtr(id primitive.ObjectID) *primitive.ObjectID {
	if id.IsZero() {
		return nil
	}
	return &id
}

/*───────────────────────────────────────────────────────────────────────────*|
| Authentication                                                             |
*|───────────────────────────────────────────────────────────────────────────*/

// Signup logs a new account.
func (l *Logger) Signup(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignup,
		UserID:    oidPtr(userID),
		Success:   true,
		Details:   map[string]string{"auth_method": authMethod},
	}))
}

// LoginSuccess logs a successful sign in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    oidPtr(userID),
		Success:   true,
		Details:   map[string]string{"auth_method": authMethod},
	}))
}

// LoginFailed logs a rejected sign in. userID is zero when no account matched.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, userID primitive.ObjectID, email, reason string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        oidPtr(userID),
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	}))
}

// Logout logs a sign out. An unparsable id records the event without a user.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	e := audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLogout, Success: true}
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		e.UserID = &oid
	}
	l.Log(ctx, fromRequest(r, e))
}

// UsernameChanged logs a claim or removal. actorID differs from userID
// when an admin changes someone else's username.
func (l *Logger) UsernameChanged(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, from, to string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventUsernameChanged,
		UserID:    oidPtr(userID),
		ActorID:   oidPtr(actorID),
		Success:   true,
		Details:   map[string]string{"from": from, "to": to},
	}))
}

// AccountDeleted logs a self-service account deletion.
func (l *Logger) AccountDeleted(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventAccountDeleted,
		UserID:    oidPtr(userID),
		Success:   true,
	}))
}

/*───────────────────────────────────────────────────────────────────────────*|
| Administration                                                             |
*|───────────────────────────────────────────────────────────────────────────*/

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType string, actorID, userID primitive.ObjectID, details map[string]string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    oidPtr(userID),
		ActorID:   oidPtr(actorID),
		Success:   true,
		Details:   details,
	}))
}

// OrderStatusChanged logs an order advancing one step.
func (l *Logger) OrderStatusChanged(ctx context.Context, r *http.Request, actorID, ownerID, orderID primitive.ObjectID, from, to string) {
	l.admin(ctx, r, audit.EventOrderStatusChanged, actorID, ownerID, map[string]string{
		"order_id": orderID.Hex(), "from": from, "to": to,
	})
}

// ReportClosed logs a report being resolved or dismissed.
func (l *Logger) ReportClosed(ctx context.Context, r *http.Request, actorID, reportedID primitive.ObjectID, reportID, status string) {
	l.admin(ctx, r, audit.EventReportClosed, actorID, reportedID, map[string]string{
		"report_id": reportID, "status": status,
	})
}

// UserBanned logs a ban.
func (l *Logger) UserBanned(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, reason string) {
	l.admin(ctx, r, audit.EventUserBanned, actorID, userID, map[string]string{"reason": reason})
}

// UserUnbanned logs a ban being lifted.
func (l *Logger) UserUnbanned(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID) {
	l.admin(ctx, r, audit.EventUserUnbanned, actorID, userID, nil)
}

// UserWarned logs a warning being set or cleared (empty message).
func (l *Logger) UserWarned(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, message string) {
	l.admin(ctx, r, audit.EventUserWarned, actorID, userID, map[string]string{
		"cleared": strconv.FormatBool(message == ""), "message": message,
	})
}

// RoleChanged logs a role change.
func (l *Logger) RoleChanged(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, from, to string) {
	l.admin(ctx, r, audit.EventRoleChanged, actorID, userID, map[string]string{"from": from, "to": to})
}

// ContentUpdated logs a CMS save.
func (l *Logger) ContentUpdated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, slug string) {
	l.admin(ctx, r, audit.EventContentUpdated, actorID, primitive.NilObjectID, map[string]string{"slug": slug})
}

// PlansSynced logs a plan synchronization. r is nil when run from cardctl.
func (l *Logger) PlansSynced(ctx context.Context, r *http.Request, actorID primitive.ObjectID, upserted, deactivated int) {
	l.admin(ctx, r, audit.EventPlansSynced, actorID, primitive.NilObjectID, map[string]string{
		"upserted":    strconv.Itoa(upserted),
		"deactivated": strconv.Itoa(deactivated),
	})
}
