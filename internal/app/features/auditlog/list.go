// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/cardhub/internal/app/store/audit"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// parseFilter reads category, event_type, user_id, start_date, end_date
// and page from the query string.
func parseFilter(r *http.Request) (audit.QueryFilter, int, error) {
	category := strings.TrimSpace(query.Get(r, "category"))
	eventType := strings.TrimSpace(query.Get(r, "event_type"))

	if category != "" && category != audit.CategoryAuth && category != audit.CategoryAdmin {
		return audit.QueryFilter{}, 0, errors.New("unknown category")
	}
	if eventType != "" && !knownEventType(category, eventType) {
		return audit.QueryFilter{}, 0, errors.New("unknown event_type for category")
	}

	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}
	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if v := strings.TrimSpace(query.Get(r, "user_id")); v != "" {
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return filter, 0, errors.New("user_id is not a valid id")
		}
		filter.UserID = &oid
	}
	if v := strings.TrimSpace(query.Get(r, "start_date")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, 0, errors.New("start_date must be YYYY-MM-DD")
		}
		filter.StartTime = &t
	}
	if v := strings.TrimSpace(query.Get(r, "end_date")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, 0, errors.New("end_date must be YYYY-MM-DD")
		}
		// inclusive of the whole day
		end := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &end
	}
	return filter, page, nil
}

// ServeList handles GET /api/admin/audit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseFilter(r)
	if err != nil {
		respond.Invalid(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		respond.ServerError(w, r, h.Log, "query audit events failed", err)
		return
	}
	total, err := h.Events.Count(ctx, filter)
	if err != nil {
		respond.ServerError(w, r, h.Log, "count audit events failed", err)
		return
	}

	names := h.resolveNames(ctx, events)
	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:        e.ID.Hex(),
			Timestamp: e.Timestamp,
			Category:  e.Category,
			EventType: e.EventType,
			IP:        e.IP,
			Success:   e.Success,
			Reason:    e.FailureReason,
			Details:   e.Details,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.Hex()
			item.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			item.TargetID = e.UserID.Hex()
			item.TargetName = names[*e.UserID]
		}
		items = append(items, item)
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	respond.OK(w, r, listResponse{Items: items, Page: page, TotalPages: totalPages, Total: total})
}

// resolveNames batch-loads the names of every actor and target. A failed
// lookup leaves names blank rather than failing the page.
func (h *Handler) resolveNames(ctx context.Context, events []audit.Event) map[primitive.ObjectID]string {
	seen := make(map[primitive.ObjectID]struct{})
	for _, e := range events {
		if e.ActorID != nil {
			seen[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			seen[*e.UserID] = struct{}{}
		}
	}
	names := make(map[primitive.ObjectID]string, len(seen))
	if len(seen) == 0 {
		return names
	}
	ids := make([]primitive.ObjectID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	users, err := h.Users.GetByIDs(ctx, ids)
	if err != nil {
		h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		return names
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names
}
