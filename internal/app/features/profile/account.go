package profile

import (
	"context"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/me                                                               |
| Deletes the account with its reservation, private content, cards and        |
| interactions. Orders and reports stay for bookkeeping.                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.deleteAccount(ctx, id); err != nil {
		respond.ServerError(w, r, h.Log, "delete account failed", err)
		return
	}

	h.AuditLog.AccountDeleted(ctx, r, id)
	h.Log.Info("account deleted", zap.String("user_id", id.Hex()))

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("sign out after account deletion failed", zap.Error(err))
	}
	respond.NoContent(w)
}

// deleteAccount removes dependents before the user so a failure part way
// leaves a user that can retry rather than orphans nobody owns.
func (h *Handler) deleteAccount(ctx context.Context, id primitive.ObjectID) error {
	if _, err := h.Usernames.ReleaseAll(ctx, id); err != nil {
		return err
	}
	if err := h.Private.Delete(ctx, id); err != nil {
		return err
	}
	if _, err := h.Cards.DeleteByUser(ctx, id); err != nil {
		return err
	}
	if _, err := h.Interactions.DeleteByOwner(ctx, id); err != nil {
		return err
	}
	if err := h.Orders.DetachUser(ctx, id); err != nil {
		return err
	}
	_, err := h.Users.Delete(ctx, id)
	return err
}
