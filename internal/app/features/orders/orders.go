// internal/app/features/orders/orders.go
package orders

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/features/shared"
	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/app/system/payments"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Payloads                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type shippingRequest struct {
	Name       string `json:"name" validate:"required,maxgraphemes=100"`
	Line1      string `json:"line1" validate:"required,maxgraphemes=200"`
	Line2      string `json:"line2" validate:"maxgraphemes=200"`
	City       string `json:"city" validate:"required,maxgraphemes=100"`
	State      string `json:"state" validate:"maxgraphemes=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,len=2,alpha"`
	Phone      string `json:"phone" validate:"max=40"`
}

func (s shippingRequest) model() models.Shipping {
	return models.Shipping{
		Name:       strings.TrimSpace(s.Name),
		Line1:      strings.TrimSpace(s.Line1),
		Line2:      strings.TrimSpace(s.Line2),
		City:       strings.TrimSpace(s.City),
		State:      strings.TrimSpace(s.State),
		PostalCode: strings.TrimSpace(s.PostalCode),
		Country:    strings.ToUpper(s.Country),
		Phone:      strings.TrimSpace(s.Phone),
	}
}

type customizationRequest struct {
	NameOnCard string `json:"name_on_card" validate:"required,maxgraphemes=60"`
	Title      string `json:"title" validate:"maxgraphemes=60"`
	Color      string `json:"color" validate:"omitempty,hexcolor|alpha"`
	Finish     string `json:"finish" validate:"omitempty,oneof=matte gloss metal"`
	LogoURL    string `json:"logo_url" validate:"omitempty,url,max=2048"`
	Notes      string `json:"notes" validate:"maxgraphemes=500"`
}

func (c customizationRequest) model() models.Customization {
	return models.Customization{
		NameOnCard: strings.TrimSpace(c.NameOnCard),
		Title:      strings.TrimSpace(c.Title),
		Color:      c.Color,
		Finish:     c.Finish,
		LogoURL:    c.LogoURL,
		Notes:      strings.TrimSpace(c.Notes),
	}
}

type createRequest struct {
	PlanID        string               `json:"plan_id" validate:"required,max=100"`
	Shipping      shippingRequest      `json:"shipping"`
	Customization customizationRequest `json:"customization"`
}

type updateRequest struct {
	Customization customizationRequest `json:"customization"`
	Shipping      *shippingRequest     `json:"shipping"`
}

type createResponse struct {
	Order       models.Order `json:"order"`
	CheckoutURL string       `json:"checkout_url,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/orders                                                             |
| Creates the order, issues its card and, with Stripe configured, opens a     |
| checkout session. Without Stripe the order is manual and the plan applies   |
| straight away.                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}
	var req createRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	plan, err := h.Plans.GetByID(ctx, req.PlanID)
	if errors.Is(err, planstore.ErrNotFound) || (err == nil && !plan.Active) {
		respond.Error(w, r, http.StatusBadRequest, "unknown plan")
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load plan failed", err)
		return
	}
	buyer, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		respond.ServerError(w, r, h.Log, "load buyer failed", err)
		return
	}

	payment := models.Payment{Provider: models.PaymentManual, Status: models.PaymentManual}
	if h.Payments != nil {
		payment = models.Payment{Provider: "stripe", Status: models.PaymentPending}
	}
	order, err := h.Orders.Create(ctx, models.Order{
		UserID:        uid,
		PlanID:        plan.ID,
		PlanName:      plan.Name,
		AmountCents:   plan.PriceCents,
		Currency:      plan.Currency,
		Shipping:      req.Shipping.model(),
		Customization: req.Customization.model(),
		Payment:       payment,
	})
	if err != nil {
		respond.ServerError(w, r, h.Log, "create order failed", err)
		return
	}

	card, err := h.Cards.Issue(ctx, uid, &order.ID, plan.Name)
	if err != nil {
		respond.ServerError(w, r, h.Log, "issue card failed", err)
		return
	}
	if err := h.Orders.SetCard(ctx, order.ID, card.ID); err != nil {
		respond.ServerError(w, r, h.Log, "link card failed", err)
		return
	}
	order.CardID = card.ID

	resp := createResponse{Order: order}
	if h.Payments == nil {
		if err := h.Users.SetPlan(ctx, uid, plan.ID); err != nil {
			respond.ServerError(w, r, h.Log, "apply plan failed", err)
			return
		}
		h.Log.Info("manual order created", zap.String("order_id", order.ID.Hex()), zap.String("plan_id", plan.ID))
		respond.Created(w, r, resp)
		return
	}

	base := strings.TrimSuffix(h.AppURL, "/") + "/orders/" + order.ID.Hex()
	co, err := h.Payments.CreateCheckout(ctx, payments.CheckoutRequest{
		OrderID:     order.ID.Hex(),
		UserID:      uid.Hex(),
		Email:       buyer.Email,
		ProductName: plan.Name,
		PriceID:     plan.StripePriceID,
		AmountCents: plan.PriceCents,
		Currency:    plan.Currency,
		SuccessURL:  base + "?checkout=success",
		CancelURL:   base + "?checkout=cancelled",
	})
	if err != nil {
		respond.Fail(w, r, h.Log, http.StatusBadGateway, "payment provider unavailable, please try again", err,
			zap.String("order_id", order.ID.Hex()))
		return
	}
	if err := h.Orders.AttachCheckout(ctx, order.ID, co.SessionID); err != nil {
		respond.ServerError(w, r, h.Log, "attach checkout failed", err)
		return
	}
	order.Payment.CheckoutSessionID = co.SessionID
	resp.Order = order
	resp.CheckoutURL = co.URL
	respond.Created(w, r, resp)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/orders, GET /api/orders/{id}                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Orders.ListByUser(ctx, uid, paging.ParseRequest(r))
	if errors.Is(err, paging.ErrBadCursor) {
		respond.Invalid(w, r, err)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "list orders failed", err)
		return
	}
	respond.OK(w, r, page)
}

func (h *Handler) ServeOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}
	id, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.GetForUser(ctx, id, uid)
	if errors.Is(err, orderstore.ErrNotFound) {
		respond.NotFound(w, r)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load order failed", err)
		return
	}
	respond.OK(w, r, o)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/orders/{id}                                                         |
| Only while the order is still order_received.                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}
	id, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	var req updateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}

	d := orderstore.Details{Customization: req.Customization.model()}
	if req.Shipping != nil {
		s := req.Shipping.model()
		d.Shipping = &s
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.UpdateDetails(ctx, id, uid, d)
	switch {
	case errors.Is(err, orderstore.ErrNotFound):
		respond.NotFound(w, r)
	case errors.Is(err, orderstore.ErrNotEditable):
		respond.Error(w, r, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		respond.ServerError(w, r, h.Log, "update order failed", err)
	default:
		respond.OK(w, r, o)
	}
}
