package fsimport

import (
	"math"
	"strings"
	"time"

	"github.com/dalemusser/cardhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document shapes of the legacy Firestore project. Field names are the
// ones the old web client wrote.

type legacyLink struct {
	Label string `firestore:"label"`
	URL   string `firestore:"url"`
}

type legacyUser struct {
	Name      string       `firestore:"name"`
	Email     string       `firestore:"email"`
	Username  string       `firestore:"username"`
	PhotoURL  string       `firestore:"photoURL"`
	Title     string       `firestore:"title"`
	Company   string       `firestore:"company"`
	Location  string       `firestore:"location"`
	Bio       string       `firestore:"bio"`
	Phone     string       `firestore:"phone"`
	Website   string       `firestore:"website"`
	Links     []legacyLink `firestore:"links"`
	IsPublic  *bool        `firestore:"isPublic"`
	Role      string       `firestore:"role"`
	Banned    bool         `firestore:"isBanned"`
	BanReason string       `firestore:"banReason"`
	PlanID    string       `firestore:"planId"`
	CreatedAt time.Time    `firestore:"createdAt"`
}

type legacyUsername struct {
	UID string `firestore:"uid"`
}

type legacyShipping struct {
	Name     string `firestore:"name"`
	Address1 string `firestore:"address1"`
	Address2 string `firestore:"address2"`
	City     string `firestore:"city"`
	State    string `firestore:"state"`
	Zip      string `firestore:"zip"`
	Country  string `firestore:"country"`
	Phone    string `firestore:"phone"`
}

type legacyOrder struct {
	UserID         string         `firestore:"userId"`
	PlanID         string         `firestore:"planId"`
	PlanName       string         `firestore:"planName"`
	Price          float64        `firestore:"price"`
	Currency       string         `firestore:"currency"`
	Status         string         `firestore:"status"`
	Shipping       legacyShipping `firestore:"shipping"`
	NameOnCard     string         `firestore:"nameOnCard"`
	CardTitle      string         `firestore:"cardTitle"`
	Color          string         `firestore:"color"`
	Notes          string         `firestore:"notes"`
	TrackingNumber string         `firestore:"trackingNumber"`
	CreatedAt      time.Time      `firestore:"createdAt"`
}

type legacyReport struct {
	ReporterID     string    `firestore:"reporterId"`
	ReportedUserID string    `firestore:"reportedUserId"`
	Reasons        []string  `firestore:"reasons"`
	Description    string    `firestore:"description"`
	Status         string    `firestore:"status"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

type legacyFAQ struct {
	Question string `firestore:"question"`
	Answer   string `firestore:"answer"`
}

type legacyProduct struct {
	ID            string  `firestore:"id"`
	Name          string  `firestore:"name"`
	Price         float64 `firestore:"price"`
	Currency      string  `firestore:"currency"`
	Description   string  `firestore:"description"`
	StripePriceID string  `firestore:"stripePriceId"`
}

type legacyContact struct {
	Email   string `firestore:"email"`
	Phone   string `firestore:"phone"`
	Address string `firestore:"address"`
}

type legacyContent struct {
	Title    string          `firestore:"title"`
	Body     string          `firestore:"body"`
	FAQs     []legacyFAQ     `firestore:"faqs"`
	Products []legacyProduct `firestore:"products"`
	Contact  *legacyContact  `firestore:"contact"`
}

func cents(price float64) int64 {
	return int64(math.Round(price * 100))
}

func mapRole(s string) string {
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)) {
	case "superadmin":
		return models.RoleSuperAdmin
	case "admin":
		return models.RoleAdmin
	}
	return models.RoleUser
}

// mapOrderStatus folds the labels the old admin screen wrote ("Order
// Received", "processing", "Shipped") onto the workflow statuses.
func mapOrderStatus(s string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	switch k {
	case "", "received", "order_received", "ordered", "new":
		return models.OrderReceived, true
	case "processing", "in_progress":
		return models.OrderProcessing, true
	case "shipped":
		return models.OrderShipped, true
	case "delivered", "completed":
		return models.OrderDelivered, true
	}
	return "", false
}

func mapReportStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case models.ReportResolved:
		return models.ReportResolved
	case models.ReportDismissed, "rejected":
		return models.ReportDismissed
	}
	return models.ReportPending
}

func toUser(uid string, lu legacyUser) models.User {
	u := models.User{
		FullName:    lu.Name,
		Email:       lu.Email,
		PhotoURL:    lu.PhotoURL,
		AuthMethod:  models.AuthFirebase,
		AuthSubject: uid,
		Role:        mapRole(lu.Role),
		Title:       strings.TrimSpace(lu.Title),
		Company:     strings.TrimSpace(lu.Company),
		Location:    strings.TrimSpace(lu.Location),
		Bio:         htmlsanitize.StripTags(lu.Bio),
		Phone:       strings.TrimSpace(lu.Phone),
		Website:     strings.TrimSpace(lu.Website),
		IsPublic:    lu.IsPublic == nil || *lu.IsPublic,
		PlanID:      lu.PlanID,
		CreatedAt:   lu.CreatedAt.UTC(),
	}
	if u.FullName == "" {
		u.FullName = strings.SplitN(lu.Email, "@", 2)[0]
	}
	for _, l := range lu.Links {
		if strings.TrimSpace(l.URL) == "" {
			continue
		}
		u.Links = append(u.Links, models.Link{Label: strings.TrimSpace(l.Label), URL: strings.TrimSpace(l.URL)})
	}
	return u
}

func toOrder(docID string, owner primitive.ObjectID, lo legacyOrder, status string) models.Order {
	ts := lo.CreatedAt.UTC()
	var tl models.Timeline
	for _, s := range models.OrderStatuses {
		t := ts
		switch s {
		case models.OrderReceived:
			tl.OrderReceived = &t
		case models.OrderProcessing:
			tl.Processing = &t
		case models.OrderShipped:
			tl.Shipped = &t
		case models.OrderDelivered:
			tl.Delivered = &t
		}
		if s == status {
			break
		}
	}
	currency := strings.ToLower(strings.TrimSpace(lo.Currency))
	if currency == "" {
		currency = "usd"
	}
	return models.Order{
		UserID:      owner,
		PlanID:      lo.PlanID,
		PlanName:    lo.PlanName,
		AmountCents: cents(lo.Price),
		Currency:    currency,
		Status:      status,
		Timeline:    tl,
		Shipping: models.Shipping{
			Name:       lo.Shipping.Name,
			Line1:      lo.Shipping.Address1,
			Line2:      lo.Shipping.Address2,
			City:       lo.Shipping.City,
			State:      lo.Shipping.State,
			PostalCode: lo.Shipping.Zip,
			Country:    strings.ToUpper(lo.Shipping.Country),
			Phone:      lo.Shipping.Phone,
		},
		Customization: models.Customization{
			NameOnCard: lo.NameOnCard,
			Title:      lo.CardTitle,
			Color:      lo.Color,
			Notes:      lo.Notes,
		},
		Payment:        models.Payment{Provider: "legacy", Status: models.PaymentManual},
		TrackingNumber: lo.TrackingNumber,
		LegacyID:       docID,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}

func toReasons(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, r := range in {
		r = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(r, " ", "_")))
		if models.IsValidReportReason(r) && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		out = append(out, "other")
	}
	return out
}

func toContent(slug string, lc legacyContent) models.SiteContent {
	doc := models.SiteContent{
		Slug:  slug,
		Title: htmlsanitize.StripTags(lc.Title),
		Body:  htmlsanitize.Sanitize(lc.Body),
	}
	for _, f := range lc.FAQs {
		doc.FAQs = append(doc.FAQs, models.FAQ{
			Question: htmlsanitize.StripTags(f.Question),
			Answer:   htmlsanitize.Sanitize(f.Answer),
		})
	}
	for _, p := range lc.Products {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		doc.Products = append(doc.Products, models.StoreProduct{
			ID:            strings.TrimSpace(p.ID),
			Name:          p.Name,
			PriceCents:    cents(p.Price),
			Currency:      strings.ToLower(p.Currency),
			Description:   htmlsanitize.StripTags(p.Description),
			StripePriceID: p.StripePriceID,
		})
	}
	if lc.Contact != nil {
		doc.Contact = &models.ContactInfo{
			Email:   strings.TrimSpace(lc.Contact.Email),
			Phone:   strings.TrimSpace(lc.Contact.Phone),
			Address: htmlsanitize.StripTags(lc.Contact.Address),
		}
	}
	return doc
}
