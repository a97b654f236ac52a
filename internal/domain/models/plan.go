package models

import "time"

// PlanLimits caps how much a profile on the plan may hold.
type PlanLimits struct {
	Links     int `bson:"links" json:"links"`
	Contacts  int `bson:"contacts" json:"contacts"`
	Portfolio int `bson:"portfolio" json:"portfolio"`
}

// PlanFeatures toggles optional profile features.
type PlanFeatures struct {
	PrivateContent bool `bson:"private_content" json:"private_content"`
	Branding       bool `bson:"branding" json:"branding"`
	Wallpaper      bool `bson:"wallpaper" json:"wallpaper"`
}

// DefaultPlanLimits are written when a plan is first synced from the store.
var DefaultPlanLimits = PlanLimits{Links: 5, Contacts: 3, Portfolio: 3}

// DefaultPlanFeatures are written alongside DefaultPlanLimits.
var DefaultPlanFeatures = PlanFeatures{PrivateContent: true}

// FreePlanLimits apply to users without a plan.
var FreePlanLimits = PlanLimits{Links: 3, Contacts: 1, Portfolio: 1}

// FreePlanFeatures apply to users without a plan.
var FreePlanFeatures = PlanFeatures{}

// Plan is a pricing tier. Name, price and description follow the CMS store
// document; limits and features are owned by the plans collection once the
// plan exists.
type Plan struct {
	ID            string       `bson:"_id" json:"id"`
	Name          string       `bson:"name" json:"name"`
	PriceCents    int64        `bson:"price_cents" json:"price_cents"`
	Currency      string       `bson:"currency" json:"currency"`
	Description   string       `bson:"description,omitempty" json:"description,omitempty"`
	StripePriceID string       `bson:"stripe_price_id,omitempty" json:"-"`
	Limits        PlanLimits   `bson:"limits" json:"limits"`
	Features      PlanFeatures `bson:"features" json:"features"`
	Active        bool         `bson:"active" json:"active"`
	SyncedAt      time.Time    `bson:"synced_at" json:"synced_at"`
	CreatedAt     time.Time    `bson:"created_at" json:"created_at"`
}
