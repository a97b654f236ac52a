// internal/domain/models/sitecontent.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Site content slugs.
const (
	ContentAbout   = "about"
	ContentContact = "contact"
	ContentFAQs    = "faqs"
	ContentStore   = "store"
)

// IsValidContentSlug reports whether slug names a CMS document.
func IsValidContentSlug(slug string) bool {
	switch slug {
	case ContentAbout, ContentContact, ContentFAQs, ContentStore:
		return true
	}
	return false
}

// FAQ is one question/answer pair.
type FAQ struct {
	Question string `bson:"question" json:"question" yaml:"question"`
	Answer   string `bson:"answer" json:"answer" yaml:"answer"`
}

// StoreProduct is a product listing in the store document. Each product
// becomes a Plan on sync.
type StoreProduct struct {
	ID            string `bson:"id" json:"id" yaml:"id"`
	Name          string `bson:"name" json:"name" yaml:"name"`
	PriceCents    int64  `bson:"price_cents" json:"price_cents" yaml:"price_cents"`
	Currency      string `bson:"currency,omitempty" json:"currency,omitempty" yaml:"currency"`
	Description   string `bson:"description,omitempty" json:"description,omitempty" yaml:"description"`
	StripePriceID string `bson:"stripe_price_id,omitempty" json:"stripe_price_id,omitempty" yaml:"stripe_price_id"`
}

// ContactInfo is the body of the contact document.
type ContactInfo struct {
	Email   string `bson:"email,omitempty" json:"email,omitempty" yaml:"email"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty" yaml:"phone"`
	Address string `bson:"address,omitempty" json:"address,omitempty" yaml:"address"`
}

// SiteContent is a CMS-edited document. Which fields are meaningful
// depends on the slug.
type SiteContent struct {
	Slug          string              `bson:"_id" json:"slug" yaml:"slug"`
	Title         string              `bson:"title,omitempty" json:"title,omitempty" yaml:"title"`
	Body          string              `bson:"body,omitempty" json:"body,omitempty" yaml:"body"`
	FAQs          []FAQ               `bson:"faqs,omitempty" json:"faqs,omitempty" yaml:"faqs"`
	Products      []StoreProduct      `bson:"products,omitempty" json:"products,omitempty" yaml:"products"`
	Contact       *ContactInfo        `bson:"contact,omitempty" json:"contact,omitempty" yaml:"contact"`
	UpdatedByID   *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"updated_by_id,omitempty" yaml:"-"`
	UpdatedByName string              `bson:"updated_by_name,omitempty" json:"updated_by_name,omitempty" yaml:"-"`
	UpdatedAt     *time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty" yaml:"-"`
}
