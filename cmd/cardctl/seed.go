package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"gopkg.in/yaml.v3"
)

// seedFile is the layout of a seed-content file:
//
//	content:
//	  - slug: about
//	    title: About CardHub
//	    body: |
//	      We make cards.
//	  - slug: store
//	    products:
//	      - id: pro
//	        name: Pro
//	        price_cents: 2900
type seedFile struct {
	Content []models.SiteContent `yaml:"content"`
}

// parseSeed decodes and cleans a seed file. Unknown keys are rejected so a
// typo does not silently drop a field.
func parseSeed(r io.Reader) ([]models.SiteContent, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f seedFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty seed file")
		}
		return nil, err
	}
	if len(f.Content) == 0 {
		return nil, errors.New("no content documents")
	}

	seen := map[string]bool{}
	out := make([]models.SiteContent, 0, len(f.Content))
	for i, doc := range f.Content {
		slug := strings.ToLower(strings.TrimSpace(doc.Slug))
		if !models.IsValidContentSlug(slug) {
			return nil, fmt.Errorf("content[%d]: unknown slug %q", i, doc.Slug)
		}
		if seen[slug] {
			return nil, fmt.Errorf("content[%d]: slug %q appears twice", i, slug)
		}
		seen[slug] = true

		clean, err := cleanSeed(slug, doc)
		if err != nil {
			return nil, fmt.Errorf("content[%d] (%s): %w", i, slug, err)
		}
		out = append(out, clean)
	}
	return out, nil
}

func cleanSeed(slug string, in models.SiteContent) (models.SiteContent, error) {
	doc := models.SiteContent{
		Slug:  slug,
		Title: htmlsanitize.StripTags(strings.TrimSpace(in.Title)),
		Body:  htmlsanitize.Content(in.Body),
	}
	switch slug {
	case models.ContentFAQs:
		for _, q := range in.FAQs {
			doc.FAQs = append(doc.FAQs, models.FAQ{
				Question: htmlsanitize.StripTags(strings.TrimSpace(q.Question)),
				Answer:   htmlsanitize.Content(q.Answer),
			})
		}
	case models.ContentContact:
		if in.Contact != nil {
			doc.Contact = &models.ContactInfo{
				Email:   strings.TrimSpace(in.Contact.Email),
				Phone:   strings.TrimSpace(in.Contact.Phone),
				Address: htmlsanitize.StripTags(in.Contact.Address),
			}
		}
	case models.ContentStore:
		ids := map[string]bool{}
		for _, p := range in.Products {
			id := strings.TrimSpace(p.ID)
			switch {
			case id == "":
				return doc, errors.New("product without id")
			case ids[id]:
				return doc, fmt.Errorf("duplicate product id %q", id)
			case p.PriceCents < 0:
				return doc, fmt.Errorf("product %q has a negative price", id)
			}
			ids[id] = true
			doc.Products = append(doc.Products, models.StoreProduct{
				ID:            id,
				Name:          strings.TrimSpace(p.Name),
				PriceCents:    p.PriceCents,
				Currency:      strings.ToLower(strings.TrimSpace(p.Currency)),
				Description:   htmlsanitize.StripTags(p.Description),
				StripePriceID: strings.TrimSpace(p.StripePriceID),
			})
		}
	}
	return doc, nil
}
