package main

import (
	"strings"
	"testing"
)

func TestParseSeed(t *testing.T) {
	in := `
content:
  - slug: About
    title: "<b>About</b> us"
    body: |
      Plain text
      on two lines
  - slug: store
    products:
      - id: " pro "
        name: Pro
        price_cents: 2900
        currency: EUR
  - slug: faqs
    faqs:
      - question: Why?
        answer: "<script>x</script>Because"
`
	docs, err := parseSeed(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parseSeed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d docs, want 3", len(docs))
	}
	about := docs[0]
	if about.Slug != "about" || about.Title != "About us" {
		t.Errorf("about = %+v", about)
	}
	if !strings.Contains(about.Body, "<p>") {
		t.Errorf("plain text body not converted: %q", about.Body)
	}
	store := docs[1]
	if len(store.Products) != 1 || store.Products[0].ID != "pro" || store.Products[0].Currency != "eur" {
		t.Errorf("store = %+v", store.Products)
	}
	if a := docs[2].FAQs[0].Answer; strings.Contains(a, "script") {
		t.Errorf("faq answer not sanitized: %q", a)
	}
}

func TestParseSeed_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "empty"},
		{"no docs", "content: []", "no content"},
		{"unknown slug", "content:\n  - slug: homepage", "unknown slug"},
		{"duplicate slug", "content:\n  - slug: about\n  - slug: about", "twice"},
		{"unknown key", "content:\n  - slug: about\n    tittle: x", "tittle"},
		{"duplicate product", "content:\n  - slug: store\n    products:\n      - id: a\n      - id: a", "duplicate product"},
		{"product without id", "content:\n  - slug: store\n    products:\n      - name: a", "without id"},
		{"negative price", "content:\n  - slug: store\n    products:\n      - id: a\n        price_cents: -1", "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(tt.in))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}
