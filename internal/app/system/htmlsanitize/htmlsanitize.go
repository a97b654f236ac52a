// Package htmlsanitize cleans HTML written in the CMS editors and profile
// fields before it is stored.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	contentOnce   sync.Once
	contentPolicy *bluemonday.Policy
	strictPolicy  = bluemonday.StrictPolicy()
)

func policy() *bluemonday.Policy {
	contentOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "sub", "sup", "mark")
		p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		contentPolicy = p
	})
	return contentPolicy
}

// Sanitize returns s with unsafe elements and attributes removed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy().Sanitize(s)
}

// StripTags removes all markup, leaving text only.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// IsPlainText reports whether s contains no markup.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and wraps it in a paragraph, turning newlines
// into <br>.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// Content prepares a CMS body: plain text is converted to HTML, markup is
// sanitized.
func Content(s string) string {
	s = strings.TrimSpace(s)
	if IsPlainText(s) {
		return PlainTextToHTML(s)
	}
	return Sanitize(s)
}
