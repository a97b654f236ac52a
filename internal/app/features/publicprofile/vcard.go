// internal/app/features/publicprofile/vcard.go
package publicprofile

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/p/{id}/vcard                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeVCard(w http.ResponseWriter, r *http.Request) {
	u, ok := h.viewable(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	h.recordQuietly(ctx, r, models.Interaction{OwnerID: u.ID, Type: models.InteractionContactSaved})

	name := u.Username
	if name == "" {
		name = "contact"
	}
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.vcf"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(VCard(u, h.profileURL(u))))
}

func (h *Handler) profileURL(u *models.User) string {
	base := strings.TrimSuffix(h.PublicBaseURL, "/")
	if base == "" {
		return ""
	}
	if u.Username != "" {
		return base + "/u/" + u.Username
	}
	return base + "/p/" + u.ID.Hex()
}

// VCard renders u as a vCard 3.0 document. Only the fields shown on the
// public profile are included.
func VCard(u *models.User, profileURL string) string {
	var b strings.Builder
	line := func(prop, value string) {
		if value == "" {
			return
		}
		b.WriteString(prop)
		b.WriteByte(':')
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	family, given := splitName(u.FullName)
	b.WriteString("BEGIN:VCARD\r\nVERSION:3.0\r\n")
	line("FN", escape(u.FullName))
	b.WriteString("N:" + escape(family) + ";" + escape(given) + ";;;\r\n")
	line("ORG", escape(u.Company))
	line("TITLE", escape(u.Title))
	line("EMAIL;TYPE=INTERNET", escape(u.Email))
	line("TEL;TYPE=CELL", escape(u.Phone))
	line("URL", escape(u.Website))
	line("URL;TYPE=PROFILE", escape(profileURL))
	if u.Location != "" {
		line("ADR;TYPE=WORK", ";;"+escape(u.Location)+";;;;")
	}
	line("NOTE", escape(u.Bio))
	if strings.HasPrefix(u.PhotoURL, "http") {
		line("PHOTO;VALUE=URI", u.PhotoURL)
	}
	b.WriteString("END:VCARD\r\n")
	return b.String()
}

// splitName treats the last word as the family name.
func splitName(full string) (family, given string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	}
	return parts[len(parts)-1], strings.Join(parts[:len(parts)-1], " ")
}

var vcardEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, ";", `\;`, "\r\n", `\n`, "\n", `\n`)

func escape(s string) string { return vcardEscaper.Replace(s) }
