package middleware

import (
	"net/http"
	"strings"

	"github.com/clinicware/clinic-pos/internal/tenancy"
)

// OrgHeader is the request header carrying the clinic org id.
const OrgHeader = "X-Org-Id"

// RequireOrg extracts the org id from the X-Org-Id header into the request
// context and rejects requests without one. Every tenant-scoped route sits
// behind this.
func RequireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := strings.TrimSpace(r.Header.Get(OrgHeader))
		if orgID == "" {
			// WebSocket clients cannot set headers, so allow a query fallback.
			orgID = strings.TrimSpace(r.URL.Query().Get("org"))
		}
		if orgID == "" {
			http.Error(w, "missing org id", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithOrgID(r.Context(), orgID)))
	})
}
