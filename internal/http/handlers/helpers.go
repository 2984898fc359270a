package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/clinicware/clinic-pos/internal/tenancy"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// orgFromRequest returns the org id placed in context by the RequireOrg
// middleware. Handlers behind that middleware can assume it is present;
// the empty return covers direct handler tests.
func orgFromRequest(r *http.Request) string {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	return orgID
}
