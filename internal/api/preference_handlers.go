package api

import (
	"net/http"

	"github.com/ignite/email-delivery/internal/auth"
	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/ignite/email-delivery/internal/service/preferences"
)

type preferencesRequest struct {
	Preferences map[string]any `json:"preferences"`
}

// GetPreferences handles GET /email/preferences for the signed-in user.
func (h *Handlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w, "authentication required")
		return
	}
	prefs, err := h.prefs.Get(r.Context(), s.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true, "preferences": prefs})
}

// UpdatePreferences handles PUT /email/preferences. Only the categories
// present in the body change.
func (h *Handlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w, "authentication required")
		return
	}
	var req preferencesRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Preferences == nil {
		httputil.BadRequest(w, "preferences object is required")
		return
	}
	patch, err := preferences.ParsePatch(req.Preferences)
	if err != nil {
		respondError(w, r, err)
		return
	}

	prefs, err := h.prefs.Update(r.Context(), s.UserID, patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true, "preferences": prefs})
}
