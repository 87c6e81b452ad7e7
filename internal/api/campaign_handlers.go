package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/ignite/email-delivery/internal/service/campaign"
)

// CreateCampaign handles POST /email/campaigns.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var in campaign.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	c, err := h.campaigns.Create(r.Context(), in)
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	httputil.Created(w, map[string]any{"success": true, "id": c.ID})
}

// ListCampaigns handles GET /email/campaigns?status=.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	out, err := h.campaigns.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true, "campaigns": out})
}

// ScheduleCampaign handles POST /email/campaigns/{id}/schedule.
func (h *Handlers) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.Schedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondBadRequest(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true})
}

// LaunchCampaign handles POST /email/campaigns/{id}/launch.
func (h *Handlers) LaunchCampaign(w http.ResponseWriter, r *http.Request) {
	n, err := h.campaigns.Launch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true, "queuedCount": n})
}

// CancelCampaign handles POST /email/campaigns/{id}/cancel.
func (h *Handlers) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	ok, err := h.campaigns.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	if !ok {
		httputil.BadRequest(w, "campaign cannot be cancelled")
		return
	}
	httputil.OK(w, map[string]any{"success": true})
}
