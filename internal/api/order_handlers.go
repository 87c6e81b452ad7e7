package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/ignite/email-delivery/internal/service/transactional"
)

// SendOrderConfirmation handles POST /email/orders/{orderId}/confirmation.
// Mounted behind requireAPIKey.
func (h *Handlers) SendOrderConfirmation(w http.ResponseWriter, r *http.Request) {
	var oc transactional.OrderConfirmation
	if !httputil.Decode(w, r, &oc) {
		return
	}
	oc.OrderID = chi.URLParam(r, "orderId")

	id, err := h.orders.SendOrderConfirmation(r.Context(), oc)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true, "emailId": id})
}
