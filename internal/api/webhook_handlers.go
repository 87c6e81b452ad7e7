package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/service/webhook"
)

// maxWebhookBytes caps provider batches.
const maxWebhookBytes = 5 << 20

// HandleWebhook handles POST /email/webhooks. The signature covers the raw
// body, so it is read in full before decoding.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		httputil.BadRequest(w, "could not read body")
		return
	}

	if err := webhook.VerifySignature(body, r.Header.Get(webhook.SignatureHeader), h.settings.WebhookSecret, h.now()); err != nil {
		logger.Warn("[Webhook] rejected", "remote", r.RemoteAddr, "error", err)
		httputil.Unauthorized(w, "invalid signature")
		return
	}

	events, err := webhook.ParseEvents(body)
	if err != nil {
		httputil.BadRequest(w, "invalid payload")
		return
	}

	results := h.webhooks.HandleEvents(r.Context(), events)
	httputil.OK(w, map[string]any{"success": true, "processed": len(results), "results": results})
}
