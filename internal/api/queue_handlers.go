package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/ignite/email-delivery/internal/service/queue"
)

type processRequest struct {
	BatchSize *int   `json:"batchSize"`
	APIKey    string `json:"apiKey"`
}

// validAPIKey compares in constant time. An unset key rejects everything.
func (h *Handlers) validAPIKey(got string) bool {
	want := h.settings.QueueAPIKey
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// requireAPIKey guards internal routes with the X-API-Key header.
func (h *Handlers) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.validAPIKey(r.Header.Get("X-API-Key")) {
			httputil.Unauthorized(w, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ProcessQueue handles POST /email/queue/process. The key may come from the
// body or the X-API-Key header; the caller is authenticated before a bad
// body is reported.
func (h *Handlers) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	decodeErr := httputil.ReadJSON(w, r, &req)
	key := req.APIKey
	if key == "" || decodeErr != nil {
		key = r.Header.Get("X-API-Key")
	}
	if !h.validAPIKey(key) {
		httputil.Unauthorized(w, "invalid api key")
		return
	}
	if decodeErr != nil {
		httputil.DecodeError(w, decodeErr)
		return
	}

	size := h.settings.DefaultBatchSize
	if req.BatchSize != nil {
		size = *req.BatchSize
	}
	if size < queue.MinBatchSize || size > queue.MaxBatchSize {
		httputil.BadRequest(w, "batchSize must be between 1 and 500")
		return
	}

	result, err := h.queue.ProcessBatch(r.Context(), size)
	if err != nil {
		respondError(w, r, err)
		return
	}
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true, "result": result, "stats": stats})
}

// QueueStats handles GET /email/queue/process.
func (h *Handlers) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true, "stats": stats})
}
