package api

import (
	"net/http"
	"strconv"

	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/ignite/email-delivery/internal/service/analytics"
)

// Analytics handles GET /email/analytics.
//
//	type=performance (default) -> {success, type, days, since, metrics}
//	type=by-type               -> {success, type, days, types}
//	type=user                  -> {success, type, userId, emails}
func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := optionalInt(q.Get("days"))
	if err != nil {
		httputil.BadRequest(w, "days must be an integer")
		return
	}

	switch typ := q.Get("type"); typ {
	case "", "performance":
		p, err := h.analytics.Performance(r.Context(), days)
		if err != nil {
			respondError(w, r, err)
			return
		}
		httputil.OK(w, map[string]any{
			"success": true, "type": "performance",
			"days": p.Days, "since": p.Since, "metrics": p.Metrics,
		})
	case "by-type":
		rows, err := h.analytics.ByType(r.Context(), days)
		if err != nil {
			respondError(w, r, err)
			return
		}
		httputil.OK(w, map[string]any{"success": true, "type": typ, "days": analytics.ClampDays(days), "types": rows})
	case "user":
		limit, err := optionalInt(q.Get("limit"))
		if err != nil {
			httputil.BadRequest(w, "limit must be an integer")
			return
		}
		userID := q.Get("userId")
		recs, err := h.analytics.UserHistory(r.Context(), userID, limit)
		if err != nil {
			respondError(w, r, err)
			return
		}
		httputil.OK(w, map[string]any{"success": true, "type": typ, "userId": userID, "emails": recs})
	default:
		httputil.BadRequest(w, "type must be one of performance, by-type, user")
	}
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
