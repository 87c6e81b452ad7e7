package api

import (
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/email-delivery/internal/auth"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/mailing"
	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/service/unsubscribe"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

const unsubscribeFailedMessage = "We could not update your preferences. Please try again later."

// unsubscribeParams validates the path. The stored token type decides what
// is changed; the path type only has to be one we know.
func unsubscribeParams(r *http.Request) (domain.TokenType, string, bool) {
	tt := domain.TokenType(chi.URLParam(r, "tokenType"))
	token := chi.URLParam(r, "token")
	if !tt.Valid() || !tokenPattern.MatchString(token) {
		return "", "", false
	}
	return tt, token, true
}

// Unsubscribe handles GET /email/unsubscribe/{tokenType}/{token}, the link
// in every marketing email. It is unauthenticated and always answers with
// a JSON message.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	_, token, ok := unsubscribeParams(r)
	if !ok {
		httputil.JSON(w, http.StatusBadRequest, unsubscribe.Result{Message: unsubscribe.InvalidTokenMessage})
		return
	}

	res, err := h.unsubscribe.ProcessUnsubscribe(r.Context(), token)
	if err != nil {
		logger.Error("[API] unsubscribe failed", "path", r.URL.Path, "error", err)
		httputil.JSON(w, http.StatusInternalServerError, unsubscribe.Result{Message: unsubscribeFailedMessage})
		return
	}
	if !res.Success {
		httputil.JSON(w, http.StatusBadRequest, res)
		return
	}
	httputil.OK(w, res)
}

// IssueUnsubscribeToken handles POST /email/unsubscribe/{tokenType}/{token}.
// The signed-in user gets a fresh token of the requested type; the token
// segment of the path is not used.
func (h *Handlers) IssueUnsubscribeToken(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w, "authentication required")
		return
	}
	tt := domain.TokenType(chi.URLParam(r, "tokenType"))
	if !tt.Valid() {
		httputil.BadRequest(w, "unknown token type")
		return
	}

	t, err := h.unsubscribe.Issue(r.Context(), s.Email, tt)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{
		"success":        true,
		"token":          t.Token,
		"tokenType":      t.TokenType,
		"unsubscribeUrl": mailing.UnsubscribeURL(h.settings.BaseURL, t.TokenType, t.Token),
		"expiresAt":      t.ExpiresAt,
	})
}
