package api

import (
	"errors"
	"net/http"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/ignite/email-delivery/internal/pkg/logger"
)

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrState):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuth), errors.Is(err, domain.ErrSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status of its kind. Client errors carry
// the error text; everything else is logged and replaced with a generic
// message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	switch {
	case code < 500:
		logger.Debug("[API] request rejected", "path", r.URL.Path, "status", code, "error", err)
		httputil.Error(w, code, err.Error())
	case code == http.StatusBadGateway:
		logger.Error("[API] upstream failure", "path", r.URL.Path, "error", err)
		httputil.Error(w, code, "email provider unavailable")
	default:
		httputil.InternalError(w, err)
	}
}

// respondBadRequest is for endpoints that report every domain failure as
// 400 with detail. Unclassified errors still become 500.
func respondBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		respondError(w, r, err)
		return
	}
	httputil.BadRequest(w, err.Error())
}
