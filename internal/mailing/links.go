package mailing

import (
	"net/url"
	"strings"

	"github.com/ignite/email-delivery/internal/domain"
)

// UnsubscribeURL builds the public one-click unsubscribe link.
func UnsubscribeURL(baseURL string, tokenType domain.TokenType, token string) string {
	return strings.TrimRight(baseURL, "/") + "/email/unsubscribe/" +
		url.PathEscape(string(tokenType)) + "/" + url.PathEscape(token)
}
