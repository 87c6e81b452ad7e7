package webhook

import (
	"strconv"
	"testing"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"type":"email.delivered","data":{"email_id":"m"}}`)
	now := time.Unix(1_770_000_000, 0)
	valid := Sign(body, secret, now.Add(-time.Minute))

	tests := []struct {
		name   string
		body   []byte
		header string
		secret string
		ok     bool
	}{
		{"valid", body, valid, secret, true},
		{"valid among several signatures", body, valid + ",v1=AAAA", secret, true},
		{"tampered body", []byte(`{"type":"email.bounced"}`), valid, secret, false},
		{"wrong secret", body, valid, "other", false},
		{"stale timestamp", body, Sign(body, secret, now.Add(-16*time.Minute)), secret, false},
		{"future timestamp", body, Sign(body, secret, now.Add(16*time.Minute)), secret, false},
		{"edge of window", body, Sign(body, secret, now.Add(-15*time.Minute)), secret, true},
		{"missing timestamp", body, "v1=" + valid[len("t=1769999940,v1="):], secret, false},
		{"non-numeric timestamp", body, "t=yesterday,v1=abc", secret, false},
		{"missing signature", body, "t=" + strconv.FormatInt(now.Unix(), 10), secret, false},
		{"garbage", body, "nonsense", secret, false},
		{"empty header", body, "", secret, false},
		{"no secret configured", body, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.body, tt.header, tt.secret, now)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidSignature)
			assert.ErrorIs(t, err, domain.ErrSignature)
		})
	}
}
