package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/logger"
)

// SignatureHeader carries "t=<unix-seconds>,v1=<base64 hmac-sha256>".
const SignatureHeader = "resend-signature"

// ReplayWindow bounds how far a signature timestamp may be from now.
const ReplayWindow = 15 * time.Minute

// ErrInvalidSignature covers malformed headers, stale timestamps and
// mismatched digests alike.
var ErrInvalidSignature = fmt.Errorf("%w: invalid webhook signature", domain.ErrSignature)

// VerifySignature checks header against an HMAC-SHA256 of body keyed by
// secret. An empty secret skips verification and logs a warning.
func VerifySignature(body []byte, header, secret string, now time.Time) error {
	if secret == "" {
		logger.Warn("[Webhook] signature verification skipped: no secret configured")
		return nil
	}

	ts, sigs, ok := parseHeader(header)
	if !ok {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > ReplayWindow || age < -ReplayWindow {
		return fmt.Errorf("%w: timestamp outside replay window", ErrInvalidSignature)
	}

	expected := computeMAC(body, secret)
	for _, s := range sigs {
		got, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return fmt.Errorf("%w: digest mismatch", ErrInvalidSignature)
}

// Sign builds a header value for body at t. Used by tests and local tools.
func Sign(body []byte, secret string, t time.Time) string {
	return "t=" + strconv.FormatInt(t.Unix(), 10) +
		",v1=" + base64.StdEncoding.EncodeToString(computeMAC(body, secret))
}

func computeMAC(body []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return h.Sum(nil)
}

// parseHeader returns the timestamp and every v1 signature.
func parseHeader(header string) (int64, []string, bool) {
	var (
		ts    int64
		haveT bool
		sigs  []string
	)
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, false
			}
			ts, haveT = n, true
		case "v1":
			if v != "" {
				sigs = append(sigs, v)
			}
		}
	}
	return ts, sigs, haveT && len(sigs) > 0
}
