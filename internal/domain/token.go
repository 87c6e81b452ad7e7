package domain

import "time"

// TokenType is the subscription scope an unsubscribe token applies to.
type TokenType string

const (
	TokenMarketing     TokenType = "marketing"
	TokenAll           TokenType = "all"
	TokenTransactional TokenType = "transactional"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	switch t {
	case TokenMarketing, TokenAll, TokenTransactional:
		return true
	}
	return false
}

// TokenTTL is how long an issued unsubscribe token stays usable.
const TokenTTL = 7 * 24 * time.Hour

// UnsubscribeToken is a single-use, time-limited credential authorizing a
// preference change without authentication.
type UnsubscribeToken struct {
	Token     string     `json:"token" db:"token"`
	Email     string     `json:"email" db:"email"`
	TokenType TokenType  `json:"token_type" db:"token_type"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsValid reports whether the token is unused and not yet expired at now.
func (t *UnsubscribeToken) IsValid(now time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(now)
}
