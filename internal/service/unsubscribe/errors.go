package unsubscribe

import (
	"errors"
	"fmt"

	"github.com/ignite/email-delivery/internal/domain"
)

// Sentinel errors for the unsubscribe service layer.
var (
	ErrInvalidTokenType      = fmt.Errorf("%w: unknown token type", domain.ErrValidation)
	ErrInvalidEmail          = fmt.Errorf("%w: email is required", domain.ErrValidation)
	ErrTokenGenerationFailed = errors.New("unsubscribe token generation failed")
	ErrPreferenceUpdate      = errors.New("preference update failed")
)

// InvalidTokenMessage is returned for missing, expired and used tokens alike.
const InvalidTokenMessage = "This unsubscribe link is invalid or has expired."
