package preferences

import (
	"fmt"

	"github.com/ignite/email-delivery/internal/domain"
)

// Sentinel errors for the preferences service layer.
var (
	ErrNotFound        = fmt.Errorf("%w: profile not found", domain.ErrNotFound)
	ErrNonBoolean      = fmt.Errorf("%w: preference values must be booleans", domain.ErrValidation)
	ErrUnknownCategory = fmt.Errorf("%w: unknown preference category", domain.ErrValidation)
)
