package suppression

import (
	"fmt"

	"github.com/ignite/email-delivery/internal/domain"
)

// Sentinel errors for the suppression service layer.
var (
	ErrNotFound     = fmt.Errorf("%w: suppression entry", domain.ErrNotFound)
	ErrEmailMissing = fmt.Errorf("%w: email is required", domain.ErrValidation)
)
