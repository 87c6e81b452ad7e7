package campaign

import (
	"fmt"

	"github.com/ignite/email-delivery/internal/domain"
)

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound       = fmt.Errorf("%w: campaign", domain.ErrNotFound)
	ErrInvalidState   = fmt.Errorf("%w: campaign cannot be launched from its current status", domain.ErrState)
	ErrNotCancelable  = fmt.Errorf("%w: campaign is not cancellable", domain.ErrState)
	ErrNotSchedulable = fmt.Errorf("%w: only draft campaigns can be scheduled", domain.ErrState)
	ErrEmptyAudience  = fmt.Errorf("%w: campaign audience is empty", domain.ErrState)

	ErrNameRequired      = fmt.Errorf("%w: name is required", domain.ErrValidation)
	ErrEmailTypeRequired = fmt.Errorf("%w: email_type is required", domain.ErrValidation)
	ErrSubjectRequired   = fmt.Errorf("%w: subject is required", domain.ErrValidation)
	ErrInvalidSchedule   = fmt.Errorf("%w: scheduled_for is not a valid timestamp", domain.ErrValidation)
	ErrInvalidStatus     = fmt.Errorf("%w: unknown campaign status", domain.ErrValidation)
)
