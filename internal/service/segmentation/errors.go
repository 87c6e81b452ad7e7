package segmentation

import (
	"fmt"

	"github.com/ignite/email-delivery/internal/domain"
)

// ErrUnknownCategory is returned for criteria keys outside the known
// preference categories.
var ErrUnknownCategory = fmt.Errorf("%w: unknown segment category", domain.ErrValidation)
