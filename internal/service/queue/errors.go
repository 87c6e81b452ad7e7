package queue

import (
	"fmt"

	"github.com/ignite/email-delivery/internal/domain"
)

// Batch bounds for ProcessBatch.
const (
	MinBatchSize = 1
	MaxBatchSize = 500
)

// Sentinel errors for the queue service layer.
var (
	ErrInvalidBatchSize = fmt.Errorf("%w: batchSize must be between %d and %d", domain.ErrValidation, MinBatchSize, MaxBatchSize)
	ErrInvalidRecipient = fmt.Errorf("%w: recipient email is invalid", domain.ErrValidation)
	ErrSubjectMissing   = fmt.Errorf("%w: subject is required", domain.ErrValidation)
	ErrTemplateMissing  = fmt.Errorf("%w: template_id is required", domain.ErrValidation)
)
