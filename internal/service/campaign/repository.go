package campaign

import (
	"context"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns campaigns ordered by scheduled_for ascending. An empty
	// status returns every campaign.
	List(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error)

	// Create inserts a new campaign.
	Create(ctx context.Context, c *domain.Campaign) error

	// Transition sets status to `to` only if the current status is one of
	// `from`. Returns false when no row changed.
	Transition(ctx context.Context, id string, from []domain.CampaignStatus, to domain.CampaignStatus) (bool, error)

	// Launch, in one transaction, moves a draft or scheduled campaign to
	// sent with sent_at and recipient_count = len(entries), and inserts the
	// entries. Returns false without inserting when the status update
	// matched no row. Any error leaves the campaign unchanged.
	Launch(ctx context.Context, id string, sentAt time.Time, entries []domain.QueueEntry) (bool, error)
}

// AudienceResolver is the segmentation engine as seen by the scheduler.
type AudienceResolver interface {
	ResolveRecipients(ctx context.Context, c domain.SegmentCriteria) ([]domain.Recipient, error)
	Estimate(ctx context.Context, c domain.SegmentCriteria) (int, error)
}

// SuppressionFilter reports which addresses must not be mailed.
type SuppressionFilter interface {
	FilterSuppressed(ctx context.Context, emails []string) (map[string]bool, error)
}

// BatchReady is published after a launch commits.
type BatchReady struct {
	CampaignID string    `json:"campaign_id"`
	Queued     int       `json:"queued"`
	At         time.Time `json:"at"`
}

// Notifier announces newly queued work to the delivery workers.
type Notifier interface {
	NotifyBatchReady(ctx context.Context, b BatchReady) error
}
