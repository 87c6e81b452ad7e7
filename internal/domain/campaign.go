package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSent      CampaignStatus = "sent"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Valid reports whether s is one of the known campaign states.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignScheduled, CampaignSent, CampaignCancelled:
		return true
	}
	return false
}

// campaignTransitions lists the allowed target states per source state.
// sent and cancelled are terminal and have no entry.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignScheduled, CampaignSent, CampaignCancelled},
	CampaignScheduled: {CampaignSent, CampaignCancelled},
}

// CanTransition reports whether a campaign may move from s to next.
func (s CampaignStatus) CanTransition(next CampaignStatus) bool {
	for _, t := range campaignTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// LaunchableStatuses are the states from which a campaign can be launched
// or cancelled.
var LaunchableStatuses = []CampaignStatus{CampaignDraft, CampaignScheduled}

// Campaign represents a named, schedulable batch email with an audience
// selector.
type Campaign struct {
	ID              string          `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	EmailType       string          `json:"email_type" db:"email_type"`
	Subject         string          `json:"subject" db:"subject"`
	TemplateID      string          `json:"template_id" db:"template_id"`
	TemplateData    map[string]any  `json:"template_data" db:"template_data"`
	SegmentCriteria SegmentCriteria `json:"segment_criteria" db:"segment_criteria"`
	Status          CampaignStatus  `json:"status" db:"status"`
	ScheduledFor    time.Time       `json:"scheduled_for" db:"scheduled_for"`
	SentAt          *time.Time      `json:"sent_at" db:"sent_at"`
	RecipientCount  int             `json:"recipient_count" db:"recipient_count"`
	CreatedBy       string          `json:"created_by" db:"created_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignCancelled
}

// SegmentCriteria selects recipients by preference category. A user matches
// when at least one category set to true here is also true in their
// preferences.
type SegmentCriteria map[Category]bool

// Requested returns the categories set to true, in canonical order.
func (c SegmentCriteria) Requested() []Category {
	var out []Category
	for _, cat := range Categories {
		if c[cat] {
			out = append(out, cat)
		}
	}
	return out
}

// Unknown returns the keys that are not known preference categories.
func (c SegmentCriteria) Unknown() []string {
	var out []string
	for k := range c {
		if !k.Valid() {
			out = append(out, string(k))
		}
	}
	return out
}
