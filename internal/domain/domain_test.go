package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCampaignStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to CampaignStatus
		want     bool
	}{
		{CampaignDraft, CampaignScheduled, true},
		{CampaignDraft, CampaignSent, true},
		{CampaignDraft, CampaignCancelled, true},
		{CampaignScheduled, CampaignSent, true},
		{CampaignScheduled, CampaignCancelled, true},
		{CampaignScheduled, CampaignDraft, false},
		{CampaignSent, CampaignCancelled, false},
		{CampaignCancelled, CampaignDraft, false},
		{CampaignSent, CampaignScheduled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestMessageStatus_CanAdvance(t *testing.T) {
	assert.True(t, MessageSent.CanAdvance(MessageDelivered))
	assert.True(t, MessageDelivered.CanAdvance(MessageOpened))
	assert.True(t, MessageOpened.CanAdvance(MessageClicked))
	assert.True(t, MessageSent.CanAdvance(MessageBounced))

	assert.False(t, MessageClicked.CanAdvance(MessageOpened))
	assert.False(t, MessageOpened.CanAdvance(MessageDelivered))
	assert.False(t, MessageDelivered.CanAdvance(MessageBounced))
	assert.False(t, MessageBounced.CanAdvance(MessageDelivered))
	assert.False(t, MessageClicked.CanAdvance(MessageClicked))
}

func TestSegmentCriteria(t *testing.T) {
	c := SegmentCriteria{CategorySales: true, CategoryBlog: false, "coupons": true}
	assert.Equal(t, []Category{CategorySales}, c.Requested())
	assert.Equal(t, []string{"coupons"}, c.Unknown())
}

func TestUnsubscribeToken_IsValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Minute)

	assert.True(t, (&UnsubscribeToken{ExpiresAt: now.Add(time.Hour)}).IsValid(now))
	assert.False(t, (&UnsubscribeToken{ExpiresAt: now.Add(-time.Hour)}).IsValid(now))
	assert.False(t, (&UnsubscribeToken{ExpiresAt: now}).IsValid(now))
	assert.False(t, (&UnsubscribeToken{ExpiresAt: now.Add(time.Hour), UsedAt: &used}).IsValid(now))
}

func TestEmailPreferences_GetSet(t *testing.T) {
	p := DefaultPreferences()
	assert.True(t, p.Get(CategoryOrderUpdates))
	assert.False(t, p.Get(CategorySales))

	p.Set(CategorySales, true)
	p.Set(CategoryOrderUpdates, false)
	assert.Equal(t, EmailPreferences{Sales: true}, p)
}

func TestMessageUpdate_Advances(t *testing.T) {
	bounce := MessageUpdate{Status: MessageBounced}
	assert.True(t, bounce.Advances(MessageSent))
	assert.False(t, bounce.Advances(MessageDelivered))

	complaint := MessageUpdate{Status: MessageBounced, From: ComplaintPredecessors}
	for _, s := range []MessageStatus{MessageSent, MessageDelivered, MessageOpened, MessageClicked} {
		assert.True(t, complaint.Advances(s), s)
	}
	assert.False(t, complaint.Advances(MessageBounced))
}
