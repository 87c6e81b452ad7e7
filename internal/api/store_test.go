package api

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/service/campaign"
	"github.com/ignite/email-delivery/internal/service/preferences"
)

// memStore backs the real services in handler tests. It satisfies the
// campaign, segmentation, preferences, unsubscribe and webhook repository
// contracts.
type memStore struct {
	mu        sync.Mutex
	profiles  map[string]*domain.Profile
	campaigns map[string]*domain.Campaign
	queue     []domain.QueueEntry
	tokens    map[string]*domain.UnsubscribeToken
	messages  map[string]*domain.MessageRecord
}

func newMemStore(profiles ...domain.Profile) *memStore {
	s := &memStore{
		profiles:  make(map[string]*domain.Profile),
		campaigns: make(map[string]*domain.Campaign),
		tokens:    make(map[string]*domain.UnsubscribeToken),
		messages:  make(map[string]*domain.MessageRecord),
	}
	for i := range profiles {
		p := profiles[i]
		s.profiles[p.UserID] = &p
	}
	return s
}

// campaigns

func (s *memStore) Get(_ context.Context, id string) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) List(_ context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Campaign{}
	for _, c := range s.campaigns {
		if status == "" || c.Status == status {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (s *memStore) Create(_ context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *memStore) Transition(_ context.Context, id string, from []domain.CampaignStatus, to domain.CampaignStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if c.Status == f {
			c.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Launch(_ context.Context, id string, sentAt time.Time, entries []domain.QueueEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok || (c.Status != domain.CampaignDraft && c.Status != domain.CampaignScheduled) {
		return false, nil
	}
	c.Status = domain.CampaignSent
	c.SentAt = &sentAt
	c.RecipientCount = len(entries)
	s.queue = append(s.queue, entries...)
	return true, nil
}

// segmentation

func (s *memStore) AllWithPreferences(context.Context) ([]domain.Recipient, error) {
	return s.match(nil), nil
}

func (s *memStore) ByAnyCategory(_ context.Context, cats []domain.Category) ([]domain.Recipient, error) {
	return s.match(cats), nil
}

func (s *memStore) CountAllWithPreferences(context.Context) (int, error) {
	return len(s.match(nil)), nil
}

func (s *memStore) CountByAnyCategory(_ context.Context, cats []domain.Category) (int, error) {
	return len(s.match(cats)), nil
}

func (s *memStore) match(cats []domain.Category) []domain.Recipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Recipient{}
	for _, p := range s.profiles {
		hit := cats == nil
		for _, c := range cats {
			hit = hit || p.Preferences.Get(c)
		}
		if hit {
			out = append(out, domain.Recipient{UserID: p.UserID, Email: p.Email})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// preferences

func (s *memStore) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, preferences.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, preferences.ErrNotFound
}

func (s *memStore) Save(_ context.Context, userID string, prefs domain.EmailPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return preferences.ErrNotFound
	}
	p.Preferences = prefs
	return nil
}

func (s *memStore) prefs(userID string) domain.EmailPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[userID].Preferences
}

// unsubscribe tokens

func (s *memStore) Insert(_ context.Context, t *domain.UnsubscribeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tokens[t.Token]; dup {
		return domain.ErrConflict
	}
	cp := *t
	s.tokens[t.Token] = &cp
	return nil
}

func (s *memStore) FindValid(_ context.Context, token string, now time.Time) (*domain.UnsubscribeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || !t.IsValid(now) {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) MarkUsed(_ context.Context, token string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || !t.IsValid(now) {
		return false, nil
	}
	t.UsedAt = &now
	return true, nil
}

func (s *memStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, t := range s.tokens {
		if t.ExpiresAt.Before(now) {
			delete(s.tokens, k)
			n++
		}
	}
	return n, nil
}

// message records

func (s *memStore) Apply(_ context.Context, emailID string, upd domain.MessageUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.messages[emailID]
	if !ok {
		return false, nil
	}
	if upd.Advances(r.Status) {
		r.Status = upd.Status
	}
	if r.DeliveredAt == nil {
		r.DeliveredAt = upd.DeliveredAt
	}
	if r.OpenedAt == nil {
		r.OpenedAt = upd.OpenedAt
	}
	if r.ClickedAt == nil {
		r.ClickedAt = upd.ClickedAt
	}
	return true, nil
}

func (s *memStore) message(id string) domain.MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.messages[id]
}
