package segmentation

import (
	"context"
	"sort"
	"testing"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo evaluates criteria against an in-memory profile list.
type memRepo struct {
	profiles []domain.Profile
	calls    int
}

func (m *memRepo) AllWithPreferences(context.Context) ([]domain.Recipient, error) {
	m.calls++
	out := make([]domain.Recipient, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, domain.Recipient{UserID: p.UserID, Email: p.Email})
	}
	return out, nil
}

func (m *memRepo) ByAnyCategory(_ context.Context, cats []domain.Category) ([]domain.Recipient, error) {
	m.calls++
	var out []domain.Recipient
	for _, p := range m.profiles {
		for _, c := range cats {
			if p.Preferences.Get(c) {
				out = append(out, domain.Recipient{UserID: p.UserID, Email: p.Email})
				break
			}
		}
	}
	return out, nil
}

func (m *memRepo) CountAllWithPreferences(ctx context.Context) (int, error) {
	r, err := m.AllWithPreferences(ctx)
	return len(r), err
}

func (m *memRepo) CountByAnyCategory(ctx context.Context, cats []domain.Category) (int, error) {
	r, err := m.ByAnyCategory(ctx, cats)
	return len(r), err
}

func fixtureRepo() *memRepo {
	return &memRepo{profiles: []domain.Profile{
		{UserID: "u1", Email: "u1@example.com", Preferences: domain.EmailPreferences{Sales: true}},
		{UserID: "u2", Email: "u2@example.com", Preferences: domain.EmailPreferences{Blog: true}},
		{UserID: "u3", Email: "u3@example.com", Preferences: domain.EmailPreferences{OrderUpdates: true}},
		{UserID: "u4", Email: "u4@example.com", Preferences: domain.EmailPreferences{Sales: true, Blog: true}},
	}}
}

func userIDs(rs []domain.Recipient) []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.UserID)
	}
	sort.Strings(ids)
	return ids
}

func TestResolveRecipients(t *testing.T) {
	tests := []struct {
		name     string
		criteria domain.SegmentCriteria
		want     []string
	}{
		{"empty selects everyone", domain.SegmentCriteria{}, []string{"u1", "u2", "u3", "u4"}},
		{"nil selects everyone", nil, []string{"u1", "u2", "u3", "u4"}},
		{"single category", domain.SegmentCriteria{domain.CategorySales: true}, []string{"u1", "u4"}},
		{"or across categories", domain.SegmentCriteria{domain.CategorySales: true, domain.CategoryBlog: true}, []string{"u1", "u2", "u4"}},
		{"false values ignored", domain.SegmentCriteria{domain.CategorySales: true, domain.CategoryOrderUpdates: false}, []string{"u1", "u4"}},
		{"all false selects nobody", domain.SegmentCriteria{domain.CategorySales: false, domain.CategoryBlog: false}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(fixtureRepo())
			got, err := svc.ResolveRecipients(context.Background(), tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, userIDs(got))

			n, err := svc.Estimate(context.Background(), tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
		})
	}
}

func TestResolveRecipients_AllFalseSkipsStore(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo)
	got, err := svc.ResolveRecipients(context.Background(), domain.SegmentCriteria{domain.CategoryBlog: false})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, repo.calls)
}

func TestValidateCriteria(t *testing.T) {
	assert.NoError(t, ValidateCriteria(nil))
	assert.NoError(t, ValidateCriteria(domain.SegmentCriteria{domain.CategoryBlog: true}))

	err := ValidateCriteria(domain.SegmentCriteria{"coupons": true, "sales": true})
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "coupons")

	_, err = NewService(fixtureRepo()).ResolveRecipients(context.Background(), domain.SegmentCriteria{"vip": true})
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
