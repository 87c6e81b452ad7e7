package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/service/campaign"
)

const campaignID = "3f1c2a7e-8d4b-4c2e-9a61-0b5e7d9c1f20"

var campaignCols = []string{
	"id", "name", "email_type", "subject", "template_id", "template_data",
	"segment_criteria", "status", "scheduled_for", "sent_at", "recipient_count",
	"created_by", "created_at", "updated_at",
}

func TestCampaignRepo_Get(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM email_campaigns WHERE id = \\$1").
		WithArgs(campaignID).
		WillReturnRows(sqlmock.NewRows(campaignCols).AddRow(
			campaignID, "Spring sale", "marketing", "Sale!", "default",
			[]byte(`{"headline":"20% off"}`), []byte(`{"sales":true}`), "scheduled",
			at, nil, 12, "admin", at, at,
		))

	c, err := NewCampaignRepo(db).Get(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if c.Status != domain.CampaignScheduled {
		t.Errorf("Status = %q, want scheduled", c.Status)
	}
	if !c.SegmentCriteria[domain.CategorySales] {
		t.Errorf("SegmentCriteria = %v, want sales", c.SegmentCriteria)
	}
	if c.TemplateData["headline"] != "20% off" {
		t.Errorf("TemplateData = %v", c.TemplateData)
	}
	if c.SentAt != nil {
		t.Errorf("SentAt = %v, want nil", c.SentAt)
	}
}

func TestCampaignRepo_GetNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("FROM email_campaigns").
		WithArgs(campaignID).
		WillReturnRows(sqlmock.NewRows(campaignCols))

	repo := NewCampaignRepo(db)
	if _, err := repo.Get(context.Background(), campaignID); !errors.Is(err, campaign.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	// malformed ids never reach the database
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, campaign.ErrNotFound) {
		t.Errorf("Get(malformed) error = %v, want ErrNotFound", err)
	}
}

func TestCampaignRepo_ListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("FROM email_campaigns WHERE status = \\$1 ORDER BY scheduled_for ASC").
		WithArgs("draft").
		WillReturnRows(sqlmock.NewRows(campaignCols))

	out, err := NewCampaignRepo(db).List(context.Background(), domain.CampaignDraft)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", out)
	}
}

func TestCampaignRepo_Transition(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE email_campaigns SET status = \\$2").
		WithArgs(campaignID, "cancelled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE email_campaigns SET status = \\$2").
		WithArgs(campaignID, "cancelled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCampaignRepo(db)
	ctx := context.Background()
	ok, err := repo.Transition(ctx, campaignID, domain.LaunchableStatuses, domain.CampaignCancelled)
	if err != nil || !ok {
		t.Fatalf("first Transition() = %v, %v; want true", ok, err)
	}
	ok, err = repo.Transition(ctx, campaignID, domain.LaunchableStatuses, domain.CampaignCancelled)
	if err != nil || ok {
		t.Fatalf("second Transition() = %v, %v; want false", ok, err)
	}
}

func TestCampaignRepo_LaunchCopiesEntries(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	id := campaignID
	entries := []domain.QueueEntry{
		{CampaignID: &id, EmailType: "marketing", RecipientEmail: "a@example.com", Subject: "S", TemplateID: "default", Priority: 5, Status: domain.QueuePending, ScheduledFor: now, CreatedAt: now},
		{CampaignID: &id, EmailType: "marketing", RecipientEmail: "b@example.com", Subject: "S", TemplateID: "default", Priority: 5, Status: domain.QueuePending, ScheduledFor: now, CreatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE email_campaigns\\s+SET status = 'sent'").
		WithArgs(campaignID, now, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare(`COPY "email_queue"`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := NewCampaignRepo(db).Launch(context.Background(), campaignID, now, entries)
	if err != nil || !ok {
		t.Fatalf("Launch() = %v, %v; want true", ok, err)
	}
	if entries[0].ID == "" || entries[1].ID == "" {
		t.Error("Launch() should assign ids to entries")
	}
}

func TestCampaignRepo_LaunchAlreadySent(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE email_campaigns").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ok, err := NewCampaignRepo(db).Launch(context.Background(), campaignID, time.Now(), []domain.QueueEntry{{RecipientEmail: "a@example.com"}})
	if err != nil || ok {
		t.Fatalf("Launch() = %v, %v; want false, nil", ok, err)
	}
}

func TestCampaignRepo_LaunchCopyFailureRollsBack(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE email_campaigns").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare(`COPY "email_queue"`).
		ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := NewCampaignRepo(db).Launch(context.Background(), campaignID, time.Now(), []domain.QueueEntry{{RecipientEmail: "a@example.com"}})
	if err == nil {
		t.Fatal("Launch() should fail when the copy fails")
	}
}
