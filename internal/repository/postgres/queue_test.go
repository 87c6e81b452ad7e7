package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/lib/pq"
)

var claimCols = []string{
	"id", "campaign_id", "email_type", "recipient_email", "user_id",
	"subject", "template_id", "template_data", "priority", "status",
	"scheduled_for", "created_at",
}

func TestQueueRepo_Claim(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("(?s)WITH next AS .+FOR UPDATE SKIP LOCKED.+SET status = 'processing', claimed_at = \\$2").
		WithArgs(10, now).
		WillReturnRows(sqlmock.NewRows(claimCols).
			AddRow("q1", nil, "order_confirmation", "a@example.com", "u1", "Order #1", "order_confirmation",
				[]byte(`{"order_number":"1"}`), 1, "processing", now, now).
			AddRow("q2", campaignID, "marketing", "b@example.com", nil, "Sale", "default",
				[]byte(`{}`), 5, "processing", now, now))

	out, err := NewQueueRepo(db).Claim(context.Background(), 10, now)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Claim() returned %d entries, want 2", len(out))
	}
	if out[0].CampaignID != nil || out[0].UserID == nil || *out[0].UserID != "u1" {
		t.Errorf("entry 0 ids = %v, %v", out[0].CampaignID, out[0].UserID)
	}
	if out[0].TemplateData["order_number"] != "1" {
		t.Errorf("entry 0 data = %v", out[0].TemplateData)
	}
	if out[1].CampaignID == nil || *out[1].CampaignID != campaignID {
		t.Errorf("entry 1 campaign = %v", out[1].CampaignID)
	}
	if out[1].Status != domain.QueueProcessing {
		t.Errorf("entry 1 status = %q", out[1].Status)
	}
}

func TestQueueRepo_MarkSent(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC()
	rec := &domain.MessageRecord{EmailID: "re_1", EmailType: "marketing", RecipientEmail: "a@example.com", Subject: "S", Status: domain.MessageSent, SentAt: now}

	mock.ExpectExec("UPDATE email_queue SET status = 'sent'").
		WithArgs("q1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sent_emails").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewQueueRepo(db).MarkSent(context.Background(), "q1", rec); err != nil {
		t.Fatalf("MarkSent() error: %v", err)
	}
}

func TestQueueRepo_MarkSentKeepsEntrySettledWhenInsertFails(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC()
	rec := &domain.MessageRecord{EmailID: "re_1", EmailType: "marketing", RecipientEmail: "a@example.com", Subject: "S", Status: domain.MessageSent, SentAt: now}

	// no transaction: the queue update stands on its own
	mock.ExpectExec("UPDATE email_queue SET status = 'sent'").
		WithArgs("q1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sent_emails").
		WillReturnError(&pq.Error{Code: "23505"})

	err := NewQueueRepo(db).MarkSent(context.Background(), "q1", rec)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("MarkSent() error = %v, want ErrConflict", err)
	}
}

func TestQueueRepo_FailStale(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	before := now.Add(-15 * time.Minute)
	mock.ExpectExec("UPDATE email_queue SET status = 'failed'.+WHERE status = 'processing' AND claimed_at < \\$1").
		WithArgs(before, "stale claim", now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewQueueRepo(db).FailStale(context.Background(), before, "stale claim", now)
	if err != nil {
		t.Fatalf("FailStale() error: %v", err)
	}
	if n != 3 {
		t.Errorf("FailStale() = %d, want 3", n)
	}
}

func TestQueueRepo_MarkFailedAndRelease(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE email_queue SET status = 'failed'").
		WithArgs("q1", now, "send: 422 invalid recipient").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE email_queue SET status = 'pending', claimed_at = NULL\\s+WHERE id = ANY\\(\\$1\\) AND status = 'processing'").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewQueueRepo(db)
	if err := repo.MarkFailed(context.Background(), "q1", "send: 422 invalid recipient", now); err != nil {
		t.Fatalf("MarkFailed() error: %v", err)
	}
	if err := repo.Release(context.Background(), []string{"q2", "q3"}); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	// nothing to release, no query
	if err := repo.Release(context.Background(), nil); err != nil {
		t.Fatalf("Release(nil) error: %v", err)
	}
}

func TestQueueRepo_Stats(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("FILTER \\(WHERE status = 'pending'\\)").
		WillReturnRows(sqlmock.NewRows([]string{"p", "pr", "s", "f"}).AddRow(4, 1, 20, 2))

	s, err := NewQueueRepo(db).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	want := domain.QueueStats{Pending: 4, Processing: 1, Sent: 20, Failed: 2}
	if s != want {
		t.Errorf("Stats() = %+v, want %+v", s, want)
	}
}

func TestQueueRepo_Insert(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO email_queue").
		WithArgs(sqlmock.AnyArg(), nil, "transactional", "a@example.com", nil, "Hi",
			"default", []byte(`{"name":"Ann"}`), 1, "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := &domain.QueueEntry{
		EmailType: "transactional", RecipientEmail: "a@example.com", Subject: "Hi",
		TemplateID: "default", TemplateData: map[string]any{"name": "Ann"},
		Priority: 1, Status: domain.QueuePending,
	}
	if err := NewQueueRepo(db).Insert(context.Background(), e); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if e.ID == "" {
		t.Error("Insert() should assign an id")
	}
}
