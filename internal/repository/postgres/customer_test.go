package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/service/preferences"
)

func TestDecodePreferences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.EmailPreferences
	}{
		{"null column", "", domain.EmailPreferences{OrderUpdates: true}},
		{"partial object keeps defaults", `{"sales":true}`, domain.EmailPreferences{OrderUpdates: true, Sales: true}},
		{"explicit opt out", `{"order_updates":false,"blog":true}`, domain.EmailPreferences{Blog: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodePreferences([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decodePreferences() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("decodePreferences() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCustomerRepo_GetByEmailIsCaseInsensitive(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("FROM customers WHERE LOWER\\(email\\) = LOWER\\(\\$1\\)").
		WithArgs("Ann@Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "email_preferences"}).
			AddRow("u1", "ann@example.com", []byte(`{"order_updates":true,"new_products":true}`)))

	p, err := NewCustomerRepo(db).GetByEmail(context.Background(), "Ann@Example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error: %v", err)
	}
	if p.UserID != "u1" || !p.Preferences.NewProducts {
		t.Errorf("GetByEmail() = %+v", p)
	}
}

func TestCustomerRepo_SaveMissingProfile(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE customers SET email_preferences = \\$2 WHERE id = \\$1").
		WithArgs("ghost", []byte(`{"order_updates":true,"new_products":false,"sales":false,"blog":false}`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewCustomerRepo(db).Save(context.Background(), "ghost", domain.DefaultPreferences())
	if !errors.Is(err, preferences.ErrNotFound) {
		t.Fatalf("Save() error = %v, want ErrNotFound", err)
	}
}

func TestCustomerRepo_ByAnyCategory(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("(?s)FROM customers.+unnest\\(\\$1::text\\[\\]\\).+email_preferences ->> c.key").
		WithArgs(`{"sales","blog"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow("u1", "a@example.com").
			AddRow("u2", "b@example.com"))

	out, err := NewCustomerRepo(db).ByAnyCategory(context.Background(),
		[]domain.Category{domain.CategorySales, domain.CategoryBlog})
	if err != nil {
		t.Fatalf("ByAnyCategory() error: %v", err)
	}
	if len(out) != 2 || out[1].Email != "b@example.com" {
		t.Errorf("ByAnyCategory() = %+v", out)
	}
}

func TestCustomerRepo_Counts(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM customers WHERE email_preferences IS NOT NULL$").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))
	mock.ExpectQuery("(?s)SELECT COUNT\\(\\*\\) FROM customers.+unnest").
		WithArgs(`{"new_products"}`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))

	repo := NewCustomerRepo(db)
	if n, err := repo.CountAllWithPreferences(context.Background()); err != nil || n != 40 {
		t.Fatalf("CountAllWithPreferences() = %d, %v", n, err)
	}
	if n, err := repo.CountByAnyCategory(context.Background(), []domain.Category{domain.CategoryNewProducts}); err != nil || n != 9 {
		t.Fatalf("CountByAnyCategory() = %d, %v", n, err)
	}
}
