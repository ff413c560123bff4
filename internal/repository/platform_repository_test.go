package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
)

func TestPlatformRepositoryGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM platforms WHERE id=\\$1").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "platform_type", "settings", "created_at"}).
			AddRow(int64(1), int64(9), "Acme on X", "twitter", []byte(`{"handle":"acme"}`), time.Now()))

	repo := &PlatformRepository{DB: db}
	p, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	tw, ok := p.Settings.(*model.TwitterSettings)
	if !ok || tw.Handle != "acme" {
		t.Errorf("unexpected settings %#v", p.Settings)
	}
}

func TestPlatformRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM platforms").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := &PlatformRepository{DB: db}
	if _, err := repo.GetByID(context.Background(), 99); !appErrors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestWorkflowRepositoryUpdateNextPostDateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	next := time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE workflows SET next_post_date=\\$1").
		WithArgs(next, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &WorkflowRepository{DB: db}
	if err := repo.UpdateNextPostDate(context.Background(), 4, next); !appErrors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestEngagementRepositoryQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	since := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM engagement_history").
		WithArgs(int64(1), since).
		WillReturnRows(sqlmock.NewRows([]string{"posted_at", "engagement_value"}).AddRow(at, 42.5))

	repo := &EngagementRepository{DB: db}
	out, err := repo.Query(context.Background(), 1, since)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(out) != 1 || out[0].EngagementValue != 42.5 || !out[0].Timestamp.Equal(at) {
		t.Errorf("unexpected outcomes %+v", out)
	}
}
