package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
)

type WorkflowRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Workflow, error)
	Create(ctx context.Context, w *model.Workflow) error
	UpdateNextPostDate(ctx context.Context, id int64, next time.Time) error
}

type WorkflowRepository struct {
	DB *sql.DB
}

func (r *WorkflowRepository) Create(ctx context.Context, w *model.Workflow) error {
	if w.Status == "" {
		w.Status = model.WorkflowActive
	}
	if w.Topics == nil {
		w.Topics = []string{}
	}
	if w.PlatformIDs == nil {
		w.PlatformIDs = []int64{}
	}
	query := `
		INSERT INTO workflows (user_id, name, status, frequency, next_post_date, content_type, tone, topics, platform_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	return r.DB.QueryRowContext(ctx, query,
		w.UserID, w.Name, string(w.Status), w.Frequency, w.NextPostDate,
		w.ContentType, w.Tone, pq.Array(w.Topics), pq.Array(w.PlatformIDs),
	).Scan(&w.ID, &w.CreatedAt)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*model.Workflow, error) {
	query := `
		SELECT id, user_id, name, status, frequency, next_post_date, content_type, tone, topics, platform_ids, created_at, updated_at
		FROM workflows WHERE id=$1
	`
	var (
		w      model.Workflow
		status string
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&w.ID, &w.UserID, &w.Name, &status, &w.Frequency, &w.NextPostDate,
		&w.ContentType, &w.Tone, pq.Array(&w.Topics), pq.Array(&w.PlatformIDs),
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("workflow", id)
		}
		return nil, err
	}
	w.Status = model.WorkflowStatus(status)
	return &w, nil
}

func (r *WorkflowRepository) UpdateNextPostDate(ctx context.Context, id int64, next time.Time) error {
	query := `UPDATE workflows SET next_post_date=$1, updated_at=NOW() WHERE id=$2`
	res, err := r.DB.ExecContext(ctx, query, next, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound("workflow", id)
	}
	return nil
}

var _ WorkflowRepositoryInterface = (*WorkflowRepository)(nil)
