package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
)

type PostRepositoryInterface interface {
	FindDue(ctx context.Context, now time.Time) ([]*model.Post, error)
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	Create(ctx context.Context, p *model.Post) error
	// MarkPosted and MarkFailed only move a post out of pending. They report
	// false when the post was already resolved.
	MarkPosted(ctx context.Context, id int64, postedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, reason string) (bool, error)
	CountByStatus(ctx context.Context, workflowID int64) (map[string]int, error)
}

type PostRepository struct {
	DB *sql.DB
}

const postColumns = `id, workflow_id, content, status, scheduled_for, posted_at, platform_ids,
	optimization_applied, optimization_data, engagement_metrics, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*model.Post, error) {
	var (
		p          model.Post
		status     string
		optData    []byte
		engagement []byte
	)
	err := row.Scan(
		&p.ID, &p.WorkflowID, &p.Content, &status, &p.ScheduledFor, &p.PostedAt, pq.Array(&p.PlatformIDs),
		&p.OptimizationApplied, &optData, &engagement, &p.LastError, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = model.PostStatus(status)
	if len(optData) > 0 {
		p.OptimizationData = json.RawMessage(optData)
	}
	if len(engagement) > 0 {
		p.EngagementMetrics = json.RawMessage(engagement)
	}
	return &p, nil
}

// FindDue returns pending posts scheduled at or before now, earliest first.
func (r *PostRepository) FindDue(ctx context.Context, now time.Time) ([]*model.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY scheduled_for ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id=$1`
	p, err := scanPost(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("post", id)
		}
		return nil, err
	}
	return p, nil
}

func (r *PostRepository) Create(ctx context.Context, p *model.Post) error {
	if p.Status == "" {
		p.Status = model.PostPending
	}
	query := `
		INSERT INTO posts (workflow_id, content, status, scheduled_for, platform_ids, optimization_applied, optimization_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	return r.DB.QueryRowContext(ctx, query,
		p.WorkflowID, p.Content, string(p.Status), p.ScheduledFor, pq.Array(p.PlatformIDs),
		p.OptimizationApplied, nullJSON(p.OptimizationData),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PostRepository) MarkPosted(ctx context.Context, id int64, postedAt time.Time) (bool, error) {
	query := `
		UPDATE posts SET status='posted', posted_at=$1, last_error='', updated_at=NOW()
		WHERE id=$2 AND status='pending'
	`
	return execTransition(ctx, r.DB, query, postedAt, id)
}

func (r *PostRepository) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	query := `
		UPDATE posts SET status='failed', last_error=$1, updated_at=NOW()
		WHERE id=$2 AND status='pending'
	`
	return execTransition(ctx, r.DB, query, reason, id)
}

func (r *PostRepository) CountByStatus(ctx context.Context, workflowID int64) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM posts WHERE workflow_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"total": 0, "pending": 0, "posted": 0, "failed": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

func execTransition(ctx context.Context, db *sql.DB, query string, args ...any) (bool, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

var _ PostRepositoryInterface = (*PostRepository)(nil)
