package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/cadence-backend/internal/model"
)

// EngagementRepositoryInterface is the read-only view over past post outcomes.
type EngagementRepositoryInterface interface {
	Query(ctx context.Context, platformID int64, since time.Time) ([]model.EngagementOutcome, error)
}

type EngagementRepository struct {
	DB *sql.DB
}

func (r *EngagementRepository) Query(ctx context.Context, platformID int64, since time.Time) ([]model.EngagementOutcome, error) {
	query := `
		SELECT posted_at, engagement_value
		FROM engagement_history
		WHERE platform_id=$1 AND posted_at >= $2
		ORDER BY posted_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, platformID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outcomes := []model.EngagementOutcome{}
	for rows.Next() {
		var o model.EngagementOutcome
		if err := rows.Scan(&o.Timestamp, &o.EngagementValue); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

var _ EngagementRepositoryInterface = (*EngagementRepository)(nil)
