package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/unclebandit/cadence-backend/internal/model"
)

type TimeOptimizationRepositoryInterface interface {
	// GetByPlatformID returns nil, nil when the platform has no record yet.
	GetByPlatformID(ctx context.Context, platformID int64) (*model.TimeOptimization, error)
	// Upsert replaces the platform's record and sets opt.ID.
	Upsert(ctx context.Context, opt *model.TimeOptimization) error
}

type TimeOptimizationRepository struct {
	DB *sql.DB
}

func (r *TimeOptimizationRepository) GetByPlatformID(ctx context.Context, platformID int64) (*model.TimeOptimization, error) {
	query := `
		SELECT id, platform_id, platform_type, best_days, best_hours, audience_timezone, engagement_score, last_updated
		FROM time_optimizations WHERE platform_id=$1
	`
	var (
		opt   model.TimeOptimization
		ptype string
		days  pq.Int64Array
		hours pq.Int64Array
		score sql.NullFloat64
	)
	err := r.DB.QueryRowContext(ctx, query, platformID).Scan(
		&opt.ID, &opt.PlatformID, &ptype, &days, &hours, &opt.AudienceTimezone, &score, &opt.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	opt.PlatformType = model.PlatformType(ptype)
	opt.BestDays = toInts(days)
	opt.BestHours = toInts(hours)
	if score.Valid {
		v := score.Float64
		opt.EngagementScore = &v
	}
	opt.LastUpdated = opt.LastUpdated.UTC()
	return &opt, nil
}

func (r *TimeOptimizationRepository) Upsert(ctx context.Context, opt *model.TimeOptimization) error {
	query := `
		INSERT INTO time_optimizations
			(platform_id, platform_type, best_days, best_hours, audience_timezone, engagement_score, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (platform_id) DO UPDATE SET
			platform_type = EXCLUDED.platform_type,
			best_days = EXCLUDED.best_days,
			best_hours = EXCLUDED.best_hours,
			audience_timezone = EXCLUDED.audience_timezone,
			engagement_score = EXCLUDED.engagement_score,
			last_updated = EXCLUDED.last_updated
		RETURNING id
	`
	var score sql.NullFloat64
	if opt.EngagementScore != nil {
		score = sql.NullFloat64{Float64: *opt.EngagementScore, Valid: true}
	}
	return r.DB.QueryRowContext(ctx, query,
		opt.PlatformID, string(opt.PlatformType), toInt64s(opt.BestDays), toInt64s(opt.BestHours),
		opt.AudienceTimezone, score, opt.LastUpdated,
	).Scan(&opt.ID)
}

func toInts(in pq.Int64Array) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func toInt64s(in []int) pq.Int64Array {
	out := make(pq.Int64Array, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

var _ TimeOptimizationRepositoryInterface = (*TimeOptimizationRepository)(nil)
