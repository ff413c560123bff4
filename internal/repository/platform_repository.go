package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
)

type PlatformRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Platform, error)
	Create(ctx context.Context, p *model.Platform) error
}

type PlatformRepository struct {
	DB *sql.DB
}

func (r *PlatformRepository) Create(ctx context.Context, p *model.Platform) error {
	settings, err := model.EncodePlatformSettings(p.Settings)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO platforms (user_id, name, platform_type, settings)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.DB.QueryRowContext(ctx, query, p.UserID, p.Name, string(p.Type), settings).Scan(&p.ID, &p.CreatedAt)
}

func (r *PlatformRepository) GetByID(ctx context.Context, id int64) (*model.Platform, error) {
	query := `
		SELECT id, user_id, name, platform_type, settings, created_at
		FROM platforms WHERE id=$1
	`
	var (
		p        model.Platform
		ptype    string
		settings []byte
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.UserID, &p.Name, &ptype, &settings, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("platform", id)
		}
		return nil, err
	}
	p.Type = model.PlatformType(ptype)
	p.Settings, err = model.DecodePlatformSettings(p.Type, settings)
	if err != nil {
		return nil, fmt.Errorf("platform %d: %w", id, err)
	}
	return &p, nil
}

var _ PlatformRepositoryInterface = (*PlatformRepository)(nil)
