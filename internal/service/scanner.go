package service

import (
	"context"
	"sort"
	"time"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/repository"
)

type PendingPostScanner struct {
	PostRepo repository.PostRepositoryInterface
}

// FindDuePosts returns pending posts scheduled at or before now, earliest first. It only reads.
func (s *PendingPostScanner) FindDuePosts(ctx context.Context, now time.Time) ([]*model.Post, error) {
	posts, err := s.PostRepo.FindDue(ctx, now)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("scan due posts", err)
	}
	due := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		if p.Due(now) {
			due = append(due, p)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].ScheduledFor.Equal(due[j].ScheduledFor) {
			return due[i].ScheduledFor.Before(due[j].ScheduledFor)
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}
