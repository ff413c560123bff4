package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/repository"
)

type PostService struct {
	PostRepo     repository.PostRepositoryInterface
	WorkflowRepo repository.WorkflowRepositoryInterface
	Aggregator   Recommender
	Clock        Clock
}

type CreatePostInput struct {
	WorkflowID   int64      `json:"workflowId"`
	Content      string     `json:"content"`
	PlatformIDs  []int64    `json:"platformIds"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	Optimize     bool       `json:"optimize"`
}

// CreatePost stores a pending post. Without an explicit time, or with Optimize set, the time comes from
// the aggregator; an explicit time then acts as the earliest allowed slot.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*model.Post, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, appErrors.NewValidation("content", "must not be empty")
	}
	if len(in.PlatformIDs) == 0 {
		return nil, appErrors.NewValidation("platformIds", "must not be empty")
	}
	now := nowFrom(s.Clock)
	if in.ScheduledFor != nil && !in.Optimize && !in.ScheduledFor.After(now) {
		return nil, appErrors.NewValidation("scheduledFor", "must be in the future")
	}

	if _, err := s.WorkflowRepo.GetByID(ctx, in.WorkflowID); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, err
		}
		return nil, appErrors.NewStoreUnavailable("get workflow", err)
	}

	post := &model.Post{
		WorkflowID:  in.WorkflowID,
		Content:     in.Content,
		Status:      model.PostPending,
		PlatformIDs: in.PlatformIDs,
	}

	if in.ScheduledFor == nil || in.Optimize {
		var floor time.Time
		if in.ScheduledFor != nil {
			floor = in.ScheduledFor.UTC()
		}
		rec, err := s.Aggregator.RecommendAfter(ctx, in.PlatformIDs, floor)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		post.ScheduledFor = rec.OptimalTime
		post.OptimizationApplied = true
		post.OptimizationData = data
	} else {
		post.ScheduledFor = in.ScheduledFor.UTC().Truncate(time.Microsecond)
	}

	if err := s.PostRepo.Create(ctx, post); err != nil {
		return nil, appErrors.NewStoreUnavailable("create post", err)
	}
	return post, nil
}
