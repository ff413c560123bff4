package service

import (
	"context"
	"time"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/repository"
	"github.com/unclebandit/cadence-backend/internal/schedule"
)

const fallbackFrequency = "daily"

// WorkflowRescheduler moves a workflow's nextPostDate forward after one of its posts resolves.
type WorkflowRescheduler struct {
	WorkflowRepo repository.WorkflowRepositoryInterface
	Aggregator   Recommender
	Clock        Clock
	Logger       logging.Logger
}

// Advance computes and stores the workflow's next post date. The result is always after the
// instant Advance was called.
func (r *WorkflowRescheduler) Advance(ctx context.Context, workflowID int64) (time.Time, error) {
	wf, err := r.WorkflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return time.Time{}, err
		}
		return time.Time{}, appErrors.NewStoreUnavailable("get workflow", err)
	}

	log := r.logger().WithField("workflow_id", workflowID)
	now := nowFrom(r.Clock)

	freq, err := schedule.ParseFrequency(wf.Frequency)
	if err != nil {
		log.WithError(err).Warnf("⚠️ invalid frequency, falling back to %s", fallbackFrequency)
		freq, _ = schedule.ParseFrequency(fallbackFrequency)
	}

	next := freq.Next(now)
	source := "frequency"
	if len(wf.PlatformIDs) > 0 && r.Aggregator != nil {
		rec, err := r.Aggregator.RecommendAfter(ctx, wf.PlatformIDs, freq.Floor(now))
		switch {
		case err != nil:
			log.WithError(err).Warn("optimizer unavailable, using frequency")
		case rec.Matched && rec.HasSignal():
			next = rec.OptimalTime
			source = "optimizer"
		}
	}

	next = clampAfter(next, now)

	if err := r.WorkflowRepo.UpdateNextPostDate(ctx, workflowID, next); err != nil {
		if appErrors.IsNotFound(err) {
			return time.Time{}, err
		}
		return time.Time{}, appErrors.NewStoreUnavailable("update next post date", err)
	}
	log.WithFields(logging.Fields{
		"next_post_date": next,
		"frequency":      freq.String(),
		"source":         source,
	}).Info("workflow rescheduled")
	return next, nil
}

// clampAfter moves next forward in whole minutes until it is after now. A value more than a day
// behind, or zero, becomes now plus one minute.
func clampAfter(next, now time.Time) time.Time {
	if next.After(now) {
		return next
	}
	behind := now.Sub(next)
	if next.IsZero() || behind > 24*time.Hour {
		return now.Add(time.Minute)
	}
	steps := behind/time.Minute + 1
	return next.Add(steps * time.Minute)
}

func (r *WorkflowRescheduler) logger() logging.Logger {
	if r.Logger == nil {
		return logging.Nop()
	}
	return r.Logger
}
