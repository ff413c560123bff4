package service

import (
	"context"
	"errors"
	"testing"
	"time"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
)

type failingRecommender struct{}

func (failingRecommender) RecommendNextPostTime(ctx context.Context, ids []int64) (*Recommendation, error) {
	return nil, errors.New("optimizer down")
}

func (failingRecommender) RecommendAfter(ctx context.Context, ids []int64, floor time.Time) (*Recommendation, error) {
	return nil, errors.New("optimizer down")
}

func newTestRescheduler(now time.Time, wf *model.Workflow, source staticSource) (*WorkflowRescheduler, *memWorkflowRepo) {
	clock := newFakeClock(now)
	repo := newWorkflowRepo(wf)
	return &WorkflowRescheduler{
		WorkflowRepo: repo,
		Aggregator:   &OptimalTimeAggregator{Optimizer: source, Clock: clock},
		Clock:        clock,
	}, repo
}

func TestAdvanceDailyWithBestHour(t *testing.T) {
	now := mustTime("2024-01-01T10:00:00Z")
	wf := &model.Workflow{ID: 1, Frequency: "daily", PlatformIDs: []int64{1}}
	r, repo := newTestRescheduler(now, wf, staticSource{1: opt(1, []int{}, []int{14}, floatPtr(4))})

	next, err := r.Advance(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := mustTime("2024-01-02T14:00:00Z"); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
	if len(repo.updates) != 1 || !repo.workflows[1].NextPostDate.Equal(next) {
		t.Errorf("expected next post date to be stored once, got %v", repo.updates)
	}
}

func TestAdvanceEndToEndWithOptimizer(t *testing.T) {
	now := mustTime("2024-01-01T10:00:00Z")
	clock := newFakeClock(now)
	optimizer := &PostingTimeOptimizer{
		PlatformRepo: newPlatformRepo(&model.Platform{ID: 1, Type: model.PlatformTwitter}),
		OptimizationRepo: newOptimizationRepo(&model.TimeOptimization{
			PlatformID: 1, PlatformType: model.PlatformTwitter,
			BestDays: []int{}, BestHours: []int{14}, AudienceTimezone: "UTC",
			EngagementScore: floatPtr(2), LastUpdated: now.Add(-time.Hour),
		}),
		EngagementRepo: &memEngagementRepo{},
		Clock:          clock,
	}
	repo := newWorkflowRepo(&model.Workflow{ID: 1, Frequency: "daily", PlatformIDs: []int64{1}})
	r := &WorkflowRescheduler{
		WorkflowRepo: repo,
		Aggregator:   &OptimalTimeAggregator{Optimizer: optimizer, Clock: clock},
		Clock:        clock,
	}

	next, err := r.Advance(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := mustTime("2024-01-02T14:00:00Z"); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestAdvanceWeeklyRespectsFloor(t *testing.T) {
	// Monday; best day Tuesday is too close for a weekly cadence, so the Tuesday a week later wins.
	now := mustTime("2024-01-01T10:00:00Z")
	wf := &model.Workflow{ID: 1, Frequency: "weekly", PlatformIDs: []int64{1}}
	r, _ := newTestRescheduler(now, wf, staticSource{1: opt(1, []int{2}, []int{9}, floatPtr(1))})

	next, err := r.Advance(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := mustTime("2024-01-09T09:00:00Z"); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestAdvanceFallsBackToFrequency(t *testing.T) {
	now := mustTime("2024-01-01T10:00:00Z")

	tests := []struct {
		name string
		wf   *model.Workflow
		rec  Recommender
		want time.Time
	}{
		{
			name: "no optimization signal",
			wf:   &model.Workflow{ID: 1, Frequency: "daily", PlatformIDs: []int64{1}},
			rec:  &OptimalTimeAggregator{Optimizer: staticSource{1: opt(1, []int{}, []int{}, nil)}, Clock: newFakeClock(now)},
			want: now.Add(24 * time.Hour),
		},
		{
			name: "no platforms",
			wf:   &model.Workflow{ID: 1, Frequency: "12h"},
			want: now.Add(12 * time.Hour),
		},
		{
			name: "optimizer error",
			wf:   &model.Workflow{ID: 1, Frequency: "weekly", PlatformIDs: []int64{1}},
			rec:  failingRecommender{},
			want: now.Add(7 * 24 * time.Hour),
		},
		{
			name: "invalid frequency uses daily",
			wf:   &model.Workflow{ID: 1, Frequency: "every full moon"},
			want: now.Add(24 * time.Hour),
		},
		{
			name: "zero interval is clamped forward",
			wf:   &model.Workflow{ID: 1, Frequency: "0s"},
			want: now.Add(time.Minute),
		},
		{
			name: "cron expression",
			wf:   &model.Workflow{ID: 1, Frequency: "0 9 * * *"},
			want: mustTime("2024-01-02T09:00:00Z"),
		},
		{
			name: "cron that never fires uses daily",
			wf:   &model.Workflow{ID: 1, Frequency: "0 0 30 2 *"},
			want: now.Add(24 * time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &WorkflowRescheduler{
				WorkflowRepo: newWorkflowRepo(tt.wf),
				Aggregator:   tt.rec,
				Clock:        newFakeClock(now),
			}
			next, err := r.Advance(context.Background(), 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !next.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, next)
			}
			if !next.After(now) {
				t.Errorf("next post date %v is not after %v", next, now)
			}
		})
	}
}

func TestClampAfter(t *testing.T) {
	now := mustTime("2024-01-01T10:00:00Z")
	tests := []struct {
		name string
		next time.Time
		want time.Time
	}{
		{"already after", now.Add(time.Hour), now.Add(time.Hour)},
		{"equal to now", now, now.Add(time.Minute)},
		{"seconds behind", now.Add(-30 * time.Second), now.Add(30 * time.Second)},
		{"minutes behind", now.Add(-5 * time.Minute), now.Add(time.Minute)},
		{"far behind", now.Add(-400 * 24 * time.Hour), now.Add(time.Minute)},
		{"zero", time.Time{}, now.Add(time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampAfter(tt.next, now); !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAdvanceErrors(t *testing.T) {
	r := &WorkflowRescheduler{WorkflowRepo: newWorkflowRepo(), Clock: newFakeClock(time.Now())}
	if _, err := r.Advance(context.Background(), 5); !appErrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}

	repo := newWorkflowRepo(&model.Workflow{ID: 1, Frequency: "daily"})
	repo.err = errStoreDown
	r.WorkflowRepo = repo
	if _, err := r.Advance(context.Background(), 1); !appErrors.IsStoreUnavailable(err) {
		t.Errorf("expected StoreUnavailableError, got %v", err)
	}
}
