package service

import (
	"context"
	"slices"
	"time"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/model"
)

const DefaultSearchDays = 14

// OptimizationSource is the cache-aware per-platform lookup the aggregator reads from.
type OptimizationSource interface {
	ComputeOptimalTimes(ctx context.Context, platformID int64, opts ComputeOptions) (*model.TimeOptimization, error)
}

// Recommender picks one posting instant for a set of platforms.
type Recommender interface {
	RecommendNextPostTime(ctx context.Context, platformIDs []int64) (*Recommendation, error)
	RecommendAfter(ctx context.Context, platformIDs []int64, floor time.Time) (*Recommendation, error)
}

type Recommendation struct {
	OptimalTime       time.Time                 `json:"optimalTime"`
	TimeOptimizations []*model.TimeOptimization `json:"timeOptimizations"`
	// Matched is false when no slot qualified within the search bound and OptimalTime is the fallback.
	Matched bool `json:"matched"`
}

// HasSignal reports whether any platform contributed a best day or hour.
func (r *Recommendation) HasSignal() bool {
	for _, opt := range r.TimeOptimizations {
		if opt.HasSignal() {
			return true
		}
	}
	return false
}

type OptimalTimeAggregator struct {
	Optimizer  OptimizationSource
	Clock      Clock
	SearchDays int
	Logger     logging.Logger
}

func (a *OptimalTimeAggregator) RecommendNextPostTime(ctx context.Context, platformIDs []int64) (*Recommendation, error) {
	return a.RecommendAfter(ctx, platformIDs, time.Time{})
}

// RecommendAfter is RecommendNextPostTime restricted to slots at or after floor.
func (a *OptimalTimeAggregator) RecommendAfter(ctx context.Context, platformIDs []int64, floor time.Time) (*Recommendation, error) {
	if len(platformIDs) == 0 {
		return nil, appErrors.NewValidation("platformIds", "must not be empty")
	}

	opts := make([]*model.TimeOptimization, 0, len(platformIDs))
	seen := make(map[int64]bool, len(platformIDs))
	for _, id := range platformIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		opt, err := a.Optimizer.ComputeOptimalTimes(ctx, id, ComputeOptions{})
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}

	now := nowFrom(a.Clock)
	from := now
	if floor.After(from) {
		from = floor
	}
	days := a.SearchDays
	if days <= 0 {
		days = DefaultSearchDays
	}

	slot, ok := pickSlot(opts, now, from, days)
	if !ok {
		slot = from.Add(time.Hour)
		if a.Logger != nil {
			a.Logger.WithFields(logging.Fields{
				"platform_ids": platformIDs,
				"search_days":  days,
			}).Debug("no optimized slot in range, using fallback")
		}
	}
	return &Recommendation{OptimalTime: slot, TimeOptimizations: opts, Matched: ok}, nil
}

// pickSlot walks whole-hour slots day by day from `from`. Within the first day holding a qualifying
// slot it returns the slot with the highest combined engagement score, the earliest on ties.
// Slots must be at or after from and strictly after now.
func pickSlot(opts []*model.TimeOptimization, now, from time.Time, searchDays int) (time.Time, bool) {
	loc := evaluationLocation(opts)
	days, hours := unionConstraints(opts)

	start := from.In(loc)
	for i := 0; i <= searchDays; i++ {
		day := time.Date(start.Year(), start.Month(), start.Day()+i, 0, 0, 0, 0, loc)
		if days != nil && !days[int(day.Weekday())] {
			continue
		}
		var (
			best      time.Time
			bestScore float64
			found     bool
		)
		for h := 0; h < 24; h++ {
			if hours != nil && !hours[h] {
				continue
			}
			t := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, loc)
			if t.Before(from) || !t.After(now) || int(t.Weekday()) != int(day.Weekday()) {
				continue
			}
			s := combinedScore(opts, int(t.Weekday()), t.Hour())
			if !found || s > bestScore {
				best, bestScore, found = t, s, true
			}
		}
		if found {
			return best.UTC(), true
		}
	}
	return time.Time{}, false
}

// evaluationLocation is the shared audience timezone, or UTC when platforms disagree.
func evaluationLocation(opts []*model.TimeOptimization) *time.Location {
	if len(opts) == 0 {
		return time.UTC
	}
	tz := opts[0].AudienceTimezone
	for _, o := range opts[1:] {
		if o.AudienceTimezone != tz {
			return time.UTC
		}
	}
	return opts[0].Location()
}

// unionConstraints returns nil for a dimension no platform constrains.
func unionConstraints(opts []*model.TimeOptimization) (days map[int]bool, hours map[int]bool) {
	for _, o := range opts {
		for _, d := range o.BestDays {
			if days == nil {
				days = map[int]bool{}
			}
			days[d] = true
		}
		for _, h := range o.BestHours {
			if hours == nil {
				hours = map[int]bool{}
			}
			hours[h] = true
		}
	}
	return days, hours
}

func combinedScore(opts []*model.TimeOptimization, day, hour int) float64 {
	total := 0.0
	for _, o := range opts {
		if o.EngagementScore == nil {
			continue
		}
		if len(o.BestDays) > 0 && !slices.Contains(o.BestDays, day) {
			continue
		}
		if len(o.BestHours) > 0 && !slices.Contains(o.BestHours, hour) {
			continue
		}
		total += *o.EngagementScore
	}
	return total
}
