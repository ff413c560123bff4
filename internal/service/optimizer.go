package service

import (
	"context"
	"sort"
	"time"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/metrics"
	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/repository"
)

type OptimizerConfig struct {
	// Staleness is how long a stored record is served before it is recomputed.
	Staleness time.Duration
	// Lookback bounds how far back engagement history is read.
	Lookback time.Duration
	// TopK caps the number of best days and best hours.
	TopK int
}

func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{Staleness: 24 * time.Hour, Lookback: 90 * 24 * time.Hour, TopK: 3}
}

type ComputeOptions struct {
	ForceRefresh bool
}

// PostingTimeOptimizer derives each platform's best posting days and hours from its engagement history
// and caches the result in the time optimization store.
type PostingTimeOptimizer struct {
	PlatformRepo     repository.PlatformRepositoryInterface
	OptimizationRepo repository.TimeOptimizationRepositoryInterface
	EngagementRepo   repository.EngagementRepositoryInterface
	Clock            Clock
	Config           OptimizerConfig
	Metrics          *metrics.Collector
	Logger           logging.Logger
}

func (o *PostingTimeOptimizer) ComputeOptimalTimes(ctx context.Context, platformID int64, opts ComputeOptions) (*model.TimeOptimization, error) {
	platform, err := o.PlatformRepo.GetByID(ctx, platformID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return nil, err
		}
		return nil, appErrors.NewStoreUnavailable("get platform", err)
	}

	now := nowFrom(o.Clock)
	existing, err := o.OptimizationRepo.GetByPlatformID(ctx, platformID)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("get time optimization", err)
	}
	if existing != nil && !opts.ForceRefresh && !existing.Stale(now, o.config().Staleness) {
		o.Metrics.OptimizerLookup("hit")
		return existing, nil
	}

	tz := model.DefaultAudienceTimezone
	if existing != nil && existing.AudienceTimezone != "" {
		tz = existing.AudienceTimezone
	}
	loc := (&model.TimeOptimization{AudienceTimezone: tz}).Location()

	since := now.Add(-o.config().Lookback)
	history, err := o.EngagementRepo.Query(ctx, platformID, since)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("query engagement history", err)
	}

	scores := scoreEngagement(history, loc, o.config().TopK)
	opt := &model.TimeOptimization{
		PlatformID:       platformID,
		PlatformType:     platform.Type,
		BestDays:         scores.days,
		BestHours:        scores.hours,
		AudienceTimezone: tz,
		EngagementScore:  scores.overall,
		LastUpdated:      now,
	}
	if err := o.OptimizationRepo.Upsert(ctx, opt); err != nil {
		return nil, appErrors.NewStoreUnavailable("upsert time optimization", err)
	}
	o.Metrics.OptimizerLookup("recompute")
	o.logger().WithFields(logging.Fields{
		"platform_id": platformID,
		"samples":     len(history),
		"best_days":   opt.BestDays,
		"best_hours":  opt.BestHours,
		"forced":      opts.ForceRefresh,
	}).Info("recomputed posting times")
	return opt, nil
}

// Heatmap returns the normalized engagement of every (day, hour) bucket over the lookback window.
func (o *PostingTimeOptimizer) Heatmap(ctx context.Context, platformID int64) (*model.EngagementHeatmap, error) {
	if _, err := o.PlatformRepo.GetByID(ctx, platformID); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, err
		}
		return nil, appErrors.NewStoreUnavailable("get platform", err)
	}
	stored, err := o.OptimizationRepo.GetByPlatformID(ctx, platformID)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("get time optimization", err)
	}
	loc := stored.Location()

	since := nowFrom(o.Clock).Add(-o.config().Lookback)
	history, err := o.EngagementRepo.Query(ctx, platformID, since)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("query engagement history", err)
	}

	b := bucketize(history, loc)
	maxMean := 0.0
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			if m := b.cell[d][h].mean(); m > maxMean {
				maxMean = m
			}
		}
	}
	cells := make([]model.HeatmapCell, 0, 7*24)
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			c := b.cell[d][h]
			cells = append(cells, model.HeatmapCell{Day: d, Hour: h, Score: normalize(c.mean(), maxMean), Samples: c.n})
		}
	}
	return &model.EngagementHeatmap{
		PlatformID: platformID,
		Timezone:   loc.String(),
		Since:      since,
		Cells:      cells,
	}, nil
}

func (o *PostingTimeOptimizer) config() OptimizerConfig {
	cfg := o.Config
	def := DefaultOptimizerConfig()
	if cfg.Staleness <= 0 {
		cfg.Staleness = def.Staleness
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	return cfg
}

func (o *PostingTimeOptimizer) logger() logging.Logger {
	if o.Logger == nil {
		return logging.Nop()
	}
	return o.Logger
}

type bucket struct {
	sum float64
	n   int
}

func (b bucket) mean() float64 {
	if b.n == 0 {
		return 0
	}
	return b.sum / float64(b.n)
}

type buckets struct {
	day   [7]bucket
	hour  [24]bucket
	cell  [7][24]bucket
	total bucket
}

func bucketize(history []model.EngagementOutcome, loc *time.Location) *buckets {
	b := &buckets{}
	for _, h := range history {
		t := h.Timestamp.In(loc)
		d, hr := int(t.Weekday()), t.Hour()
		for _, bk := range []*bucket{&b.day[d], &b.hour[hr], &b.cell[d][hr], &b.total} {
			bk.sum += h.EngagementValue
			bk.n++
		}
	}
	return b
}

func normalize(v, peak float64) float64 {
	if peak <= 0 || v <= 0 {
		return 0
	}
	return v / peak
}

type engagementScores struct {
	days    []int
	hours   []int
	overall *float64
}

// scoreEngagement scores each day and hour by mean engagement normalized to the best bucket, and keeps
// the top k with a positive score. Ties go to the bucket with more samples, then the lower index.
func scoreEngagement(history []model.EngagementOutcome, loc *time.Location, k int) engagementScores {
	out := engagementScores{days: []int{}, hours: []int{}}
	if len(history) == 0 {
		return out
	}
	b := bucketize(history, loc)
	out.days = topK(b.day[:], k)
	out.hours = topK(b.hour[:], k)
	overall := b.total.mean()
	out.overall = &overall
	return out
}

func topK(bs []bucket, k int) []int {
	maxMean := 0.0
	for _, b := range bs {
		if m := b.mean(); m > maxMean {
			maxMean = m
		}
	}
	type ranked struct {
		idx   int
		score float64
		n     int
	}
	var cands []ranked
	for i, b := range bs {
		if s := normalize(b.mean(), maxMean); s > 0 {
			cands = append(cands, ranked{idx: i, score: s, n: b.n})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].n != cands[j].n {
			return cands[i].n > cands[j].n
		}
		return cands[i].idx < cands[j].idx
	})
	if len(cands) > k {
		cands = cands[:k]
	}
	picked := make([]int, 0, len(cands))
	for _, c := range cands {
		picked = append(picked, c.idx)
	}
	sort.Ints(picked)
	return picked
}
