package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/lease"
	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/metrics"
	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/publisher"
	"github.com/unclebandit/cadence-backend/internal/queue"
	"github.com/unclebandit/cadence-backend/internal/repository"
)

type DispatchConfig struct {
	// PublishTimeout bounds each platform leg.
	PublishTimeout time.Duration
	// MaxInFlight caps concurrent publish calls across the whole cycle.
	MaxInFlight int
	// PostWorkers caps how many posts are dispatched at once.
	PostWorkers int
	// LeaseTTL is how long the cross-process cycle lease lives if never released.
	LeaseTTL time.Duration
}

func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		PublishTimeout: 30 * time.Second,
		MaxInFlight:    4,
		PostWorkers:    2,
		LeaseTTL:       10 * time.Minute,
	}
}

// CycleLease serializes dispatch cycles across processes.
type CycleLease interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) (bool, error)
	RecordCycle(ctx context.Context, fields map[string]any) error
}

// Advancer recomputes a workflow's next post date.
type Advancer interface {
	Advance(ctx context.Context, workflowID int64) (time.Time, error)
}

type CycleResult struct {
	CycleID        string    `json:"cycleId"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	DueCount       int       `json:"dueCount"`
	ProcessedCount int       `json:"processedCount"`
	Failures       []int64   `json:"failures"`
}

// SchedulerDispatchLoop turns due posts into published or failed posts. The timer and manual triggers
// share RunCycle; a call made while a cycle is running is rejected with ErrCycleInProgress.
type SchedulerDispatchLoop struct {
	Scanner      *PendingPostScanner
	PostRepo     repository.PostRepositoryInterface
	PlatformRepo repository.PlatformRepositoryInterface
	Publisher    publisher.Publisher
	Rescheduler  Advancer
	Config       DispatchConfig

	// Optional collaborators.
	Events      queue.Queue
	EventsTopic string
	Lease       CycleLease
	Metrics     *metrics.Collector
	Logger      logging.Logger

	running atomic.Bool

	mu   sync.Mutex
	last *CycleResult
}

type postOutcome struct {
	resolved bool
	status   model.PostStatus
}

func (d *SchedulerDispatchLoop) Running() bool { return d.running.Load() }

// LastCycle returns a copy of the last completed cycle, or nil before the first one.
func (d *SchedulerDispatchLoop) LastCycle() *CycleResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return nil
	}
	cp := *d.last
	cp.Failures = append([]int64(nil), d.last.Failures...)
	return &cp
}

func (d *SchedulerDispatchLoop) RunCycle(ctx context.Context, now time.Time) (*CycleResult, error) {
	if !d.running.CompareAndSwap(false, true) {
		d.Metrics.CycleOutcome("rejected")
		return nil, appErrors.ErrCycleInProgress
	}
	defer d.running.Store(false)

	cfg := d.config()
	cycleID := uuid.NewString()
	log := d.logger().WithField("cycle_id", cycleID)
	started := time.Now()

	if d.Lease != nil {
		ok, err := d.Lease.Acquire(ctx, lease.DispatchCycleKey, cycleID, cfg.LeaseTTL)
		if err != nil {
			d.Metrics.CycleOutcome("aborted")
			return nil, appErrors.NewStoreUnavailable("acquire cycle lease", err)
		}
		if !ok {
			d.Metrics.CycleOutcome("rejected")
			log.Debug("another process holds the dispatch lease")
			return nil, appErrors.ErrCycleInProgress
		}
		defer func() {
			if _, err := d.Lease.Release(context.Background(), lease.DispatchCycleKey, cycleID); err != nil {
				log.WithError(err).Warn("failed to release dispatch lease")
			}
		}()
	}

	posts, err := d.Scanner.FindDuePosts(ctx, now)
	if err != nil {
		d.Metrics.CycleOutcome("aborted")
		log.WithError(err).Error("❌ dispatch cycle aborted")
		return nil, err
	}

	outcomes := make([]postOutcome, len(posts))
	sem := semaphore.NewWeighted(int64(cfg.MaxInFlight))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.PostWorkers)
	for i, p := range posts {
		i, p := i, p
		g.Go(func() error {
			out, err := d.dispatchPost(gctx, sem, cycleID, p, now)
			outcomes[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		d.Metrics.CycleOutcome("aborted")
		log.WithError(err).Error("❌ dispatch cycle aborted")
		return nil, err
	}

	result := &CycleResult{
		CycleID:    cycleID,
		StartedAt:  now,
		FinishedAt: now.Add(time.Since(started)),
		DueCount:   len(posts),
		Failures:   []int64{},
	}
	for i, out := range outcomes {
		if !out.resolved {
			continue
		}
		result.ProcessedCount++
		if out.status == model.PostFailed {
			result.Failures = append(result.Failures, posts[i].ID)
		}
	}

	d.mu.Lock()
	d.last = result
	d.mu.Unlock()

	d.Metrics.CycleOutcome("completed")
	d.Metrics.ObserveCycle(time.Since(started).Seconds())
	if d.Lease != nil {
		err := d.Lease.RecordCycle(ctx, map[string]any{
			"cycle_id":  cycleID,
			"due":       result.DueCount,
			"processed": result.ProcessedCount,
			"failed":    len(result.Failures),
			"at":        now.Format(time.RFC3339),
		})
		if err != nil {
			log.WithError(err).Warn("failed to record cycle stats")
		}
	}
	log.WithFields(logging.Fields{
		"due":         result.DueCount,
		"processed":   result.ProcessedCount,
		"failures":    result.Failures,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("dispatch cycle completed")
	return result, nil
}

// errLegInterrupted marks a platform leg cut short by the cycle being cancelled.
var errLegInterrupted = errors.New("publish interrupted: dispatch cycle cancelled")

// dispatchPost fans a post out to all its platforms, then writes its status once.
// It returns an error only when the status write fails, or when the cycle was cancelled before any
// platform accepted the post, which leaves it pending for the next cycle.
func (d *SchedulerDispatchLoop) dispatchPost(ctx context.Context, sem *semaphore.Weighted, cycleID string, post *model.Post, now time.Time) (postOutcome, error) {
	if err := ctx.Err(); err != nil {
		return postOutcome{}, err
	}
	log := d.logger().WithFields(logging.Fields{"cycle_id": cycleID, "post_id": post.ID})

	legErrs := make([]error, len(post.PlatformIDs))
	var legs errgroup.Group
	for j, platformID := range post.PlatformIDs {
		j, platformID := j, platformID
		legs.Go(func() error {
			legErrs[j] = d.publishLeg(ctx, sem, post, platformID)
			return nil
		})
	}
	_ = legs.Wait()

	var (
		failed      []int64
		reasons     []string
		accepted    int
		interrupted int
	)
	for _, err := range legErrs {
		if err == nil {
			accepted++
			continue
		}
		if errors.Is(err, errLegInterrupted) {
			interrupted++
		}
		var upstream *appErrors.UpstreamPublishError
		if errors.As(err, &upstream) {
			failed = append(failed, upstream.PlatformID)
		}
		reasons = append(reasons, err.Error())
	}
	if interrupted > 0 && accepted == 0 {
		log.Info("cycle cancelled before any platform accepted the post, leaving it pending")
		return postOutcome{}, ctx.Err()
	}
	if len(post.PlatformIDs) == 0 {
		reasons = append(reasons, "post has no target platforms")
	}

	// At least one platform may hold the post now, so the outcome is written even if the cycle was cancelled.
	writeCtx := context.WithoutCancel(ctx)

	status := model.PostPosted
	var (
		changed bool
		err     error
	)
	if len(reasons) == 0 {
		changed, err = d.PostRepo.MarkPosted(writeCtx, post.ID, now)
	} else {
		status = model.PostFailed
		changed, err = d.PostRepo.MarkFailed(writeCtx, post.ID, strings.Join(reasons, "; "))
	}
	if err != nil {
		return postOutcome{}, appErrors.NewStoreUnavailable("update post status", err)
	}
	if !changed {
		log.Debug("post already resolved, skipping")
		return postOutcome{}, nil
	}

	d.Metrics.PostResolved(string(status))
	entry := log.WithFields(logging.Fields{"workflow_id": post.WorkflowID, "status": status})
	if status == model.PostFailed {
		entry.WithField("failed_platforms", failed).Warn("post failed")
	} else {
		entry.Info("✅ post published")
	}

	if d.Rescheduler != nil {
		if _, err := d.Rescheduler.Advance(writeCtx, post.WorkflowID); err != nil {
			entry.WithError(err).Warn("failed to reschedule workflow")
		}
	}
	d.emit(queue.PostEvent{
		PostID:          post.ID,
		WorkflowID:      post.WorkflowID,
		Status:          status,
		PlatformIDs:     post.PlatformIDs,
		FailedPlatforms: failed,
		Reason:          strings.Join(reasons, "; "),
		CycleID:         cycleID,
		At:              now,
	}, entry)

	return postOutcome{resolved: true, status: status}, nil
}

func (d *SchedulerDispatchLoop) publishLeg(ctx context.Context, sem *semaphore.Weighted, post *model.Post, platformID int64) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		return appErrors.NewUpstreamPublish(platformID, errLegInterrupted)
	}
	defer sem.Release(1)
	if ctx.Err() != nil {
		return appErrors.NewUpstreamPublish(platformID, errLegInterrupted)
	}

	platform, err := d.PlatformRepo.GetByID(ctx, platformID)
	if err != nil {
		if ctx.Err() != nil {
			return appErrors.NewUpstreamPublish(platformID, errLegInterrupted)
		}
		return appErrors.NewUpstreamPublish(platformID, err)
	}

	legCtx, cancel := context.WithTimeout(ctx, d.config().PublishTimeout)
	defer cancel()

	start := time.Now()
	err = d.Publisher.Publish(legCtx, platform, RenderContent(post.Content, platform))
	result := "ok"
	if err != nil {
		result = "error"
	}
	d.Metrics.ObservePublish(string(platform.Type), result, time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return appErrors.NewUpstreamPublish(platformID, fmt.Errorf("%w: %v", errLegInterrupted, err))
		}
		return appErrors.NewUpstreamPublish(platformID, err)
	}
	return nil
}

func (d *SchedulerDispatchLoop) emit(ev queue.PostEvent, log logging.Logger) {
	if d.Events == nil {
		return
	}
	topic := d.EventsTopic
	if topic == "" {
		topic = queue.PostEventsTopic
	}
	if err := d.Events.Publish(topic, ev); err != nil {
		log.WithError(err).Warn("failed to publish post event")
	}
}

func (d *SchedulerDispatchLoop) config() DispatchConfig {
	cfg := d.Config
	def := DefaultDispatchConfig()
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = def.MaxInFlight
	}
	if cfg.PostWorkers <= 0 {
		cfg.PostWorkers = def.PostWorkers
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = def.LeaseTTL
	}
	return cfg
}

func (d *SchedulerDispatchLoop) logger() logging.Logger {
	if d.Logger == nil {
		return logging.Nop()
	}
	return d.Logger
}
