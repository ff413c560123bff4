package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
)

var errStoreDown = errors.New("connection refused")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func floatPtr(v float64) *float64 { return &v }

// Mock repositories

type memPlatformRepo struct {
	platforms map[int64]*model.Platform
	err       error
}

func newPlatformRepo(ps ...*model.Platform) *memPlatformRepo {
	r := &memPlatformRepo{platforms: map[int64]*model.Platform{}}
	for _, p := range ps {
		r.platforms[p.ID] = p
	}
	return r
}

func (r *memPlatformRepo) GetByID(ctx context.Context, id int64) (*model.Platform, error) {
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.platforms[id]
	if !ok {
		return nil, appErrors.NewNotFound("platform", id)
	}
	cp := *p
	return &cp, nil
}

func (r *memPlatformRepo) Create(ctx context.Context, p *model.Platform) error {
	p.ID = int64(len(r.platforms) + 1)
	r.platforms[p.ID] = p
	return nil
}

type memOptimizationRepo struct {
	mu      sync.Mutex
	records map[int64]model.TimeOptimization
	writes  int
	getErr  error
}

func newOptimizationRepo(opts ...*model.TimeOptimization) *memOptimizationRepo {
	r := &memOptimizationRepo{records: map[int64]model.TimeOptimization{}}
	for _, o := range opts {
		r.records[o.PlatformID] = *o
	}
	return r
}

func (r *memOptimizationRepo) GetByPlatformID(ctx context.Context, platformID int64) (*model.TimeOptimization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	o, ok := r.records[platformID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *memOptimizationRepo) Upsert(ctx context.Context, opt *model.TimeOptimization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	opt.ID = platformRecordID(opt.PlatformID)
	r.records[opt.PlatformID] = *opt
	return nil
}

func platformRecordID(platformID int64) int64 { return 1000 + platformID }

func (r *memOptimizationRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

type memEngagementRepo struct {
	history map[int64][]model.EngagementOutcome
	err     error
}

func (r *memEngagementRepo) Query(ctx context.Context, platformID int64, since time.Time) ([]model.EngagementOutcome, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []model.EngagementOutcome
	for _, o := range r.history[platformID] {
		if !o.Timestamp.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

type memWorkflowRepo struct {
	mu        sync.Mutex
	workflows map[int64]*model.Workflow
	updates   []time.Time
	err       error
}

func newWorkflowRepo(ws ...*model.Workflow) *memWorkflowRepo {
	r := &memWorkflowRepo{workflows: map[int64]*model.Workflow{}}
	for _, w := range ws {
		r.workflows[w.ID] = w
	}
	return r
}

func (r *memWorkflowRepo) GetByID(ctx context.Context, id int64) (*model.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	w, ok := r.workflows[id]
	if !ok {
		return nil, appErrors.NewNotFound("workflow", id)
	}
	cp := *w
	return &cp, nil
}

func (r *memWorkflowRepo) Create(ctx context.Context, w *model.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = int64(len(r.workflows) + 1)
	r.workflows[w.ID] = w
	return nil
}

func (r *memWorkflowRepo) UpdateNextPostDate(ctx context.Context, id int64, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return appErrors.NewNotFound("workflow", id)
	}
	n := next
	w.NextPostDate = &n
	r.updates = append(r.updates, next)
	return nil
}

type memPostRepo struct {
	mu          sync.Mutex
	posts       map[int64]*model.Post
	findErr     error
	staleDue    []*model.Post
	markErrFor  map[int64]error
	transitions map[int64]int
}

func newPostRepo(ps ...*model.Post) *memPostRepo {
	r := &memPostRepo{posts: map[int64]*model.Post{}, transitions: map[int64]int{}}
	for _, p := range ps {
		if p.Status == "" {
			p.Status = model.PostPending
		}
		r.posts[p.ID] = p
	}
	return r
}

func (r *memPostRepo) FindDue(ctx context.Context, now time.Time) ([]*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.staleDue != nil {
		return r.staleDue, nil
	}
	var due []*model.Post
	for _, p := range r.posts {
		if p.Due(now) {
			cp := *p
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].ScheduledFor.Equal(due[j].ScheduledFor) {
			return due[i].ScheduledFor.Before(due[j].ScheduledFor)
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

func (r *memPostRepo) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, appErrors.NewNotFound("post", id)
	}
	cp := *p
	return &cp, nil
}

func (r *memPostRepo) Create(ctx context.Context, p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = int64(len(r.posts) + 1)
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

func (r *memPostRepo) MarkPosted(ctx context.Context, id int64, postedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markErrFor[id]; err != nil {
		return false, err
	}
	p, ok := r.posts[id]
	if !ok || p.Status != model.PostPending {
		return false, nil
	}
	at := postedAt
	p.Status = model.PostPosted
	p.PostedAt = &at
	r.transitions[id]++
	return true, nil
}

func (r *memPostRepo) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markErrFor[id]; err != nil {
		return false, err
	}
	p, ok := r.posts[id]
	if !ok || p.Status != model.PostPending {
		return false, nil
	}
	p.Status = model.PostFailed
	p.LastError = reason
	r.transitions[id]++
	return true, nil
}

func (r *memPostRepo) CountByStatus(ctx context.Context, workflowID int64) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := map[string]int{"total": 0, "pending": 0, "posted": 0, "failed": 0}
	for _, p := range r.posts {
		if p.WorkflowID != workflowID {
			continue
		}
		stats[string(p.Status)]++
		stats["total"]++
	}
	return stats, nil
}

func (r *memPostRepo) status(id int64) model.PostStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id].Status
}

func (r *memPostRepo) totalTransitions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.transitions {
		n += c
	}
	return n
}

// recordingPublisher fails for platform ids listed in failFor and records every call.
type recordingPublisher struct {
	mu      sync.Mutex
	failFor map[int64]bool
	calls   []publishCall
	block   chan struct{}
	started chan struct{}
	// onPublish, when set, decides the result of every call after it is recorded.
	onPublish func(ctx context.Context, platformID int64) error
}

type publishCall struct {
	PlatformID int64
	Content    string
}

func (p *recordingPublisher) Publish(ctx context.Context, platform *model.Platform, content string) error {
	p.mu.Lock()
	p.calls = append(p.calls, publishCall{PlatformID: platform.ID, Content: content})
	started, block, onPublish := p.started, p.block, p.onPublish
	p.mu.Unlock()

	if onPublish != nil {
		return onPublish(ctx, platform.ID)
	}

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.failFor[platform.ID] {
		return errors.New("platform rejected post")
	}
	return nil
}

func (p *recordingPublisher) Calls() []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishCall(nil), p.calls...)
}

type countingAdvancer struct {
	mu    sync.Mutex
	calls map[int64]int
	err   error
}

func (a *countingAdvancer) Advance(ctx context.Context, workflowID int64) (time.Time, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.calls == nil {
		a.calls = map[int64]int{}
	}
	a.calls[workflowID]++
	return time.Time{}, a.err
}

func (a *countingAdvancer) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		n += c
	}
	return n
}
