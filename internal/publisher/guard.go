package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/time/rate"

	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/model"
)

type GuardConfig struct {
	// Timeout bounds every publish call. Zero disables the bound.
	Timeout time.Duration
	// RatePerSec limits publish calls per platform. Zero disables limiting.
	RatePerSec int
	// BreakerFailures consecutive failures open a platform's breaker for BreakerDelay.
	BreakerFailures uint
	BreakerDelay    time.Duration
	Logger          logging.Logger
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Timeout:         30 * time.Second,
		RatePerSec:      5,
		BreakerFailures: 5,
		BreakerDelay:    time.Minute,
	}
}

// Guard wraps a Publisher with a per-call timeout, a per-platform rate limiter
// and a per-platform circuit breaker. It never retries.
type Guard struct {
	next Publisher
	cfg  GuardConfig

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	breakers map[int64]circuitbreaker.CircuitBreaker[any]
}

func NewGuard(next Publisher, cfg GuardConfig) *Guard {
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerDelay <= 0 {
		cfg.BreakerDelay = time.Minute
	}
	return &Guard{
		next:     next,
		cfg:      cfg,
		limiters: make(map[int64]*rate.Limiter),
		breakers: make(map[int64]circuitbreaker.CircuitBreaker[any]),
	}
}

func (g *Guard) Publish(ctx context.Context, platform *model.Platform, content string) error {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	if lim := g.limiter(platform.ID); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	_, err := failsafe.With(g.breaker(platform)).Get(func() (any, error) {
		return nil, callWithContext(ctx, g.next, platform, content)
	})
	return err
}

// BreakerOpen reports whether the platform's breaker currently rejects calls.
func (g *Guard) BreakerOpen(platformID int64) bool {
	g.mu.Lock()
	cb, ok := g.breakers[platformID]
	g.mu.Unlock()
	return ok && cb.IsOpen()
}

func (g *Guard) limiter(platformID int64) *rate.Limiter {
	if g.cfg.RatePerSec <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	lim, ok := g.limiters[platformID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(g.cfg.RatePerSec), g.cfg.RatePerSec)
		g.limiters[platformID] = lim
	}
	return lim
}

func (g *Guard) breaker(platform *model.Platform) circuitbreaker.CircuitBreaker[any] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok := g.breakers[platform.ID]; ok {
		return cb
	}

	builder := circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(g.cfg.BreakerFailures, g.cfg.BreakerFailures).
		WithDelay(g.cfg.BreakerDelay).
		WithSuccessThreshold(1)
	if g.cfg.Logger != nil {
		logger := g.cfg.Logger
		id, ptype := platform.ID, platform.Type
		builder = builder.OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.WithFields(logging.Fields{
				"platform_id":   id,
				"platform_type": ptype,
				"from_state":    fmt.Sprint(event.OldState),
				"to_state":      fmt.Sprint(event.NewState),
			}).Warn("publish circuit breaker state change")
		})
	}
	cb := builder.Build()
	g.breakers[platform.ID] = cb
	return cb
}

// callWithContext returns when ctx is done even if the adapter ignores ctx.
func callWithContext(ctx context.Context, next Publisher, platform *model.Platform, content string) error {
	done := make(chan error, 1)
	go func() {
		done <- next.Publish(ctx, platform, content)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("publish to platform %d timed out: %w", platform.ID, ctx.Err())
	}
}
