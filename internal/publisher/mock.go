package publisher

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/model"
)

// MockSender simulates a platform publish. It fails with probability FailureRate.
type MockSender struct {
	FailureRate float64
	Latency     time.Duration
	Logger      logging.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockSender(failureRate float64, logger logging.Logger) *MockSender {
	return &MockSender{
		FailureRate: failureRate,
		Logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockSender) Publish(ctx context.Context, platform *model.Platform, content string) error {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	r := m.rng.Float64()
	m.mu.Unlock()

	if r < m.FailureRate {
		return fmt.Errorf("mock publish to %s failed", platform.Type)
	}
	if m.Logger != nil {
		m.Logger.WithFields(logging.Fields{
			"platform_id":   platform.ID,
			"platform_type": platform.Type,
			"bytes":         len(content),
		}).Info("📩 mock publish accepted")
	}
	return nil
}
