// Package publisher routes post content to per-platform publishing adapters.
package publisher

import (
	"context"
	"fmt"
	"sync"

	"github.com/unclebandit/cadence-backend/internal/model"
)

// Publisher publishes rendered content to one platform. A nil error means the platform accepted it.
type Publisher interface {
	Publish(ctx context.Context, platform *model.Platform, content string) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, platform *model.Platform, content string) error

func (f PublisherFunc) Publish(ctx context.Context, platform *model.Platform, content string) error {
	return f(ctx, platform, content)
}

// Registry dispatches to the adapter registered for the platform's type.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.PlatformType]Publisher
	fallback Publisher
}

func NewRegistry(fallback Publisher) *Registry {
	return &Registry{
		adapters: make(map[model.PlatformType]Publisher),
		fallback: fallback,
	}
}

func (r *Registry) Register(t model.PlatformType, adapter Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[t] = adapter
}

func (r *Registry) Publish(ctx context.Context, platform *model.Platform, content string) error {
	r.mu.RLock()
	adapter, ok := r.adapters[platform.Type]
	r.mu.RUnlock()
	if !ok {
		adapter = r.fallback
	}
	if adapter == nil {
		return fmt.Errorf("no publishing adapter for platform type %q", platform.Type)
	}
	return adapter.Publish(ctx, platform, content)
}
