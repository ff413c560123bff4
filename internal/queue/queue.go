package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/cadence-backend/internal/logging"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers payloads to in-process subscribers with retry
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	wg       sync.WaitGroup
	logger   logging.Logger

	MaxRetries int
	Backoff    time.Duration
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger logging.Logger) *InMemoryQueue {
	if logger == nil {
		logger = logging.Nop()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		logger:     logger,
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := append([]func(payload any) error(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{Topic: topic, Payload: payload, MaxRetries: q.MaxRetries}
		q.wg.Add(1)
		go q.processJob(handler, job)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return
		}

		job.RetryCount++
		fields := logging.Fields{"topic": job.Topic, "attempt": job.RetryCount, "max_retries": job.MaxRetries}
		if job.RetryCount > job.MaxRetries {
			q.logger.WithFields(fields).WithError(err).Error("job permanently failed")
			return
		}
		q.logger.WithFields(fields).WithError(err).Warn("job failed, retrying")

		// Linear backoff before retry
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Drain waits until every delivered job has finished.
func (q *InMemoryQueue) Drain() {
	q.wg.Wait()
}
