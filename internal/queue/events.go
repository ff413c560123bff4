package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/model"
)

// PostEventsTopic is the default topic carrying one PostEvent per post the dispatcher resolves.
const PostEventsTopic = "post_events"

type PostEvent struct {
	PostID          int64            `json:"postId"`
	WorkflowID      int64            `json:"workflowId"`
	Status          model.PostStatus `json:"status"`
	PlatformIDs     []int64          `json:"platformIds"`
	FailedPlatforms []int64          `json:"failedPlatforms,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	CycleID         string           `json:"cycleId"`
	At              time.Time        `json:"at"`
}

// DecodePostEvent accepts in-process values and raw JSON bodies from a broker.
func DecodePostEvent(payload any) (PostEvent, error) {
	switch v := payload.(type) {
	case PostEvent:
		return v, nil
	case *PostEvent:
		if v == nil {
			return PostEvent{}, fmt.Errorf("nil post event")
		}
		return *v, nil
	case []byte:
		var ev PostEvent
		if err := json.Unmarshal(v, &ev); err != nil {
			return PostEvent{}, fmt.Errorf("decode post event: %w", err)
		}
		return ev, nil
	default:
		return PostEvent{}, fmt.Errorf("unexpected post event payload %T", payload)
	}
}

// StartPostEventSubscriber logs every post event on topic. Malformed payloads are dropped, not retried.
func StartPostEventSubscriber(q Queue, topic string, logger logging.Logger) error {
	return q.Subscribe(topic, func(payload any) error {
		ev, err := DecodePostEvent(payload)
		if err != nil {
			logger.WithError(err).Warn("⚠️ dropping malformed post event")
			return nil
		}
		entry := logger.WithFields(logging.Fields{
			"post_id":     ev.PostID,
			"workflow_id": ev.WorkflowID,
			"status":      ev.Status,
			"cycle_id":    ev.CycleID,
		})
		if ev.Status == model.PostFailed {
			entry.WithFields(logging.Fields{
				"failed_platforms": ev.FailedPlatforms,
				"reason":           ev.Reason,
			}).Warn("post dispatch failed")
			return nil
		}
		entry.Info("✅ post dispatched")
		return nil
	})
}
