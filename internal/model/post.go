// internal/model/post.go
package model

import (
	"encoding/json"
	"time"
)

type PostStatus string

const (
	PostPending PostStatus = "pending"
	PostPosted  PostStatus = "posted"
	PostFailed  PostStatus = "failed"
)

type Post struct {
	ID                  int64           `db:"id" json:"id"`
	WorkflowID          int64           `db:"workflow_id" json:"workflowId"`
	Content             string          `db:"content" json:"content"`
	Status              PostStatus      `db:"status" json:"status"` // pending, posted, failed
	ScheduledFor        time.Time       `db:"scheduled_for" json:"scheduledFor"`
	PostedAt            *time.Time      `db:"posted_at" json:"postedAt,omitempty"`
	PlatformIDs         []int64         `db:"platform_ids" json:"platformIds"`
	OptimizationApplied bool            `db:"optimization_applied" json:"optimizationApplied"`
	OptimizationData    json.RawMessage `db:"optimization_data" json:"optimizationData,omitempty"`
	EngagementMetrics   json.RawMessage `db:"engagement_metrics" json:"engagementMetrics,omitempty"`
	LastError           string          `db:"last_error" json:"lastError,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updatedAt"`
}

// Due reports whether the post is pending and scheduled at or before now.
func (p *Post) Due(now time.Time) bool {
	return p.Status == PostPending && !p.ScheduledFor.After(now)
}
