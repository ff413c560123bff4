// internal/model/workflow.go
package model

import "time"

type WorkflowStatus string

const (
	WorkflowActive WorkflowStatus = "active"
	WorkflowPaused WorkflowStatus = "paused"
)

type Workflow struct {
	ID           int64          `db:"id" json:"id"`
	UserID       int64          `db:"user_id" json:"userId"`
	Name         string         `db:"name" json:"name"`
	Status       WorkflowStatus `db:"status" json:"status"`
	Frequency    string         `db:"frequency" json:"frequency"`
	NextPostDate *time.Time     `db:"next_post_date" json:"nextPostDate,omitempty"`
	ContentType  string         `db:"content_type" json:"contentType"`
	Tone         string         `db:"tone" json:"tone"`
	Topics       []string       `db:"topics" json:"topics"`
	PlatformIDs  []int64        `db:"platform_ids" json:"platformIds"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    *time.Time     `db:"updated_at" json:"updatedAt,omitempty"`
}
