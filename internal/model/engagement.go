// internal/model/engagement.go
package model

import "time"

// EngagementOutcome is one past post outcome on a platform.
type EngagementOutcome struct {
	Timestamp       time.Time `db:"posted_at" json:"timestamp"`
	EngagementValue float64   `db:"engagement_value" json:"engagementValue"`
}

// HeatmapCell is one (day, hour) bucket of the engagement heatmap.
type HeatmapCell struct {
	Day     int     `json:"day"`
	Hour    int     `json:"hour"`
	Score   float64 `json:"score"`
	Samples int     `json:"samples"`
}

type EngagementHeatmap struct {
	PlatformID int64         `json:"platformId"`
	Timezone   string        `json:"timezone"`
	Since      time.Time     `json:"since"`
	Cells      []HeatmapCell `json:"cells"`
}
