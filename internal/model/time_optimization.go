// internal/model/time_optimization.go
package model

import "time"

const DefaultAudienceTimezone = "UTC"

// TimeOptimization is the cached best-days/best-hours recommendation for one platform.
// BestDays holds 0-6 (0 = Sunday), BestHours holds 0-23.
type TimeOptimization struct {
	ID               int64        `db:"id" json:"id"`
	PlatformID       int64        `db:"platform_id" json:"platformId"`
	PlatformType     PlatformType `db:"platform_type" json:"platformType"`
	BestDays         []int        `db:"best_days" json:"bestDays"`
	BestHours        []int        `db:"best_hours" json:"bestHours"`
	AudienceTimezone string       `db:"audience_timezone" json:"audienceTimezone"`
	EngagementScore  *float64     `db:"engagement_score" json:"engagementScore"`
	LastUpdated      time.Time    `db:"last_updated" json:"lastUpdated"`
}

// HasSignal is false for a low-confidence record computed from no usable history.
func (t *TimeOptimization) HasSignal() bool {
	return t != nil && (len(t.BestDays) > 0 || len(t.BestHours) > 0)
}

// Stale reports whether the record is older than window at now.
func (t *TimeOptimization) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(t.LastUpdated) >= window
}

// Location resolves AudienceTimezone, falling back to UTC for empty or unknown zones.
func (t *TimeOptimization) Location() *time.Location {
	if t == nil || t.AudienceTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.AudienceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
