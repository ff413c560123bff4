// internal/controller/scheduler_controller.go
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/service"
)

// CycleTrigger is the dispatch loop as seen by the API.
type CycleTrigger interface {
	RunCycle(ctx context.Context, now time.Time) (*service.CycleResult, error)
	Running() bool
	LastCycle() *service.CycleResult
}

type SchedulerController struct {
	Dispatcher CycleTrigger
	Aggregator service.Recommender
	Clock      service.Clock
	Logger     logging.Logger
}

func (c *SchedulerController) ProcessPending(w http.ResponseWriter, r *http.Request) {
	// A manual cycle finishes even if the caller goes away.
	ctx := context.WithoutCancel(r.Context())

	result, err := c.Dispatcher.RunCycle(ctx, c.now())
	if errors.Is(err, appErrors.ErrCycleInProgress) {
		WriteJSON(w, http.StatusConflict, map[string]any{
			"count":   0,
			"message": "A dispatch cycle is already running",
		})
		return
	}
	if err != nil {
		c.logger().WithError(err).Error("❌ manual dispatch cycle failed")
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"count":    result.ProcessedCount,
		"failures": result.Failures,
		"cycleId":  result.CycleID,
		"message":  fmt.Sprintf("Processed %d pending posts", result.ProcessedCount),
	})
}

func (c *SchedulerController) OptimalTimes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlatformIDs []int64 `json:"platformIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, appErrors.NewValidation("body", "must be JSON with platformIds"))
		return
	}

	rec, err := c.Aggregator.RecommendNextPostTime(r.Context(), body.PlatformIDs)
	if err != nil {
		WriteError(w, err)
		return
	}

	message := "Optimal posting time calculated"
	if !rec.Matched {
		message = "No optimal slot found in range, using default"
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"optimalTime":       rec.OptimalTime,
		"timeOptimizations": rec.TimeOptimizations,
		"message":           message,
	})
}

func (c *SchedulerController) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"running":   c.Dispatcher.Running(),
		"lastCycle": c.Dispatcher.LastCycle(),
	})
}

func (c *SchedulerController) now() time.Time {
	if c.Clock == nil {
		return service.SystemClock{}.Now()
	}
	return c.Clock.Now()
}

func (c *SchedulerController) logger() logging.Logger {
	if c.Logger == nil {
		return logging.Nop()
	}
	return c.Logger
}
