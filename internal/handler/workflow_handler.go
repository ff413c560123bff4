// internal/handler/workflow_handler.go
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/unclebandit/cadence-backend/internal/controller"
	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/service"
)

type WorkflowDetailer interface {
	GetWorkflowDetailsWithStats(ctx context.Context, id int64) (*service.WorkflowDetails, error)
}

// WorkflowHandler holds the dependencies for workflow-related HTTP handlers
type WorkflowHandler struct {
	Service     WorkflowDetailer
	Rescheduler service.Advancer
	Logger      logging.Logger
}

// GetWorkflowHandlerWithStats returns a workflow with its post counts by status
func (h *WorkflowHandler) GetWorkflowHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	id, err := controller.IDParam(r)
	if err != nil {
		controller.WriteError(w, err)
		return
	}

	details, err := h.Service.GetWorkflowDetailsWithStats(r.Context(), id)
	if err != nil {
		controller.WriteError(w, err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, details)
}

// AdvanceWorkflowHandler recomputes the workflow's next post date on demand
func (h *WorkflowHandler) AdvanceWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	id, err := controller.IDParam(r)
	if err != nil {
		controller.WriteError(w, err)
		return
	}

	next, err := h.Rescheduler.Advance(r.Context(), id)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("workflow_id", id).Warn("manual reschedule failed")
		}
		controller.WriteError(w, err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, map[string]any{
		"workflowId":   id,
		"nextPostDate": next,
	})
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports whether the database answers within a short deadline
type HealthHandler struct {
	DB Pinger
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		controller.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	controller.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
