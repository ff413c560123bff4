package controller

import (
	"context"
	"net/http"
	"strconv"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/service"
)

type PlatformOptimizer interface {
	ComputeOptimalTimes(ctx context.Context, platformID int64, opts service.ComputeOptions) (*model.TimeOptimization, error)
	Heatmap(ctx context.Context, platformID int64) (*model.EngagementHeatmap, error)
}

type PlatformController struct {
	Optimizer PlatformOptimizer
}

// Optimize handles POST /platforms/{id}/optimize?force=true
func (c *PlatformController) Optimize(w http.ResponseWriter, r *http.Request) {
	id, err := IDParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		force, err = strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, appErrors.NewValidation("force", "must be true or false"))
			return
		}
	}

	opt, err := c.Optimizer.ComputeOptimalTimes(r.Context(), id, service.ComputeOptions{ForceRefresh: force})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, opt)
}

// Heatmap handles GET /platforms/{id}/heatmap
func (c *PlatformController) Heatmap(w http.ResponseWriter, r *http.Request) {
	id, err := IDParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	hm, err := c.Optimizer.Heatmap(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, hm)
}
