package service

import (
	"context"

	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/repository"
)

type WorkflowService struct {
	WorkflowRepo repository.WorkflowRepositoryInterface
	PostRepo     repository.PostRepositoryInterface
}

type WorkflowDetails struct {
	*model.Workflow
	Stats map[string]int `json:"stats"`
}

// GetWorkflowDetailsWithStats returns the workflow and the number of its posts per status.
func (s *WorkflowService) GetWorkflowDetailsWithStats(ctx context.Context, id int64) (*WorkflowDetails, error) {
	wf, err := s.WorkflowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.PostRepo.CountByStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WorkflowDetails{Workflow: wf, Stats: stats}, nil
}
