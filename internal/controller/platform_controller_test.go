package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/cadence-backend/internal/controller"
	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/service"
)

type mockOptimizer struct {
	forced []bool
}

func (m *mockOptimizer) ComputeOptimalTimes(ctx context.Context, id int64, opts service.ComputeOptions) (*model.TimeOptimization, error) {
	if id != 1 {
		return nil, appErrors.NewNotFound("platform", id)
	}
	m.forced = append(m.forced, opts.ForceRefresh)
	return &model.TimeOptimization{PlatformID: 1, BestDays: []int{2}, BestHours: []int{14}, AudienceTimezone: "UTC"}, nil
}

func (m *mockOptimizer) Heatmap(ctx context.Context, id int64) (*model.EngagementHeatmap, error) {
	if id != 1 {
		return nil, appErrors.NewNotFound("platform", id)
	}
	return &model.EngagementHeatmap{PlatformID: 1, Timezone: "UTC", Cells: []model.HeatmapCell{{Day: 2, Hour: 14, Score: 1, Samples: 10}}}, nil
}

type mockPostCreator struct {
	got service.CreatePostInput
}

func (m *mockPostCreator) CreatePost(ctx context.Context, in service.CreatePostInput) (*model.Post, error) {
	m.got = in
	if len(in.PlatformIDs) == 0 {
		return nil, appErrors.NewValidation("platformIds", "must not be empty")
	}
	return &model.Post{ID: 7, WorkflowID: in.WorkflowID, Content: in.Content, Status: model.PostPending, PlatformIDs: in.PlatformIDs}, nil
}

func platformRouter(opt *mockOptimizer, posts *mockPostCreator) http.Handler {
	pc := &controller.PlatformController{Optimizer: opt}
	r := chi.NewRouter()
	r.Post("/platforms/{id}/optimize", pc.Optimize)
	r.Get("/platforms/{id}/heatmap", pc.Heatmap)
	r.Post("/posts", (&controller.PostController{Posts: posts}).CreatePost)
	return r
}

func TestOptimizePlatform(t *testing.T) {
	opt := &mockOptimizer{}
	router := platformRouter(opt, nil)

	tests := []struct {
		path string
		want int
	}{
		{"/platforms/1/optimize", http.StatusOK},
		{"/platforms/1/optimize?force=true", http.StatusOK},
		{"/platforms/1/optimize?force=maybe", http.StatusBadRequest},
		{"/platforms/abc/optimize", http.StatusBadRequest},
		{"/platforms/2/optimize", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.want, w.Code)
		}
	}
	if len(opt.forced) != 2 || opt.forced[0] || !opt.forced[1] {
		t.Errorf("expected force flags [false true], got %v", opt.forced)
	}
}

func TestPlatformHeatmap(t *testing.T) {
	router := platformRouter(&mockOptimizer{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/platforms/1/heatmap", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var hm model.EngagementHeatmap
	if err := json.Unmarshal(w.Body.Bytes(), &hm); err != nil {
		t.Fatal(err)
	}
	if len(hm.Cells) != 1 || hm.Cells[0].Samples != 10 {
		t.Errorf("unexpected heatmap %+v", hm)
	}
}

func TestCreatePost(t *testing.T) {
	posts := &mockPostCreator{}
	router := platformRouter(&mockOptimizer{}, posts)

	at := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	b, _ := json.Marshal(map[string]any{
		"workflowId":   3,
		"content":      "Launch day",
		"platformIds":  []int64{1, 2},
		"scheduledFor": at,
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(b)))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if posts.got.WorkflowID != 3 || posts.got.ScheduledFor == nil || !posts.got.ScheduledFor.Equal(at) {
		t.Errorf("input not decoded: %+v", posts.got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader([]byte(`{"workflowId":3,"content":"x"}`))))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
