package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/handler"
	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/service"
)

type mockDetailer struct{}

func (mockDetailer) GetWorkflowDetailsWithStats(ctx context.Context, id int64) (*service.WorkflowDetails, error) {
	if id != 1 {
		return nil, appErrors.NewNotFound("workflow", id)
	}
	return &service.WorkflowDetails{
		Workflow: &model.Workflow{ID: 1, Name: "Daily tips", Frequency: "daily"},
		Stats:    map[string]int{"total": 3, "pending": 1, "posted": 2, "failed": 0},
	}, nil
}

type mockAdvancer struct{ next time.Time }

func (m mockAdvancer) Advance(ctx context.Context, id int64) (time.Time, error) {
	if id != 1 {
		return time.Time{}, appErrors.NewNotFound("workflow", id)
	}
	return m.next, nil
}

type mockPinger struct{ err error }

func (m mockPinger) PingContext(ctx context.Context) error { return m.err }

func router(h *handler.WorkflowHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/workflows/{id}", h.GetWorkflowHandlerWithStats)
	r.Post("/workflows/{id}/advance", h.AdvanceWorkflowHandler)
	return r
}

func TestGetWorkflowHandlerWithStats(t *testing.T) {
	r := router(&handler.WorkflowHandler{Service: mockDetailer{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["name"] != "Daily tips" {
		t.Errorf("expected embedded workflow fields, got %v", body)
	}
	if stats := body["stats"].(map[string]any); stats["posted"].(float64) != 2 {
		t.Errorf("unexpected stats %v", stats)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/9", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAdvanceWorkflowHandler(t *testing.T) {
	next := time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)
	r := router(&handler.WorkflowHandler{Rescheduler: mockAdvancer{next: next}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/workflows/1/advance", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		NextPostDate time.Time `json:"nextPostDate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.NextPostDate.Equal(next) {
		t.Errorf("expected %v, got %v", next, body.NextPostDate)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/workflows/0/advance", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid id, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	ok := &handler.HealthHandler{DB: mockPinger{}}
	w := httptest.NewRecorder()
	ok.Healthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	down := &handler.HealthHandler{DB: mockPinger{err: errors.New("refused")}}
	w = httptest.NewRecorder()
	down.Healthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
