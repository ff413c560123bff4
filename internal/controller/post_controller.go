package controller

import (
	"context"
	"encoding/json"
	"net/http"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/service"
)

type PostCreator interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*model.Post, error)
}

type PostController struct {
	Posts PostCreator
}

func (c *PostController) CreatePost(w http.ResponseWriter, r *http.Request) {
	var body service.CreatePostInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, appErrors.NewValidation("body", "invalid JSON: "+err.Error()))
		return
	}

	post, err := c.Posts.CreatePost(r.Context(), body)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, post)
}
