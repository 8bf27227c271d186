package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookman/internal/catalog"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
)

// AuthorServiceInterface は著者ハンドラーが必要とするサービスインターフェース。
type AuthorServiceInterface interface {
	List(ctx context.Context) ([]*model.Author, error)
	Get(ctx context.Context, id string) (*model.Author, error)
	Create(ctx context.Context, input catalog.AuthorInput) (*model.Author, error)
	Update(ctx context.Context, id string, input catalog.AuthorInput) (*model.Author, error)
	Delete(ctx context.Context, id string) error
}

// AuthorHandler は著者CRUDのHTTPハンドラー。
type AuthorHandler struct {
	service AuthorServiceInterface
}

// NewAuthorHandler はAuthorHandlerを生成する。
func NewAuthorHandler(service AuthorServiceInterface) *AuthorHandler {
	return &AuthorHandler{service: service}
}

// List は著者一覧を返す。
// GET /api/authors
func (h *AuthorHandler) List(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if authors == nil {
		authors = []*model.Author{}
	}

	writeJSON(w, http.StatusOK, authors)
}

// Get は指定IDの著者を返す。
// GET /api/authors/{id}
func (h *AuthorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	author, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, author)
}

// Create は著者を作成する。
// POST /api/authors
func (h *AuthorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input catalog.AuthorInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	author, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, author)
}

// Update は指定IDの著者を更新する。
// PUT /api/authors/{id}
func (h *AuthorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input catalog.AuthorInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	author, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, author)
}

// Delete は指定IDの著者を削除する。
// 蔵書から参照されている著者は409 Conflictで拒否される。
// DELETE /api/authors/{id}
func (h *AuthorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
