package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fragmenthub/internal/service"
)

type TagHandler struct {
	tags   *service.TagService
	logger *slog.Logger
}

func NewTagHandler(tags *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

type createTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// HandleList pages through tags ordered by name.
//
// HTTP: GET /tags?skip=&limit=&search=
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.tags.List(r.Context(), r.URL.Query().Get("search"), limit, skip)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleCreate adds a tag.
//
// HTTP: POST /tags (admin only) → 201
func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tag, err := h.tags.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, tag)
}

// HandleDelete removes a tag from the catalogue and from every fragment.
//
// HTTP: DELETE /tags/{id} (admin only) → 204
func (h *TagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.tags.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeNoContent(w)
}
