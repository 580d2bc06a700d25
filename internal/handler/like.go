package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fragmenthub/internal/service"
)

type LikeHandler struct {
	likes  *service.LikeService
	logger *slog.Logger
}

func NewLikeHandler(likes *service.LikeService, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{likes: likes, logger: logger}
}

// HandleLike likes a fragment.
//
// HTTP: POST /likes/{fragment_id} (auth required)
//
//	201  the like was stored
//	204  it already existed, nothing changed
func (h *LikeHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	created, err := h.likes.Like(r.Context(), user, chi.URLParam(r, "fragment_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if created {
		w.WriteHeader(http.StatusCreated)
		return
	}
	writeNoContent(w)
}

// HandleUnlike withdraws the caller's like. Always 204 for an existing
// fragment, liked or not.
//
// HTTP: DELETE /likes/{fragment_id} (auth required)
func (h *LikeHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.likes.Unlike(r.Context(), user, chi.URLParam(r, "fragment_id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeNoContent(w)
}
