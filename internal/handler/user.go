package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fragmenthub/internal/service"
)

// UserHandler serves registration and profiles.
//
// Responses always use model.PublicUser (id, username, bio, created_at).
// Email, flags and the password hash never leave through this handler.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Bio      string `json:"bio" validate:"max=1000"`
	IsActive *bool  `json:"is_active"`
}

// updateMeRequest is a partial update. Absent fields are left alone.
type updateMeRequest struct {
	Username *string `json:"username" validate:"omitempty,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Bio      *string `json:"bio" validate:"omitempty,max=1000"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

// HandleRegister creates an account.
//
// HTTP: POST /users → 201 with the public profile
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Bio:      req.Bio,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Public())
}

// HandleMe returns the caller's own profile.
//
// HTTP: GET /users/me (auth required)
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// HandleUpdateMe applies a partial update to the caller's account.
//
// HTTP: PUT /users/me (auth required)
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req updateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	updated, err := h.users.UpdateMe(r.Context(), user, service.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Bio:      req.Bio,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, updated.Public())
}

// HandleGet returns any user's public profile.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// HandleDelete removes an account together with everything it owns.
//
// HTTP: DELETE /users/{id} (admin only) → 204
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeNoContent(w)
}
