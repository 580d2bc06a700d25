package handler

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/service"
)

// AuthHandler exchanges credentials for a bearer token.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// loginRequest follows the OAuth2 password-grant form: the email travels in
// the field called "username".
type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin issues an access token.
//
// HTTP: POST /auth/login
//
// The body is normally application/x-www-form-urlencoded
// (username=<email>&password=...), which is what OAuth2 password-flow
// clients send. A JSON body with the same two fields is accepted too.
//
// RESPONSE: {"access_token": "...", "token_type": "bearer"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, r, h.logger, apperror.BadRequest("invalid form body"))
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
		if err := validateStruct(&req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}
