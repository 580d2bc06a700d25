package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fragmenthub/internal/apperror"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantMsg   string
		wantField string
	}{
		{"valid", `{"username":"a","email":"a@example.com","password":"12345678"}`, "", ""},
		{"unknown fields ignored", `{"username":"a","email":"a@example.com","password":"12345678","extra":1}`, "", ""},
		{"empty body", ``, "invalid JSON body", ""},
		{"wrong type", `{"username":42}`, "invalid JSON body", ""},
		{"missing field uses json name", `{"username":"a","password":"12345678"}`, "email is required", "email"},
		{"min", `{"username":"a","email":"a@example.com","password":"1"}`, "password must be at least 8 characters", "password"},
		{"max", `{"username":"` + strings.Repeat("u", 51) + `","email":"a@example.com","password":"12345678"}`, "username must be 50 characters or less", "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst registerRequest
			err := decodeJSON(httptest.NewRecorder(), req, &dst)

			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantMsg, apperror.PublicMessage(err))

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst createTagRequest
	err := decodeJSON(httptest.NewRecorder(), req, &dst)
	assert.Equal(t, "request body is too large", apperror.PublicMessage(err))
}

func TestQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&skip=x&include_private=1&flag=maybe", nil)

	n, err := queryInt(req, "limit")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = queryInt(req, "absent")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = queryInt(req, "skip")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	b, err := queryBool(req, "include_private")
	require.NoError(t, err)
	assert.True(t, b)

	_, err = queryBool(req, "flag")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, "203.0.113.9", clientIP(req))

	// RealIP stores a bare address
	req.RemoteAddr = "198.51.100.2"
	assert.Equal(t, "198.51.100.2", clientIP(req))
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation with field", apperror.ValidationFailed("title", "title is required"),
			http.StatusBadRequest, `{"error":"validation_error","message":"title is required","field":"title"}`},
		{"not found", apperror.NotFound("fragment", "abc"),
			http.StatusNotFound, `{"error":"not_found","message":"fragment not found with id abc"}`},
		{"internal hides details", assert.AnError,
			http.StatusInternalServerError, `{"error":"internal_error","message":"An internal error occurred"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			writeError(rr, req, discardLogger(), tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}
