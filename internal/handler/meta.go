package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable. *sqlite.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetaHandler serves the endpoints that are about the service itself rather
// than its data, plus JSON bodies for chi's 404 and 405.
type MetaHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewMetaHandler(db Pinger, logger *slog.Logger) *MetaHandler {
	return &MetaHandler{db: db, logger: logger}
}

// HandleRoot greets whoever opens the base URL.
//
// HTTP: GET /
func (h *MetaHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the code fragment sharing API!",
	})
}

// HandleHealth answers 200 when the database responds, 503 when it does not.
//
// HTTP: GET /healthz
func (h *MetaHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MetaHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "no route for " + r.Method + " " + r.URL.Path,
	})
}

func (h *MetaHandler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: r.Method + " is not allowed on " + r.URL.Path,
	})
}
