package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fragmenthub/internal/auth"
	"github.com/sakif/fragmenthub/internal/service"
)

// FragmentHandler exposes fragment CRUD and the listing query.
//
// The handler only translates HTTP into service calls. Who may see or change
// a fragment is decided in service.FragmentService; the handler passes the
// caller's identity along and writes whatever comes back.
type FragmentHandler struct {
	fragments *service.FragmentService
	logger    *slog.Logger
}

func NewFragmentHandler(fragments *service.FragmentService, logger *slog.Logger) *FragmentHandler {
	return &FragmentHandler{fragments: fragments, logger: logger}
}

type createFragmentRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Content     string   `json:"content" validate:"required,max=100000"`
	Language    string   `json:"language" validate:"required,max=50"`
	Description string   `json:"description"`
	IsPublic    *bool    `json:"is_public"`
	Tags        []string `json:"tags" validate:"dive,max=50"`
}

// updateFragmentRequest is a partial update. "tags": [] clears the tag set,
// an absent "tags" keeps it.
type updateFragmentRequest struct {
	Title       *string   `json:"title" validate:"omitempty,max=255"`
	Content     *string   `json:"content" validate:"omitempty,max=100000"`
	Language    *string   `json:"language" validate:"omitempty,max=50"`
	Description *string   `json:"description"`
	IsPublic    *bool     `json:"is_public"`
	Tags        *[]string `json:"tags"`
}

// HandleCreate stores a new fragment owned by the caller.
//
// HTTP: POST /fragments (auth required) → 201 with the assembled fragment
func (h *FragmentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req createFragmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	detail, err := h.fragments.Create(r.Context(), user, service.CreateFragmentInput{
		Title:       req.Title,
		Content:     req.Content,
		Language:    req.Language,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, detail)
}

// HandleList runs the fragment query.
//
// HTTP: GET /fragments (auth optional)
//
// QUERY PARAMETERS (all optional, all combined with AND):
//
//	skip, limit       pagination (limit defaults to 20, capped at 100)
//	author_id         only this author's fragments
//	language          exact language label
//	tag               tag name, matched after normalizing ("Go" finds "go")
//	liked_by_user     only fragments this user liked
//	search            substring of title, description or content
//	include_private   admins only; ignored for everyone else
//
// RESPONSE: {"items": [...], "total": N} where total ignores skip/limit.
func (h *FragmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseFragmentQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.fragments.List(r.Context(), auth.IdentityFromContext(r.Context()), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func parseFragmentQuery(r *http.Request) (service.FragmentQuery, error) {
	skip, err := queryInt(r, "skip")
	if err != nil {
		return service.FragmentQuery{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return service.FragmentQuery{}, err
	}
	includePrivate, err := queryBool(r, "include_private")
	if err != nil {
		return service.FragmentQuery{}, err
	}

	values := r.URL.Query()
	return service.FragmentQuery{
		AuthorID:       values.Get("author_id"),
		Language:       values.Get("language"),
		Tag:            values.Get("tag"),
		LikedByUser:    values.Get("liked_by_user"),
		Search:         values.Get("search"),
		IncludePrivate: includePrivate,
		Limit:          limit,
		Skip:           skip,
	}, nil
}

// HandleGet returns one fragment and counts the read as a view.
//
// HTTP: GET /fragments/{id} (auth optional)
//
// A private fragment the caller may not see answers 404, exactly like a
// fragment that does not exist.
func (h *FragmentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.fragments.Get(r.Context(),
		auth.IdentityFromContext(r.Context()),
		chi.URLParam(r, "id"),
		clientIP(r),
	)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /fragments/{id} (author or admin)
func (h *FragmentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req updateFragmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	detail, err := h.fragments.Update(r.Context(), user, chi.URLParam(r, "id"), service.UpdateFragmentInput{
		Title:       req.Title,
		Content:     req.Content,
		Language:    req.Language,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// HandleDelete removes a fragment with its likes, views and tag links.
//
// HTTP: DELETE /fragments/{id} (author or admin) → 204
func (h *FragmentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.fragments.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeNoContent(w)
}
