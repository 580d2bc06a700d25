package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/observability"
	"github.com/sakif/fragmenthub/internal/repository"
)

const (
	MaxTitleLength    = 255
	MaxLanguageLength = 50
	MaxContentLength  = 100000 // ~100KB of code
)

// CreateFragmentInput is a new fragment. IsPublic defaults to true when nil.
type CreateFragmentInput struct {
	Title       string
	Content     string
	Language    string
	Description string
	IsPublic    *bool
	Tags        []string
}

// UpdateFragmentInput is a partial update. A nil field is left unchanged;
// a non-nil Tags replaces the whole tag set, so &[]string{} clears it.
type UpdateFragmentInput struct {
	Title       *string
	Content     *string
	Language    *string
	Description *string
	IsPublic    *bool
	Tags        *[]string
}

// FragmentQuery is what a client may ask the listing endpoint for.
type FragmentQuery struct {
	AuthorID       string
	Language       string
	Tag            string
	LikedByUser    string
	Search         string
	IncludePrivate bool
	Limit          int
	Skip           int
}

// FragmentService owns the visibility rule and the author/admin permission
// checks for fragments.
type FragmentService struct {
	fragments repository.FragmentRepository
	views     repository.ViewRepository
	assembler *Assembler
	paging    Paging
	logger    *slog.Logger
}

func NewFragmentService(
	fragments repository.FragmentRepository,
	views repository.ViewRepository,
	assembler *Assembler,
	paging Paging,
	logger *slog.Logger,
) *FragmentService {
	return &FragmentService{
		fragments: fragments,
		views:     views,
		assembler: assembler,
		paging:    paging,
		logger:    logger,
	}
}

// Create stores a fragment owned by author. Tag names are normalized here
// and resolved (found or created) by the store in the same transaction.
func (s *FragmentService) Create(ctx context.Context, author *model.User, in CreateFragmentInput) (*model.FragmentDetail, error) {
	fragment := &model.Fragment{
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Language:    strings.TrimSpace(in.Language),
		Description: strings.TrimSpace(in.Description),
		IsPublic:    true,
		AuthorID:    author.ID,
	}
	if in.IsPublic != nil {
		fragment.IsPublic = *in.IsPublic
	}
	if err := validateFragment(fragment); err != nil {
		return nil, err
	}

	tags := model.NormalizeTagNames(in.Tags)
	if err := s.fragments.Create(ctx, fragment, tags); err != nil {
		s.logger.Error("failed to create fragment",
			slog.String("authorID", author.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/fragment: creating: %w", err)
	}

	s.logger.Info("fragment created",
		slog.String("id", fragment.ID),
		slog.String("authorID", author.ID),
		slog.Int("tags", len(tags)),
	)
	return s.load(ctx, fragment.ID, model.Authenticated(author))
}

// Get returns one fragment if viewer may see it, and records the view.
//
// A private fragment that viewer may not see is reported as NotFound, never
// Forbidden, so its existence does not leak.
func (s *FragmentService) Get(ctx context.Context, viewer model.Identity, id, ipAddress string) (*model.FragmentDetail, error) {
	viewerID, _ := viewer.UserID()

	stats, err := s.fragments.GetByID(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if !stats.VisibleTo(viewer) {
		return nil, apperror.NotFound("fragment", id)
	}

	view := &model.View{FragmentID: id, IPAddress: ipAddress}
	if viewerID != "" {
		view.UserID = &viewerID
	}
	if err := s.views.Record(ctx, view); err != nil {
		// the read still succeeds without its view row
		s.logger.Error("failed to record view",
			slog.String("fragmentID", id),
			slog.String("error", err.Error()),
		)
	} else {
		observability.FragmentViews.Inc()
	}

	return s.assembler.AssembleOne(ctx, stats, viewer)
}

// List runs the query engine.
//
// include_private is honored only for admins; for anyone else it is ignored
// rather than rejected.
func (s *FragmentService) List(ctx context.Context, viewer model.Identity, q FragmentQuery) (*model.FragmentPage, error) {
	viewerID, _ := viewer.UserID()

	filter := repository.FragmentFilter{
		ViewerID:       viewerID,
		IncludePrivate: q.IncludePrivate && viewer.IsAdmin(),
		AuthorID:       strings.TrimSpace(q.AuthorID),
		Language:       strings.TrimSpace(q.Language),
		Tag:            model.NormalizeTagName(q.Tag),
		LikedByUser:    strings.TrimSpace(q.LikedByUser),
		Search:         strings.TrimSpace(q.Search),
		ListOptions:    s.paging.Clamp(q.Limit, q.Skip),
	}

	items, total, err := s.fragments.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list fragments", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/fragment: listing: %w", err)
	}

	details, err := s.assembler.Assemble(ctx, items, viewer)
	if err != nil {
		return nil, err
	}
	return &model.FragmentPage{Items: details, Total: total}, nil
}

// Update applies a partial update. Only the author or an admin may do it.
func (s *FragmentService) Update(ctx context.Context, actor *model.User, id string, in UpdateFragmentInput) (*model.FragmentDetail, error) {
	stats, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fragment := stats.Fragment

	if in.Title != nil {
		fragment.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		fragment.Content = *in.Content
	}
	if in.Language != nil {
		fragment.Language = strings.TrimSpace(*in.Language)
	}
	if in.Description != nil {
		fragment.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsPublic != nil {
		fragment.IsPublic = *in.IsPublic
	}
	if err := validateFragment(&fragment); err != nil {
		return nil, err
	}

	upd := repository.FragmentUpdate{Fragment: &fragment}
	if in.Tags != nil {
		tags := model.NormalizeTagNames(*in.Tags)
		upd.Tags = &tags
	}

	if err := s.fragments.Update(ctx, upd); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update fragment",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/fragment: updating %s: %w", id, err)
	}

	s.logger.Info("fragment updated", slog.String("id", id), slog.String("by", actor.ID))
	return s.load(ctx, id, model.Authenticated(actor))
}

// Delete removes a fragment. Only the author or an admin may do it.
func (s *FragmentService) Delete(ctx context.Context, actor *model.User, id string) error {
	if _, err := s.loadForWrite(ctx, actor, id); err != nil {
		return err
	}

	if err := s.fragments.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete fragment",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/fragment: deleting %s: %w", id, err)
	}

	s.logger.Info("fragment deleted", slog.String("id", id), slog.String("by", actor.ID))
	return nil
}

// loadForWrite fetches a fragment the actor wants to modify.
//
//	author or admin            → allowed
//	other user, private        → NotFound (the fragment stays hidden)
//	other user, public         → Forbidden
func (s *FragmentService) loadForWrite(ctx context.Context, actor *model.User, id string) (*model.FragmentStats, error) {
	stats, err := s.fragments.GetByID(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin || stats.AuthorID == actor.ID {
		return stats, nil
	}
	if !stats.IsPublic {
		return nil, apperror.NotFound("fragment", id)
	}
	return nil, apperror.Forbidden("not enough permissions for this fragment")
}

// load re-reads a fragment after a write, without recording a view.
func (s *FragmentService) load(ctx context.Context, id string, viewer model.Identity) (*model.FragmentDetail, error) {
	viewerID, _ := viewer.UserID()
	stats, err := s.fragments.GetByID(ctx, id, viewerID)
	if err != nil {
		return nil, fmt.Errorf("service/fragment: reloading %s: %w", id, err)
	}
	return s.assembler.AssembleOne(ctx, stats, viewer)
}

// validateFragment counts characters, not bytes, to agree with the request
// validator's max= tags.
func validateFragment(f *model.Fragment) error {
	if f.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(f.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if f.Content == "" {
		return apperror.ValidationFailed("content", "content is required")
	}
	if utf8.RuneCountInString(f.Content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	if f.Language == "" {
		return apperror.ValidationFailed("language", "language is required")
	}
	if utf8.RuneCountInString(f.Language) > MaxLanguageLength {
		return apperror.ValidationFailed("language",
			fmt.Sprintf("language must be %d characters or less", MaxLanguageLength))
	}
	return nil
}
