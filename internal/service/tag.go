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
	"github.com/sakif/fragmenthub/internal/repository"
)

const MaxTagNameLength = 50

type TagService struct {
	tags   repository.TagRepository
	paging Paging
	logger *slog.Logger
}

func NewTagService(tags repository.TagRepository, paging Paging, logger *slog.Logger) *TagService {
	return &TagService{tags: tags, paging: paging, logger: logger}
}

// List returns tags ordered by name. search is a case-insensitive substring.
func (s *TagService) List(ctx context.Context, search string, limit, skip int) (*model.TagPage, error) {
	tags, total, err := s.tags.List(ctx, strings.TrimSpace(search), s.paging.Clamp(limit, skip))
	if err != nil {
		s.logger.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/tag: listing: %w", err)
	}
	return &model.TagPage{Items: tags, Total: total}, nil
}

// Create adds a tag by hand. The name is normalized exactly like tags
// attached to fragments, so "  Go " is stored as "go" and then collides with
// an existing "go".
func (s *TagService) Create(ctx context.Context, rawName string) (*model.Tag, error) {
	name := model.NormalizeTagName(rawName)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}
	if utf8.RuneCountInString(name) > MaxTagNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("tag name must be %d characters or less", MaxTagNameLength))
	}

	tag := &model.Tag{Name: name}
	if err := s.tags.Create(ctx, tag); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("name", "a tag with this name already exists")
		}
		return nil, fmt.Errorf("service/tag: creating %q: %w", name, err)
	}

	s.logger.Info("tag created", slog.String("id", tag.ID), slog.String("name", tag.Name))
	return tag, nil
}

// Delete removes a tag; fragments carrying it simply lose it.
func (s *TagService) Delete(ctx context.Context, id string) error {
	if err := s.tags.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/tag: deleting %s: %w", id, err)
	}
	s.logger.Info("tag deleted", slog.String("id", id))
	return nil
}

// ResolveOrCreate maps raw names to tag rows: trimmed, lowercased, empties
// dropped, duplicates collapsed, missing tags created. The result follows the
// order of first appearance.
func (s *TagService) ResolveOrCreate(ctx context.Context, rawNames []string) ([]model.Tag, error) {
	names := model.NormalizeTagNames(rawNames)
	tags := make([]model.Tag, 0, len(names))
	for _, name := range names {
		tag, err := s.tags.GetOrCreate(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("service/tag: resolving %q: %w", name, err)
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}
