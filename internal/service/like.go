package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/observability"
	"github.com/sakif/fragmenthub/internal/repository"
)

// LikeService toggles likes. Both directions are idempotent: liking twice or
// unliking something never liked succeeds without changing anything.
type LikeService struct {
	fragments repository.FragmentRepository
	likes     repository.LikeRepository
	logger    *slog.Logger
}

func NewLikeService(fragments repository.FragmentRepository, likes repository.LikeRepository, logger *slog.Logger) *LikeService {
	return &LikeService{fragments: fragments, likes: likes, logger: logger}
}

// Like reports whether a new like was stored (false when it already existed).
//
// Private fragments can only be liked by their author. Admins get no
// exemption here, unlike for update and delete.
func (s *LikeService) Like(ctx context.Context, user *model.User, fragmentID string) (bool, error) {
	fragment, err := s.fragments.GetByID(ctx, fragmentID, user.ID)
	if err != nil {
		return false, err
	}
	if !fragment.IsPublic && fragment.AuthorID != user.ID {
		return false, apperror.Forbidden("no access to this fragment")
	}
	if fragment.LikedByViewer {
		return false, nil
	}

	// a concurrent request may still have won; Add then reports false
	created, err := s.likes.Add(ctx, fragmentID, user.ID)
	if err != nil {
		return false, fmt.Errorf("service/like: liking %s: %w", fragmentID, err)
	}
	if created {
		observability.RecordLike("like")
		s.logger.Info("like added", slog.String("fragmentID", fragmentID), slog.String("userID", user.ID))
	}
	return created, nil
}

// Unlike removes the caller's like. It only checks that the fragment exists;
// withdrawing your own like never depends on visibility.
func (s *LikeService) Unlike(ctx context.Context, user *model.User, fragmentID string) error {
	if _, err := s.fragments.GetByID(ctx, fragmentID, user.ID); err != nil {
		return err
	}

	removed, err := s.likes.Remove(ctx, fragmentID, user.ID)
	if err != nil {
		return fmt.Errorf("service/like: unliking %s: %w", fragmentID, err)
	}
	if removed {
		observability.RecordLike("unlike")
		s.logger.Info("like removed", slog.String("fragmentID", fragmentID), slog.String("userID", user.ID))
	}
	return nil
}
