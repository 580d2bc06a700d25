package service

import (
	"context"
	"fmt"

	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/repository"
)

// Assembler turns stored fragments plus aggregates into the response shape:
// fragment fields, the author's public profile, the tag list and the counts.
//
// BATCH LOADING:
// A page of 20 fragments needs 20 authors and 20 tag lists. Loading them one
// by one would be 40 extra queries. Assemble collects the IDs first and makes
// exactly two: one for all authors, one for all tags.
type Assembler struct {
	users repository.UserRepository
	tags  repository.TagRepository
}

func NewAssembler(users repository.UserRepository, tags repository.TagRepository) *Assembler {
	return &Assembler{users: users, tags: tags}
}

// Assemble builds one FragmentDetail per item, preserving order.
//
// is_liked_by_current_user is only meaningful for a known viewer, so it is
// left nil (JSON null) for anonymous requests.
func (a *Assembler) Assemble(ctx context.Context, items []model.FragmentStats, viewer model.Identity) ([]model.FragmentDetail, error) {
	details := make([]model.FragmentDetail, 0, len(items))
	if len(items) == 0 {
		return details, nil
	}

	fragmentIDs := make([]string, 0, len(items))
	authorIDs := make([]string, 0, len(items))
	seenAuthor := make(map[string]struct{}, len(items))
	for _, it := range items {
		fragmentIDs = append(fragmentIDs, it.ID)
		if _, ok := seenAuthor[it.AuthorID]; !ok {
			seenAuthor[it.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, it.AuthorID)
		}
	}

	authors, err := a.users.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("assembling fragments: loading authors: %w", err)
	}
	tagsByFragment, err := a.tags.ForFragments(ctx, fragmentIDs)
	if err != nil {
		return nil, fmt.Errorf("assembling fragments: loading tags: %w", err)
	}

	for _, it := range items {
		detail := model.FragmentDetail{
			Fragment:   it.Fragment,
			Tags:       tagsByFragment[it.ID],
			LikesCount: it.LikesCount,
			ViewsCount: it.ViewsCount,
		}
		if detail.Tags == nil {
			detail.Tags = []model.Tag{}
		}
		if author, ok := authors[it.AuthorID]; ok {
			detail.Author = author.Public()
		} else {
			// deleted between the two reads
			detail.Author = model.PublicUser{ID: it.AuthorID}
		}
		if !viewer.IsAnonymous() {
			liked := it.LikedByViewer
			detail.IsLikedByCurrentUser = &liked
		}
		details = append(details, detail)
	}
	return details, nil
}

// AssembleOne is Assemble for a single fragment.
func (a *Assembler) AssembleOne(ctx context.Context, item *model.FragmentStats, viewer model.Identity) (*model.FragmentDetail, error) {
	details, err := a.Assemble(ctx, []model.FragmentStats{*item}, viewer)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}
