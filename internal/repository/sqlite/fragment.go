package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/observability"
	"github.com/sakif/fragmenthub/internal/repository"
)

var _ repository.FragmentRepository = (*FragmentDB)(nil)

// FragmentDB stores fragments and answers the listing queries.
type FragmentDB struct {
	conn *sql.DB
}

// fragmentSelect reads a fragment plus its aggregates. The single ? is the
// viewer ID for the liked flag; an empty viewer never matches a like row.
//
// CORRELATED SUBQUERIES, NOT JOINS:
// Joining likes and views onto fragments and then counting would multiply
// the rows (3 likes × 5 views = 15 rows per fragment) and inflate both
// counts. Each subquery counts against one table only.
const fragmentSelect = `
	SELECT f.id, f.title, f.content, f.language, f.description, f.is_public,
	       f.author_id, f.created_at, f.updated_at,
	       (SELECT COUNT(*) FROM likes l WHERE l.fragment_id = f.id) AS likes_count,
	       (SELECT COUNT(*) FROM views v WHERE v.fragment_id = f.id) AS views_count,
	       EXISTS (SELECT 1 FROM likes l WHERE l.fragment_id = f.id AND l.user_id = ?) AS liked
	FROM fragments f`

func scanFragmentStats(s rowScanner) (model.FragmentStats, error) {
	var fs model.FragmentStats
	err := s.Scan(
		&fs.ID,
		&fs.Title,
		&fs.Content,
		&fs.Language,
		&fs.Description,
		&fs.IsPublic,
		&fs.AuthorID,
		&fs.CreatedAt,
		&fs.UpdatedAt,
		&fs.LikesCount,
		&fs.ViewsCount,
		&fs.LikedByViewer,
	)
	return fs, err
}

// Create inserts the fragment and links its tags in a single transaction:
// either the fragment exists with all of its tags or not at all.
func (f *FragmentDB) Create(ctx context.Context, fragment *model.Fragment, tagNames []string) error {
	now := time.Now().UTC()
	fragment.ID = xid.New().String()
	fragment.CreatedAt = now
	fragment.UpdatedAt = now

	return withTx(ctx, f.conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO fragments
			   (id, title, content, language, description, is_public, author_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fragment.ID,
			fragment.Title,
			fragment.Content,
			fragment.Language,
			fragment.Description,
			fragment.IsPublic,
			fragment.AuthorID,
			fragment.CreatedAt,
			fragment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting fragment: %w", err)
		}
		return attachTags(ctx, tx, fragment.ID, tagNames)
	})
}

// Update writes the mutable columns and, when upd.Tags is non-nil, replaces
// the tag set. Both happen in one transaction.
func (f *FragmentDB) Update(ctx context.Context, upd repository.FragmentUpdate) error {
	fragment := upd.Fragment
	fragment.UpdatedAt = time.Now().UTC()

	return withTx(ctx, f.conn, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE fragments
			 SET title = ?, content = ?, language = ?, description = ?, is_public = ?, updated_at = ?
			 WHERE id = ?`,
			fragment.Title,
			fragment.Content,
			fragment.Language,
			fragment.Description,
			fragment.IsPublic,
			fragment.UpdatedAt,
			fragment.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating fragment %s: %w", fragment.ID, err)
		}
		if err := requireAffected(result, "fragment", fragment.ID); err != nil {
			return err
		}

		if upd.Tags == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM fragment_tags WHERE fragment_id = ?`, fragment.ID,
		); err != nil {
			return fmt.Errorf("sqlite: clearing tags of fragment %s: %w", fragment.ID, err)
		}
		return attachTags(ctx, tx, fragment.ID, *upd.Tags)
	})
}

// attachTags resolves each (already normalized) name to a tag row and links
// it. Repeated names collapse onto one link.
func attachTags(ctx context.Context, tx *sql.Tx, fragmentID string, names []string) error {
	for _, name := range names {
		tag, err := getOrCreateTag(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fragment_tags (fragment_id, tag_id) VALUES (?, ?)
			 ON CONFLICT DO NOTHING`,
			fragmentID, tag.ID,
		); err != nil {
			return fmt.Errorf("sqlite: linking tag %q to fragment %s: %w", name, fragmentID, err)
		}
	}
	return nil
}

// GetByID loads one fragment with its aggregates. It does not apply the
// visibility rule; the service layer decides who may see the result.
func (f *FragmentDB) GetByID(ctx context.Context, id, viewerID string) (*model.FragmentStats, error) {
	defer observability.TrackQuery("get", "fragments")()

	row := f.conn.QueryRowContext(ctx, fragmentSelect+` WHERE f.id = ?`, viewerID, id)

	fs, err := scanFragmentStats(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("fragment", id)
		}
		return nil, fmt.Errorf("sqlite: getting fragment %s: %w", id, err)
	}
	return &fs, nil
}

// List is the fragment query engine.
//
// The WHERE clause is built from the filter, visibility first, then every
// optional filter ANDed on. The same clause feeds a COUNT(*) for the total
// and the paged SELECT, so total always describes the unpaged result.
//
// Ordering is newest first; fragments created in the same instant fall back
// to ID order, which keeps pages stable between requests.
func (f *FragmentDB) List(ctx context.Context, filter repository.FragmentFilter) ([]model.FragmentStats, int, error) {
	defer observability.TrackQuery("list", "fragments")()

	where, args := buildFragmentWhere(filter)

	var total int
	if err := f.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fragments f`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting fragments: %w", err)
	}

	queryArgs := make([]any, 0, len(args)+3)
	queryArgs = append(queryArgs, filter.ViewerID)
	queryArgs = append(queryArgs, args...)
	queryArgs = append(queryArgs, filter.Limit, filter.Offset)

	rows, err := f.conn.QueryContext(ctx,
		fragmentSelect+where+`
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT ? OFFSET ?`,
		queryArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing fragments: %w", err)
	}
	defer rows.Close()

	items := make([]model.FragmentStats, 0, max(filter.Limit, 0))
	for rows.Next() {
		fs, err := scanFragmentStats(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning fragment row: %w", err)
		}
		items = append(items, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating fragments: %w", err)
	}
	return items, total, nil
}

// buildFragmentWhere returns " WHERE ..." (or "") and its arguments.
func buildFragmentWhere(filter repository.FragmentFilter) (string, []any) {
	var conds []string
	var args []any

	switch {
	case filter.IncludePrivate:
		// everything
	case filter.ViewerID != "":
		conds = append(conds, `(f.is_public = 1 OR f.author_id = ?)`)
		args = append(args, filter.ViewerID)
	default:
		conds = append(conds, `f.is_public = 1`)
	}

	if filter.AuthorID != "" {
		conds = append(conds, `f.author_id = ?`)
		args = append(args, filter.AuthorID)
	}
	if filter.Language != "" {
		conds = append(conds, `f.language = ?`)
		args = append(args, filter.Language)
	}
	if filter.Tag != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM fragment_tags ft JOIN tags t ON t.id = ft.tag_id
			WHERE ft.fragment_id = f.id AND t.name = ?)`)
		args = append(args, filter.Tag)
	}
	if filter.LikedByUser != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM likes lb WHERE lb.fragment_id = f.id AND lb.user_id = ?)`)
		args = append(args, filter.LikedByUser)
	}
	if filter.Search != "" {
		// SQLite's LIKE only folds ASCII, so both sides go through lower_unicode.
		pattern := containsPattern(strings.ToLower(filter.Search))
		conds = append(conds, `(lower_unicode(f.title) LIKE ? ESCAPE '\'
			OR lower_unicode(f.description) LIKE ? ESCAPE '\'
			OR lower_unicode(f.content) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Delete removes a fragment. Its likes, views and tag links cascade.
func (f *FragmentDB) Delete(ctx context.Context, id string) error {
	result, err := f.conn.ExecContext(ctx, `DELETE FROM fragments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting fragment %s: %w", id, err)
	}
	return requireAffected(result, "fragment", id)
}

// withTx runs fn in a transaction, committing on nil and rolling back on
// error. Rollback after a successful Commit is a harmless no-op.
func withTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}
