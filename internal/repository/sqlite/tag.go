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
	"github.com/sakif/fragmenthub/internal/repository"
)

var _ repository.TagRepository = (*TagDB)(nil)

// TagDB stores tags. Names reaching this layer are already normalized
// (trimmed, lowercase), so the UNIQUE(name) constraint is what makes
// "Python" and "python" the same tag.
type TagDB struct {
	conn *sql.DB
}

// GetOrCreate returns the tag called name, creating it if needed.
func (t *TagDB) GetOrCreate(ctx context.Context, name string) (*model.Tag, error) {
	return getOrCreateTag(ctx, t.conn, name)
}

// getOrCreateTag is atomic with respect to concurrent callers.
//
// INSERT ... ON CONFLICT DO NOTHING never fails on a duplicate name: whichever
// writer loses the race simply inserts nothing. The SELECT that follows then
// reads the single surviving row, so both callers converge on the same tag.
func getOrCreateTag(ctx context.Context, q querier, name string) (*model.Tag, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		xid.New().String(), name, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting tag %q: %w", name, err)
	}

	var tag model.Tag
	err = q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE name = ?`, name,
	).Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading tag %q: %w", name, err)
	}
	return &tag, nil
}

// Create inserts a new tag. An existing name is a Conflict.
func (t *TagDB) Create(ctx context.Context, tag *model.Tag) error {
	tag.ID = xid.New().String()
	tag.CreatedAt = time.Now().UTC()

	_, err := t.conn.ExecContext(ctx,
		`INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)`,
		tag.ID, tag.Name, tag.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("tag", tag.Name)
		}
		return fmt.Errorf("sqlite: creating tag %q: %w", tag.Name, err)
	}
	return nil
}

func (t *TagDB) GetByID(ctx context.Context, id string) (*model.Tag, error) {
	var tag model.Tag
	err := t.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE id = ?`, id,
	).Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %s: %w", id, err)
	}
	return &tag, nil
}

// List returns one page of tags ordered by name, plus the number of tags
// matching search before paging. An empty search matches everything.
func (t *TagDB) List(ctx context.Context, search string, opts repository.ListOptions) ([]model.Tag, int, error) {
	where := ""
	var args []any
	if search != "" {
		where = ` WHERE lower_unicode(name) LIKE ? ESCAPE '\'`
		args = append(args, containsPattern(strings.ToLower(search)))
	}

	var total int
	if err := t.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting tags: %w", err)
	}

	rows, err := t.conn.QueryContext(ctx,
		`SELECT id, name, created_at FROM tags`+where+`
		 ORDER BY name
		 LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0, max(opts.Limit, 0))
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, total, nil
}

// Delete removes a tag and detaches it from every fragment.
func (t *TagDB) Delete(ctx context.Context, id string) error {
	result, err := t.conn.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tag %s: %w", id, err)
	}
	return requireAffected(result, "tag", id)
}

// ForFragments loads the tags of many fragments in one query, keyed by
// fragment ID and sorted by name. Fragments without tags are absent.
func (t *TagDB) ForFragments(ctx context.Context, fragmentIDs []string) (map[string][]model.Tag, error) {
	out := make(map[string][]model.Tag, len(fragmentIDs))
	if len(fragmentIDs) == 0 {
		return out, nil
	}

	rows, err := t.conn.QueryContext(ctx,
		`SELECT ft.fragment_id, t.id, t.name, t.created_at
		 FROM fragment_tags ft
		 JOIN tags t ON t.id = ft.tag_id
		 WHERE ft.fragment_id IN (`+placeholders(len(fragmentIDs))+`)
		 ORDER BY t.name`,
		stringArgs(fragmentIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading fragment tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fragmentID string
		var tag model.Tag
		if err := rows.Scan(&fragmentID, &tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning fragment tag row: %w", err)
		}
		out[fragmentID] = append(out[fragmentID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating fragment tags: %w", err)
	}
	return out, nil
}
