package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/repository"
)

var (
	_ repository.LikeRepository = (*LikeDB)(nil)
	_ repository.ViewRepository = (*ViewDB)(nil)
)

// LikeDB stores likes. UNIQUE(fragment_id, user_id) guarantees at most one
// like per user per fragment, no matter how many requests race.
type LikeDB struct {
	conn *sql.DB
}

// Add likes a fragment. It reports false, with no error, when the like
// already existed, including when a concurrent request inserted it first.
func (l *LikeDB) Add(ctx context.Context, fragmentID, userID string) (bool, error) {
	result, err := l.conn.ExecContext(ctx,
		`INSERT INTO likes (id, fragment_id, user_id, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(fragment_id, user_id) DO NOTHING`,
		xid.New().String(), fragmentID, userID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: adding like on %s by %s: %w", fragmentID, userID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

// Remove unlikes a fragment and reports whether there was a like to remove.
func (l *LikeDB) Remove(ctx context.Context, fragmentID, userID string) (bool, error) {
	result, err := l.conn.ExecContext(ctx,
		`DELETE FROM likes WHERE fragment_id = ? AND user_id = ?`,
		fragmentID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing like on %s by %s: %w", fragmentID, userID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}

// ViewDB is the append-only view log. Every detail read adds a row; nothing
// is deduplicated.
type ViewDB struct {
	conn *sql.DB
}

func (v *ViewDB) Record(ctx context.Context, view *model.View) error {
	view.ID = xid.New().String()
	view.CreatedAt = time.Now().UTC()

	ip := sql.NullString{String: view.IPAddress, Valid: view.IPAddress != ""}

	_, err := v.conn.ExecContext(ctx,
		`INSERT INTO views (id, fragment_id, user_id, ip_address, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		view.ID, view.FragmentID, view.UserID, ip, view.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording view of %s: %w", view.FragmentID, err)
	}
	return nil
}
