package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/repository"
)

func TestTagGetOrCreate_ReturnsSameRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.Tags().GetOrCreate(ctx, "python")
	require.NoError(t, err)
	second, err := db.Tags().GetOrCreate(ctx, "python")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM tags`))
}

func TestTagGetOrCreate_Concurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tag, err := db.Tags().GetOrCreate(ctx, "race")
			errs[i] = err
			if err == nil {
				ids[i] = tag.ID
			}
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "every caller must converge on one tag")
	}
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM tags`))
}

func TestTagCreate_Duplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Tags().Create(ctx, &model.Tag{Name: "go"}))

	err := db.Tags().Create(ctx, &model.Tag{Name: "go"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestTagGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tag := &model.Tag{Name: "rust"}
	require.NoError(t, db.Tags().Create(ctx, tag))

	byID, err := db.Tags().GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "rust", byID.Name)

	_, err = db.Tags().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTagList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"python", "go", "javascript", "typescript", "100%"} {
		require.NoError(t, db.Tags().Create(ctx, &model.Tag{Name: name}))
	}

	tests := []struct {
		name      string
		search    string
		opts      repository.ListOptions
		wantNames []string
		wantTotal int
	}{
		{"all sorted by name", "", repository.ListOptions{Limit: 10}, []string{"100%", "go", "javascript", "python", "typescript"}, 5},
		{"paged", "", repository.ListOptions{Limit: 2, Offset: 1}, []string{"go", "javascript"}, 5},
		{"search substring", "script", repository.ListOptions{Limit: 10}, []string{"javascript", "typescript"}, 2},
		{"search is literal", "%", repository.ListOptions{Limit: 10}, []string{"100%"}, 1},
		{"no match", "haskell", repository.ListOptions{Limit: 10}, []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, total, err := db.Tags().List(ctx, tt.search, tt.opts)
			require.NoError(t, err)

			names := make([]string, 0, len(tags))
			for _, tag := range tags {
				names = append(names, tag.Name)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestTagList_SearchFoldsNonASCII(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"émigré", "кириллица", "ascii"} {
		require.NoError(t, db.Tags().Create(ctx, &model.Tag{Name: name}))
	}

	for search, want := range map[string]string{
		"ÉMIGRÉ": "émigré",
		"Кирилл": "кириллица",
		"ASCII":  "ascii",
	} {
		tags, total, err := db.Tags().List(ctx, search, repository.ListOptions{Limit: 10})
		require.NoError(t, err, search)
		require.Equal(t, 1, total, search)
		assert.Equal(t, want, tags[0].Name)
	}
}

func TestTagDelete_DetachesFromFragments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	fragment := createTestFragment(t, db, author, "tagged", true, "go", "cli")

	before, err := db.Tags().ForFragments(ctx, []string{fragment.ID})
	require.NoError(t, err)
	require.Len(t, before[fragment.ID], 2)
	var deletedID string
	for _, tag := range before[fragment.ID] {
		if tag.Name == "go" {
			deletedID = tag.ID
		}
	}
	require.NotEmpty(t, deletedID)
	require.NoError(t, db.Tags().Delete(ctx, deletedID))

	byFragment, err := db.Tags().ForFragments(ctx, []string{fragment.ID})
	require.NoError(t, err)
	require.Len(t, byFragment[fragment.ID], 1)
	assert.Equal(t, "cli", byFragment[fragment.ID][0].Name)

	_, err = db.Fragments().GetByID(ctx, fragment.ID, "")
	assert.NoError(t, err, "deleting a tag must not delete fragments")

	err = db.Tags().Delete(ctx, deletedID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestTagForFragments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	a := createTestFragment(t, db, author, "a", true, "zig", "c")
	b := createTestFragment(t, db, author, "b", true)

	got, err := db.Tags().ForFragments(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)

	require.Len(t, got[a.ID], 2)
	assert.Equal(t, "c", got[a.ID][0].Name, "tags come back sorted by name")
	assert.Equal(t, "zig", got[a.ID][1].Name)
	assert.Empty(t, got[b.ID])
}
