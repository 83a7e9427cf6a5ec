package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fwojciec/starcat"
	"github.com/fwojciec/starcat/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryService_MergeEntries(t *testing.T) {
	t.Parallel()

	t.Run("adds unknown entries", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)
		ctx := context.Background()

		result, err := svc.MergeEntries(ctx, []*starcat.Entry{
			starcat.NewEntry("a/one", 10, "Go"),
			starcat.NewEntry("b/two", 5, ""),
		})

		require.NoError(t, err)
		assert.Equal(t, 2, result.Added)
		assert.Equal(t, 0, result.Updated)
		assert.Equal(t, 2, result.Total)
		assert.NotEmpty(t, result.SyncID)
	})

	t.Run("overwrites stars and language of known entries", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)
		ctx := context.Background()

		_, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 10, "Go")})
		require.NoError(t, err)

		result, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 42, "Rust")})

		require.NoError(t, err)
		assert.Equal(t, 0, result.Added)
		assert.Equal(t, 1, result.Updated)

		e, err := svc.FindEntryByID(ctx, "a/one")
		require.NoError(t, err)
		assert.Equal(t, 42, e.Stars)
		assert.Equal(t, "Rust", e.Language)
	})

	t.Run("retains entries missing from the listing", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)
		ctx := context.Background()

		_, err := svc.MergeEntries(ctx, []*starcat.Entry{
			starcat.NewEntry("a/one", 1, ""),
			starcat.NewEntry("b/two", 2, ""),
		})
		require.NoError(t, err)

		result, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("c/three", 3, "")})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Added)
		assert.Equal(t, 3, result.Total)
		_, err = svc.FindEntryByID(ctx, "a/one")
		assert.NoError(t, err)
	})

	t.Run("keeps the first seen timestamp", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)
		ctx := context.Background()

		first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		second := first.Add(48 * time.Hour)

		svc.Now = func() time.Time { return first }
		_, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 1, "")})
		require.NoError(t, err)

		svc.Now = func() time.Time { return second }
		_, err = svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 2, "")})
		require.NoError(t, err)

		e, err := svc.FindEntryByID(ctx, "a/one")
		require.NoError(t, err)
		assert.Equal(t, first, e.CreatedAt)
		assert.Equal(t, second, e.UpdatedAt)
	})

	t.Run("duplicate ids within a listing merge once", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)

		result, err := svc.MergeEntries(context.Background(), []*starcat.Entry{
			starcat.NewEntry("a/one", 1, ""),
			starcat.NewEntry("a/one", 7, ""),
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Added)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 1, result.Total)
	})

	t.Run("rejects invalid entries without writing", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)
		ctx := context.Background()

		_, err := svc.MergeEntries(ctx, []*starcat.Entry{
			starcat.NewEntry("a/one", 1, ""),
			starcat.NewEntry("bad", 1, ""),
		})

		assert.Equal(t, starcat.EINVALID, starcat.ErrorCode(err))
		entries, err := svc.FindEntries(ctx, starcat.EntryFilter{})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("handles large listings", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)
		ctx := context.Background()

		var listing []*starcat.Entry
		for i := range 500 {
			listing = append(listing, starcat.NewEntry(fmt.Sprintf("owner/repo%d", i), i, ""))
		}
		_, err := svc.MergeEntries(ctx, listing[:250])
		require.NoError(t, err)

		result, err := svc.MergeEntries(ctx, listing)

		require.NoError(t, err)
		assert.Equal(t, 250, result.Added)
		assert.Equal(t, 250, result.Updated)
		assert.Equal(t, 500, result.Total)
	})
}

func TestEntryService_MergeEntries_KnownIDFilter(t *testing.T) {
	t.Parallel()

	t.Run("persists the filter sized with headroom", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)
		ctx := context.Background()

		_, err := svc.MergeEntries(ctx, []*starcat.Entry{
			starcat.NewEntry("a/one", 1, ""),
			starcat.NewEntry("b/two", 2, ""),
		})
		require.NoError(t, err)

		var capacity int
		var data []byte
		err = db.QueryRowContext(ctx, "SELECT capacity, data FROM entry_filter WHERE id = 1").Scan(&capacity, &data)
		require.NoError(t, err)
		assert.Equal(t, 4, capacity)
		assert.NotEmpty(t, data)
	})

	t.Run("unreadable filter is rebuilt from the table", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)
		ctx := context.Background()

		_, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 1, "")})
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, "UPDATE entry_filter SET data = x'00'")
		require.NoError(t, err)

		result, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 7, "")})

		require.NoError(t, err)
		assert.Equal(t, 0, result.Added)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 1, result.Total)
	})

	t.Run("outgrown filter is rebuilt", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewEntryService(db)
		ctx := context.Background()

		_, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 1, "")})
		require.NoError(t, err)

		var listing []*starcat.Entry
		for i := range 50 {
			listing = append(listing, starcat.NewEntry(fmt.Sprintf("owner%d/repo", i), i, ""))
		}
		listing = append(listing, starcat.NewEntry("a/one", 2, ""))

		result, err := svc.MergeEntries(ctx, listing)

		require.NoError(t, err)
		assert.Equal(t, 50, result.Added)
		assert.Equal(t, 1, result.Updated)

		var capacity int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT capacity FROM entry_filter WHERE id = 1").Scan(&capacity))
		assert.GreaterOrEqual(t, capacity, 51)
	})

	t.Run("deleted entries are added again", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewEntryService(setupTestDB(t))
		ctx := context.Background()

		_, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 1, "")})
		require.NoError(t, err)
		require.NoError(t, svc.DeleteEntry(ctx, "a/one"))

		result, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 1, "")})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Added)
		assert.Equal(t, 1, result.Total)
	})
}

func TestEntryService_FindEntries(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) *sqlite.EntryService {
		t.Helper()
		svc := sqlite.NewEntryService(setupTestDB(t))
		_, err := svc.MergeEntries(context.Background(), []*starcat.Entry{
			starcat.NewEntry("b/go", 10, "Go"),
			starcat.NewEntry("a/go", 10, "Go"),
			starcat.NewEntry("c/py", 50, "Python"),
			starcat.NewEntry("d/none", 1, ""),
		})
		require.NoError(t, err)
		return svc
	}

	ids := func(entries []*starcat.Entry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.ID
		}
		return out
	}

	t.Run("orders by stars then id", func(t *testing.T) {
		t.Parallel()

		entries, err := setup(t).FindEntries(context.Background(), starcat.EntryFilter{})

		require.NoError(t, err)
		assert.Equal(t, []string{"c/py", "a/go", "b/go", "d/none"}, ids(entries))
	})

	t.Run("filters by language", func(t *testing.T) {
		t.Parallel()

		lang := "Go"
		entries, err := setup(t).FindEntries(context.Background(), starcat.EntryFilter{Language: &lang})

		require.NoError(t, err)
		assert.Equal(t, []string{"a/go", "b/go"}, ids(entries))
	})

	t.Run("filters by minimum stars", func(t *testing.T) {
		t.Parallel()

		minStars := 10
		entries, err := setup(t).FindEntries(context.Background(), starcat.EntryFilter{MinStars: &minStars})

		require.NoError(t, err)
		assert.Equal(t, []string{"c/py", "a/go", "b/go"}, ids(entries))
	})

	t.Run("filters by ids", func(t *testing.T) {
		t.Parallel()

		entries, err := setup(t).FindEntries(context.Background(), starcat.EntryFilter{IDs: []string{"d/none", "a/go"}})

		require.NoError(t, err)
		assert.Equal(t, []string{"a/go", "d/none"}, ids(entries))
	})

	t.Run("paginates", func(t *testing.T) {
		t.Parallel()

		svc := setup(t)
		ctx := context.Background()

		page, err := svc.FindEntries(ctx, starcat.EntryFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"a/go", "b/go"}, ids(page))

		rest, err := svc.FindEntries(ctx, starcat.EntryFilter{Offset: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"d/none"}, ids(rest))
	})

	t.Run("returns derived fields", func(t *testing.T) {
		t.Parallel()

		e, err := setup(t).FindEntryByID(context.Background(), "c/py")

		require.NoError(t, err)
		assert.Equal(t, "c", e.Owner)
		assert.Equal(t, "py", e.Name)
		assert.Equal(t, "https://github.com/c/py", e.URL)
	})
}

func TestEntryService_FindEntryByID_NotFound(t *testing.T) {
	t.Parallel()

	svc := sqlite.NewEntryService(setupTestDB(t))

	_, err := svc.FindEntryByID(context.Background(), "missing/repo")

	assert.Equal(t, starcat.ENOTFOUND, starcat.ErrorCode(err))
}

func TestEntryService_DeleteEntry(t *testing.T) {
	t.Parallel()

	t.Run("removes entry", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewEntryService(setupTestDB(t))
		ctx := context.Background()
		_, err := svc.MergeEntries(ctx, []*starcat.Entry{starcat.NewEntry("a/one", 1, "")})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteEntry(ctx, "a/one"))

		_, err = svc.FindEntryByID(ctx, "a/one")
		assert.Equal(t, starcat.ENOTFOUND, starcat.ErrorCode(err))
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewEntryService(setupTestDB(t))

		err := svc.DeleteEntry(context.Background(), "a/one")

		assert.Equal(t, starcat.ENOTFOUND, starcat.ErrorCode(err))
	})
}
