package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/starcat"
	"github.com/fwojciec/starcat/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Story: Enrichment Cache
// Cached enrichments are reused only while content and schema are unchanged.

func enrichment(fp starcat.Fingerprint, version int) *starcat.Enrichment {
	return &starcat.Enrichment{
		Summary:       "A tool.",
		Taxonomy:      []starcat.TaxonomyPath{{"Developer Tools", "CLI"}},
		Tags:          []string{"cli"},
		TechStack:     []string{"Go"},
		Complexity:    "beginner",
		SchemaVersion: version,
		Fingerprint:   fp,
		HasContent:    true,
	}
}

func TestOpenCache_MissingFileOpensEmpty(t *testing.T) {
	t.Parallel()

	c, err := fs.OpenCache(filepath.Join(t.TempDir(), "cache.json"))

	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Recovered())
}

func TestOpenCache_CorruptFileOpensEmpty(t *testing.T) {
	t.Parallel()

	// Given a cache file truncated mid-write
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a/b": {"summary": "cut`), 0644))

	// When I open it
	c, err := fs.OpenCache(path)

	// Then the cache is empty and marked recovered
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.Recovered())
}

func TestOpenCache_UnreadableFileReturnsError(t *testing.T) {
	t.Parallel()

	// A directory at the cache path cannot be read as a file
	path := t.TempDir()

	_, err := fs.OpenCache(path)

	assert.Error(t, err)
}

func TestOpenCache_ToleratesUnknownAndMissingFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"a/b": {"summary": "old", "fingerprint": "ff", "futureField": {"x": 1}},
		"c/d": null
	}`), 0644))

	c, err := fs.OpenCache(path)

	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	e, ok := c.Get("a/b")
	require.True(t, ok)
	assert.Equal(t, "old", e.Summary)
	assert.Equal(t, 0, e.SchemaVersion)

	// A record without a schema version never matches the current one
	_, ok = c.Lookup("a/b", "ff", starcat.SchemaVersion)
	assert.False(t, ok)
}

func TestOpenCache_DropsShortTaxonomyPaths(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"a/b": {"summary": "old", "taxonomy": ["Solo", "AI > ML", ["Web", "Frontend"]]}
	}`), 0644))

	c, err := fs.OpenCache(path)

	require.NoError(t, err)
	e, ok := c.Get("a/b")
	require.True(t, ok)
	assert.Equal(t, []starcat.TaxonomyPath{{"AI", "ML"}, {"Web", "Frontend"}}, e.Taxonomy)
}

func TestCache_Lookup(t *testing.T) {
	t.Parallel()

	c, err := fs.OpenCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)
	c.Store("a/b", enrichment("f1", 3))

	t.Run("hit when fingerprint and version match", func(t *testing.T) {
		t.Parallel()

		e, ok := c.Lookup("a/b", "f1", 3)

		require.True(t, ok)
		assert.Equal(t, "A tool.", e.Summary)
	})

	t.Run("miss when fingerprint differs", func(t *testing.T) {
		t.Parallel()

		_, ok := c.Lookup("a/b", "f2", 3)

		assert.False(t, ok)
	})

	t.Run("miss when schema version differs", func(t *testing.T) {
		t.Parallel()

		_, ok := c.Lookup("a/b", "f1", 4)

		assert.False(t, ok)
	})

	t.Run("miss for unknown id", func(t *testing.T) {
		t.Parallel()

		_, ok := c.Lookup("x/y", "f1", 3)

		assert.False(t, ok)
	})
}

func TestCache_StoreOverwrites(t *testing.T) {
	t.Parallel()

	c, err := fs.OpenCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	c.Store("a/b", enrichment("f1", 1))
	c.Store("a/b", enrichment("f2", 1))

	assert.Equal(t, 1, c.Len())
	_, ok := c.Lookup("a/b", "f2", 1)
	assert.True(t, ok)
}

func TestCache_FlushRoundTrip(t *testing.T) {
	t.Parallel()

	// Given a cache with two records
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	c, err := fs.OpenCache(path)
	require.NoError(t, err)
	c.Store("z/z", enrichment("f1", 1))
	c.Store("a/a", starcat.FailedEnrichment("f2", 1, starcat.Errorf(starcat.EMALFORMED, "bad")))

	// When I flush and reopen
	require.NoError(t, c.Flush())
	reopened, err := fs.OpenCache(path)
	require.NoError(t, err)

	// Then both records survive unchanged
	assert.False(t, reopened.Recovered())
	got, ok := reopened.Lookup("z/z", "f1", 1)
	require.True(t, ok)
	assert.Equal(t, enrichment("f1", 1), got)
	failed, ok := reopened.Lookup("a/a", "f2", 1)
	require.True(t, ok)
	assert.Equal(t, "bad", failed.Error)

	// And no temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCache_FlushIsDeterministic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	c, err := fs.OpenCache(path)
	require.NoError(t, err)
	c.Store("b/b", enrichment("f1", 1))
	c.Store("a/a", enrichment("f2", 1))
	require.NoError(t, c.Flush())
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	reopened, err := fs.OpenCache(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Flush())
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCache_FlushReportsWriteFailure(t *testing.T) {
	t.Parallel()

	// Given a cache whose parent path is a regular file
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	c, err := fs.OpenCache(filepath.Join(blocker, "cache.json"))
	require.NoError(t, err)
	c.Store("a/b", enrichment("f1", 1))

	// Then flushing fails instead of silently dropping records
	assert.Error(t, c.Flush())
}

func TestCache_Prune(t *testing.T) {
	t.Parallel()

	c, err := fs.OpenCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)
	c.Store("keep/me", enrichment("f1", 1))
	c.Store("drop/me", enrichment("f1", 1))

	n := c.Prune(func(id string) bool { return id == "keep/me" })

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("drop/me")
	assert.False(t, ok)
}
