package main_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/starcat"
	main "github.com/fwojciec/starcat/cmd/starcat"
	"github.com/fwojciec/starcat/mock"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// newDeps returns dependencies with captured output and fixed clock.
func newDeps() (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cfg := main.DefaultConfig()
	cfg.Gemini.RPS = 0
	return &main.Dependencies{
		Ctx:      context.Background(),
		Stdout:   stdout,
		Stderr:   stderr,
		Logger:   slog.New(slog.DiscardHandler),
		Config:   cfg,
		Model:    "gemini-test",
		Now:      func() time.Time { return testNow },
		NewRunID: func() string { return "run-1" },
	}, stdout, stderr
}

func testRecord(id string, stars int, lang string, tags []string, paths ...starcat.TaxonomyPath) *starcat.Record {
	return &starcat.Record{
		Entry: *starcat.NewEntry(id, stars, lang),
		Enrichment: starcat.Enrichment{
			Summary:       "Summary of " + id,
			Taxonomy:      paths,
			Tags:          tags,
			TechStack:     []string{},
			Complexity:    starcat.ComplexityIntermediate,
			SchemaVersion: starcat.SchemaVersion,
			HasContent:    true,
		},
	}
}

func catalogOf(records ...*starcat.Record) *mock.CatalogStore {
	c := starcat.NewCatalog(records, starcat.CatalogOptions{GeneratedAt: testNow, RunID: "run-0", SchemaVersion: starcat.SchemaVersion})
	return &mock.CatalogStore{
		ReadCatalogFn: func(context.Context) (*starcat.Catalog, error) {
			return c, nil
		},
	}
}

func sampleCatalog() *mock.CatalogStore {
	return catalogOf(
		testRecord("ggerganov/whisper.cpp", 30000, "C++", []string{"speech", "cpp"},
			starcat.TaxonomyPath{"AI", "GenAI", "Voice"}),
		testRecord("ollama/ollama", 90000, "Go", []string{"llm", "go"},
			starcat.TaxonomyPath{"AI", "GenAI", "LLM"}),
		testRecord("spf13/cobra", 35000, "Go", []string{"cli", "go"},
			starcat.TaxonomyPath{"Developer Tools", "CLI"}),
	)
}

// memContents is an in-memory content store.
type memContents struct {
	mu    sync.Mutex
	saved map[string]string
}

func newMemContents(initial map[string]string) *memContents {
	saved := make(map[string]string, len(initial))
	for k, v := range initial {
		saved[k] = v
	}
	return &memContents{saved: saved}
}

func (m *memContents) service() *mock.ContentService {
	return &mock.ContentService{
		FindContentFn: func(_ context.Context, id string) (string, bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			c, ok := m.saved[id]
			return c, ok, nil
		},
		SaveContentFn: func(_ context.Context, id, content string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.saved[id] = content
			return nil
		},
		HasContentFn: func(_ context.Context, id string) (bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			_, ok := m.saved[id]
			return ok, nil
		},
	}
}

func storedEntries(entries ...*starcat.Entry) *mock.EntryService {
	return &mock.EntryService{
		FindEntriesFn: func(context.Context, starcat.EntryFilter) ([]*starcat.Entry, error) {
			return entries, nil
		},
	}
}

// captureCatalog returns a store recording the last written catalog.
func captureCatalog(written **starcat.Catalog) *mock.CatalogStore {
	return &mock.CatalogStore{
		WriteCatalogFn: func(_ context.Context, c *starcat.Catalog) error {
			*written = c
			return nil
		},
	}
}
