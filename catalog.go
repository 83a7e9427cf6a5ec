package starcat

import (
	"cmp"
	"context"
	"slices"
	"time"
)

// Catalog is the aggregated output document of a pipeline run.
type Catalog struct {
	GeneratedAt   time.Time `json:"generatedAt"`
	RunID         string    `json:"runId"`
	SchemaVersion int       `json:"schemaVersion"`
	Model         string    `json:"model,omitempty"`
	Total         int       `json:"total"`
	Records       []*Record `json:"records"`
	Metadata      Summary   `json:"metadata"`
}

// CatalogOptions carries the run metadata stamped onto a Catalog.
type CatalogOptions struct {
	GeneratedAt   time.Time
	RunID         string
	SchemaVersion int
	Model         string
}

// NewCatalog assembles the catalog document. Records are ordered by
// descending stars, ties broken by ID; the input slice is not modified.
func NewCatalog(records []*Record, opts CatalogOptions) *Catalog {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b *Record) int {
		if c := cmp.Compare(b.Stars, a.Stars); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if sorted == nil {
		sorted = []*Record{}
	}

	return &Catalog{
		GeneratedAt:   opts.GeneratedAt,
		RunID:         opts.RunID,
		SchemaVersion: opts.SchemaVersion,
		Model:         opts.Model,
		Total:         len(sorted),
		Records:       sorted,
		Metadata:      Summarize(sorted),
	}
}

// CatalogStore persists the catalog document.
type CatalogStore interface {
	// ReadCatalog returns the last written catalog.
	// Returns ENOTFOUND if no catalog has been written.
	ReadCatalog(ctx context.Context) (*Catalog, error)

	// WriteCatalog replaces the stored catalog.
	WriteCatalog(ctx context.Context, c *Catalog) error
}
