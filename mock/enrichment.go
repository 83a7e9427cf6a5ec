package mock

import (
	"context"

	"github.com/fwojciec/starcat"
)

var _ starcat.Enricher = (*Enricher)(nil)

// Enricher is a mock implementation of starcat.Enricher.
type Enricher struct {
	EnrichFn func(ctx context.Context, entry *starcat.Entry, content string) (*starcat.Enrichment, error)
}

func (e *Enricher) Enrich(ctx context.Context, entry *starcat.Entry, content string) (*starcat.Enrichment, error) {
	return e.EnrichFn(ctx, entry, content)
}

var _ starcat.EnrichmentCache = (*EnrichmentCache)(nil)

// EnrichmentCache is a mock implementation of starcat.EnrichmentCache.
type EnrichmentCache struct {
	LookupFn func(id string, fp starcat.Fingerprint, schemaVersion int) (*starcat.Enrichment, bool)
	StoreFn  func(id string, e *starcat.Enrichment)
	FlushFn  func() error
}

func (c *EnrichmentCache) Lookup(id string, fp starcat.Fingerprint, schemaVersion int) (*starcat.Enrichment, bool) {
	return c.LookupFn(id, fp, schemaVersion)
}

func (c *EnrichmentCache) Store(id string, e *starcat.Enrichment) {
	c.StoreFn(id, e)
}

func (c *EnrichmentCache) Flush() error {
	return c.FlushFn()
}
