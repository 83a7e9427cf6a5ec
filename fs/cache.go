package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fwojciec/starcat"
)

// Ensure Cache implements starcat.EnrichmentCache at compile time.
var _ starcat.EnrichmentCache = (*Cache)(nil)

// Cache implements starcat.EnrichmentCache as a single JSON object on disk,
// keyed by entry ID. It is not safe for concurrent use.
type Cache struct {
	path      string
	entries   map[string]*starcat.Enrichment
	recovered bool
}

// OpenCache loads the cache at path. A missing file opens an empty cache.
// A file that cannot be decoded also opens an empty cache, with Recovered
// reporting true. Read failures are returned.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{
		path:    path,
		entries: make(map[string]*starcat.Enrichment),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	} else if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	var entries map[string]*starcat.Enrichment
	if err := json.Unmarshal(data, &entries); err != nil {
		c.recovered = true
		return c, nil
	}
	for id, e := range entries {
		if e != nil {
			e.Taxonomy = starcat.CompactTaxonomy(e.Taxonomy)
			c.entries[id] = e
		}
	}
	return c, nil
}

// Recovered reports whether the persisted cache was corrupt and discarded.
func (c *Cache) Recovered() bool {
	return c.recovered
}

// Len returns the number of cached enrichments.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Get returns the cached enrichment for id regardless of fingerprint or
// schema version.
func (c *Cache) Get(id string) (*starcat.Enrichment, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Lookup returns the cached enrichment only if its fingerprint and schema
// version both match.
func (c *Cache) Lookup(id string, fp starcat.Fingerprint, schemaVersion int) (*starcat.Enrichment, bool) {
	e, ok := c.entries[id]
	if !ok || e.Fingerprint != fp || e.SchemaVersion != schemaVersion {
		return nil, false
	}
	return e, true
}

// Store overwrites the enrichment for id.
func (c *Cache) Store(id string, e *starcat.Enrichment) {
	c.entries[id] = e
}

// Prune removes enrichments whose IDs keep rejects and returns how many
// were removed.
func (c *Cache) Prune(keep func(id string) bool) int {
	n := 0
	for id := range c.entries {
		if !keep(id) {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// Flush writes the full mapping atomically. Keys are written in sorted
// order, so an unchanged cache produces identical bytes.
func (c *Cache) Flush() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
