package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fwojciec/starcat"
)

// Ensure CatalogFile implements starcat.CatalogStore at compile time.
var _ starcat.CatalogStore = (*CatalogFile)(nil)

// CatalogFile stores the catalog document as an indented JSON file.
type CatalogFile struct {
	path string
}

// NewCatalogFile creates a new CatalogFile at path.
func NewCatalogFile(path string) *CatalogFile {
	return &CatalogFile{path: path}
}

// ReadCatalog decodes the catalog document.
func (f *CatalogFile) ReadCatalog(ctx context.Context) (*starcat.Catalog, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, starcat.Errorf(starcat.ENOTFOUND, "catalog %s not found, run build first", f.path)
	} else if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c starcat.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, starcat.Errorf(starcat.EINVALID, "decode catalog %s: %s", f.path, err)
	}
	for _, r := range c.Records {
		if r != nil {
			r.Taxonomy = starcat.CompactTaxonomy(r.Taxonomy)
		}
	}
	return &c, nil
}

// WriteCatalog atomically replaces the catalog document.
func (f *CatalogFile) WriteCatalog(ctx context.Context, c *starcat.Catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}
