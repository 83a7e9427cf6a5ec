package mock

import (
	"context"

	"github.com/fwojciec/starcat"
)

var _ starcat.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is a mock implementation of starcat.CatalogStore.
type CatalogStore struct {
	ReadCatalogFn  func(ctx context.Context) (*starcat.Catalog, error)
	WriteCatalogFn func(ctx context.Context, c *starcat.Catalog) error
}

func (s *CatalogStore) ReadCatalog(ctx context.Context) (*starcat.Catalog, error) {
	return s.ReadCatalogFn(ctx)
}

func (s *CatalogStore) WriteCatalog(ctx context.Context, c *starcat.Catalog) error {
	return s.WriteCatalogFn(ctx, c)
}
