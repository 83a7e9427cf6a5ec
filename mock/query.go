package mock

import (
	"context"

	"github.com/fwojciec/starcat"
)

var _ starcat.Searcher = (*Searcher)(nil)

// Searcher is a mock implementation of starcat.Searcher.
type Searcher struct {
	SearchFn func(text string) ([]string, error)
}

func (s *Searcher) Search(text string) ([]string, error) {
	return s.SearchFn(text)
}

var _ starcat.QueryService = (*QueryService)(nil)

// QueryService is a mock implementation of starcat.QueryService.
type QueryService struct {
	QueryFn      func(ctx context.Context, q starcat.Query) ([]*starcat.Record, error)
	FindRecordFn func(ctx context.Context, id string) (*starcat.Record, error)
	TaxonomyFn   func() *starcat.Taxonomy
	SummaryFn    func() starcat.Summary
}

func (s *QueryService) Query(ctx context.Context, q starcat.Query) ([]*starcat.Record, error) {
	return s.QueryFn(ctx, q)
}

func (s *QueryService) FindRecord(ctx context.Context, id string) (*starcat.Record, error) {
	return s.FindRecordFn(ctx, id)
}

func (s *QueryService) Taxonomy() *starcat.Taxonomy {
	return s.TaxonomyFn()
}

func (s *QueryService) Summary() starcat.Summary {
	return s.SummaryFn()
}
