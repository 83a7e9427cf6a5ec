package mock

import (
	"context"

	"github.com/fwojciec/starcat"
)

var _ starcat.EntryService = (*EntryService)(nil)

// EntryService is a mock implementation of starcat.EntryService.
type EntryService struct {
	MergeEntriesFn  func(ctx context.Context, entries []*starcat.Entry) (*starcat.MergeResult, error)
	FindEntryByIDFn func(ctx context.Context, id string) (*starcat.Entry, error)
	FindEntriesFn   func(ctx context.Context, filter starcat.EntryFilter) ([]*starcat.Entry, error)
	DeleteEntryFn   func(ctx context.Context, id string) error
}

func (s *EntryService) MergeEntries(ctx context.Context, entries []*starcat.Entry) (*starcat.MergeResult, error) {
	return s.MergeEntriesFn(ctx, entries)
}

func (s *EntryService) FindEntryByID(ctx context.Context, id string) (*starcat.Entry, error) {
	return s.FindEntryByIDFn(ctx, id)
}

func (s *EntryService) FindEntries(ctx context.Context, filter starcat.EntryFilter) ([]*starcat.Entry, error) {
	return s.FindEntriesFn(ctx, filter)
}

func (s *EntryService) DeleteEntry(ctx context.Context, id string) error {
	return s.DeleteEntryFn(ctx, id)
}

var _ starcat.EntrySource = (*EntrySource)(nil)

// EntrySource is a mock implementation of starcat.EntrySource.
type EntrySource struct {
	ListEntriesFn func(ctx context.Context) ([]*starcat.Entry, error)
}

func (s *EntrySource) ListEntries(ctx context.Context) ([]*starcat.Entry, error) {
	return s.ListEntriesFn(ctx)
}
