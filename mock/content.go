package mock

import (
	"context"

	"github.com/fwojciec/starcat"
)

var _ starcat.ContentFetcher = (*ContentFetcher)(nil)

// ContentFetcher is a mock implementation of starcat.ContentFetcher.
type ContentFetcher struct {
	FetchContentFn func(ctx context.Context, id string) (string, bool, error)
}

func (f *ContentFetcher) FetchContent(ctx context.Context, id string) (string, bool, error) {
	return f.FetchContentFn(ctx, id)
}

var _ starcat.ContentService = (*ContentService)(nil)

// ContentService is a mock implementation of starcat.ContentService.
type ContentService struct {
	FindContentFn func(ctx context.Context, id string) (string, bool, error)
	SaveContentFn func(ctx context.Context, id string, content string) error
	HasContentFn  func(ctx context.Context, id string) (bool, error)
}

func (s *ContentService) FindContent(ctx context.Context, id string) (string, bool, error) {
	return s.FindContentFn(ctx, id)
}

func (s *ContentService) SaveContent(ctx context.Context, id string, content string) error {
	return s.SaveContentFn(ctx, id, content)
}

func (s *ContentService) HasContent(ctx context.Context, id string) (bool, error) {
	return s.HasContentFn(ctx, id)
}

var _ starcat.Fingerprinter = (*Fingerprinter)(nil)

// Fingerprinter is a mock implementation of starcat.Fingerprinter.
type Fingerprinter struct {
	FingerprintFn func(content []byte) starcat.Fingerprint
}

func (f *Fingerprinter) Fingerprint(content []byte) starcat.Fingerprint {
	return f.FingerprintFn(content)
}

var _ starcat.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of starcat.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, host string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, host string) error {
	return l.WaitFn(ctx, host)
}
