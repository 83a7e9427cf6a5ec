package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/starcat"
)

// Ensure LoggingContentFetcher implements starcat.ContentFetcher.
var _ starcat.ContentFetcher = (*LoggingContentFetcher)(nil)

// LoggingContentFetcher wraps a ContentFetcher with debug logging.
type LoggingContentFetcher struct {
	next   starcat.ContentFetcher
	logger *slog.Logger
}

// NewLoggingContentFetcher creates a new LoggingContentFetcher.
func NewLoggingContentFetcher(next starcat.ContentFetcher, logger *slog.Logger) *LoggingContentFetcher {
	return &LoggingContentFetcher{next: next, logger: logger}
}

// FetchContent delegates to the wrapped fetcher and logs the fetch.
func (f *LoggingContentFetcher) FetchContent(ctx context.Context, id string) (content string, found bool, err error) {
	defer func(begin time.Time) {
		f.logger.Debug("fetch content",
			"id", id,
			"found", found,
			"bytes", len(content),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.FetchContent(ctx, id)
}
