package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/starcat"
)

// Ensure LoggingEntrySource implements starcat.EntrySource.
var _ starcat.EntrySource = (*LoggingEntrySource)(nil)

// LoggingEntrySource wraps an EntrySource with logging.
type LoggingEntrySource struct {
	next   starcat.EntrySource
	logger *slog.Logger
}

// NewLoggingEntrySource creates a new LoggingEntrySource.
func NewLoggingEntrySource(next starcat.EntrySource, logger *slog.Logger) *LoggingEntrySource {
	return &LoggingEntrySource{next: next, logger: logger}
}

// ListEntries delegates to the wrapped source and logs the listing.
func (s *LoggingEntrySource) ListEntries(ctx context.Context) (entries []*starcat.Entry, err error) {
	defer func(begin time.Time) {
		s.logger.Info("list entries",
			"count", len(entries),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ListEntries(ctx)
}
