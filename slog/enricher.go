package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/starcat"
)

// Ensure LoggingEnricher implements starcat.Enricher.
var _ starcat.Enricher = (*LoggingEnricher)(nil)

// LoggingEnricher wraps an Enricher with debug logging.
type LoggingEnricher struct {
	next   starcat.Enricher
	logger *slog.Logger
}

// NewLoggingEnricher creates a new LoggingEnricher.
func NewLoggingEnricher(next starcat.Enricher, logger *slog.Logger) *LoggingEnricher {
	return &LoggingEnricher{next: next, logger: logger}
}

// Enrich delegates to the wrapped enricher and logs the call.
func (e *LoggingEnricher) Enrich(ctx context.Context, entry *starcat.Entry, content string) (enrichment *starcat.Enrichment, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"id", entry.ID,
			"bytes", len(content),
			"duration", time.Since(begin),
		}
		if enrichment != nil {
			attrs = append(attrs, "paths", len(enrichment.Taxonomy))
		}
		if err != nil {
			attrs = append(attrs, "code", starcat.ErrorCode(err), "err", err)
		}
		e.logger.Debug("enrich", attrs...)
	}(time.Now())
	return e.next.Enrich(ctx, entry, content)
}
