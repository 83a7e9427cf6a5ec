package main

import (
	"fmt"

	"github.com/fwojciec/starcat"
	"github.com/fwojciec/starcat/enrich"
	"golang.org/x/time/rate"
)

// Run executes the enrich command.
func (c *EnrichCmd) Run(deps *Dependencies) error {
	_, err := runEnrich(deps, enrichOptions{
		RetryFailed: c.RetryFailed,
		Prune:       c.Prune,
		Workers:     c.Workers,
	})
	return err
}

type enrichOptions struct {
	RetryFailed bool
	Prune       bool
	Workers     int
}

// runEnrich runs the enrichment pass over every stored entry. Per-entry
// failures are recorded on the records; only an unreadable store, an
// unwritable cache or an interrupt is returned.
func runEnrich(deps *Dependencies, opts enrichOptions) (*enrich.Result, error) {
	entries, err := deps.Entries.FindEntries(deps.Ctx, starcat.EntryFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return nil, err
	}

	if opts.Prune {
		known := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			known[e.ID] = struct{}{}
		}
		n := deps.Cache.Prune(func(id string) bool {
			_, ok := known[id]
			return ok
		})
		if n > 0 {
			fmt.Fprintf(deps.Stdout, "Pruned %d cached enrichments\n", n)
		}
	}

	cfg := deps.Config.Enrich
	workers := cfg.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	pass := &enrich.Pass{
		Enricher:         deps.Enricher,
		Cache:            deps.Cache,
		Contents:         deps.Contents,
		Fingerprinter:    deps.Fingerprinter,
		TokenCounter:     deps.TokenCounter,
		Workers:          workers,
		FlushEvery:       cfg.FlushEvery,
		MaxContentLength: cfg.MaxContentLength,
		RetryFailed:      opts.RetryFailed || cfg.RetryFailed,
		CallTimeout:      deps.Config.Gemini.Timeout,
		OnRetry: func(attempt int, err error) {
			deps.Logger.Warn("retrying enrichment", "attempt", attempt, "err", err)
		},
	}
	if rps := deps.Config.Gemini.RPS; rps > 0 {
		pass.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	progress := func(event enrich.ProgressEvent) {
		switch event.Type {
		case enrich.ProgressStarted:
			fmt.Fprintf(deps.Stdout, "Enriching %d of %d repositories...\n", event.Total, len(entries))
		case enrich.ProgressEnriched:
			fmt.Fprintf(deps.Stdout, "  [%d/%d] %s\n", event.Completed, event.Total, event.ID)
		case enrich.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  [%d/%d] %s failed: %s\n", event.Completed, event.Total, event.ID, starcat.ErrorMessage(event.Error))
		case enrich.ProgressUnreadable:
			fmt.Fprintf(deps.Stderr, "  skip %s: %v\n", event.ID, event.Error)
		case enrich.ProgressFlushFailed:
			deps.Logger.Warn("cache flush failed", "err", event.Error)
		}
	}

	result, err := pass.Run(deps.Ctx, entries, progress)
	if result == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return nil, err
	}

	fmt.Fprintf(deps.Stdout, "  %d cached, %d enriched, %d failed, %d without README",
		result.Hits, result.Misses-result.Failed, result.Failed, result.Degraded)
	if result.Unreadable > 0 {
		fmt.Fprintf(deps.Stdout, ", %d unreadable", result.Unreadable)
	}
	if result.Tokens > 0 {
		fmt.Fprintf(deps.Stdout, " (%s sent)", FormatTokens(result.Tokens))
	}
	fmt.Fprintln(deps.Stdout)

	if err != nil {
		if result.Interrupted {
			fmt.Fprintln(deps.Stderr, "error: enrichment interrupted; completed results were cached")
		} else {
			fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		}
		return result, err
	}
	return result, nil
}
