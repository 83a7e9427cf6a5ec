package main

import (
	"fmt"

	"github.com/fwojciec/starcat"
	"github.com/fwojciec/starcat/ingest"
)

// Run executes the sync command.
func (c *SyncCmd) Run(deps *Dependencies) error {
	_, err := runSync(deps, c.Refresh, c.Concurrency)
	return err
}

// runSync merges the starred listing into the record store and fetches
// missing READMEs. Only a failure to list or store entries is returned;
// per-entry fetch failures are reported and counted.
func runSync(deps *Dependencies, refresh bool, concurrency int) (*ingest.Result, error) {
	syncer := &ingest.Syncer{
		Source:      deps.Source,
		Entries:     deps.Entries,
		Fetcher:     deps.Fetcher,
		Contents:    deps.Contents,
		Concurrency: concurrency,
		Refresh:     refresh,
	}

	fmt.Fprintln(deps.Stdout, "Syncing starred repositories...")
	progress := func(event ingest.ProgressEvent) {
		switch event.Type {
		case ingest.ProgressStarted:
			if event.Total > 0 {
				fmt.Fprintf(deps.Stdout, "  Fetching %d READMEs\n", event.Total)
			}
		case ingest.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  skip %s: %s\n", event.ID, starcat.ErrorMessage(event.Error))
		}
	}

	result, err := syncer.Sync(deps.Ctx, progress)
	if result == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", starcat.ErrorMessage(err))
		return nil, err
	}

	fmt.Fprintf(deps.Stdout, "  Listed %d (added %d, updated %d, total %d)\n",
		result.Listed, result.Added, result.Updated, result.Total)
	fmt.Fprintf(deps.Stdout, "  Fetched %d READMEs (%s), %d without README, %d failed\n",
		result.Fetched, FormatBytes(result.Bytes), result.Missing, result.Failed)

	if err != nil {
		fmt.Fprintln(deps.Stderr, "error: sync interrupted")
		return result, err
	}
	return result, nil
}
