// Package ingest synchronizes the local catalog with the remote record
// source. It merges the starred listing into the record store and fetches
// README content for entries that lack it.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/starcat"
	"golang.org/x/sync/errgroup"
)

// MaxConcurrency is the hard cap on concurrent content fetches.
const MaxConcurrency = 5

// Syncer orchestrates a sync run.
type Syncer struct {
	Source   starcat.EntrySource
	Entries  starcat.EntryService
	Fetcher  starcat.ContentFetcher
	Contents starcat.ContentService

	// Concurrency bounds content fetches. Values outside 1..MaxConcurrency
	// are clamped.
	Concurrency int

	// Refresh refetches content for every entry, not only missing ones.
	Refresh bool
}

// Result holds the outcome of a sync run.
type Result struct {
	Listed  int
	Added   int
	Updated int
	Total   int
	SyncID  string

	Fetched int
	Missing int
	Failed  int
	Bytes   int
}

// ProgressEvent reports progress during a sync run.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	ID        string
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressFetched
	ProgressMissing
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting sync progress.
type ProgressFunc func(event ProgressEvent)

type fetchResult struct {
	id      string
	content string
	found   bool
	err     error
}

// Sync lists entries from the source, merges them into the record store
// and fetches content for every stored entry that lacks it. Failing to list
// or merge aborts the run. Per-entry fetch failures are counted, not
// returned. On cancellation the partial result is returned with the
// context error.
func (s *Syncer) Sync(ctx context.Context, progress ProgressFunc) (*Result, error) {
	listed, err := s.Source.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	merged, err := s.Entries.MergeEntries(ctx, listed)
	if err != nil {
		return nil, fmt.Errorf("merge entries: %w", err)
	}

	result := &Result{
		Listed:  len(listed),
		Added:   merged.Added,
		Updated: merged.Updated,
		Total:   merged.Total,
		SyncID:  merged.SyncID,
	}

	stored, err := s.Entries.FindEntries(ctx, starcat.EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}

	var pending []string
	for _, e := range stored {
		if !s.Refresh {
			has, err := s.Contents.HasContent(ctx, e.ID)
			if err != nil {
				return nil, fmt.Errorf("check content for %s: %w", e.ID, err)
			}
			if has {
				continue
			}
		}
		pending = append(pending, e.ID)
	}

	if err := s.fetchAll(ctx, pending, result, progress); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Syncer) fetchAll(ctx context.Context, ids []string, result *Result, progress ProgressFunc) error {
	total := len(ids)
	if progress != nil {
		progress(ProgressEvent{Type: ProgressStarted, Total: total})
	}

	resultCh := make(chan fetchResult)

	g := new(errgroup.Group)
	g.SetLimit(clamp(s.Concurrency, MaxConcurrency))

	go func() {
		for _, id := range ids {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				content, found, err := s.Fetcher.FetchContent(ctx, id)
				resultCh <- fetchResult{id: id, content: content, found: found, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	// Content is saved here so that a single goroutine writes to the store.
	completed := 0
	for r := range resultCh {
		completed++
		event := ProgressEvent{Completed: completed, Total: total, ID: r.id}

		switch {
		case r.err != nil:
			result.Failed++
			event.Type, event.Error = ProgressFailed, r.err
		case !r.found || strings.TrimSpace(r.content) == "":
			result.Missing++
			event.Type = ProgressMissing
		default:
			if err := s.Contents.SaveContent(ctx, r.id, r.content); err != nil {
				result.Failed++
				event.Type, event.Error = ProgressFailed, err
				break
			}
			result.Fetched++
			result.Bytes += len(r.content)
			event.Type = ProgressFetched
		}

		if progress != nil {
			progress(event)
		}
	}

	if progress != nil {
		progress(ProgressEvent{Type: ProgressFinished, Completed: completed, Total: total})
	}
	return ctx.Err()
}

func clamp(n, hi int) int {
	if n <= 0 || n > hi {
		return hi
	}
	return n
}
