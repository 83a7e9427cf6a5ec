// Package enrich runs the incremental enrichment pass. Entries whose
// content and schema version are unchanged since the last run are served
// from the cache; the rest are sent to the enricher with bounded
// concurrency while a single coordinator owns the cache.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/starcat"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Defaults for Pass settings left at zero.
const (
	MaxWorkers         = 5
	DefaultFlushEvery  = 5
	DefaultCallTimeout = 2 * time.Minute
)

// Pass enriches a set of entries.
type Pass struct {
	Enricher      starcat.Enricher
	Cache         starcat.EnrichmentCache
	Contents      starcat.ContentService
	Fingerprinter starcat.Fingerprinter

	// TokenCounter is optional. When set, the tokens of content sent to
	// the enricher are summed into the result.
	TokenCounter starcat.TokenCounter

	// Limiter is optional and paces enricher calls across workers.
	Limiter *rate.Limiter

	// Workers bounds concurrent enricher calls, capped at MaxWorkers.
	Workers int

	// FlushEvery persists the cache after this many completed calls.
	FlushEvery int

	// MaxContentLength truncates content before it is sent. Zero selects
	// starcat.MaxContentLength.
	MaxContentLength int

	// RetryFailed treats cached failures as misses.
	RetryFailed bool

	// SchemaVersion stamped on records. Zero selects starcat.SchemaVersion.
	SchemaVersion int

	RetryDelays []time.Duration
	OnRetry     starcat.RetryFunc

	// CallTimeout bounds one enricher attempt. Attempts already in flight
	// when the pass is interrupted are allowed to finish within it.
	CallTimeout time.Duration
}

// Result holds the outcome of a pass.
type Result struct {
	// Records holds one record per completed entry, in input order.
	Records []*starcat.Record

	Hits     int
	Misses   int
	Degraded int
	Failed   int

	// Unreadable counts entries whose stored content could not be read.
	// They get a failed record that is not cached, so the next run retries.
	Unreadable int

	Tokens      int
	Interrupted bool
}

// ProgressEvent reports progress during a pass.
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
	ProgressCached
	ProgressEnriched
	ProgressFailed
	ProgressUnreadable
	ProgressFlushed
	ProgressFlushFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting pass progress.
type ProgressFunc func(event ProgressEvent)

type job struct {
	position int
	entry    *starcat.Entry
	content  string
	fp       starcat.Fingerprint
}

type callResult struct {
	job        job
	enrichment *starcat.Enrichment
	tokens     int
	err        error
	skipped    bool
}

// Run enriches entries in order. Content that cannot be found produces a
// degraded record without calling the enricher, and content that cannot be
// read produces an uncached failed record. Enricher failures are recorded
// on the record and cached; they never abort the pass.
//
// When ctx is canceled no further calls are started, the cache is flushed
// and the partial result is returned together with the context error.
// An error flushing the final cache state is returned as well.
func (p *Pass) Run(ctx context.Context, entries []*starcat.Entry, progress ProgressFunc) (*Result, error) {
	notify := func(e ProgressEvent) {
		if progress != nil {
			progress(e)
		}
	}

	version := p.schemaVersion()
	records := make([]*starcat.Record, len(entries))
	result := &Result{}

	var pending []job
	var unreadable []ProgressEvent
	for i, entry := range entries {
		content, found, err := p.Contents.FindContent(ctx, entry.ID)
		if err != nil {
			err = fmt.Errorf("read content: %w", err)
			records[i] = &starcat.Record{Entry: *entry, Enrichment: *starcat.FailedEnrichment("", version, err)}
			result.Unreadable++
			unreadable = append(unreadable, ProgressEvent{Type: ProgressUnreadable, ID: entry.ID, Error: err})
			continue
		}
		if !found || strings.TrimSpace(content) == "" {
			records[i] = &starcat.Record{Entry: *entry, Enrichment: *starcat.DegradedEnrichment(entry, version)}
			result.Degraded++
			continue
		}

		fp := p.Fingerprinter.Fingerprint([]byte(content))
		if cached, ok := p.Cache.Lookup(entry.ID, fp, version); ok && !(cached.Failed() && p.RetryFailed) {
			records[i] = &starcat.Record{Entry: *entry, Enrichment: *cached}
			result.Hits++
			continue
		}
		pending = append(pending, job{position: i, entry: entry, content: content, fp: fp})
	}

	total := len(pending)
	notify(ProgressEvent{Type: ProgressStarted, Total: total})
	for _, e := range unreadable {
		e.Total = total
		notify(e)
	}
	for _, r := range records {
		if r != nil && r.HasContent {
			notify(ProgressEvent{Type: ProgressCached, Total: total, ID: r.ID})
		}
	}

	resultCh := make(chan callResult)
	g := new(errgroup.Group)
	g.SetLimit(p.workers())

	go func() {
		for _, j := range pending {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				resultCh <- p.call(ctx, j)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	flushEvery := p.FlushEvery
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}

	completed := 0
	for r := range resultCh {
		if r.skipped {
			continue
		}
		completed++

		e := r.enrichment
		event := ProgressEvent{Type: ProgressEnriched, Completed: completed, Total: total, ID: r.job.entry.ID}
		if r.err != nil {
			e = starcat.FailedEnrichment(r.job.fp, version, r.err)
			result.Failed++
			event.Type, event.Error = ProgressFailed, r.err
		} else {
			e.Fingerprint = r.job.fp
			e.SchemaVersion = version
			e.HasContent = true
		}
		result.Misses++
		result.Tokens += r.tokens

		p.Cache.Store(r.job.entry.ID, e)
		records[r.job.position] = &starcat.Record{Entry: *r.job.entry, Enrichment: *e}
		notify(event)

		if completed%flushEvery == 0 {
			if err := p.Cache.Flush(); err != nil {
				notify(ProgressEvent{Type: ProgressFlushFailed, Completed: completed, Total: total, Error: err})
			} else {
				notify(ProgressEvent{Type: ProgressFlushed, Completed: completed, Total: total})
			}
		}
	}

	for _, r := range records {
		if r != nil {
			result.Records = append(result.Records, r)
		}
	}
	result.Interrupted = ctx.Err() != nil

	if err := p.Cache.Flush(); err != nil {
		notify(ProgressEvent{Type: ProgressFlushFailed, Completed: completed, Total: total, Error: err})
		return result, fmt.Errorf("flush cache: %w", err)
	}
	notify(ProgressEvent{Type: ProgressFinished, Completed: completed, Total: total})

	return result, ctx.Err()
}

// call invokes the enricher for one job. It is skipped if the pass was
// interrupted before the first attempt started.
func (p *Pass) call(ctx context.Context, j job) callResult {
	if ctx.Err() != nil {
		return callResult{job: j, skipped: true}
	}

	content := Truncate(j.content, p.maxContentLength())
	res := callResult{job: j}

	if p.TokenCounter != nil {
		if n, err := p.TokenCounter.CountTokens(ctx, content); err == nil {
			res.tokens = n
		}
	}

	delays := p.RetryDelays
	if delays == nil {
		delays = starcat.DefaultRetryDelays()
	}

	first := true
	res.enrichment, res.err = starcat.Retry(ctx, delays, p.OnRetry, func(ctx context.Context) (*starcat.Enrichment, error) {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if first && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		first = false

		// In-flight attempts outlive an interrupt, bounded by the timeout.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.callTimeout())
		defer cancel()
		return p.Enricher.Enrich(callCtx, j.entry, content)
	})

	if first {
		// Interrupted while waiting for the limiter; nothing was sent.
		return callResult{job: j, skipped: true}
	}
	if res.err != nil && ctx.Err() != nil && errors.Is(res.err, ctx.Err()) {
		// Interrupted between attempts. The entry stays uncached so the
		// next run picks it up again.
		return callResult{job: j, skipped: true}
	}
	if res.err == nil && res.enrichment == nil {
		res.err = starcat.Errorf(starcat.EMALFORMED, "enricher returned no enrichment")
	}
	return res
}

func (p *Pass) workers() int {
	if p.Workers <= 0 || p.Workers > MaxWorkers {
		return MaxWorkers
	}
	return p.Workers
}

func (p *Pass) schemaVersion() int {
	if p.SchemaVersion <= 0 {
		return starcat.SchemaVersion
	}
	return p.SchemaVersion
}

func (p *Pass) maxContentLength() int {
	if p.MaxContentLength <= 0 {
		return starcat.MaxContentLength
	}
	return p.MaxContentLength
}

func (p *Pass) callTimeout() time.Duration {
	if p.CallTimeout <= 0 {
		return DefaultCallTimeout
	}
	return p.CallTimeout
}

// Truncate cuts content to at most limit bytes on a rune boundary and
// appends starcat.TruncationMarker. Content within the limit is returned
// unchanged.
func Truncate(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + starcat.TruncationMarker
}
