package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/starcat"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	Config *Config

	Source        starcat.EntrySource
	Entries       starcat.EntryService
	Fetcher       starcat.ContentFetcher
	Contents      starcat.ContentService
	Cache         Cache
	Enricher      starcat.Enricher
	TokenCounter  starcat.TokenCounter
	Fingerprinter starcat.Fingerprinter
	Catalogs      starcat.CatalogStore

	// Model names the inference model stamped on the catalog.
	Model string

	Now      func() time.Time
	NewRunID func() string
}

// Cache is the enrichment cache as used by the commands: the pass-facing
// contract plus inspection and pruning of individual entries.
type Cache interface {
	starcat.EnrichmentCache
	Get(id string) (*starcat.Enrichment, bool)
	Len() int
	Prune(keep func(id string) bool) int
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `help:"Config file path" placeholder:"PATH"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Sync   SyncCmd   `cmd:"" help:"Sync starred repositories and fetch their READMEs"`
	Enrich EnrichCmd `cmd:"" help:"Enrich synced repositories with structured metadata"`
	Build  BuildCmd  `cmd:"" help:"Build the catalog from cached enrichments"`
	All    RunCmd    `cmd:"" name:"run" help:"Sync, enrich and build in one step"`
	Search SearchCmd `cmd:"" help:"Search the catalog"`
	Tree   TreeCmd   `cmd:"" help:"Show the category tree of the catalog"`
	Top    TopCmd    `cmd:"" help:"Show the largest categories at a depth"`
	Serve  ServeCmd  `cmd:"" help:"Serve the JSON query API"`
}

// SyncCmd is the "sync" subcommand.
type SyncCmd struct {
	Refresh     bool `help:"Refetch READMEs that are already stored"`
	Concurrency int  `short:"c" default:"5" help:"Concurrent README fetches (max 5)"`
}

// EnrichCmd is the "enrich" subcommand.
type EnrichCmd struct {
	RetryFailed bool `help:"Retry entries whose last enrichment failed"`
	Prune       bool `help:"Drop cached enrichments for entries no longer stored"`
	Workers     int  `short:"w" help:"Concurrent enrichment calls (max 5)"`
}

// BuildCmd is the "build" subcommand.
type BuildCmd struct{}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	Refresh     bool `help:"Refetch READMEs that are already stored"`
	RetryFailed bool `help:"Retry entries whose last enrichment failed"`
	Prune       bool `help:"Drop cached enrichments for entries no longer stored"`
	Workers     int  `short:"w" help:"Concurrent enrichment calls (max 5)"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query    []string `arg:"" optional:"" help:"Search text"`
	Tag      []string `short:"t" help:"Require a tag (repeatable, all must match)"`
	Taxonomy []string `short:"x" help:"Match a category fragment (repeatable, any may match)"`
	Sort     string   `short:"s" default:"stars-desc" enum:"stars-desc,stars-asc,name-asc,name-desc,complexity-asc,complexity-desc" help:"Result order"`
	Limit    int      `short:"n" default:"20" help:"Maximum results to show (0 for all)"`
	JSON     bool     `name:"json" help:"Print results as JSON"`
}

// TreeCmd is the "tree" subcommand.
type TreeCmd struct {
	Depth int `short:"d" default:"4" help:"Maximum depth to show"`
}

// TopCmd is the "top" subcommand.
type TopCmd struct {
	Depth int `short:"d" default:"1" help:"Category depth"`
	Limit int `short:"n" default:"10" help:"Number of categories to show"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `help:"Bind address (overrides config)"`
}
