package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/starcat"
	"github.com/fwojciec/starcat/fs"
	"github.com/fwojciec/starcat/gemini"
	"github.com/fwojciec/starcat/goquery"
	"github.com/fwojciec/starcat/htmltomarkdown"
	starcathttp "github.com/fwojciec/starcat/http"
	"github.com/fwojciec/starcat/ingest"
	scslog "github.com/fwojciec/starcat/slog"
	"github.com/fwojciec/starcat/sqlite"
	"github.com/fwojciec/starcat/xxhash"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Home holds the config file and default state paths. Defaults to
	// $STARCAT_HOME or ~/.starcat when empty.
	Home string

	// Getenv reads environment variables.
	Getenv func(string) string

	// SQLite database backing the record store.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Getenv: os.Getenv}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Commands that read or write the local pipeline state.
var (
	storeCommands  = []string{"sync", "enrich", "build", "run"}
	remoteCommands = []string{"sync", "run"}
	cacheCommands  = []string{"enrich", "build", "run"}
	inferCommands  = []string{"enrich", "run"}
)

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:      ctx,
		Stdout:   stdout,
		Stderr:   stderr,
		Now:      time.Now,
		NewRunID: uuid.NewString,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("starcat"),
		kong.Description("Catalog, enrich and browse your GitHub stars."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'starcat --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	getenv := m.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	home := m.Home
	if home == "" {
		home = defaultHome(getenv)
	}
	configPath := cli.Config
	if configPath == "" {
		configPath = filepath.Join(home, "config.yaml")
	}

	cfg, err := LoadConfig(configPath, home, getenv)
	if err != nil {
		return err
	}
	deps.Config = cfg
	deps.Logger = newLogger(stderr, cli.Verbose)
	deps.Model = cfg.Gemini.Model
	deps.Catalogs = fs.NewCatalogFile(cfg.Paths.Catalog)

	if slices.Contains(storeCommands, cmd) {
		if err := os.MkdirAll(filepath.Dir(cfg.Paths.DB), 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		m.DB = sqlite.NewDB(cfg.Paths.DB)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: set paths.db in %s to use a different database path\n", configPath)
			return fmt.Errorf("failed to open database at %q: %w", cfg.Paths.DB, err)
		}
		defer m.Close()

		deps.Entries = sqlite.NewEntryService(m.DB)
		deps.Contents = fs.NewContentStore(cfg.Paths.Readmes)
		deps.Fingerprinter = xxhash.NewFingerprinter()
	}

	if slices.Contains(remoteCommands, cmd) {
		if cfg.GitHub.Token == "" && cfg.GitHub.User == "" {
			fmt.Fprintln(stderr, "Hint: set GITHUB_TOKEN, or github.user in the config file to list a public profile")
			return fmt.Errorf("no GitHub token or user configured")
		}
		client := starcathttp.NewGitHubClient(
			starcathttp.WithToken(cfg.GitHub.Token),
			starcathttp.WithUser(cfg.GitHub.User),
			starcathttp.WithLimiter(ingest.NewDomainLimiter(cfg.GitHub.RPS)),
			starcathttp.WithReadmeFallback(goquery.NewReadmeExtractor(), htmltomarkdown.NewConverter()),
			starcathttp.WithRetryDelays(starcat.DefaultRetryDelays(), func(attempt int, err error) {
				deps.Logger.Warn("retrying GitHub request", "attempt", attempt, "err", err)
			}),
		)
		deps.Source = scslog.NewLoggingEntrySource(client, deps.Logger)
		deps.Fetcher = scslog.NewLoggingContentFetcher(client, deps.Logger)
	}

	if slices.Contains(cacheCommands, cmd) {
		cache, err := fs.OpenCache(cfg.Paths.Cache)
		if err != nil {
			return fmt.Errorf("failed to open enrichment cache: %w", err)
		}
		if cache.Recovered() {
			deps.Logger.Warn("enrichment cache was corrupt and has been reset", "path", cfg.Paths.Cache)
		}
		deps.Logger.Debug("opened enrichment cache", "path", cfg.Paths.Cache, "entries", cache.Len())
		deps.Cache = cache
	}

	if slices.Contains(inferCommands, cmd) {
		if cfg.Gemini.APIKey == "" {
			fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
			return fmt.Errorf("GEMINI_API_KEY not set")
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		deps.Enricher = scslog.NewLoggingEnricher(gemini.NewEnricher(client, cfg.Gemini.Model), deps.Logger)

		if counter, err := gemini.NewTokenCounter(cfg.Gemini.Model); err != nil {
			deps.Logger.Warn("token counting disabled", "model", cfg.Gemini.Model, "err", err)
		} else {
			deps.TokenCounter = counter
		}
	}

	return kongCtx.Run(deps)
}
