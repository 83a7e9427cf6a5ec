package starcat

import "context"

// ReadmeFilenames lists the conventional README file names, tried in order.
var ReadmeFilenames = []string{
	"README.md",
	"readme.md",
	"README.MD",
	"Readme.md",
	"README.rst",
	"readme.rst",
	"README.txt",
	"readme.txt",
	"README",
}

// ContentFetcher retrieves source content from the remote hosting service.
type ContentFetcher interface {
	// FetchContent returns the README text for an entry. A repository
	// without a README returns found=false and a nil error.
	FetchContent(ctx context.Context, id string) (content string, found bool, err error)
}

// ContentService stores source content locally between runs.
type ContentService interface {
	// FindContent returns the stored content for an entry.
	// Absent content returns found=false and a nil error.
	FindContent(ctx context.Context, id string) (content string, found bool, err error)

	// SaveContent stores content for an entry, replacing any prior content.
	SaveContent(ctx context.Context, id string, content string) error

	// HasContent reports whether content is stored for an entry.
	HasContent(ctx context.Context, id string) (bool, error)
}

// Extractor pulls the README body out of rendered HTML, removing page chrome
// and badge images.
type Extractor interface {
	Extract(html string) (string, error)
}

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms HTML content into Markdown.
	Convert(html string) (string, error)
}

// Fingerprinter computes a short digest of content for change detection.
type Fingerprinter interface {
	Fingerprint(content []byte) Fingerprint
}

// Fingerprint is a fixed-length digest of source content. It is used for
// equality comparison only, never for security.
type Fingerprint string

// TokenCounter counts tokens in text for a specific model.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// DomainLimiter provides per-host rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the host.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, host string) error
}
