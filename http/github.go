// Package http provides the GitHub record source and the JSON query API
// server over net/http.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/starcat"
)

// DefaultBaseURL is the GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com"

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 30 * time.Second

// PerPage is the page size requested from paged listings.
const PerPage = 100

// Media types accepted by the contents and readme endpoints.
const (
	mediaTypeJSON = "application/vnd.github+json"
	mediaTypeRaw  = "application/vnd.github.raw+json"
	mediaTypeHTML = "application/vnd.github.html+json"
)

// Ensure GitHubClient implements the record source interfaces at compile time.
var (
	_ starcat.EntrySource    = (*GitHubClient)(nil)
	_ starcat.ContentFetcher = (*GitHubClient)(nil)
)

// GitHubClient lists starred repositories and fetches their READMEs from
// the GitHub REST API.
type GitHubClient struct {
	client      *http.Client
	baseURL     string
	token       string
	user        string
	timeout     time.Duration
	limiter     starcat.DomainLimiter
	extractor   starcat.Extractor
	converter   starcat.Converter
	retryDelays []time.Duration
	onRetry     starcat.RetryFunc
}

// Option configures a GitHubClient.
type Option func(*GitHubClient)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *GitHubClient) {
		c.timeout = d
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *GitHubClient) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithToken authenticates requests with a personal access token.
func WithToken(token string) Option {
	return func(c *GitHubClient) {
		c.token = token
	}
}

// WithUser lists the public stars of user instead of the authenticated user.
func WithUser(user string) Option {
	return func(c *GitHubClient) {
		c.user = user
	}
}

// WithLimiter rate limits requests per host.
func WithLimiter(l starcat.DomainLimiter) Option {
	return func(c *GitHubClient) {
		c.limiter = l
	}
}

// WithReadmeFallback enables fetching GitHub's rendered README when none of
// the conventional filenames exist. The HTML is reduced to its body by e and
// converted to Markdown by conv.
func WithReadmeFallback(e starcat.Extractor, conv starcat.Converter) Option {
	return func(c *GitHubClient) {
		c.extractor = e
		c.converter = conv
	}
}

// WithRetryDelays sets the backoff delays for transient failures.
// Defaults to starcat.DefaultRetryDelays.
func WithRetryDelays(delays []time.Duration, onRetry starcat.RetryFunc) Option {
	return func(c *GitHubClient) {
		c.retryDelays = delays
		c.onRetry = onRetry
	}
}

// NewGitHubClient creates a new GitHubClient.
func NewGitHubClient(opts ...Option) *GitHubClient {
	c := &GitHubClient{
		baseURL:     DefaultBaseURL,
		timeout:     DefaultFetchTimeout,
		retryDelays: starcat.DefaultRetryDelays(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{
		Timeout: c.timeout,
	}

	return c
}

type starredRepo struct {
	FullName        string  `json:"full_name"`
	StargazersCount int     `json:"stargazers_count"`
	Language        *string `json:"language"`
}

// ListEntries pages through the starred listing until a short page.
// IDs repeated across pages are returned once.
func (c *GitHubClient) ListEntries(ctx context.Context) ([]*starcat.Entry, error) {
	path := "/user/starred"
	if c.user != "" {
		path = "/users/" + url.PathEscape(c.user) + "/starred"
	}

	entries := []*starcat.Entry{}
	seen := make(map[string]bool)
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s%s?per_page=%d&page=%d", c.baseURL, path, PerPage, page)
		body, err := c.get(ctx, u, mediaTypeJSON)
		if err != nil {
			return nil, fmt.Errorf("list starred page %d: %w", page, err)
		}

		var repos []starredRepo
		if err := json.Unmarshal(body, &repos); err != nil {
			return nil, starcat.Errorf(starcat.EMALFORMED, "decode starred page %d: %s", page, err)
		}

		for _, r := range repos {
			if r.FullName == "" || seen[r.FullName] {
				continue
			}
			seen[r.FullName] = true
			language := ""
			if r.Language != nil {
				language = *r.Language
			}
			entries = append(entries, starcat.NewEntry(r.FullName, r.StargazersCount, language))
		}

		if len(repos) < PerPage {
			break
		}
	}
	return entries, nil
}

// FetchContent tries each conventional README filename in order and returns
// the first one found. If none exist and a fallback is configured, the
// rendered README is converted back to Markdown.
func (c *GitHubClient) FetchContent(ctx context.Context, id string) (string, bool, error) {
	owner, name, ok := strings.Cut(id, "/")
	if !ok || owner == "" || name == "" {
		return "", false, starcat.Errorf(starcat.EINVALID, "entry ID must be owner/name, got %q", id)
	}
	repoPath := url.PathEscape(owner) + "/" + url.PathEscape(name)

	for _, filename := range starcat.ReadmeFilenames {
		u := fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, repoPath, filename)
		body, err := c.get(ctx, u, mediaTypeRaw)
		if starcat.ErrorCode(err) == starcat.ENOTFOUND {
			continue
		} else if err != nil {
			return "", false, fmt.Errorf("fetch %s for %s: %w", filename, id, err)
		}
		if strings.TrimSpace(string(body)) == "" {
			continue
		}
		return string(body), true, nil
	}

	if c.extractor == nil || c.converter == nil {
		return "", false, nil
	}
	return c.fetchRendered(ctx, id, repoPath)
}

func (c *GitHubClient) fetchRendered(ctx context.Context, id, repoPath string) (string, bool, error) {
	u := fmt.Sprintf("%s/repos/%s/readme", c.baseURL, repoPath)
	body, err := c.get(ctx, u, mediaTypeHTML)
	if starcat.ErrorCode(err) == starcat.ENOTFOUND {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("fetch rendered readme for %s: %w", id, err)
	}

	html, err := c.extractor.Extract(string(body))
	if err != nil {
		return "", false, fmt.Errorf("extract readme for %s: %w", id, err)
	}
	if strings.TrimSpace(html) == "" {
		return "", false, nil
	}
	markdown, err := c.converter.Convert(html)
	if err != nil {
		return "", false, fmt.Errorf("convert readme for %s: %w", id, err)
	}
	if strings.TrimSpace(markdown) == "" {
		return "", false, nil
	}
	return markdown, true, nil
}

// get performs a rate limited GET, retrying transient failures.
func (c *GitHubClient) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	return starcat.Retry(ctx, c.retryDelays, c.onRetry, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, rawURL, accept)
	})
}

func (c *GitHubClient) do(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if c.limiter != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, err
		}
		if err := c.limiter.Wait(ctx, u.Host); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "starcat")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, starcat.Errorf(starcat.EUNAVAILABLE, "GitHub unreachable: %s", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, starcat.Errorf(starcat.EUNAVAILABLE, "read GitHub response: %s", err)
	}
	return body, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return starcat.Errorf(starcat.ENOTFOUND, "not found: %s", resp.Request.URL.Path)
	case code == http.StatusTooManyRequests, code >= 500:
		return starcat.Errorf(starcat.EUNAVAILABLE, "GitHub status %d", code)
	case code == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
		return starcat.Errorf(starcat.EUNAVAILABLE, "GitHub rate limit exceeded until %s", time.Unix(reset, 0).UTC().Format(time.RFC3339))
	default:
		return starcat.Errorf(starcat.EINVALID, "GitHub status %d", code)
	}
}
