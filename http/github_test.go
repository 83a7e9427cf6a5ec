package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/starcat"
	starcathttp "github.com/fwojciec/starcat/http"
	"github.com/fwojciec/starcat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

func newClient(server *httptest.Server, opts ...starcathttp.Option) *starcathttp.GitHubClient {
	opts = append([]starcathttp.Option{
		starcathttp.WithBaseURL(server.URL),
		starcathttp.WithRetryDelays(noDelays, nil),
	}, opts...)
	return starcathttp.NewGitHubClient(opts...)
}

func starredPage(start, n int) []map[string]any {
	page := make([]map[string]any, n)
	for i := range n {
		page[i] = map[string]any{
			"full_name":        fmt.Sprintf("owner/repo%d", start+i),
			"stargazers_count": start + i,
			"language":         "Go",
		}
	}
	return page
}

func TestGitHubClient_ListEntries(t *testing.T) {
	t.Parallel()

	t.Run("follows pages until a short page", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/user/starred", r.URL.Path)
			assert.Equal(t, "100", r.URL.Query().Get("per_page"))
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			switch page {
			case 1:
				_ = json.NewEncoder(w).Encode(starredPage(0, 100))
			case 2:
				_ = json.NewEncoder(w).Encode(starredPage(100, 20))
			default:
				t.Errorf("unexpected page %d", page)
			}
		}))
		defer server.Close()

		entries, err := newClient(server, starcathttp.WithToken("secret")).ListEntries(context.Background())

		require.NoError(t, err)
		require.Len(t, entries, 120)
		assert.Equal(t, "owner/repo0", entries[0].ID)
		assert.Equal(t, "repo119", entries[119].Name)
		assert.Equal(t, 119, entries[119].Stars)
		assert.Equal(t, "Go", entries[119].Language)
	})

	t.Run("stops on an empty page", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.URL.Query().Get("page") == "1" {
				_ = json.NewEncoder(w).Encode(starredPage(0, 100))
				return
			}
			_, _ = w.Write([]byte("[]"))
		}))
		defer server.Close()

		entries, err := newClient(server).ListEntries(context.Background())

		require.NoError(t, err)
		assert.Len(t, entries, 100)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("de-duplicates ids across pages", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "1" {
				_ = json.NewEncoder(w).Encode(starredPage(0, 100))
				return
			}
			_ = json.NewEncoder(w).Encode(starredPage(99, 2))
		}))
		defer server.Close()

		entries, err := newClient(server).ListEntries(context.Background())

		require.NoError(t, err)
		assert.Len(t, entries, 101)
	})

	t.Run("null language becomes empty", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"full_name": "a/b", "stargazers_count": 3, "language": null}]`))
		}))
		defer server.Close()

		entries, err := newClient(server).ListEntries(context.Background())

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Empty(t, entries[0].Language)
	})

	t.Run("lists another user's stars", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/octocat/starred", r.URL.Path)
			_, _ = w.Write([]byte("[]"))
		}))
		defer server.Close()

		_, err := newClient(server, starcathttp.WithUser("octocat")).ListEntries(context.Background())

		require.NoError(t, err)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte("[]"))
		}))
		defer server.Close()

		_, err := newClient(server).ListEntries(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("reports unavailable after retries are exhausted", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := newClient(server).ListEntries(context.Background())

		assert.Equal(t, starcat.EUNAVAILABLE, starcat.ErrorCode(err))
		assert.Equal(t, int32(4), calls.Load())
	})

	t.Run("does not retry authentication failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := newClient(server).ListEntries(context.Background())

		assert.Equal(t, starcat.EINVALID, starcat.ErrorCode(err))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("treats exhausted rate limit as unavailable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", "1767225600")
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := newClient(server).ListEntries(context.Background())

		assert.Equal(t, starcat.EUNAVAILABLE, starcat.ErrorCode(err))
	})

	t.Run("rejects malformed listing", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"message": "not a list"}`))
		}))
		defer server.Close()

		_, err := newClient(server).ListEntries(context.Background())

		assert.Equal(t, starcat.EMALFORMED, starcat.ErrorCode(err))
	})

	t.Run("waits on the limiter for the API host", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("[]"))
		}))
		defer server.Close()

		var mu sync.Mutex
		var hosts []string
		limiter := &mock.DomainLimiter{
			WaitFn: func(ctx context.Context, host string) error {
				mu.Lock()
				defer mu.Unlock()
				hosts = append(hosts, host)
				return nil
			},
		}

		_, err := newClient(server, starcathttp.WithLimiter(limiter)).ListEntries(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{server.Listener.Addr().String()}, hosts)
	})
}

func TestGitHubClient_FetchContent(t *testing.T) {
	t.Parallel()

	t.Run("tries conventional filenames in order", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var paths []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.URL.Path)
			mu.Unlock()
			assert.Equal(t, "application/vnd.github.raw+json", r.Header.Get("Accept"))
			if r.URL.Path == "/repos/a/b/contents/README.rst" {
				_, _ = w.Write([]byte("Title\n====="))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		content, found, err := newClient(server).FetchContent(context.Background(), "a/b")

		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Title\n=====", content)
		assert.Equal(t, []string{
			"/repos/a/b/contents/README.md",
			"/repos/a/b/contents/readme.md",
			"/repos/a/b/contents/README.MD",
			"/repos/a/b/contents/Readme.md",
			"/repos/a/b/contents/README.rst",
		}, paths)
	})

	t.Run("absent readme is not an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		content, found, err := newClient(server).FetchContent(context.Background(), "a/b")

		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, content)
	})

	t.Run("skips empty files", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/repos/a/b/contents/README.md":
				_, _ = w.Write([]byte("  \n"))
			case "/repos/a/b/contents/readme.md":
				_, _ = w.Write([]byte("# Real"))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		content, found, err := newClient(server).FetchContent(context.Background(), "a/b")

		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "# Real", content)
	})

	t.Run("falls back to rendered readme", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/repos/a/b/readme" {
				assert.Equal(t, "application/vnd.github.html+json", r.Header.Get("Accept"))
				_, _ = w.Write([]byte("<div id=\"readme\"><h1>Hi</h1></div>"))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		extractor := &mock.Extractor{
			ExtractFn: func(html string) (string, error) {
				assert.Contains(t, html, "readme")
				return "<h1>Hi</h1>", nil
			},
		}
		converter := &mock.Converter{
			ConvertFn: func(html string) (string, error) {
				assert.Equal(t, "<h1>Hi</h1>", html)
				return "# Hi", nil
			},
		}

		content, found, err := newClient(server, starcathttp.WithReadmeFallback(extractor, converter)).
			FetchContent(context.Background(), "a/b")

		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "# Hi", content)
	})

	t.Run("returns transient failures after retries", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, found, err := newClient(server).FetchContent(context.Background(), "a/b")

		assert.False(t, found)
		assert.Equal(t, starcat.EUNAVAILABLE, starcat.ErrorCode(err))
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		t.Parallel()

		client := starcathttp.NewGitHubClient()

		_, _, err := client.FetchContent(context.Background(), "noslash")

		assert.Equal(t, starcat.EINVALID, starcat.ErrorCode(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := newClient(server).FetchContent(ctx, "a/b")

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("respects custom timeout option", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		}))
		defer server.Close()

		client := newClient(server, starcathttp.WithTimeout(10*time.Millisecond))

		_, _, err := client.FetchContent(context.Background(), "a/b")

		assert.Equal(t, starcat.EUNAVAILABLE, starcat.ErrorCode(err))
	})
}
