package goquery_test

import (
	"testing"

	"github.com/fwojciec/starcat/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadmeExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("selects the markdown body", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<header>GitHub navigation</header>
<article class="markdown-body entry-content"><h1>ripgrep</h1><p>Recursive search.</p></article>
<footer>Footer</footer>
</body></html>`

		got, err := goquery.NewReadmeExtractor().Extract(html)

		require.NoError(t, err)
		assert.Contains(t, got, "<h1>ripgrep</h1>")
		assert.Contains(t, got, "Recursive search.")
		assert.NotContains(t, got, "GitHub navigation")
		assert.NotContains(t, got, "Footer")
	})

	t.Run("accepts the bare fragment served by the readme endpoint", func(t *testing.T) {
		t.Parallel()

		html := `<div id="readme" class="md"><article class="markdown-body"><p>Hello</p></article></div>`

		got, err := goquery.NewReadmeExtractor().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, "<p>Hello</p>", got)
	})

	t.Run("strips badges and their links", func(t *testing.T) {
		t.Parallel()

		html := `<article class="markdown-body">
<p><a href="https://github.com/a/b/actions"><img src="https://github.com/a/b/actions/workflows/ci.yml/badge.svg" alt="CI"></a>
<a href="https://crates.io/crates/b"><img src="https://img.shields.io/crates/v/b.svg" alt="crates"></a></p>
<p>A tool.</p>
<p><img src="https://raw.githubusercontent.com/a/b/main/demo.gif" alt="demo"></p>
</article>`

		got, err := goquery.NewReadmeExtractor().Extract(html)

		require.NoError(t, err)
		assert.NotContains(t, got, "badge.svg")
		assert.NotContains(t, got, "shields.io")
		assert.NotContains(t, got, "crates.io")
		assert.Contains(t, got, "A tool.")
		assert.Contains(t, got, "demo.gif")
	})

	t.Run("strips camo proxied badges by canonical source", func(t *testing.T) {
		t.Parallel()

		html := `<article class="markdown-body">
<p><img src="https://camo.githubusercontent.com/abc" data-canonical-src="https://img.shields.io/badge/license-MIT-blue.svg"></p>
<p>Text</p>
</article>`

		got, err := goquery.NewReadmeExtractor().Extract(html)

		require.NoError(t, err)
		assert.NotContains(t, got, "camo.githubusercontent.com")
		assert.Contains(t, got, "Text")
	})

	t.Run("removes heading anchors", func(t *testing.T) {
		t.Parallel()

		html := `<article class="markdown-body"><h2><a class="anchor" href="#install"><svg class="octicon"></svg></a>Install</h2></article>`

		got, err := goquery.NewReadmeExtractor().Extract(html)

		require.NoError(t, err)
		assert.NotContains(t, got, "anchor")
		assert.NotContains(t, got, "svg")
		assert.Contains(t, got, "Install")
	})

	t.Run("returns empty for a document without text", func(t *testing.T) {
		t.Parallel()

		got, err := goquery.NewReadmeExtractor().Extract(`<html><body>   </body></html>`)

		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
