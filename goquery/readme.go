package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/starcat"
)

var _ starcat.Extractor = (*ReadmeExtractor)(nil)

// containerSelectors are tried in order; the first one with text wins.
var containerSelectors = []string{
	"article.markdown-body",
	"#readme article",
	".markdown-body",
	"article",
	"body",
}

// noiseSelectors match elements GitHub adds around rendered Markdown.
var noiseSelectors = []string{
	"script",
	"style",
	"svg",
	"a.anchor",
	".octicon",
	"a[aria-hidden=true]",
}

// badgeHosts serve status badges. Images from these hosts carry no
// information about what a repository does.
var badgeHosts = []string{
	"img.shields.io",
	"shields.io",
	"badge.fury.io",
	"badgen.net",
	"travis-ci.org",
	"travis-ci.com",
	"codecov.io",
	"coveralls.io",
	"goreportcard.com",
	"circleci.com",
	"ci.appveyor.com",
	"readthedocs.org",
	"pepy.tech",
	"deepwiki.com",
}

// ReadmeExtractor pulls the README body out of GitHub's rendered HTML and
// strips badges and heading anchors.
type ReadmeExtractor struct{}

// NewReadmeExtractor creates a new ReadmeExtractor.
func NewReadmeExtractor() *ReadmeExtractor {
	return &ReadmeExtractor{}
}

// Extract returns the inner HTML of the README container. A document with
// no text content returns an empty string and a nil error.
func (e *ReadmeExtractor) Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", starcat.Errorf(starcat.EINVALID, "failed to parse HTML: %v", err)
	}

	var container *goquery.Selection
	for _, sel := range containerSelectors {
		found := doc.Find(sel).First()
		if found.Length() > 0 && strings.TrimSpace(found.Text()) != "" {
			container = found
			break
		}
	}
	if container == nil {
		return "", nil
	}

	for _, sel := range noiseSelectors {
		container.Find(sel).Remove()
	}
	removeBadges(container)
	removeEmptyBlocks(container)

	out, err := container.Html()
	if err != nil {
		return "", starcat.Errorf(starcat.EINTERNAL, "render README HTML: %v", err)
	}
	return strings.TrimSpace(out), nil
}

// removeBadges drops badge images together with links that wrap nothing
// but badges.
func removeBadges(s *goquery.Selection) {
	s.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if !isBadge(src) {
			if orig, ok := img.Attr("data-canonical-src"); !ok || !isBadge(orig) {
				return
			}
		}
		parent := img.Parent()
		img.Remove()
		if goquery.NodeName(parent) == "a" && strings.TrimSpace(parent.Text()) == "" && parent.Find("img").Length() == 0 {
			parent.Remove()
		}
	})
}

// removeEmptyBlocks drops paragraphs left with neither text nor images,
// typically the row that used to hold the badges.
func removeEmptyBlocks(s *goquery.Selection) {
	s.Find("p, div").Each(func(_ int, block *goquery.Selection) {
		if strings.TrimSpace(block.Text()) == "" && block.Find("img, pre, table").Length() == 0 {
			block.Remove()
		}
	})
}

func isBadge(src string) bool {
	if src == "" {
		return false
	}
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, h := range badgeHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	path := strings.ToLower(u.Path)
	return strings.HasSuffix(path, "/badge.svg") || strings.Contains(path, "/badge/")
}
