package starcat

import "context"

// SortKey selects the order of query results.
type SortKey string

// Supported sort keys.
const (
	SortStarsDesc      SortKey = "stars-desc"
	SortStarsAsc       SortKey = "stars-asc"
	SortNameAsc        SortKey = "name-asc"
	SortNameDesc       SortKey = "name-desc"
	SortComplexityAsc  SortKey = "complexity-asc"
	SortComplexityDesc SortKey = "complexity-desc"
)

// DefaultSortKey is used when a query names no sort key.
const DefaultSortKey = SortStarsDesc

// ParseSortKey returns the sort key named by s. An empty string returns
// DefaultSortKey. Returns EINVALID for unknown keys.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return DefaultSortKey, nil
	case SortStarsDesc, SortStarsAsc, SortNameAsc, SortNameDesc, SortComplexityAsc, SortComplexityDesc:
		return k, nil
	}
	return "", Errorf(EINVALID, "unknown sort key %q", s)
}

// View is the presentation mode carried by a query. It never affects results.
type View string

// Supported views.
const (
	ViewGrid View = "grid"
	ViewList View = "list"
)

// Query is a compound request against the enriched record set.
type Query struct {
	Text     string   `json:"q"`
	Tags     []string `json:"tags"`
	Taxonomy []string `json:"taxonomy"`
	Sort     SortKey  `json:"sort"`
	View     View     `json:"view"`
}

// Searcher performs typo-tolerant full-text search over records.
type Searcher interface {
	// Search returns the IDs of records matching text, most relevant first.
	// Empty text returns every ID in pipeline order.
	Search(text string) ([]string, error)
}

// QueryService answers queries over a fixed record set.
type QueryService interface {
	// Query applies text search, then tag and taxonomy filters, then sort.
	Query(ctx context.Context, q Query) ([]*Record, error)

	// FindRecord returns the record with the given ID.
	// Returns ENOTFOUND if the record does not exist.
	FindRecord(ctx context.Context, id string) (*Record, error)

	// Taxonomy returns the category forest of the record set.
	Taxonomy() *Taxonomy

	// Summary returns the frequency tables of the record set.
	Summary() Summary
}
