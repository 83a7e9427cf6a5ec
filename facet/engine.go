// Package facet answers compound queries over an enriched record set:
// text search, then tag and taxonomy filters, then a stable sort.
package facet

import (
	"context"
	"sort"
	"strings"

	"github.com/fwojciec/starcat"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var _ starcat.QueryService = (*Engine)(nil)

// Engine implements starcat.QueryService over a fixed record set. The
// taxonomy and summary are computed once at construction.
type Engine struct {
	records  []*starcat.Record
	byID     map[string]*starcat.Record
	searcher starcat.Searcher
	taxonomy *starcat.Taxonomy
	summary  starcat.Summary
}

// NewEngine creates an Engine. The order of records is the pipeline order
// that results keep when the search and sort leave them tied.
func NewEngine(records []*starcat.Record, searcher starcat.Searcher) *Engine {
	byID := make(map[string]*starcat.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	return &Engine{
		records:  records,
		byID:     byID,
		searcher: searcher,
		taxonomy: starcat.BuildTaxonomy(records),
		summary:  starcat.Summarize(records),
	}
}

// Query applies search, tag filter, taxonomy filter and sort in that order.
func (e *Engine) Query(ctx context.Context, q starcat.Query) ([]*starcat.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := starcat.ParseSortKey(string(q.Sort))
	if err != nil {
		return nil, err
	}

	matched, err := e.search(q.Text)
	if err != nil {
		return nil, err
	}

	out := make([]*starcat.Record, 0, len(matched))
	for _, r := range matched {
		if MatchTags(r, q.Tags) && MatchTaxonomy(r, q.Taxonomy) {
			out = append(out, r)
		}
	}

	Sort(out, key)
	return out, nil
}

func (e *Engine) search(text string) ([]*starcat.Record, error) {
	if strings.TrimSpace(text) == "" || e.searcher == nil {
		return append([]*starcat.Record(nil), e.records...), nil
	}

	ids, err := e.searcher.Search(text)
	if err != nil {
		return nil, err
	}

	out := make([]*starcat.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := e.byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindRecord returns the record with the given ID.
func (e *Engine) FindRecord(ctx context.Context, id string) (*starcat.Record, error) {
	r, ok := e.byID[id]
	if !ok {
		return nil, starcat.Errorf(starcat.ENOTFOUND, "record %q not found", id)
	}
	return r, nil
}

// Taxonomy returns the category forest of the record set.
func (e *Engine) Taxonomy() *starcat.Taxonomy {
	return e.taxonomy
}

// Summary returns the frequency tables of the record set.
func (e *Engine) Summary() starcat.Summary {
	return e.summary
}

// MatchTags reports whether r carries every tag. A tag matches a record
// tag exactly or a tech stack label regardless of case. Blank tags are
// ignored.
func MatchTags(r *starcat.Record, tags []string) bool {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !hasTag(r, tag) {
			return false
		}
	}
	return true
}

func hasTag(r *starcat.Record, tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	for _, t := range r.TechStack {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// MatchTaxonomy reports whether any fragment occurs, regardless of case, in
// any of r's rendered taxonomy paths. No fragments match every record.
func MatchTaxonomy(r *starcat.Record, fragments []string) bool {
	var wanted []string
	for _, f := range fragments {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			wanted = append(wanted, f)
		}
	}
	if len(wanted) == 0 {
		return true
	}

	for _, path := range r.TaxonomyStrings() {
		path = strings.ToLower(path)
		for _, f := range wanted {
			if strings.Contains(path, f) {
				return true
			}
		}
	}
	return false
}

// Sort orders records in place by key. The sort is stable.
func Sort(records []*starcat.Record, key starcat.SortKey) {
	var less func(a, b *starcat.Record) bool

	switch key {
	case starcat.SortStarsAsc:
		less = func(a, b *starcat.Record) bool { return a.Stars < b.Stars }
	case starcat.SortNameAsc, starcat.SortNameDesc:
		// A collator keeps internal buffers, so each sort gets its own.
		c := collate.New(language.English, collate.IgnoreCase)
		if key == starcat.SortNameAsc {
			less = func(a, b *starcat.Record) bool { return c.CompareString(a.Name, b.Name) < 0 }
		} else {
			less = func(a, b *starcat.Record) bool { return c.CompareString(a.Name, b.Name) > 0 }
		}
	case starcat.SortComplexityAsc:
		less = func(a, b *starcat.Record) bool {
			return starcat.ComplexityRank(a.Complexity) < starcat.ComplexityRank(b.Complexity)
		}
	case starcat.SortComplexityDesc:
		less = func(a, b *starcat.Record) bool {
			return descendingRank(a.Complexity) < descendingRank(b.Complexity)
		}
	default:
		less = func(a, b *starcat.Record) bool { return a.Stars > b.Stars }
	}

	sort.SliceStable(records, func(i, j int) bool { return less(records[i], records[j]) })
}

// descendingRank orders known complexity levels from expert down to
// beginner, with unknown values still last.
func descendingRank(complexity string) int {
	rank := starcat.ComplexityRank(complexity)
	if rank > starcat.ComplexityRank(starcat.ComplexityExpert) {
		return rank
	}
	return -rank
}
