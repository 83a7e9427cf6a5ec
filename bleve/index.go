// Package bleve provides weighted multi-field fuzzy search over catalog
// records using an in-memory Bleve index.
package bleve

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/fwojciec/starcat"
)

var _ starcat.Searcher = (*Index)(nil)

const analyzerName = "starcat"

// Field is an indexed record field and its relevance weight.
type Field struct {
	Name  string
	Boost float64
}

// Fields lists the searchable fields in index order.
var Fields = []Field{
	{Name: "name", Boost: 2},
	{Name: "id", Boost: 1.5},
	{Name: "summary", Boost: 1},
	{Name: "purpose", Boost: 1},
	{Name: "tags", Boost: 1.5},
	{Name: "techStack", Boost: 1.5},
	{Name: "taxonomy", Boost: 1},
	{Name: "keywords", Boost: 1},
	{Name: "useCases", Boost: 0.8},
}

// Index is an in-memory search index over a fixed set of records. It is
// rebuilt from scratch whenever the record set changes.
type Index struct {
	mu       sync.RWMutex
	index    bleve.Index
	ids      []string
	position map[string]int
}

// NewIndex indexes records. Their order is the pipeline order used for
// empty queries and to break score ties.
func NewIndex(records []*starcat.Record) (*Index, error) {
	im, err := buildIndexMapping()
	if err != nil {
		return nil, err
	}

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	idx := &Index{
		index:    index,
		ids:      make([]string, 0, len(records)),
		position: make(map[string]int, len(records)),
	}

	batch := index.NewBatch()
	for _, r := range records {
		if _, ok := idx.position[r.ID]; ok {
			continue
		}
		idx.position[r.ID] = len(idx.ids)
		idx.ids = append(idx.ids, r.ID)

		if err := batch.Index(r.ID, document(r)); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index %s: %w", r.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to batch index records: %w", err)
	}

	return idx, nil
}

func buildIndexMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(analyzerName, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicodetok.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}
	im.DefaultAnalyzer = analyzerName

	doc := bleve.NewDocumentMapping()
	for _, f := range Fields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzerName
		fm.Store = false
		fm.IncludeInAll = false
		fm.IncludeTermVectors = false
		doc.AddFieldMappingsAt(f.Name, fm)
	}
	im.DefaultMapping = doc

	return im, nil
}

func document(r *starcat.Record) map[string]any {
	return map[string]any{
		"name":      r.Name,
		"id":        r.ID,
		"summary":   r.Summary,
		"purpose":   r.Purpose,
		"tags":      r.Tags,
		"techStack": r.TechStack,
		"taxonomy":  r.TaxonomyStrings(),
		"keywords":  r.Keywords,
		"useCases":  r.UseCases,
	}
}

// Search returns the IDs of records matching every term of text, ordered
// by descending score with ties kept in pipeline order. Empty text matches
// every record.
func (idx *Index) Search(text string) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	terms := Terms(text)
	if len(terms) == 0 {
		return append([]string(nil), idx.ids...), nil
	}
	if len(idx.ids) == 0 {
		return []string{}, nil
	}

	conjuncts := make([]query.Query, 0, len(terms))
	for _, term := range terms {
		conjuncts = append(conjuncts, termQuery(term))
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(conjuncts...), len(idx.ids), 0, false)
	res, err := idx.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := res.Hits
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return idx.position[hits[i].ID] < idx.position[hits[j].ID]
	})

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Close releases the index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.index.Close()
}

// termQuery matches term in any field, approximately or as a prefix.
func termQuery(term string) query.Query {
	fuzziness := Fuzziness(term)

	disjuncts := make([]query.Query, 0, 2*len(Fields))
	for _, f := range Fields {
		if fuzziness == 0 {
			tq := bleve.NewTermQuery(term)
			tq.SetField(f.Name)
			tq.SetBoost(f.Boost)
			disjuncts = append(disjuncts, tq)
		} else {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetField(f.Name)
			fq.SetFuzziness(fuzziness)
			fq.SetBoost(f.Boost)
			disjuncts = append(disjuncts, fq)
		}

		pq := bleve.NewPrefixQuery(term)
		pq.SetField(f.Name)
		pq.SetBoost(f.Boost)
		disjuncts = append(disjuncts, pq)
	}
	return bleve.NewDisjunctionQuery(disjuncts...)
}

// Fuzziness returns the edit distance tolerated for term: three tenths of
// its length, at most 2, and none for terms shorter than four runes.
func Fuzziness(term string) int {
	n := utf8.RuneCountInString(term)
	if n < 4 {
		return 0
	}
	return min(n*3/10, 2)
}

// Terms splits text into lower-cased search terms the same way the index
// analyzer tokenizes field values.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
