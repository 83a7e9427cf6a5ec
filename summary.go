package starcat

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// Frequency is one row of a FrequencyTable.
type Frequency struct {
	Key   string
	Count int
}

// FrequencyTable is an immutable count table ordered by descending count,
// ties broken by key. It encodes as a JSON object preserving that order.
type FrequencyTable []Frequency

// NewFrequencyTable returns the ordered table for a count mapping.
func NewFrequencyTable(counts map[string]int) FrequencyTable {
	t := make(FrequencyTable, 0, len(counts))
	for k, n := range counts {
		t = append(t, Frequency{Key: k, Count: n})
	}
	slices.SortFunc(t, func(a, b Frequency) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return t
}

// Get returns the count for key, or zero.
func (t FrequencyTable) Get(key string) int {
	for _, f := range t {
		if f.Key == key {
			return f.Count
		}
	}
	return 0
}

// Top returns at most the first n rows. A non-positive n returns all rows.
func (t FrequencyTable) Top(n int) FrequencyTable {
	if n <= 0 || n >= len(t) {
		return t
	}
	return t[:n]
}

// AtDepth returns the rows whose key is a rendered taxonomy path of exactly
// depth labels, in table order.
func (t FrequencyTable) AtDepth(depth int) FrequencyTable {
	out := FrequencyTable{}
	for _, f := range t {
		if strings.Count(f.Key, TaxonomySeparator)+1 == depth {
			out = append(out, f)
		}
	}
	return out
}

// MarshalJSON encodes the table as a JSON object in table order.
func (t FrequencyTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(f.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the encoded key order.
func (t *FrequencyTable) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	out := FrequencyTable{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return Errorf(EINVALID, "frequency table key must be a string")
		}
		var n int
		if err := dec.Decode(&n); err != nil {
			return err
		}
		out = append(out, Frequency{Key: key, Count: n})
	}
	*t = out
	return nil
}

// Summary holds the derived frequency tables and totals for a record set.
type Summary struct {
	Total       int `json:"total"`
	TotalStars  int `json:"totalStars"`
	WithContent int `json:"withContent"`
	Failed      int `json:"failed"`

	Tags       FrequencyTable `json:"tags"`
	Taxonomy   FrequencyTable `json:"taxonomy"`
	TechStack  FrequencyTable `json:"techStack"`
	Languages  FrequencyTable `json:"languages"`
	Complexity FrequencyTable `json:"complexity"`
	Maturity   FrequencyTable `json:"maturity"`
}

// Summarize folds the record set into its summary tables in a single pass.
// Technology labels are counted lower-cased. Empty values are not counted.
func Summarize(records []*Record) Summary {
	var (
		s          Summary
		tags       = make(map[string]int)
		tech       = make(map[string]int)
		languages  = make(map[string]int)
		complexity = make(map[string]int)
		maturity   = make(map[string]int)
	)

	for _, r := range records {
		s.Total++
		s.TotalStars += r.Stars
		if r.HasContent {
			s.WithContent++
		}
		if r.Failed() {
			s.Failed++
		}

		for _, t := range dedupe(r.Tags) {
			if t != "" {
				tags[t]++
			}
		}
		lowered := make([]string, len(r.TechStack))
		for i, t := range r.TechStack {
			lowered[i] = strings.ToLower(strings.TrimSpace(t))
		}
		for _, t := range dedupe(lowered) {
			if t != "" {
				tech[t]++
			}
		}
		if r.Language != "" {
			languages[r.Language]++
		}
		if r.Complexity != "" {
			complexity[r.Complexity]++
		}
		if r.Maturity != "" {
			maturity[r.Maturity]++
		}
	}

	s.Tags = NewFrequencyTable(tags)
	s.Taxonomy = PathFrequencies(records)
	s.TechStack = NewFrequencyTable(tech)
	s.Languages = NewFrequencyTable(languages)
	s.Complexity = NewFrequencyTable(complexity)
	s.Maturity = NewFrequencyTable(maturity)
	return s
}
