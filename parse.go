package starcat

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParseEnrichment decodes a free-form inference response into an Enrichment.
//
// The response must contain one JSON object, either fenced in a code block,
// embedded in surrounding prose, or bare. Individual fields are decoded
// leniently: a field with an unexpected shape is left empty rather than
// failing the whole record. Returns EMALFORMED if no JSON object is found.
func ParseEnrichment(text string) (*Enrichment, error) {
	raw, err := locateObject(text)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, Errorf(EMALFORMED, "response is not a JSON object")
	}

	e := &Enrichment{
		Summary:              scalarField(fields, "summary"),
		Purpose:              scalarField(fields, "purpose"),
		TargetAudience:       scalarField(fields, "targetAudience", "target_audience"),
		Taxonomy:             taxonomyField(fields, "taxonomy"),
		Tags:                 normalizeTags(listField(fields, "tags")),
		TechStack:            dedupe(listField(fields, "techStack", "tech_stack")),
		UseCases:             dedupe(listField(fields, "useCases", "use_cases")),
		Maturity:             scalarField(fields, "maturity"),
		Complexity:           scalarField(fields, "complexity"),
		DocumentationQuality: scalarField(fields, "documentationQuality", "documentation_quality"),
		ActivityStatus:       scalarField(fields, "activityStatus", "activity_status"),
		SimilarTo:            dedupe(listField(fields, "similarTo", "similar_to")),
		Keywords:             dedupe(listField(fields, "keywords")),
		StandoutFeatures:     dedupe(listField(fields, "standoutFeatures", "standout_features")),
		PotentialValue:       scalarField(fields, "potentialValue", "potential_value"),
		HasContent:           true,
	}
	return e, nil
}

// locateObject finds the JSON object inside a response. A fenced block is
// preferred, then the span from the first '{' to the last '}', then the
// whole trimmed text.
func locateObject(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Errorf(EMALFORMED, "empty response")
	}

	if block, ok := fencedBlock(text); ok {
		return []byte(block), nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return []byte(text[start : end+1]), nil
	}

	if !json.Valid([]byte(text)) {
		return nil, Errorf(EMALFORMED, "response contains no JSON object")
	}
	return []byte(text), nil
}

func fencedBlock(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	rest := text[open+3:]
	// Skip the info string, e.g. "json".
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return "", false
	}
	rest = rest[nl+1:]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	block := strings.TrimSpace(rest[:end])
	if !strings.HasPrefix(block, "{") {
		return "", false
	}
	return block, true
}

func lookupField(fields map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if v, ok := fields[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// scalarField returns a string, number or boolean field as trimmed text.
func scalarField(fields map[string]json.RawMessage, names ...string) string {
	raw, ok := lookupField(fields, names...)
	if !ok {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// listField returns a list of strings. An array keeps its string and number
// elements, a single string is split on commas, anything else is empty.
func listField(fields map[string]json.RawMessage, names ...string) []string {
	raw, ok := lookupField(fields, names...)
	if !ok {
		return []string{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return []string{}
	}

	var items []string
	switch v := v.(type) {
	case string:
		items = strings.Split(v, ",")
	case []any:
		for _, el := range v {
			switch el := el.(type) {
			case string:
				items = append(items, el)
			case float64:
				items = append(items, strconv.FormatFloat(el, 'f', -1, 64))
			}
		}
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// taxonomyField decodes taxonomy paths given either as rendered strings or as
// label arrays. Paths shorter than MinTaxonomyDepth are dropped.
func taxonomyField(fields map[string]json.RawMessage, names ...string) []TaxonomyPath {
	paths := []TaxonomyPath{}
	raw, ok := lookupField(fields, names...)
	if !ok {
		return paths
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return paths
	}

	var candidates []any
	switch v := v.(type) {
	case string:
		candidates = []any{v}
	case []any:
		candidates = v
	}

	seen := make(map[string]bool)
	for _, c := range candidates {
		var p TaxonomyPath
		var ok bool
		switch c := c.(type) {
		case string:
			p, ok = ParseTaxonomyPath(c)
		case []any:
			labels := make([]string, 0, len(c))
			for _, l := range c {
				if s, isString := l.(string); isString {
					labels = append(labels, s)
				}
			}
			p, ok = NewTaxonomyPath(labels...)
		}
		if !ok {
			continue
		}
		key := p.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		paths = append(paths, p)
	}
	return paths
}

func normalizeTags(tags []string) []string {
	for i, t := range tags {
		tags[i] = strings.ToLower(t)
	}
	return dedupe(tags)
}

func dedupe(a []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a))
	for _, s := range a {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
