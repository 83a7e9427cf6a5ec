package starcat

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// SchemaVersion identifies the current enrichment prompt and record shape.
// Bumping it invalidates every cached enrichment in one step.
const SchemaVersion = 3

// MaxContentLength caps the source content sent to the enricher, in bytes.
// Content beyond the cap is dropped.
const MaxContentLength = 12000

// TruncationMarker is appended to content cut at MaxContentLength.
const TruncationMarker = "\n\n[... truncated ...]"

// Taxonomy path depth bounds.
const (
	MinTaxonomyDepth = 2
	MaxTaxonomyDepth = 4
)

// TaxonomySeparator joins taxonomy labels in their rendered form.
const TaxonomySeparator = " > "

// NoContentPath is the sentinel taxonomy assigned to entries without content.
var NoContentPath = TaxonomyPath{"Uncategorized", "No Content"}

// Complexity levels, ordered.
const (
	ComplexityBeginner     = "beginner"
	ComplexityIntermediate = "intermediate"
	ComplexityAdvanced     = "advanced"
	ComplexityExpert       = "expert"
)

// ComplexityRank returns the ordinal of a complexity value, ignoring case:
// beginner=1, intermediate=2, advanced=3, expert=4 and 5 for anything else.
func ComplexityRank(complexity string) int {
	switch strings.ToLower(complexity) {
	case ComplexityBeginner:
		return 1
	case ComplexityIntermediate:
		return 2
	case ComplexityAdvanced:
		return 3
	case ComplexityExpert:
		return 4
	}
	return 5
}

// TaxonomyPath is an ordered sequence of category labels, most general first.
type TaxonomyPath []string

// ParseTaxonomyPath parses a rendered path such as "AI > GenAI > LLM".
// Labels are trimmed and empty labels dropped. Paths longer than
// MaxTaxonomyDepth are truncated; paths shorter than MinTaxonomyDepth are
// rejected.
func ParseTaxonomyPath(s string) (TaxonomyPath, bool) {
	return NewTaxonomyPath(strings.Split(s, ">")...)
}

// NewTaxonomyPath normalizes labels into a path with the same rules as
// ParseTaxonomyPath.
func NewTaxonomyPath(labels ...string) (TaxonomyPath, bool) {
	p := normalizeLabels(labels)
	if len(p) < MinTaxonomyDepth {
		return nil, false
	}
	return p, true
}

// normalizeLabels splits every label on '>' so no stored label contains the
// separator and the rendered form parses back to the same path.
func normalizeLabels(labels []string) TaxonomyPath {
	p := make(TaxonomyPath, 0, len(labels))
	for _, l := range labels {
		for _, part := range strings.Split(l, ">") {
			if len(p) == MaxTaxonomyDepth {
				return p
			}
			if part = strings.TrimSpace(part); part != "" {
				p = append(p, part)
			}
		}
	}
	return p
}

// CompactTaxonomy returns the paths that have at least MinTaxonomyDepth
// labels, in order.
func CompactTaxonomy(paths []TaxonomyPath) []TaxonomyPath {
	out := make([]TaxonomyPath, 0, len(paths))
	for _, p := range paths {
		if len(p) >= MinTaxonomyDepth {
			out = append(out, p)
		}
	}
	return out
}

// String renders the path with TaxonomySeparator.
func (p TaxonomyPath) String() string {
	return strings.Join(p, TaxonomySeparator)
}

// MarshalJSON encodes the path in its rendered string form.
func (p TaxonomyPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts either a rendered string or an array of labels.
// A path shorter than MinTaxonomyDepth decodes as empty; CompactTaxonomy
// drops it.
func (p *TaxonomyPath) UnmarshalJSON(data []byte) error {
	var labels []string
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		labels = []string{s}
	} else if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	path, ok := NewTaxonomyPath(labels...)
	if !ok {
		path = TaxonomyPath{}
	}
	*p = path
	return nil
}

// Enrichment is the structured metadata derived from an entry's content.
type Enrichment struct {
	Summary        string `json:"summary"`
	Purpose        string `json:"purpose"`
	TargetAudience string `json:"targetAudience"`

	Taxonomy  []TaxonomyPath `json:"taxonomy"`
	Tags      []string       `json:"tags"`
	TechStack []string       `json:"techStack"`
	UseCases  []string       `json:"useCases"`

	Maturity             string `json:"maturity"`
	Complexity           string `json:"complexity"`
	DocumentationQuality string `json:"documentationQuality"`
	ActivityStatus       string `json:"activityStatus"`

	SimilarTo        []string `json:"similarTo"`
	Keywords         []string `json:"keywords"`
	StandoutFeatures []string `json:"standoutFeatures"`
	PotentialValue   string   `json:"potentialValue"`

	SchemaVersion int         `json:"schemaVersion"`
	Fingerprint   Fingerprint `json:"fingerprint"`
	HasContent    bool        `json:"hasContent"`
	Error         string      `json:"error,omitempty"`
	Model         string      `json:"model,omitempty"`
	AnalyzedAt    time.Time   `json:"analyzedAt,omitzero"`
}

// Failed reports whether deriving the enrichment failed.
func (e *Enrichment) Failed() bool {
	return e.Error != ""
}

// DegradedEnrichment returns the record for an entry without source content.
// It performs no external call and carries no timestamp, so it is identical
// across runs for an unchanged entry.
func DegradedEnrichment(entry *Entry, schemaVersion int) *Enrichment {
	e := &Enrichment{
		Summary:       "Repository by " + entry.Owner + " - no README available",
		Taxonomy:      []TaxonomyPath{append(TaxonomyPath(nil), NoContentPath...)},
		Tags:          []string{},
		TechStack:     []string{},
		SchemaVersion: schemaVersion,
		HasContent:    false,
	}
	if entry.Language != "" {
		e.Tags = []string{strings.ToLower(entry.Language)}
		e.TechStack = []string{entry.Language}
	}
	return e
}

// FailedEnrichment returns a minimal record for content whose enrichment
// failed, so the entry is never silently dropped from the catalog.
func FailedEnrichment(fp Fingerprint, schemaVersion int, err error) *Enrichment {
	msg := ErrorMessage(err)
	if ErrorCode(err) == EINTERNAL {
		msg = err.Error()
	}
	return &Enrichment{
		Taxonomy:      []TaxonomyPath{},
		Tags:          []string{},
		TechStack:     []string{},
		SchemaVersion: schemaVersion,
		Fingerprint:   fp,
		HasContent:    true,
		Error:         msg,
	}
}

// Enricher derives an enrichment from an entry's content by calling the
// external inference service.
type Enricher interface {
	// Enrich returns the structured enrichment for the content.
	// Returns EUNAVAILABLE when the service cannot be reached and
	// EMALFORMED when its response cannot be decoded.
	Enrich(ctx context.Context, entry *Entry, content string) (*Enrichment, error)
}

// EnrichmentCache maps entry IDs to their last computed enrichment.
// Implementations are not safe for concurrent writers.
type EnrichmentCache interface {
	// Lookup returns the stored enrichment only if both its fingerprint and
	// schema version match. Any mismatch is a miss.
	Lookup(id string, fp Fingerprint, schemaVersion int) (*Enrichment, bool)

	// Store unconditionally overwrites the enrichment for id.
	Store(id string, e *Enrichment)

	// Flush persists the full mapping to durable storage.
	Flush() error
}

// Record joins an entry with its enrichment. It is the unit consumed by the
// taxonomy aggregator and the query engine.
type Record struct {
	Entry
	Enrichment
}

// TaxonomyStrings returns the record's taxonomy paths in rendered form.
func (r *Record) TaxonomyStrings() []string {
	a := make([]string, len(r.Taxonomy))
	for i, p := range r.Taxonomy {
		a[i] = p.String()
	}
	return a
}
