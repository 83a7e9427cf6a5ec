package mock

import "github.com/fwojciec/starcat"

var _ starcat.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of starcat.Extractor.
type Extractor struct {
	ExtractFn func(html string) (string, error)
}

func (e *Extractor) Extract(html string) (string, error) {
	return e.ExtractFn(html)
}
