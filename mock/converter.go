package mock

import "github.com/fwojciec/starcat"

var _ starcat.Converter = (*Converter)(nil)

// Converter is a mock implementation of starcat.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
