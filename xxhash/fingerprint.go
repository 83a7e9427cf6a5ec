// Package xxhash provides content fingerprints using xxHash64.
package xxhash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/starcat"
)

// Ensure Fingerprinter implements starcat.Fingerprinter at compile time.
var _ starcat.Fingerprinter = (*Fingerprinter)(nil)

// Fingerprinter computes 16 hex character digests of content.
type Fingerprinter struct{}

// NewFingerprinter creates a new Fingerprinter.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

// Fingerprint returns the zero-padded hex encoding of the xxHash64 digest.
func (f *Fingerprinter) Fingerprint(content []byte) starcat.Fingerprint {
	return starcat.Fingerprint(fmt.Sprintf("%016x", xxhash.Sum64(content)))
}
