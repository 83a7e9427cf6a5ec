// Package bloom provides fast negative membership checks for entry IDs
// using Bloom filters.
package bloom

import (
	"bytes"
	"fmt"

	"github.com/bits-and-blooms/bloom/v3"
)

// Filter wraps a Bloom filter for entry ID membership.
type Filter struct {
	f        *bloom.BloomFilter
	capacity uint
}

// NewFilter creates a new Bloom filter sized for n expected IDs
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	n = max(n, 1)
	return &Filter{
		f:        bloom.NewWithEstimates(n, fpRate),
		capacity: n,
	}
}

// Add adds an ID to the filter.
func (f *Filter) Add(id string) {
	f.f.AddString(id)
}

// Test returns true if the ID might be in the filter.
// False positives are possible; false negatives are not.
func (f *Filter) Test(id string) bool {
	return f.f.TestString(id)
}

// EstimatedCount returns the approximate number of IDs in the filter.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}

// Capacity returns the number of IDs the filter was sized for. Past it the
// false positive rate rises above the requested one.
func (f *Filter) Capacity() uint {
	return f.capacity
}

// MarshalBinary encodes the filter bits. The capacity is not included.
func (f *Filter) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeFilter restores a filter encoded by MarshalBinary.
func DecodeFilter(data []byte, capacity uint) (*Filter, error) {
	f := &bloom.BloomFilter{}
	if _, err := f.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decode filter: %w", err)
	}
	if f.Cap() == 0 || f.K() == 0 {
		return nil, fmt.Errorf("decode filter: empty filter")
	}
	return &Filter{f: f, capacity: max(capacity, 1)}, nil
}
