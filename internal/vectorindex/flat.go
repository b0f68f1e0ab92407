// Package vectorindex holds unit-length chunk vectors and answers
// k-nearest-neighbor queries by inner product.
package vectorindex

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

const (
	blobMagic   = "SSVI"
	blobVersion = 1
	headerSize  = 16
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Neighbor is one raw search result: a label (insertion position) and its
// inner-product score.
type Neighbor struct {
	Label int
	Score float32
}

// Flat is an exhaustive inner-product index. Vectors are stored back to
// back in insertion order.
type Flat struct {
	dim  int
	data []float32
}

// NewFlat creates an empty index for vectors of length dim.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends a vector. Its label is the previous Len.
func (f *Flat) Add(v []float32) error {
	if len(v) != f.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), f.dim)
	}
	f.data = append(f.data, v...)
	return nil
}

// Vector returns the stored vector for label.
func (f *Flat) Vector(label int) []float32 {
	return f.data[label*f.dim : (label+1)*f.dim]
}

// Search returns up to k neighbors sorted by descending score; ties keep
// the lower label first.
func (f *Flat) Search(q []float32, k int) ([]Neighbor, error) {
	if len(q) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(q), f.dim)
	}
	n := f.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	all := make([]Neighbor, n)
	for label := 0; label < n; label++ {
		all[label] = Neighbor{Label: label, Score: dot(q, f.Vector(label))}
	}
	slices.SortStableFunc(all, func(a, b Neighbor) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return all[:k], nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// MarshalBinary encodes the index as: magic "SSVI", then little-endian
// uint32 version, dimension and count, then count*dimension float32 values.
func (f *Flat) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize+4*len(f.data))
	copy(buf, blobMagic)
	binary.LittleEndian.PutUint32(buf[4:], blobVersion)
	binary.LittleEndian.PutUint32(buf[8:], uint32(f.dim))
	binary.LittleEndian.PutUint32(buf[12:], uint32(f.Len()))
	for i, v := range f.data {
		binary.LittleEndian.PutUint32(buf[headerSize+4*i:], math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary decodes the layout written by MarshalBinary.
func (f *Flat) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize || !bytes.Equal(b[:4], []byte(blobMagic)) {
		return errors.New("not a vector index blob")
	}
	if v := binary.LittleEndian.Uint32(b[4:]); v != blobVersion {
		return fmt.Errorf("unsupported index version %d", v)
	}
	dim := int(binary.LittleEndian.Uint32(b[8:]))
	count := int(binary.LittleEndian.Uint32(b[12:]))
	if want := headerSize + 4*dim*count; len(b) != want {
		return fmt.Errorf("index blob is %d bytes, want %d for %d vectors of dimension %d", len(b), want, count, dim)
	}

	data := make([]float32, dim*count)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[headerSize+4*i:]))
	}
	f.dim, f.data = dim, data
	return nil
}
