// Package imagebuf provides a batch of float images laid out as
// (batch, height, width, channels), the layout grading hosts hand over.
package imagebuf

import (
	"errors"
	"fmt"
)

var (
	// ErrShape is returned when a buffer's shape does not fit an operation.
	ErrShape = errors.New("shape mismatch")
	// ErrEmpty is returned for buffers or batches without pixels.
	ErrEmpty = errors.New("empty image buffer")
)

// Float is the element type of a Buffer.
type Float interface {
	float32 | float64
}

// Shape is the (batch, height, width, channels) extent of a buffer.
type Shape struct {
	Batch    int
	Height   int
	Width    int
	Channels int
}

// Len returns the number of elements described by s.
func (s Shape) Len() int {
	return s.Batch * s.Height * s.Width * s.Channels
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", s.Batch, s.Height, s.Width, s.Channels)
}

// Buffer is a dense row-major image batch. Channels are interleaved.
type Buffer[T Float] struct {
	Shape Shape
	Pix   []T
}

// New allocates a zeroed buffer.
func New[T Float](s Shape) (*Buffer[T], error) {
	if s.Batch <= 0 || s.Height <= 0 || s.Width <= 0 || s.Channels <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, s)
	}
	return &Buffer[T]{Shape: s, Pix: make([]T, s.Len())}, nil
}

// FromSlice wraps pix without copying.
func FromSlice[T Float](s Shape, pix []T) (*Buffer[T], error) {
	b := &Buffer[T]{Shape: s, Pix: pix}
	if err := b.Check(); err != nil {
		return nil, err
	}
	return b, nil
}

// Check verifies that the shape is non-empty and matches len(Pix).
func (b *Buffer[T]) Check() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrEmpty)
	}
	s := b.Shape
	if s.Batch <= 0 || s.Height <= 0 || s.Width <= 0 || s.Channels <= 0 {
		return fmt.Errorf("%w: %s", ErrEmpty, s)
	}
	if len(b.Pix) != s.Len() {
		return fmt.Errorf("%w: shape %s needs %d values, have %d", ErrShape, s, s.Len(), len(b.Pix))
	}
	return nil
}

// Clone returns a deep copy.
func (b *Buffer[T]) Clone() *Buffer[T] {
	pix := make([]T, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer[T]{Shape: b.Shape, Pix: pix}
}

// Offset returns the index of element (n, y, x, c) in Pix.
func (b *Buffer[T]) Offset(n, y, x, c int) int {
	s := b.Shape
	return ((n*s.Height+y)*s.Width+x)*s.Channels + c
}

// At returns element (n, y, x, c).
func (b *Buffer[T]) At(n, y, x, c int) T {
	return b.Pix[b.Offset(n, y, x, c)]
}

// Set stores v at (n, y, x, c).
func (b *Buffer[T]) Set(n, y, x, c int, v T) {
	b.Pix[b.Offset(n, y, x, c)] = v
}

// FramePix returns the slice of Pix holding frame n.
func (b *Buffer[T]) FramePix(n int) []T {
	size := b.Shape.Height * b.Shape.Width * b.Shape.Channels
	return b.Pix[n*size : (n+1)*size]
}
