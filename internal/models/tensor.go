package models

import (
	"fmt"
	"strings"
)

// Axis names one dimension of a Tensor.
type Axis string

const (
	AxisTrial   Axis = "trial"
	AxisGroup   Axis = "group"
	AxisChannel Axis = "channel"
	AxisFrame   Axis = "frame"
	AxisRow     Axis = "row"
	AxisSample  Axis = "sample"
	AxisLine    Axis = "line"
)

// Tensor is a dense row-major float64 array whose dimensions carry names.
// Operations check axis names instead of positions so that a transposed
// input fails with ErrShape where it is produced.
type Tensor struct {
	// Data holds the values in row-major order
	Data []float64

	axes  []Axis
	shape []int
}

// NewTensor allocates a zeroed tensor with the given axes and shape.
func NewTensor(axes []Axis, shape []int) (*Tensor, error) {
	if err := checkLayout(axes, shape); err != nil {
		return nil, err
	}
	return &Tensor{
		Data:  make([]float64, product(shape)),
		axes:  append([]Axis(nil), axes...),
		shape: append([]int(nil), shape...),
	}, nil
}

// FromData wraps data in a tensor without copying it.
func FromData(data []float64, axes []Axis, shape []int) (*Tensor, error) {
	if err := checkLayout(axes, shape); err != nil {
		return nil, err
	}
	if len(data) != product(shape) {
		return nil, fmt.Errorf("%w: %d values do not fill shape %v", ErrShape, len(data), shape)
	}
	return &Tensor{
		Data:  data,
		axes:  append([]Axis(nil), axes...),
		shape: append([]int(nil), shape...),
	}, nil
}

func checkLayout(axes []Axis, shape []int) error {
	if len(axes) != len(shape) {
		return fmt.Errorf("%w: %d axes for %d dimensions", ErrShape, len(axes), len(shape))
	}
	seen := make(map[Axis]bool, len(axes))
	for i, a := range axes {
		if seen[a] {
			return fmt.Errorf("%w: duplicate axis %q", ErrShape, a)
		}
		seen[a] = true
		if shape[i] < 0 {
			return fmt.Errorf("%w: negative extent %d on axis %q", ErrShape, shape[i], a)
		}
	}
	return nil
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Axes returns a copy of the axis names.
func (t *Tensor) Axes() []Axis {
	return append([]Axis(nil), t.axes...)
}

// Shape returns a copy of the extents.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Len returns the number of values.
func (t *Tensor) Len() int { return len(t.Data) }

// Dim returns the extent of axis a, or -1 if the tensor has no such axis.
func (t *Tensor) Dim(a Axis) int {
	for i, x := range t.axes {
		if x == a {
			return t.shape[i]
		}
	}
	return -1
}

// Expect fails with ErrShape unless the tensor has exactly the given axes in
// the given order.
func (t *Tensor) Expect(axes ...Axis) error {
	if len(axes) != len(t.axes) {
		return fmt.Errorf("%w: want axes %s, have %s", ErrShape, axisList(axes), t)
	}
	for i := range axes {
		if axes[i] != t.axes[i] {
			return fmt.Errorf("%w: want axes %s, have %s", ErrShape, axisList(axes), t)
		}
	}
	return nil
}

// Stride returns the number of values spanned by one step along dimension i.
func (t *Tensor) Stride(i int) int {
	return product(t.shape[i+1:])
}

// Index returns the flat offset of the given coordinates.
func (t *Tensor) Index(idx ...int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("models: %d coordinates for rank %d tensor", len(idx), len(t.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("models: coordinate %d out of range on axis %q (extent %d)", x, t.axes[i], t.shape[i]))
		}
		off = off*t.shape[i] + x
	}
	return off
}

// At returns the value at the given coordinates.
func (t *Tensor) At(idx ...int) float64 {
	return t.Data[t.Index(idx...)]
}

// Set stores v at the given coordinates.
func (t *Tensor) Set(v float64, idx ...int) {
	t.Data[t.Index(idx...)] = v
}

// Slab returns the contiguous values under index i of the leading axis.
// The slice aliases the tensor data.
func (t *Tensor) Slab(i int) []float64 {
	n := t.Stride(0)
	return t.Data[i*n : (i+1)*n]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		axes:  append([]Axis(nil), t.axes...),
		shape: append([]int(nil), t.shape...),
	}
}

// Reshape returns a view of the same data under a new layout. The number of
// values must not change.
func (t *Tensor) Reshape(axes []Axis, shape []int) (*Tensor, error) {
	return FromData(t.Data, axes, shape)
}

// Equal reports whether both tensors have the same layout and bit-identical values.
func (t *Tensor) Equal(o *Tensor) bool {
	if t.String() != o.String() || len(t.Data) != len(o.Data) {
		return false
	}
	for i := range t.Data {
		if t.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// String describes the layout, for example "(trial=2, channel=4, line=8)".
func (t *Tensor) String() string {
	parts := make([]string, len(t.axes))
	for i, a := range t.axes {
		parts[i] = fmt.Sprintf("%s=%d", a, t.shape[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func axisList(axes []Axis) string {
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = string(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
