package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTensorLayout(t *testing.T) {
	tn, err := NewTensor([]Axis{AxisTrial, AxisChannel, AxisLine}, []int{2, 4, 3})
	require.NoError(t, err)

	assert.Equal(t, 24, tn.Len())
	assert.Equal(t, 3, tn.Rank())
	assert.Equal(t, 4, tn.Dim(AxisChannel))
	assert.Equal(t, -1, tn.Dim(AxisSample))
	assert.Equal(t, 12, tn.Stride(0))
	assert.Equal(t, "(trial=2, channel=4, line=3)", tn.String())
}

func TestNewTensorRejectsBadLayout(t *testing.T) {
	tests := []struct {
		name  string
		axes  []Axis
		shape []int
	}{
		{"rank mismatch", []Axis{AxisTrial}, []int{1, 2}},
		{"duplicate axis", []Axis{AxisLine, AxisLine}, []int{1, 2}},
		{"negative extent", []Axis{AxisLine}, []int{-1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTensor(tt.axes, tt.shape)
			assert.True(t, errors.Is(err, ErrShape), "got %v", err)
		})
	}
}

func TestFromDataSizeMismatch(t *testing.T) {
	_, err := FromData(make([]float64, 5), []Axis{AxisChannel, AxisLine}, []int{2, 3})
	assert.ErrorIs(t, err, ErrShape)
}

func TestIndexRowMajor(t *testing.T) {
	tn, err := NewTensor([]Axis{AxisTrial, AxisChannel, AxisLine}, []int{2, 3, 4})
	require.NoError(t, err)

	tn.Set(7, 1, 2, 3)
	assert.Equal(t, 23, tn.Index(1, 2, 3))
	assert.Equal(t, 7.0, tn.Data[23])
	assert.Equal(t, 7.0, tn.At(1, 2, 3))
	assert.Equal(t, 7.0, tn.Slab(1)[11])

	assert.Panics(t, func() { tn.At(2, 0, 0) })
	assert.Panics(t, func() { tn.At(0, 0) })
}

func TestExpect(t *testing.T) {
	tn, err := NewTensor([]Axis{AxisChannel, AxisLine}, []int{4, 10})
	require.NoError(t, err)

	assert.NoError(t, tn.Expect(AxisChannel, AxisLine))
	assert.ErrorIs(t, tn.Expect(AxisLine, AxisChannel), ErrShape)
	assert.ErrorIs(t, tn.Expect(AxisTrial, AxisChannel, AxisLine), ErrShape)
}

func TestCloneAndEqual(t *testing.T) {
	tn, err := FromData([]float64{1, 2, 3, 4}, []Axis{AxisChannel, AxisLine}, []int{2, 2})
	require.NoError(t, err)

	c := tn.Clone()
	assert.True(t, tn.Equal(c))

	c.Data[0] = 9
	assert.False(t, tn.Equal(c))
	assert.Equal(t, 1.0, tn.Data[0])

	r, err := tn.Reshape([]Axis{AxisLine}, []int{4})
	require.NoError(t, err)
	assert.False(t, tn.Equal(r))
}

func TestFrameRow(t *testing.T) {
	f := NewFrame(2, 3)
	copy(f.Data, []float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []float64{4, 5, 6}, f.Row(1))
}
