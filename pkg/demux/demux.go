// Package demux splits interleaved frame sequences into acquisition channels.
package demux

import (
	"fmt"
	"slices"

	"tiffsignals/internal/models"
)

// Split partitions the frames of stack by frame index modulo channels.
// Channel c receives frames c, c+channels, c+2*channels, ... in order.
// The result has axes (channel, frame, row, sample).
func Split(stack models.Stack, channels int) (*models.Tensor, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: channel count must be at least 1, got %d", models.ErrShape, channels)
	}
	n := len(stack.Frames)
	if n == 0 || n%channels != 0 {
		return nil, fmt.Errorf("%w: %s has %d frames, not a positive multiple of %d channels",
			models.ErrShape, stack.Source, n, channels)
	}

	rows, cols := stack.Frames[0].Rows, stack.Frames[0].Cols
	perChannel := n / channels

	t, err := models.NewTensor(
		[]models.Axis{models.AxisChannel, models.AxisFrame, models.AxisRow, models.AxisSample},
		[]int{channels, perChannel, rows, cols},
	)
	if err != nil {
		return nil, err
	}

	size := rows * cols
	for i, f := range stack.Frames {
		if f.Rows != rows || f.Cols != cols {
			return nil, fmt.Errorf("%w: %s frame %d is %dx%d, expected %dx%d",
				models.ErrShape, stack.Source, i, f.Cols, f.Rows, cols, rows)
		}
		c, k := i%channels, i/channels
		off := (c*perChannel + k) * size
		copy(t.Data[off:off+size], f.Data)
	}

	return t, nil
}

// Batch demultiplexes every stack and joins them along a leading trial axis,
// giving axes (trial, channel, frame, row, sample). All trials must share
// one shape.
func Batch(stacks []models.Stack, channels int) (*models.Tensor, error) {
	if len(stacks) == 0 {
		return nil, fmt.Errorf("%w: no trials to demultiplex", models.ErrShape)
	}

	var batch *models.Tensor
	for i, s := range stacks {
		ct, err := Split(s, channels)
		if err != nil {
			return nil, err
		}

		if batch == nil {
			shape := append([]int{len(stacks)}, ct.Shape()...)
			batch, err = models.NewTensor(
				[]models.Axis{models.AxisTrial, models.AxisChannel, models.AxisFrame, models.AxisRow, models.AxisSample},
				shape,
			)
			if err != nil {
				return nil, err
			}
		}

		if !slices.Equal(ct.Shape(), batch.Shape()[1:]) {
			return nil, fmt.Errorf("%w: trial %d (%s) has layout %s, trial 0 has %v",
				models.ErrShape, i, s.Source, ct, batch.Shape()[1:])
		}
		copy(batch.Slab(i), ct.Data)
	}

	return batch, nil
}
