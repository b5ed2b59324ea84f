// Package aggregate implements the reductions that turn demultiplexed frame
// batches into per-channel intensity signals.
//
// Two tensor layouts flow through the package:
//
//   - a batch, axes (trial, channel, frame, row, sample), as produced by demux.Batch;
//   - a signal, axes (trial, channel, line), where line indexes every scan
//     line of a channel in acquisition order (line = frame*rows + row).
//
// Every function checks the axes of its input and returns a new tensor; no
// input is modified.
package aggregate

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"tiffsignals/internal/models"
)

var (
	batchAxes  = []models.Axis{models.AxisTrial, models.AxisChannel, models.AxisFrame, models.AxisRow, models.AxisSample}
	signalAxes = []models.Axis{models.AxisTrial, models.AxisChannel, models.AxisLine}
)

// LineAverage reduces the sample axis of a batch by its arithmetic mean and
// flattens frames and rows into one line axis, line = frame*rows + row.
//
// The result is (trial, channel, frames*rows), not (trial, channel, frames):
// a batch of 2 trials, 4 channels and 2 frames of 2x2 yields (2, 4, 4).
func LineAverage(batch *models.Tensor) (*models.Tensor, error) {
	if err := batch.Expect(batchAxes...); err != nil {
		return nil, err
	}
	shape := batch.Shape()
	trials, channels, frames, rows, cols := shape[0], shape[1], shape[2], shape[3], shape[4]
	if cols == 0 {
		return nil, fmt.Errorf("%w: lines have no samples", models.ErrShape)
	}

	out, err := models.NewTensor(signalAxes, []int{trials, channels, frames * rows})
	if err != nil {
		return nil, err
	}
	for i := range out.Data {
		out.Data[i] = stat.Mean(batch.Data[i*cols:(i+1)*cols], nil)
	}
	return out, nil
}

// Unit identifies one normalization unit: an index on the leading axis and a channel.
type Unit struct {
	Index   int
	Channel int
}

// Normalize min-max scales every (leading index, channel) unit of t to
// [0, 1] using that unit's own extremes. The second axis must be channel.
//
// A unit whose values are all equal has no range; it is written as zeros and
// reported in the returned list so the caller can tell it apart from data.
func Normalize(t *models.Tensor) (*models.Tensor, []Unit, error) {
	axes := t.Axes()
	if len(axes) < 2 || axes[1] != models.AxisChannel {
		return nil, nil, fmt.Errorf("%w: normalize needs a channel second axis, have %s", models.ErrShape, t)
	}

	out := t.Clone()
	lead, channels := t.Shape()[0], t.Shape()[1]
	size := t.Stride(1)
	if size == 0 {
		return out, nil, nil
	}

	var degenerate []Unit
	for i := 0; i < lead; i++ {
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * size
			unit := out.Data[off : off+size]

			lo, hi := floats.Min(unit), floats.Max(unit)
			if !(hi > lo) {
				for k := range unit {
					unit[k] = 0
				}
				degenerate = append(degenerate, Unit{Index: i, Channel: c})
				continue
			}
			span := hi - lo
			for k, v := range unit {
				unit[k] = (v - lo) / span
			}
		}
	}
	return out, degenerate, nil
}

// SelectTrials gathers the given trials, in the given order, from a tensor
// whose leading axis is trial. Repeated indices are allowed.
func SelectTrials(t *models.Tensor, indices []int) (*models.Tensor, error) {
	axes := t.Axes()
	if len(axes) == 0 || axes[0] != models.AxisTrial {
		return nil, fmt.Errorf("%w: selection needs a leading trial axis, have %s", models.ErrShape, t)
	}

	shape := t.Shape()
	trials := shape[0]
	for _, idx := range indices {
		if idx < 0 || idx >= trials {
			return nil, fmt.Errorf("%w: trial %d out of range [0, %d)", models.ErrIndex, idx, trials)
		}
	}

	shape[0] = len(indices)
	out, err := models.NewTensor(axes, shape)
	if err != nil {
		return nil, err
	}
	for i, idx := range indices {
		copy(out.Slab(i), t.Slab(idx))
	}
	return out, nil
}

// TrialMeans reduces the line axis of a signal, giving the mean level of
// every trial per channel with axes (trial, channel).
func TrialMeans(signal *models.Tensor) (*models.Tensor, error) {
	if err := signal.Expect(signalAxes...); err != nil {
		return nil, err
	}
	shape := signal.Shape()
	lines := shape[2]
	if lines == 0 {
		return nil, fmt.Errorf("%w: signal has no lines", models.ErrShape)
	}

	out, err := models.NewTensor([]models.Axis{models.AxisTrial, models.AxisChannel}, shape[:2])
	if err != nil {
		return nil, err
	}
	for i := range out.Data {
		out.Data[i] = stat.Mean(signal.Data[i*lines:(i+1)*lines], nil)
	}
	return out, nil
}
