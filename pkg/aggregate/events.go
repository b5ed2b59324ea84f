package aggregate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"tiffsignals/internal/models"
)

// MovingAverage smooths the last axis of t with a boxcar of the given width
// in valid mode: no padding, so the axis shrinks to length-window+1.
func MovingAverage(t *models.Tensor, window int) (*models.Tensor, error) {
	if t.Rank() == 0 {
		return nil, fmt.Errorf("%w: moving average of a scalar", models.ErrShape)
	}
	shape := t.Shape()
	last := len(shape) - 1
	n := shape[last]
	if window < 1 || window > n {
		return nil, fmt.Errorf("%w: window %d outside [1, %d]", models.ErrShape, window, n)
	}

	outShape := append([]int(nil), shape...)
	outShape[last] = n - window + 1
	out, err := models.NewTensor(t.Axes(), outShape)
	if err != nil {
		return nil, err
	}

	m := outShape[last]
	rows := t.Len() / n
	for r := 0; r < rows; r++ {
		src := t.Data[r*n : (r+1)*n]
		dst := out.Data[r*m : (r+1)*m]
		for k := range dst {
			dst[k] = floats.Sum(src[k:k+window]) / float64(window)
		}
	}
	return out, nil
}

// Threshold is the per-channel event threshold used by ThresholdCount.
type Threshold struct {
	Mean   float64
	StdDev float64
	Level  float64
}

// Thresholds computes mean + multiplier*std for every channel of a batch,
// over all trials, frames, rows and samples of that channel. The standard
// deviation is the population one.
func Thresholds(batch *models.Tensor, multiplier float64) ([]Threshold, error) {
	if err := batch.Expect(batchAxes...); err != nil {
		return nil, err
	}
	shape := batch.Shape()
	trials, channels := shape[0], shape[1]
	block := batch.Stride(1)
	if trials == 0 || block == 0 {
		return nil, fmt.Errorf("%w: cannot threshold empty batch %s", models.ErrShape, batch)
	}

	out := make([]Threshold, channels)
	samples := make([]float64, 0, trials*block)
	for c := 0; c < channels; c++ {
		samples = samples[:0]
		for tr := 0; tr < trials; tr++ {
			off := (tr*channels + c) * block
			samples = append(samples, batch.Data[off:off+block]...)
		}
		mean, variance := stat.PopMeanVariance(samples, nil)
		std := math.Sqrt(variance)
		out[c] = Threshold{Mean: mean, StdDev: std, Level: mean + multiplier*std}
	}
	return out, nil
}

// ThresholdCount zeroes every sample of a batch that does not exceed its
// channel threshold and counts the non-zero samples left in each line. The
// result is a signal with axes (trial, channel, line).
func ThresholdCount(batch *models.Tensor, multiplier float64) (*models.Tensor, error) {
	thresholds, err := Thresholds(batch, multiplier)
	if err != nil {
		return nil, err
	}
	shape := batch.Shape()
	trials, channels, frames, rows, cols := shape[0], shape[1], shape[2], shape[3], shape[4]

	out, err := models.NewTensor(signalAxes, []int{trials, channels, frames * rows})
	if err != nil {
		return nil, err
	}

	lines := frames * rows
	for i := range out.Data {
		level := thresholds[(i/lines)%channels].Level
		count := 0
		for _, v := range batch.Data[i*cols : (i+1)*cols] {
			if v > level && v != 0 {
				count++
			}
		}
		out.Data[i] = float64(count)
	}
	return out, nil
}
