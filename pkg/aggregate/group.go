package aggregate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"tiffsignals/internal/models"
)

// GroupAverage reorders the trials of a signal by order, splits the result
// into consecutive runs of the given counts and averages each run. The
// output has axes (group, channel, line) with one group per count.
//
// order must name every trial of the signal and counts must sum to its
// length; a zero count is rejected because it would shift every later group.
func GroupAverage(signal *models.Tensor, order, counts []int) (*models.Tensor, error) {
	if err := signal.Expect(signalAxes...); err != nil {
		return nil, err
	}
	trials := signal.Dim(models.AxisTrial)
	if len(order) != trials {
		return nil, fmt.Errorf("%w: order has %d trials, signal has %d", models.ErrShape, len(order), trials)
	}

	sum := 0
	for i, c := range counts {
		if c < 1 {
			return nil, fmt.Errorf("%w: group %d has count %d", models.ErrShape, i, c)
		}
		sum += c
	}
	if sum != len(order) {
		return nil, fmt.Errorf("%w: group counts sum to %d, order has %d trials", models.ErrShape, sum, len(order))
	}

	groups := make([][]int, len(counts))
	start := 0
	for i, c := range counts {
		groups[i] = order[start : start+c]
		start += c
	}
	return GroupAverageBy(signal, groups)
}

// GroupAverageBy averages the trials listed in each group. Groups may cover
// a subset of the trials; each must be non-empty.
func GroupAverageBy(signal *models.Tensor, groups [][]int) (*models.Tensor, error) {
	if err := signal.Expect(signalAxes...); err != nil {
		return nil, err
	}
	shape := signal.Shape()
	trials := shape[0]

	out, err := models.NewTensor(
		[]models.Axis{models.AxisGroup, models.AxisChannel, models.AxisLine},
		[]int{len(groups), shape[1], shape[2]},
	)
	if err != nil {
		return nil, err
	}

	for g, members := range groups {
		if len(members) == 0 {
			return nil, fmt.Errorf("%w: group %d is empty", models.ErrShape, g)
		}
		dst := out.Slab(g)
		for _, idx := range members {
			if idx < 0 || idx >= trials {
				return nil, fmt.Errorf("%w: group %d names trial %d, signal has %d", models.ErrIndex, g, idx, trials)
			}
			floats.Add(dst, signal.Slab(idx))
		}
		floats.Scale(1/float64(len(members)), dst)
	}
	return out, nil
}

// GlobalAverage averages a signal over all of its trials, giving axes
// (channel, line).
func GlobalAverage(signal *models.Tensor) (*models.Tensor, error) {
	mean, _, err := trialStats(signal)
	return mean, err
}

// StandardDeviation returns the mean and the population standard deviation
// of a signal over its trials, both with axes (channel, line). Both come from
// one pass over the same trials.
func StandardDeviation(signal *models.Tensor) (mean, std *models.Tensor, err error) {
	return trialStats(signal)
}

// trialStats views the signal as a trials x cells matrix and reduces each column.
func trialStats(signal *models.Tensor) (*models.Tensor, *models.Tensor, error) {
	if err := signal.Expect(signalAxes...); err != nil {
		return nil, nil, err
	}
	shape := signal.Shape()
	trials, cells := shape[0], shape[1]*shape[2]
	if trials == 0 || cells == 0 {
		return nil, nil, fmt.Errorf("%w: cannot reduce empty signal %s", models.ErrShape, signal)
	}

	axes := []models.Axis{models.AxisChannel, models.AxisLine}
	mean, err := models.NewTensor(axes, shape[1:])
	if err != nil {
		return nil, nil, err
	}
	std, err := models.NewTensor(axes, shape[1:])
	if err != nil {
		return nil, nil, err
	}

	m := mat.NewDense(trials, cells, signal.Data)
	col := make([]float64, trials)
	for j := 0; j < cells; j++ {
		mat.Col(col, j, m)
		mu, variance := stat.PopMeanVariance(col, nil)
		mean.Data[j] = mu
		std.Data[j] = math.Sqrt(variance)
	}
	return mean, std, nil
}
