package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffsignals/internal/models"
)

func TestMovingAverage(t *testing.T) {
	sig := newSignal(t, 1, 2, 5, []float64{1, 2, 3, 4, 5, 0, 0, 6, 0, 0})

	out, err := MovingAverage(sig, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out.Shape())
	if diff := cmp.Diff([]float64{2, 3, 4, 2, 2, 2}, out.Data, approx); diff != "" {
		t.Errorf("MovingAverage mismatch (-want +got):\n%s", diff)
	}
}

func TestMovingAverageLength(t *testing.T) {
	sig := newSignal(t, 1, 1, 7, []float64{3, 1, 4, 1, 5, 9, 2})

	for w := 1; w <= 7; w++ {
		out, err := MovingAverage(sig, w)
		require.NoError(t, err)
		assert.Equal(t, 7-w+1, out.Dim(models.AxisLine), "window %d", w)
	}

	same, err := MovingAverage(sig, 1)
	require.NoError(t, err)
	assert.Equal(t, sig.Data, same.Data)

	for _, w := range []int{0, -2, 8} {
		_, err := MovingAverage(sig, w)
		assert.ErrorIs(t, err, models.ErrShape, "window %d", w)
	}
}

func TestThresholdCountFlatChannel(t *testing.T) {
	// every sample of every channel equals 5, so std = 0 and nothing exceeds the threshold
	batch := newBatch(t, []int{2, 4, 2, 2, 3}, func(int) float64 { return 5 })

	counts, err := ThresholdCount(batch, 3.8)
	require.NoError(t, err)
	require.NoError(t, counts.Expect(models.AxisTrial, models.AxisChannel, models.AxisLine))
	assert.Equal(t, []int{2, 4, 4}, counts.Shape())
	for _, v := range counts.Data {
		assert.Zero(t, v)
	}
}

func TestThresholdCountSpikes(t *testing.T) {
	// 2 trials, 2 channels, 1 frame of 2 lines x 4 samples
	batch := newBatch(t, []int{2, 2, 1, 2, 4}, func(int) float64 { return 1 })
	// channel 0: two spikes in trial 0 line 1, one in trial 1 line 0
	batch.Set(100, 0, 0, 0, 1, 0)
	batch.Set(100, 0, 0, 0, 1, 3)
	batch.Set(100, 1, 0, 0, 0, 2)

	thresholds, err := Thresholds(batch, 1)
	require.NoError(t, err)
	require.Len(t, thresholds, 2)
	assert.Greater(t, thresholds[0].StdDev, 0.0)
	assert.Zero(t, thresholds[1].StdDev)
	assert.Equal(t, 1.0, thresholds[1].Level)

	counts, err := ThresholdCount(batch, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{
		0, 2, // trial 0, channel 0
		0, 0, // trial 0, channel 1
		1, 0, // trial 1, channel 0
		0, 0, // trial 1, channel 1
	}, counts.Data)
}

func TestThresholdCountIgnoresZeroSamples(t *testing.T) {
	// a negative threshold would otherwise count zero-valued samples
	batch := newBatch(t, []int{1, 1, 1, 1, 4}, func(i int) float64 { return []float64{-10, -10, 0, 4}[i] })
	counts, err := ThresholdCount(batch, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, counts.Data)
}

func TestThresholdCountWrongAxes(t *testing.T) {
	sig := newSignal(t, 1, 1, 1, []float64{1})
	_, err := ThresholdCount(sig, 3.8)
	assert.ErrorIs(t, err, models.ErrShape)
}
