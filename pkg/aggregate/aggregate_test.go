package aggregate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffsignals/internal/models"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func newBatch(t *testing.T, shape []int, fill func(i int) float64) *models.Tensor {
	t.Helper()
	b, err := models.NewTensor(batchAxes, shape)
	require.NoError(t, err)
	for i := range b.Data {
		b.Data[i] = fill(i)
	}
	return b
}

func newSignal(t *testing.T, trials, channels, lines int, data []float64) *models.Tensor {
	t.Helper()
	s, err := models.FromData(data, signalAxes, []int{trials, channels, lines})
	require.NoError(t, err)
	return s
}

func TestLineAverageScenario(t *testing.T) {
	// 2 trials, 4 channels x 2 frames, each frame 2x2
	batch := newBatch(t, []int{2, 4, 2, 2, 2}, func(i int) float64 { return float64(i) })

	sig, err := LineAverage(batch)
	require.NoError(t, err)
	require.NoError(t, sig.Expect(models.AxisTrial, models.AxisChannel, models.AxisLine))
	assert.Equal(t, []int{2, 4, 4}, sig.Shape())

	// line i averages samples 2i and 2i+1
	for i, v := range sig.Data {
		assert.Equal(t, float64(4*i+1)/2, v)
	}
}

func TestLineAverageRejectsWrongAxes(t *testing.T) {
	sig := newSignal(t, 1, 1, 2, []float64{1, 2})
	_, err := LineAverage(sig)
	assert.ErrorIs(t, err, models.ErrShape)

	empty := newBatch(t, []int{1, 1, 1, 1, 0}, nil)
	_, err = LineAverage(empty)
	assert.ErrorIs(t, err, models.ErrShape)
}

func TestNormalize(t *testing.T) {
	sig := newSignal(t, 2, 2, 3, []float64{
		2, 4, 6, // trial 0, channel 0
		5, 5, 5, // trial 0, channel 1 (flat)
		-1, 0, 1, // trial 1, channel 0
		10, 0, 5, // trial 1, channel 1
	})

	out, degenerate, err := Normalize(sig)
	require.NoError(t, err)

	want := []float64{0, 0.5, 1, 0, 0, 0, 0, 0.5, 1, 1, 0, 0.5}
	if diff := cmp.Diff(want, out.Data, approx); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []Unit{{Index: 0, Channel: 1}}, degenerate)

	for _, v := range out.Data {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	// input untouched
	assert.Equal(t, 2.0, sig.Data[0])
}

func TestNormalizeBatchUnits(t *testing.T) {
	batch := newBatch(t, []int{1, 2, 1, 2, 2}, func(i int) float64 { return float64(i * i) })
	out, degenerate, err := Normalize(batch)
	require.NoError(t, err)
	assert.Empty(t, degenerate)
	// each channel block of 4 samples spans [0, 1] on its own
	assert.Equal(t, 0.0, out.At(0, 1, 0, 0, 0))
	assert.Equal(t, 1.0, out.At(0, 1, 0, 1, 1))
}

func TestNormalizeNeedsChannelAxis(t *testing.T) {
	tn, err := models.NewTensor([]models.Axis{models.AxisChannel, models.AxisLine}, []int{2, 2})
	require.NoError(t, err)
	_, _, err = Normalize(tn)
	assert.ErrorIs(t, err, models.ErrShape)
}

func TestSelectTrials(t *testing.T) {
	sig := newSignal(t, 3, 1, 2, []float64{0, 1, 10, 11, 20, 21})

	out, err := SelectTrials(sig, []int{2, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, out.Shape())
	assert.Equal(t, []float64{20, 21, 0, 1, 20, 21}, out.Data)

	_, err = SelectTrials(sig, []int{0, 3})
	assert.ErrorIs(t, err, models.ErrIndex)
	_, err = SelectTrials(sig, []int{-1})
	assert.ErrorIs(t, err, models.ErrIndex)
}

func TestTrialMeans(t *testing.T) {
	sig := newSignal(t, 2, 2, 2, []float64{1, 3, 2, 2, 0, 10, 4, 6})
	out, err := TrialMeans(sig)
	require.NoError(t, err)
	require.NoError(t, out.Expect(models.AxisTrial, models.AxisChannel))
	assert.Equal(t, []float64{2, 2, 5, 5}, out.Data)
}

func TestDeterminism(t *testing.T) {
	batch := newBatch(t, []int{3, 4, 2, 3, 5}, func(i int) float64 { return math.Sin(float64(i)) * 1000 })

	run := func() []*models.Tensor {
		sig, err := LineAverage(batch)
		require.NoError(t, err)
		mean, std, err := StandardDeviation(sig)
		require.NoError(t, err)
		counts, err := ThresholdCount(batch, 1.5)
		require.NoError(t, err)
		smooth, err := MovingAverage(counts, 2)
		require.NoError(t, err)
		return []*models.Tensor{sig, mean, std, counts, smooth}
	}

	first, second := run(), run()
	for i := range first {
		assert.True(t, first[i].Equal(second[i]), "output %d differs between runs", i)
	}
}
