package main

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffsignals/internal/models"
	"tiffsignals/internal/tifftest"
	"tiffsignals/pkg/config"
)

func TestParseTrials(t *testing.T) {
	got, err := parseTrials("0, 3,12")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 12}, got)

	_, err = parseTrials("")
	assert.Error(t, err)

	_, err = parseTrials("1,x")
	assert.Error(t, err)
}

// writeExperiment writes two trials of eight 2x2 pages and a record giving
// them orientations 90 and 180.
func writeExperiment(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "tiffs")
	require.NoError(t, os.Mkdir(dir, 0755))

	for tr := 0; tr < 2; tr++ {
		var pages []*image.Gray16
		for p := 0; p < 8; p++ {
			pages = append(pages, tifftest.NewPage(2, 2, func(y, x int) uint16 {
				return uint16(tr*1000 + p*10 + 2*y + x)
			}))
		}
		require.NoError(t, tifftest.WriteFile(filepath.Join(dir, fmt.Sprintf("file_%02d.tif", tr+1)), pages))
	}

	meta := filepath.Join(root, "vs.yaml")
	require.NoError(t, os.WriteFile(meta, []byte("orientations: [90, 180]\n"), 0644))
	return dir, meta
}

func TestRun(t *testing.T) {
	dir, meta := writeExperiment(t)
	logger := slog.New(tint.NewHandler(io.Discard, nil))

	tests := []struct {
		name    string
		op      string
		trials  string
		plots   []string
		wantErr error
		anyErr  bool
	}{
		{name: "average", op: "average", plots: []string{"avg_group_90.png", "avg_group_180.png"}},
		{name: "baseline", op: "baseline", plots: []string{"baseline.png"}},
		{name: "single", op: "single", trials: "1", plots: []string{"single_trial_001.png"}},
		{name: "single without trials", op: "single", anyErr: true},
		{name: "single out of range", op: "single", trials: "2", wantErr: models.ErrIndex},
		{name: "means", op: "means"},
		{name: "photon window too large", op: "photon", wantErr: models.ErrShape},
		{name: "unknown op", op: "histogram", anyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Output.PlotDir = t.TempDir()

			err := run(logger, cfg, tt.op, dir, meta, tt.trials)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				return
			case tt.anyErr:
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, name := range tt.plots {
				_, err := os.Stat(filepath.Join(cfg.Output.PlotDir, name))
				assert.NoError(t, err, name)
			}
		})
	}
}

func TestRunUnknownOpMessage(t *testing.T) {
	dir, meta := writeExperiment(t)
	logger := slog.New(tint.NewHandler(io.Discard, nil))

	err := run(logger, config.DefaultConfig(), "histogram", dir, meta, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown workflow "histogram"`)
}
