package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"tiffsignals/internal/models"
	"tiffsignals/pkg/config"
	"tiffsignals/pkg/pipeline"
	"tiffsignals/pkg/visualization"
)

func main() {
	tiffDir := flag.String("tiff", "", "Directory containing the multi-page trial TIFF files")
	metadataPath := flag.String("metadata", "", "Experiment metadata record (YAML or JSON)")
	configPath := flag.String("config", "tiffsignals.yaml", "Configuration file (defaults are used when it does not exist)")
	op := flag.String("op", "average", "Workflow: average, baseline, single, std, photon, trials, means or all")
	trials := flag.String("trials", "", "Comma-separated zero-based trial indices for -op single")
	plotDir := flag.String("plot-dir", "", "Write PNG plots to this directory (overrides output.plotDir)")
	numCores := flag.Int("cores", 0, "Number of files decoded concurrently (overrides processing.numCores)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *tiffDir == "" || *metadataPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *plotDir != "" {
		cfg.Output.PlotDir = *plotDir
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)

	if err := run(logger, cfg, *op, *tiffDir, *metadataPath, *trials); err != nil {
		logger.Error("workflow failed", "op", *op, "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config, op, dir, meta, trialList string) error {
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	logger.Info("starting workflow",
		"op", op,
		"tiff", dir,
		"metadata", meta,
		"channels", cfg.Acquisition.Channels,
		"orientations", cfg.Orientation.OfInterest,
		"cores", cfg.Processing.NumCores)
	start := time.Now()

	var viewer *visualization.Viewer
	if cfg.Output.PlotDir != "" {
		viewer = visualization.NewViewer(cfg.Timing.MsPerLine)
	}

	switch op {
	case "average":
		res, err := p.Average(dir, meta)
		if err != nil {
			return err
		}
		report(logger, "orientation averages", res)
		if viewer != nil {
			labels := make([]string, len(res.Orientations))
			for i, o := range res.Orientations {
				labels[i] = strconv.FormatFloat(o, 'f', -1, 64)
			}
			if err := viewer.SaveSequence(res.Signal, labels, "avg", cfg.Output.PlotDir); err != nil {
				return err
			}
		}

	case "baseline":
		res, err := p.Baseline(dir, meta)
		if err != nil {
			return err
		}
		report(logger, "baseline", res)
		if viewer != nil {
			if err := viewer.SaveChannels(res.Signal, nil, "baseline", filepath.Join(cfg.Output.PlotDir, "baseline.png")); err != nil {
				return err
			}
		}

	case "single":
		indices, err := parseTrials(trialList)
		if err != nil {
			return err
		}
		res, err := p.SingleTrial(indices, dir, meta)
		if err != nil {
			return err
		}
		report(logger, "selected trials", res)
		if viewer != nil {
			labels := make([]string, len(indices))
			for i, idx := range indices {
				labels[i] = fmt.Sprintf("%03d", idx)
			}
			if err := viewer.SaveSequence(res.Signal, labels, "single", cfg.Output.PlotDir); err != nil {
				return err
			}
		}

	case "std":
		res, err := p.StandardDeviation(dir, meta)
		if err != nil {
			return err
		}
		report(logger, "mean and standard deviation", res)
		if viewer != nil {
			if err := viewer.SaveChannels(res.Signal, res.Spread, "std", filepath.Join(cfg.Output.PlotDir, "std.png")); err != nil {
				return err
			}
		}

	case "photon":
		res, err := p.PhotonCount(dir, meta)
		if err != nil {
			return err
		}
		report(logger, "photon counts", res)
		if viewer != nil {
			if err := viewer.SaveSequence(res.Signal, nil, "photon", cfg.Output.PlotDir); err != nil {
				return err
			}
		}

	case "trials":
		res, err := p.SeparateTrials(dir, meta)
		if err != nil {
			return err
		}
		report(logger, "separate trials", res)
		if viewer != nil {
			if err := viewer.SaveSequence(res.Signal, nil, "trial", cfg.Output.PlotDir); err != nil {
				return err
			}
		}

	case "means":
		res, err := p.TrialMeans(dir, meta)
		if err != nil {
			return err
		}
		report(logger, "trial means", res)
		shape := res.Signal.Shape()
		for tr := 0; tr < shape[0]; tr++ {
			fmt.Printf("trial %03d:", tr)
			for c := 0; c < shape[1]; c++ {
				fmt.Printf(" C%d=%.6g", c+1, res.Signal.At(tr, c))
			}
			fmt.Println()
		}

	case "all":
		sum, err := p.RunAll(dir, meta)
		if err != nil {
			return err
		}
		logger.Info("run all",
			"trials", sum.Trials.String(),
			"mean", sum.Mean.String(),
			"baseline", sum.Baseline.String(),
			"degenerateUnits", len(sum.Degenerate))
		if viewer != nil {
			if err := viewer.SaveSequence(sum.Trials, nil, "trial", cfg.Output.PlotDir); err != nil {
				return err
			}
			if err := viewer.SaveChannels(sum.Mean, sum.StdDev, "std", filepath.Join(cfg.Output.PlotDir, "std.png")); err != nil {
				return err
			}
			if err := viewer.SaveChannels(sum.Baseline, nil, "baseline", filepath.Join(cfg.Output.PlotDir, "baseline.png")); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("unknown workflow %q", op)
	}

	logger.Info("workflow completed", "op", op, "elapsed", time.Since(start).Round(time.Millisecond))
	if viewer != nil {
		logger.Info("plots written", "dir", cfg.Output.PlotDir)
	}
	return nil
}

// report logs the layout of a result and any zeroed normalization units.
func report(logger *slog.Logger, what string, res *pipeline.Result) {
	logger.Info(what, "signal", res.Signal.String())
	if res.Spread != nil {
		logger.Debug("spread", "layout", res.Spread.String())
	}
	for _, u := range res.Degenerate {
		logger.Warn("normalization unit has no range; zeroed", "trial", u.Index, "channel", u.Channel)
	}
	logger.Debug("first values", "values", head(res.Signal, 8))
}

func head(t *models.Tensor, n int) []float64 {
	return t.Data[:min(n, t.Len())]
}

// parseTrials parses a comma-separated list of zero-based trial indices.
func parseTrials(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, fmt.Errorf("-trials is required for the single workflow")
	}
	var out []int
	for _, field := range strings.Split(list, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid trial index %q: %v", field, err)
		}
		out = append(out, idx)
	}
	return out, nil
}
