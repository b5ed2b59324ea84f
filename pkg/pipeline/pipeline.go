// Package pipeline composes frame loading, channel demultiplexing, metadata
// grouping and aggregation into the named workflows offered to callers.
//
// Every workflow reads its inputs afresh and returns new arrays; a Pipeline
// holds only its configuration and is safe for concurrent use.
package pipeline

import (
	"fmt"

	"tiffsignals/internal/models"
	"tiffsignals/pkg/aggregate"
	"tiffsignals/pkg/config"
	"tiffsignals/pkg/demux"
	"tiffsignals/pkg/framestore"
	"tiffsignals/pkg/metadata"
)

// Result is the output of a workflow.
type Result struct {
	// Signal is the primary array; its axes depend on the workflow
	Signal *models.Tensor

	// Spread is the standard deviation paired with Signal, when the workflow computes one
	Spread *models.Tensor

	// Orientations labels the group axis of Signal for orientation-grouped workflows
	Orientations []float64

	// Degenerate lists the normalization units that had no range and were zeroed
	Degenerate []aggregate.Unit
}

// Summary is the output of RunAll: everything a trial overview plot needs,
// computed from a single load.
type Summary struct {
	// Trials is the line-averaged signal of every trial, axes (trial, channel, line)
	Trials *models.Tensor

	// Mean and StdDev are taken over all trials, axes (channel, line)
	Mean   *models.Tensor
	StdDev *models.Tensor

	// Baseline is the grand average over all trials, axes (channel, line)
	Baseline *models.Tensor

	Degenerate []aggregate.Unit
}

// Pipeline runs workflows under one configuration.
type Pipeline struct {
	cfg *config.Config
}

// New creates a pipeline. A nil configuration selects the defaults.
func New(cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg}, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// input is the decoded and indexed state shared by all workflows.
// raw is the demultiplexed batch before normalization; batch is what the
// line-based workflows consume.
type input struct {
	batch      *models.Tensor
	raw        *models.Tensor
	index      *metadata.Index
	degenerate []aggregate.Unit
}

// load decodes the image directory, demultiplexes every trial, checks the
// metadata record against the trial files and applies normalization when
// configured.
func (p *Pipeline) load(dir, metadataPath string) (*input, error) {
	index, err := metadata.Read(metadataPath, p.cfg.Orientation.OfInterest)
	if err != nil {
		return nil, err
	}

	stacks, err := framestore.Load(dir, framestore.Options{
		Extensions:   p.cfg.Acquisition.Extensions,
		ZigZagParity: p.cfg.Acquisition.ZigZagParity,
		Workers:      p.cfg.Processing.NumCores,
	})
	if err != nil {
		return nil, err
	}

	if last := index.MaxTrial(); last >= len(stacks) {
		return nil, fmt.Errorf("%w: record names trial %d but %s holds %d trial files",
			models.ErrMetadata, last, dir, len(stacks))
	}

	batch, err := demux.Batch(stacks, p.cfg.Acquisition.Channels)
	if err != nil {
		return nil, err
	}

	in := &input{batch: batch, raw: batch, index: index}
	if p.cfg.Processing.Normalize {
		in.batch, in.degenerate, err = aggregate.Normalize(batch)
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}

// lines loads the inputs and reduces every line to its mean.
func (p *Pipeline) lines(dir, metadataPath string) (*input, *models.Tensor, error) {
	in, err := p.load(dir, metadataPath)
	if err != nil {
		return nil, nil, err
	}
	signal, err := aggregate.LineAverage(in.batch)
	if err != nil {
		return nil, nil, err
	}
	return in, signal, nil
}

// Average returns the line-averaged signal averaged within each orientation
// of interest, axes (group, channel, line), groups in configured order.
func (p *Pipeline) Average(dir, metadataPath string) (*Result, error) {
	in, signal, err := p.lines(dir, metadataPath)
	if err != nil {
		return nil, err
	}

	groups := make([][]int, len(in.index.Groups))
	for i, g := range in.index.Groups {
		groups[i] = g.Trials
	}
	avg, err := aggregate.GroupAverageBy(signal, groups)
	if err != nil {
		return nil, err
	}

	return &Result{Signal: avg, Orientations: in.index.Orientations(), Degenerate: in.degenerate}, nil
}

// Baseline returns the grand average over all trials regardless of
// orientation, axes (channel, line).
func (p *Pipeline) Baseline(dir, metadataPath string) (*Result, error) {
	in, signal, err := p.lines(dir, metadataPath)
	if err != nil {
		return nil, err
	}
	avg, err := aggregate.GlobalAverage(signal)
	if err != nil {
		return nil, err
	}
	return &Result{Signal: avg, Degenerate: in.degenerate}, nil
}

// SingleTrial returns the line-averaged signal of the given trials in the
// given order, axes (trial, channel, line).
func (p *Pipeline) SingleTrial(indices []int, dir, metadataPath string) (*Result, error) {
	in, signal, err := p.lines(dir, metadataPath)
	if err != nil {
		return nil, err
	}
	selected, err := aggregate.SelectTrials(signal, indices)
	if err != nil {
		return nil, err
	}
	return &Result{Signal: selected, Degenerate: in.degenerate}, nil
}

// StandardDeviation returns the mean over all trials in Signal and the
// population standard deviation in Spread, both axes (channel, line).
func (p *Pipeline) StandardDeviation(dir, metadataPath string) (*Result, error) {
	in, signal, err := p.lines(dir, metadataPath)
	if err != nil {
		return nil, err
	}
	mean, std, err := aggregate.StandardDeviation(signal)
	if err != nil {
		return nil, err
	}
	return &Result{Signal: mean, Spread: std, Degenerate: in.degenerate}, nil
}

// PhotonCount counts above-threshold samples per line and smooths the
// counts with the configured boxcar, axes (trial, channel, line). Thresholds
// come from the raw samples, so normalization does not change the counts.
func (p *Pipeline) PhotonCount(dir, metadataPath string) (*Result, error) {
	in, err := p.load(dir, metadataPath)
	if err != nil {
		return nil, err
	}
	counts, err := aggregate.ThresholdCount(in.raw, p.cfg.Processing.ThresholdMultiplier)
	if err != nil {
		return nil, err
	}
	smoothed, err := aggregate.MovingAverage(counts, p.cfg.Processing.SmoothingWindow)
	if err != nil {
		return nil, err
	}
	return &Result{Signal: smoothed, Degenerate: in.degenerate}, nil
}

// SeparateTrials returns the line-averaged signal of every trial, axes
// (trial, channel, line).
func (p *Pipeline) SeparateTrials(dir, metadataPath string) (*Result, error) {
	in, signal, err := p.lines(dir, metadataPath)
	if err != nil {
		return nil, err
	}
	return &Result{Signal: signal, Degenerate: in.degenerate}, nil
}

// TrialMeans returns the mean level of every trial per channel, axes
// (trial, channel).
func (p *Pipeline) TrialMeans(dir, metadataPath string) (*Result, error) {
	in, signal, err := p.lines(dir, metadataPath)
	if err != nil {
		return nil, err
	}
	means, err := aggregate.TrialMeans(signal)
	if err != nil {
		return nil, err
	}
	return &Result{Signal: means, Degenerate: in.degenerate}, nil
}

// RunAll computes the per-trial signals, their mean and standard deviation
// and the baseline from one load of the inputs.
func (p *Pipeline) RunAll(dir, metadataPath string) (*Summary, error) {
	in, signal, err := p.lines(dir, metadataPath)
	if err != nil {
		return nil, err
	}
	mean, std, err := aggregate.StandardDeviation(signal)
	if err != nil {
		return nil, err
	}
	baseline, err := aggregate.GlobalAverage(signal)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Trials:     signal,
		Mean:       mean,
		StdDev:     std,
		Baseline:   baseline,
		Degenerate: in.degenerate,
	}, nil
}
