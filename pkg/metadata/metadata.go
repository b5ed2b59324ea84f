// Package metadata reads the experiment record that assigns a stimulus
// orientation to every trial and groups trials by orientation.
package metadata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tiffsignals/internal/models"
)

// Record is the on-disk experiment record. Either Trials or Orientations
// must be present. YAML and JSON encodings are both accepted.
type Record struct {
	// Trials lists file number and orientation per trial, in acquisition order
	Trials []TrialEntry `yaml:"trials"`

	// Orientations is the compact form: one label per trial, in acquisition order
	Orientations []float64 `yaml:"orientations"`
}

// TrialEntry is one row of the stimulus log.
type TrialEntry struct {
	// File is the 1-based number of the image file recorded by the stimulus software
	File int `yaml:"file"`

	// Orientation is the stimulus direction in degrees
	Orientation float64 `yaml:"orientation"`
}

// Group holds the trials shown at one orientation of interest.
type Group struct {
	Orientation float64
	Trials      []int // zero-based, in acquisition order
}

// Index is the parsed record restricted to the orientations of interest.
type Index struct {
	// Groups follow the order of the orientations of interest
	Groups []Group

	// Labels maps every zero-based trial index in the record to its orientation
	Labels map[int]float64

	// Trials is the number of trials in the record, all orientations included
	Trials int
}

// Order returns trial indices grouped by orientation, groups in interest
// order and trials within a group in acquisition order. It equals a stable
// sort of the retained trials by their group.
func (ix *Index) Order() []int {
	var order []int
	for _, g := range ix.Groups {
		order = append(order, g.Trials...)
	}
	return order
}

// Counts returns the number of trials per orientation of interest, aligned
// with Order.
func (ix *Index) Counts() []int {
	counts := make([]int, len(ix.Groups))
	for i, g := range ix.Groups {
		counts[i] = len(g.Trials)
	}
	return counts
}

// Orientations returns the group labels in group order.
func (ix *Index) Orientations() []float64 {
	labels := make([]float64, len(ix.Groups))
	for i, g := range ix.Groups {
		labels[i] = g.Orientation
	}
	return labels
}

// MaxTrial returns the largest trial index in the record.
func (ix *Index) MaxTrial() int {
	m := -1
	for t := range ix.Labels {
		m = max(m, t)
	}
	return m
}

// Read loads and indexes the record at path.
func Read(path string, interest []float64) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIO, err)
	}
	ix, err := Parse(data, interest)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ix, nil
}

// Parse indexes an encoded record. Every orientation of interest must have
// at least one trial; an empty group would misalign downstream averaging.
func Parse(data []byte, interest []float64) (*Index, error) {
	if len(interest) == 0 {
		return nil, fmt.Errorf("%w: no orientations of interest", models.ErrMetadata)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMetadata, err)
	}

	entries, err := rec.entries()
	if err != nil {
		return nil, err
	}

	ix := &Index{
		Groups: make([]Group, len(interest)),
		Labels: make(map[int]float64, len(entries)),
		Trials: len(entries),
	}
	slot := make(map[float64]int, len(interest))
	for i, o := range interest {
		if _, dup := slot[o]; dup {
			return nil, fmt.Errorf("%w: orientation %g listed twice", models.ErrMetadata, o)
		}
		slot[o] = i
		ix.Groups[i].Orientation = o
	}

	for _, e := range entries {
		trial := e.File - 1
		if _, dup := ix.Labels[trial]; dup {
			return nil, fmt.Errorf("%w: file %d appears twice", models.ErrMetadata, e.File)
		}
		ix.Labels[trial] = e.Orientation

		if g, ok := slot[e.Orientation]; ok {
			ix.Groups[g].Trials = append(ix.Groups[g].Trials, trial)
		}
	}

	for _, g := range ix.Groups {
		if len(g.Trials) == 0 {
			return nil, fmt.Errorf("%w: no trials with orientation %g", models.ErrMetadata, g.Orientation)
		}
	}

	return ix, nil
}

// entries normalizes both record forms to acquisition-ordered entries.
func (r Record) entries() ([]TrialEntry, error) {
	switch {
	case len(r.Trials) > 0 && len(r.Orientations) > 0:
		return nil, fmt.Errorf("%w: record has both trials and orientations", models.ErrMetadata)
	case len(r.Trials) > 0:
		for i, e := range r.Trials {
			if e.File < 1 {
				return nil, fmt.Errorf("%w: trial %d has file number %d, want >= 1", models.ErrMetadata, i, e.File)
			}
		}
		return r.Trials, nil
	case len(r.Orientations) > 0:
		entries := make([]TrialEntry, len(r.Orientations))
		for i, o := range r.Orientations {
			entries[i] = TrialEntry{File: i + 1, Orientation: o}
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("%w: record has no trials", models.ErrMetadata)
	}
}
