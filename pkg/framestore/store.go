// Package framestore loads a directory of multi-page trial images into
// corrected frame stacks, one stack per file.
package framestore

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"tiffsignals/internal/models"
)

// Options controls how a directory is scanned and decoded.
type Options struct {
	// Extensions lists the recognized file extensions (case-insensitive, with the dot)
	Extensions []string

	// ZigZagParity selects which rows are reversed: 1 for odd rows, 0 for even rows
	ZigZagParity int

	// Workers is the number of files decoded concurrently; values below 1 mean 1
	Workers int
}

// DefaultOptions matches the acquisition software: TIFF files, odd rows scanned backwards.
func DefaultOptions() Options {
	return Options{
		Extensions:   []string{".tif", ".tiff"},
		ZigZagParity: 1,
		Workers:      1,
	}
}

// ListTrials returns the recognized image files of dir in trial order.
//
// Files are ordered by the number embedded in their name, then by name, so
// that trial_2 precedes trial_10 regardless of directory iteration order.
// The position in the returned list is the trial index used to join against
// the metadata record.
func ListTrials(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIO, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if slices.ContainsFunc(extensions, func(e string) bool { return strings.EqualFold(e, ext) }) {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no image files with extensions %v in %s", models.ErrIO, extensions, dir)
	}

	sort.Slice(files, func(i, j int) bool {
		numI, okI := extractNumber(files[i])
		numJ, okJ := extractNumber(files[j])
		if okI && okJ && numI != numJ {
			return numI < numJ
		}
		if okI != okJ {
			return okI
		}
		return files[i] < files[j]
	})

	return files, nil
}

// extractNumber extracts the last run of digits in a filename
func extractNumber(filename string) (int, bool) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	end := -1
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] >= '0' && base[i] <= '9' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return 0, false
	}
	start := end - 1
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}

	num, err := strconv.Atoi(base[start:end])
	if err != nil {
		return 0, false
	}
	return num, true
}

// Load decodes every recognized file in dir and returns one corrected stack
// per file, in trial order. Every decoded frame has the zig-zag correction
// applied exactly once.
func Load(dir string, opts Options) ([]models.Stack, error) {
	files, err := ListTrials(dir, opts.Extensions)
	if err != nil {
		return nil, err
	}

	stacks := make([]models.Stack, len(files))

	var g errgroup.Group
	g.SetLimit(max(opts.Workers, 1))
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			frames, err := LoadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("loading %s: %w", name, err)
			}
			for _, f := range frames {
				CorrectZigZag(f, opts.ZigZagParity)
			}
			// each goroutine owns its slot, so the order never depends on completion
			stacks[i] = models.Stack{Frames: frames, Index: i, Source: name}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stacks, nil
}

// LoadFile decodes every page of one multi-page image file without correction.
func LoadFile(path string) ([]models.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIO, err)
	}
	defer f.Close()

	return decodePages(f)
}

// CorrectZigZag reverses, in place, every row of frame whose index has the
// given parity. Bidirectional scanning records those rows right to left.
// The operation is its own inverse, so it must run exactly once per frame.
func CorrectZigZag(frame models.Frame, parity int) {
	for y := parity; y < frame.Rows; y += 2 {
		slices.Reverse(frame.Row(y))
	}
}
