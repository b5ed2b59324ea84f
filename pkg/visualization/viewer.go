// Package visualization renders channel signals as line plots. It is a
// consumer of the arrays produced by the pipeline and is used by the command
// line tool only.
package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"tiffsignals/internal/models"
)

// channelColors follows the acquisition rig's channel colours.
var channelColors = []color.Color{
	color.RGBA{R: 0, G: 128, B: 0, A: 255},   // green
	color.RGBA{R: 0, G: 0, B: 255, A: 255},   // blue
	color.RGBA{R: 255, G: 215, B: 0, A: 255}, // gold
	color.RGBA{R: 255, G: 0, B: 0, A: 255},   // red
}

// Viewer draws (channel, line) signals against acquisition time.
type Viewer struct {
	// msPerLine converts line indices to time
	msPerLine float64

	// size of saved figures
	width  vg.Length
	height vg.Length
}

// NewViewer creates a viewer for signals sampled every msPerLine milliseconds.
func NewViewer(msPerLine float64) *Viewer {
	return &Viewer{
		msPerLine: msPerLine,
		width:     14 * vg.Inch,
		height:    6 * vg.Inch,
	}
}

// ChannelColor returns the line colour of channel c.
func ChannelColor(c int) color.Color {
	return channelColors[c%len(channelColors)]
}

// TimeAxis returns the time in seconds of each of n lines.
func (v *Viewer) TimeAxis(n int) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i) * v.msPerLine / 1000
	}
	return ts
}

// ChannelPlot builds one plot with a line per channel. When spread is not
// nil, dashed lines at mean ± spread are added for every channel.
func (v *Viewer) ChannelPlot(signal, spread *models.Tensor, title string) (*plot.Plot, error) {
	if err := signal.Expect(models.AxisChannel, models.AxisLine); err != nil {
		return nil, err
	}
	if spread != nil && spread.String() != signal.String() {
		return nil, fmt.Errorf("%w: spread %s does not match signal %s", models.ErrShape, spread, signal)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Intensity"

	channels, lines := signal.Dim(models.AxisChannel), signal.Dim(models.AxisLine)
	ts := v.TimeAxis(lines)

	for c := 0; c < channels; c++ {
		row := signal.Slab(c)

		pts := make(plotter.XYs, lines)
		for i := range pts {
			pts[i] = plotter.XY{X: ts[i], Y: row[i]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %v", c, err)
		}
		line.Color = ChannelColor(c)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("C%d", c+1), line)

		if spread == nil {
			continue
		}
		dev := spread.Slab(c)
		for _, sign := range []float64{1, -1} {
			band := make(plotter.XYs, lines)
			for i := range band {
				band[i] = plotter.XY{X: ts[i], Y: row[i] + sign*dev[i]}
			}
			bl, err := plotter.NewLine(band)
			if err != nil {
				return nil, fmt.Errorf("channel %d spread: %v", c, err)
			}
			bl.Color = ChannelColor(c)
			bl.Width = vg.Points(0.5)
			bl.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
			p.Add(bl)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

// SaveChannels renders a (channel, line) signal, with optional spread, to filename.
// The image format follows the file extension.
func (v *Viewer) SaveChannels(signal, spread *models.Tensor, title, filename string) error {
	p, err := v.ChannelPlot(signal, spread, title)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return p.Save(v.width, v.height, filename)
}

// SaveSequence renders every entry of the leading axis of a three-axis
// signal (trial or group, channel, line) into outputDir, one file per entry.
// labels name the entries; missing labels fall back to the index.
func (v *Viewer) SaveSequence(signal *models.Tensor, labels []string, prefix, outputDir string) error {
	axes := signal.Axes()
	if len(axes) != 3 || axes[1] != models.AxisChannel || axes[2] != models.AxisLine {
		return fmt.Errorf("%w: want (trial|group, channel, line), have %s", models.ErrShape, signal)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	shape := signal.Shape()
	for i := 0; i < shape[0]; i++ {
		entry, err := models.FromData(signal.Slab(i), axes[1:], shape[1:])
		if err != nil {
			return err
		}

		label := fmt.Sprintf("%03d", i)
		if i < len(labels) {
			label = labels[i]
		}
		title := fmt.Sprintf("%s %s %s", prefix, axes[0], label)
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%s.png", prefix, axes[0], label))
		if err := v.SaveChannels(entry, nil, title, filename); err != nil {
			return err
		}
	}

	return nil
}
