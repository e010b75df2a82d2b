// Package plotting renders an envelope sweep against the presence threshold,
// as a PNG (gonum/plot) or an interactive HTML page (go-echarts).
package plotting

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/parking.report/internal/envelope"
	"github.com/banshee-data/parking.report/internal/fsutil"
)

var (
	// ErrUnsupportedFormat is returned by Render for unknown file extensions.
	ErrUnsupportedFormat = errors.New("unsupported plot format")
	// ErrNoData is returned when the chart has no points.
	ErrNoData = errors.New("no datapoints to plot")
)

var (
	envelopeColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	thresholdColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Chart is one sweep with the threshold it is judged against.
type Chart struct {
	Title     string
	Subtitle  string
	Points    []envelope.Datapoint
	Threshold float64
}

// Render writes c to path, picking PNG or HTML from the extension.
func Render(fsys fsutil.FileSystem, path string, c Chart) error {
	var write func(io.Writer, Chart) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		write = WritePNG
	case ".html", ".htm":
		write = WriteHTML
	default:
		return fmt.Errorf("%w: %q (want .png or .html)", ErrUnsupportedFormat, filepath.Ext(path))
	}

	// Render fully before creating the file so a failed plot leaves nothing behind.
	var buf bytes.Buffer
	if err := write(&buf, c); err != nil {
		return err
	}

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := buf.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WritePNG draws the sweep and a horizontal threshold line.
func WritePNG(w io.Writer, c Chart) error {
	if len(c.Points) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = "Amplitude"

	pts := make(plotter.XYs, len(c.Points))
	for i, dp := range c.Points {
		pts[i] = plotter.XY{X: dp.Distance, Y: dp.Amplitude}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("envelope line: %w", err)
	}
	line.Color = envelopeColor
	line.Width = vg.Points(1)

	first, last := c.Points[0].Distance, c.Points[len(c.Points)-1].Distance
	thr, err := plotter.NewLine(plotter.XYs{{X: first, Y: c.Threshold}, {X: last, Y: c.Threshold}})
	if err != nil {
		return fmt.Errorf("threshold line: %w", err)
	}
	thr.Color = thresholdColor
	thr.Width = vg.Points(1)
	thr.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), line, thr)
	p.Legend.Add("envelope", line)
	p.Legend.Add("threshold", thr)
	p.Legend.Top = true

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// WriteHTML renders an interactive line chart of the sweep.
func WriteHTML(w io.Writer, c Chart) error {
	if len(c.Points) == 0 {
		return ErrNoData
	}

	xs := make([]string, len(c.Points))
	amps := make([]opts.LineData, len(c.Points))
	thr := make([]opts.LineData, len(c.Points))
	for i, dp := range c.Points {
		xs[i] = fmt.Sprintf("%.3f", dp.Distance)
		amps[i] = opts.LineData{Value: dp.Amplitude}
		thr[i] = opts.LineData{Value: c.Threshold}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: c.Title, Width: "1200px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: c.Title, Subtitle: c.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Distance (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Amplitude", NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(xs).
		AddSeries("envelope", amps).
		AddSeries("threshold", thr, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Color: "#d62728"}))

	return line.Render(w)
}
