package metrics

import (
	"context"
	"image/color"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var modeColors = map[Mode]color.Color{
	Training:   color.RGBA{R: 31, G: 119, B: 180, A: 255},
	Validation: color.RGBA{R: 255, G: 127, B: 14, A: 255},
}

const panelWidth = 6 * vg.Inch

// PlotSummary writes a PNG with one panel per metric showing the epoch means of both modes.
func PlotSummary(ctx context.Context, store *Store, path string) error {
	names, err := store.Metrics(ctx, Training)
	if err != nil {
		return err
	}
	series := make(map[Mode]map[string]plotter.XYs, 2)
	for _, mode := range []Mode{Training, Validation} {
		summaries, err := store.Summaries(ctx, mode)
		if err != nil {
			return err
		}
		series[mode] = make(map[string]plotter.XYs)
		for _, es := range summaries {
			for _, st := range es.Summary {
				series[mode][st.Metric] = append(series[mode][st.Metric], plotter.XY{X: float64(es.Epoch), Y: st.Mean})
			}
		}
	}
	return savePanels(names, series, "over epochs", "Epoch #", path)
}

// PlotIterations writes a PNG with one panel per metric showing every batch value of both modes.
func PlotIterations(ctx context.Context, store *Store, path string) error {
	names, err := store.Metrics(ctx, Training)
	if err != nil {
		return err
	}
	series := make(map[Mode]map[string]plotter.XYs, 2)
	for _, mode := range []Mode{Training, Validation} {
		iterations, err := store.Iterations(ctx, mode)
		if err != nil {
			return err
		}
		series[mode] = make(map[string]plotter.XYs)
		for name, values := range iterations {
			xys := make(plotter.XYs, len(values))
			for i, v := range values {
				xys[i] = plotter.XY{X: float64(i), Y: v}
			}
			series[mode][name] = xys
		}
	}
	return savePanels(names, series, "over iterations", "Iteration #", path)
}

func savePanels(names []string, series map[Mode]map[string]plotter.XYs, title, xLabel, path string) (err error) {
	if len(names) == 0 {
		return errors.New("no stored training epochs to plot")
	}
	panels := make([]*plot.Plot, 0, len(names))
	for _, name := range names {
		p := plot.New()
		p.Title.Text = name + " " + title
		p.X.Label.Text = xLabel
		p.Y.Label.Text = name
		p.Add(plotter.NewGrid())
		for _, mode := range []Mode{Training, Validation} {
			xys := finite(series[mode][name])
			if len(xys) == 0 {
				continue
			}
			line, err := plotter.NewLine(xys)
			if err != nil {
				return errors.Wrapf(err, "cannot plot %s %s", mode, name)
			}
			line.Color = modeColors[mode]
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(string(mode), line)
		}
		panels = append(panels, p)
	}

	img := vgimg.New(panelWidth*vg.Length(len(panels)), 4*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 1, Cols: len(panels), PadX: vg.Millimeter, PadY: vg.Millimeter}
	canvases := plot.Align([][]*plot.Plot{panels}, tiles, dc)
	for i, p := range panels {
		p.Draw(canvases[0][i])
	}

	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	_, err = vgimg.PngCanvas{Canvas: img}.WriteTo(f)
	return err
}

// finite drops points with NaN or infinite values, which plotter.NewLine rejects.
func finite(xys plotter.XYs) plotter.XYs {
	out := make(plotter.XYs, 0, len(xys))
	for _, xy := range xys {
		if err := plotter.CheckFloats(xy.X, xy.Y); err == nil {
			out = append(out, xy)
		}
	}
	return out
}
