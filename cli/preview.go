package cli

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/disintegration/imaging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"golang.org/x/image/draw"

	"github.com/drivescene/scapes/cityscapes"
	"github.com/drivescene/scapes/classes"
	"github.com/drivescene/scapes/rimage"
	"github.com/drivescene/scapes/transformpipeline"
)

const (
	previewColumns = 2
	histogramBins  = 10
	histogramWidth = 40
)

// PreviewAction is the corresponding Action for 'preview'.
func PreviewAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := cityscapes.ReadConfigFile(c.String(configFlag))
	if err != nil {
		return err
	}
	datasets, err := cityscapes.NewDatasets(cfg, logger)
	if err != nil {
		return err
	}
	ds := datasets.Training
	switch name := c.String(splitFlag); name {
	case trainingSplit:
	case validationSplit:
		ds = datasets.Validation
	default:
		return errors.Errorf("unknown split %q, expected %q or %q", name, trainingSplit, validationSplit)
	}

	idx := c.Int(previewFlagIndex)
	//nolint:gosec
	rng := rand.New(rand.NewSource(c.Int64(previewFlagSeed)))
	item, err := ds.Get(idx, c.Float64(previewFlagScale), rng)
	if err != nil {
		return err
	}
	img, err := renderPreview(item.Output, ds.Pipeline().Normalization())
	if err != nil {
		return err
	}
	out := c.Path(previewFlagOut)
	if err := imaging.Save(img, out); err != nil {
		return errors.Wrapf(err, "cannot save preview %q", out)
	}

	aug := item.Output.Augmentation
	tw := table.NewWriter()
	tw.SetTitle("%s", ds.Index().Entries[idx].Name)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"Flip", "Brightness", "Angle", "Crop", "Shape"})
	tw.AppendRow(table.Row{aug.Flip, aug.Brightness, aug.Angle, aug.Crop, item.Output.Shape})
	printf(c.App.Writer, "%s", tw.Render())
	if item.Pose != nil {
		printf(c.App.Writer, "speed %.2f m/s, yaw rate %.4f rad/s", item.Pose.Speed, item.Pose.YawRate)
	}
	if c.Bool(previewFlagHistogram) && item.Output.Disparity != nil {
		if err := printHistogram(c, item.Output.Disparity); err != nil {
			return err
		}
	}
	printf(c.App.Writer, "wrote %s", out)
	return nil
}

// printHistogram prints the distribution of the valid values of a disparity or depth map.
func printHistogram(c *cli.Context, dm *rimage.DepthMap) error {
	valid := lo.Filter(dm.Values(), func(v float64, _ int) bool {
		return v > 0 && !math.IsInf(v, 0)
	})
	if len(valid) == 0 {
		warningf(c.App.Writer, "no valid disparity values")
		return nil
	}
	printf(c.App.Writer, "%d of %d pixels valid", len(valid), dm.Width()*dm.Height())
	return histogram.Fprint(c.App.Writer, histogram.Hist(histogramBins, valid), histogram.Linear(histogramWidth))
}

// renderPreview lays every modality of a transformed sample out on a grid: color images in
// modality order, then the colorized segmentation, then the disparity or depth.
func renderPreview(out *transformpipeline.Output, norm *rimage.Normalization) (image.Image, error) {
	var panels []image.Image
	for _, m := range transformpipeline.AllModalities() {
		t, ok := out.Images[m]
		if !ok {
			continue
		}
		img, err := rimage.FromTensor(t, norm)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot render %s", m)
		}
		panels = append(panels, img)
	}
	if out.Segmentation != nil {
		labels, err := rimage.PlaneFromTensor(out.Segmentation)
		if err != nil {
			return nil, errors.Wrap(err, "cannot render segmentation")
		}
		panels = append(panels, classes.Colorize(labels))
	}
	if out.Disparity != nil {
		panels = append(panels, out.Disparity.ToPrettyPicture(0, math.Inf(1)))
	}
	if len(panels) == 0 {
		return nil, errors.New("sample has nothing to render")
	}

	w, h := out.Shape.X, out.Shape.Y
	cols := previewColumns
	if len(panels) < cols {
		cols = len(panels)
	}
	rows := (len(panels) + cols - 1) / cols
	canvas := image.NewNRGBA(image.Rect(0, 0, cols*w, rows*h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	for i, p := range panels {
		origin := image.Pt((i%cols)*w, (i/cols)*h)
		dst := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
		if p.Bounds().Size() == dst.Size() {
			draw.Draw(canvas, dst, p, p.Bounds().Min, draw.Over)
			continue
		}
		draw.NearestNeighbor.Scale(canvas, dst, p, p.Bounds(), draw.Over, nil)
	}
	return canvas, nil
}
