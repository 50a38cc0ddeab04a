// Package monitor renders diagnostic plots of LUT sampling grids. The plots
// have no effect on grid construction; they exist so a surprising grid can
// be inspected next to the geometry that produced it.
package monitor

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/unbohn/isofit/internal/units"
)

// PlotAngularGrid writes a PNG scatter of the observed angles and the chosen
// grid points on the unit circle. Observed angles are drawn small and grey;
// grid points large and red.
func PlotAngularGrid(angles, grid []float64, path string) error {
	p := plot.New()
	p.Title.Text = "angular LUT grid"
	p.X.Label.Text = "cos(angle)"
	p.Y.Label.Text = "sin(angle)"
	p.X.Min, p.X.Max = -1.1, 1.1
	p.Y.Min, p.Y.Max = -1.1, 1.1

	obs, err := plotter.NewScatter(toUnitCircle(angles))
	if err != nil {
		return fmt.Errorf("failed to build observation scatter: %w", err)
	}
	obs.GlyphStyle.Radius = vg.Points(1.5)
	obs.GlyphStyle.Color = color.Gray{Y: 128}

	sel, err := plotter.NewScatter(toUnitCircle(grid))
	if err != nil {
		return fmt.Errorf("failed to build grid scatter: %w", err)
	}
	sel.GlyphStyle.Radius = vg.Points(4)
	sel.GlyphStyle.Color = color.RGBA{R: 220, A: 255}

	p.Add(plotter.NewGrid(), obs, sel)
	p.Legend.Add("observed", obs)
	p.Legend.Add("grid", sel)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

func toUnitCircle(angles []float64) plotter.XYs {
	pts := make(plotter.XYs, len(angles))
	for i, a := range angles {
		rad := units.DegToRad(a)
		pts[i] = plotter.XY{X: math.Cos(rad), Y: math.Sin(rad)}
	}
	return pts
}
