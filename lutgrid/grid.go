// Package lutgrid converts raw per-pixel observation geometry into the
// minimal, discretized sampling grids a radiative transfer look-up table is
// built on. A dimension whose variability falls below its configured minimum
// spacing collapses to a single representative value instead of a grid.
package lutgrid

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/unbohn/isofit/internal/monitoring"
)

// roundThreshold controls when grid points are rounded to 4 decimal places
// to suppress floating point noise in the spacing comparison.
const roundThreshold = 0.0001

// Grid builds an evenly spaced sampling sequence over [minVal, maxVal].
//
// A zero spacing means "no grid": the caller supplies a single point. The
// point count is ceil((maxVal-minVal)/spacing)+1. When the resulting
// sequence has a single point, or its adjacent spacing falls below
// minSpacing, the grid collapses to nil as a robustness policy, not a
// failure.
func Grid(minVal, maxVal, spacing, minSpacing float64) []float64 {
	if spacing == 0 {
		monitoring.Logf("lutgrid: spacing set at 0, using no grid")
		return nil
	}

	n := int(math.Ceil((maxVal-minVal)/spacing)) + 1
	if n < 2 {
		monitoring.Logf("lutgrid: data range supports a single point only, using no grid")
		return nil
	}

	grid := floats.Span(make([]float64, n), minVal, maxVal)

	if minSpacing > roundThreshold {
		for i, v := range grid {
			grid[i] = round4(v)
		}
	}

	if math.Abs(grid[1]-grid[0]) < minSpacing {
		monitoring.Logf("lutgrid: grid spacing is %f, which is less than %f, using no grid",
			grid[1]-grid[0], minSpacing)
		return nil
	}
	return grid
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
