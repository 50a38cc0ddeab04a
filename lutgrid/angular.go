package lutgrid

import (
	"math"

	"github.com/unbohn/isofit/internal/monitoring"
	"github.com/unbohn/isofit/internal/units"
)

// AngularGrid builds a sampling grid for a circular quantity such as an
// azimuth or zenith angle, in degrees.
//
// The observed angles are mapped to unit circle coordinates to find which
// sign-combination quadrants contain data. A compact spread (three or fewer
// occupied quadrants) runs the plain linear Grid algorithm; when the data
// straddles the 0/360 degree discontinuity, all angles are shifted by +180
// degrees first and the resulting grid shifted back, so no spurious
// wraparound gap appears. A spread wider than roughly 180 degrees has no
// universal linear answer and falls back to fixed-seed circular clustering
// with ceil(360/spacing) clusters.
//
// The unit is one of units.ValidUnits; results are always degrees. A nil
// result means "no grid" per the Grid collapse policy.
func AngularGrid(angles []float64, spacing, minSpacing float64, unit string) []float64 {
	if spacing == 0 {
		monitoring.Logf("lutgrid: angular spacing set at 0, using no grid")
		return nil
	}
	deg := anglesToDegrees(angles, unit)

	occupied, crossesZero := quadrantOccupancy(deg)

	if occupied < 3 {
		if crossesZero {
			// Shift away from the 0/360 discontinuity, grid, shift back.
			shifted := make([]float64, len(deg))
			for i, a := range deg {
				w := math.Mod(a+180, 360)
				if w < 0 {
					w += 360
				}
				shifted[i] = w
			}
			lo, hi := minMax(shifted)
			grid := Grid(lo, hi, spacing, minSpacing)
			if grid == nil {
				return nil
			}
			for i := range grid {
				grid[i] -= 180
			}
			return grid
		}
		lo, hi := minMax(deg)
		return Grid(lo, hi, spacing, minSpacing)
	}

	if spacing >= 180 {
		monitoring.Logf("lutgrid: requested angle spacing is %f, but observed angle divergence is > 180; tighter spacing recommended", spacing)
	}

	// This very well might over-space the grid, but the data gives no
	// general answer for multi-modal or wraparound-heavy geometry.
	k := int(math.Ceil(360 / spacing))
	centers := circularClusterCenters(deg, k)

	warnClusterCoverage(deg, centers, occupied)
	return centers
}

// AngularCenterpoint reduces a set of angles to a single representative
// angle in degrees by fitting one circular cluster. It serves dimensions
// whose grids collapse to a centerpoint.
func AngularCenterpoint(angles []float64, unit string) float64 {
	deg := anglesToDegrees(angles, unit)
	return circularClusterCenters(deg, 1)[0]
}

func anglesToDegrees(angles []float64, unit string) []float64 {
	deg := make([]float64, len(angles))
	for i, a := range angles {
		deg[i] = units.ToDegrees(a, unit)
	}
	return deg
}

// quadrantOccupancy counts how many of the four unit circle quadrants
// contain data. crossesZero reports that both positive-cosine quadrants are
// occupied, meaning the data straddles the 0/360 degree line.
func quadrantOccupancy(deg []float64) (occupied int, crossesZero bool) {
	var posPos, posNeg, negPos, negNeg bool
	for _, a := range deg {
		rad := units.DegToRad(a)
		x, y := math.Cos(rad), math.Sin(rad)
		switch {
		case x > 0 && y > 0:
			posPos = true
		case x > 0 && y < 0:
			posNeg = true
		case x < 0 && y > 0:
			negPos = true
		case x < 0 && y < 0:
			negNeg = true
		}
	}
	for _, q := range []bool{posPos, posNeg, negPos, negNeg} {
		if q {
			occupied++
		}
	}
	return occupied, posPos && posNeg
}

// warnClusterCoverage logs when the fitted cluster centers span fewer
// quadrants than the data they summarize.
func warnClusterCoverage(deg, centers []float64, dataQuadrants int) {
	centerQuadrants, _ := quadrantOccupancy(centers)
	if centerQuadrants < dataQuadrants {
		monitoring.Logf("lutgrid: cluster angles %v span %d quadrants, while data spans %d quadrants",
			centers, centerQuadrants, dataQuadrants)
	}
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
