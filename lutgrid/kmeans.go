package lutgrid

import (
	"math"
	"math/rand"
	"sort"

	"github.com/unbohn/isofit/internal/units"
)

const (
	// maxClusterSamples bounds the clustering input to protect memory and
	// runtime against huge rasters; larger inputs are evenly strided down.
	maxClusterSamples = 1_000_000

	// maxKMeansIterations caps the Lloyd iteration count.
	maxKMeansIterations = 100

	// clusterSeed makes the clustering repeatable across runs.
	clusterSeed = 1
)

// circularClusterCenters fits k clusters to the angles on the unit circle
// and returns the cluster center angles in degrees, extracted with the
// two-argument arctangent of the cluster means. Output is sorted ascending
// so repeated runs produce identical grids.
func circularClusterCenters(deg []float64, k int) []float64 {
	pts := make([][2]float64, len(deg))
	for i, a := range deg {
		rad := units.DegToRad(a)
		pts[i] = [2]float64{math.Cos(rad), math.Sin(rad)}
	}

	if len(pts) == 1 {
		pts = append(pts, pts[0])
	}
	pts = strideSample(pts, maxClusterSamples)
	if k > len(pts) {
		k = len(pts)
	}

	centers := kmeansFit(pts, k)

	out := make([]float64, len(centers))
	for i, c := range centers {
		out[i] = units.RadToDeg(math.Atan2(c[1], c[0]))
	}
	sort.Float64s(out)
	return out
}

// strideSample reduces pts to at most limit points with an even stride,
// preserving first and last.
func strideSample(pts [][2]float64, limit int) [][2]float64 {
	n := len(pts)
	if n <= limit {
		return pts
	}
	out := make([][2]float64, limit)
	for i := 0; i < limit; i++ {
		idx := int(math.Round(float64(i) * float64(n-1) / float64(limit-1)))
		out[i] = pts[idx]
	}
	return out
}

// kmeansFit runs seeded k-means++ initialization followed by Lloyd
// iteration. The fixed seed makes results repeatable across runs.
func kmeansFit(pts [][2]float64, k int) [][2]float64 {
	rng := rand.New(rand.NewSource(clusterSeed))

	centers := seedCenters(pts, k, rng)
	assign := make([]int, len(pts))

	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, p := range pts {
			best := nearestCenter(p, centers)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, p := range pts {
			c := assign[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reseed an empty cluster from a random point.
				centers[c] = pts[rng.Intn(len(pts))]
				continue
			}
			centers[c][0] = sums[c][0] / float64(counts[c])
			centers[c][1] = sums[c][1] / float64(counts[c])
		}
	}
	return centers
}

// seedCenters picks k initial centers with the k-means++ weighting.
func seedCenters(pts [][2]float64, k int, rng *rand.Rand) [][2]float64 {
	centers := make([][2]float64, 0, k)
	centers = append(centers, pts[rng.Intn(len(pts))])

	d2 := make([]float64, len(pts))
	for len(centers) < k {
		var sum float64
		for i, p := range pts {
			d2[i] = distSq(p, centers[nearestCenter(p, centers)])
			sum += d2[i]
		}
		if sum == 0 {
			// All points coincide with existing centers.
			centers = append(centers, pts[rng.Intn(len(pts))])
			continue
		}
		target := rng.Float64() * sum
		var acc float64
		choice := len(pts) - 1
		for i, d := range d2 {
			acc += d
			if acc >= target {
				choice = i
				break
			}
		}
		centers = append(centers, pts[choice])
	}
	return centers
}

func nearestCenter(p [2]float64, centers [][2]float64) int {
	best, bestD := 0, math.MaxFloat64
	for c, center := range centers {
		if d := distSq(p, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func distSq(a, b [2]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}
