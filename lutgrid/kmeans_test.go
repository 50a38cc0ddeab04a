package lutgrid

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStrideSample(t *testing.T) {
	pts := make([][2]float64, 10)
	for i := range pts {
		pts[i] = [2]float64{float64(i), 0}
	}

	got := strideSample(pts, 4)
	want := [][2]float64{{0, 0}, {3, 0}, {6, 0}, {9, 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("strideSample mismatch (-want +got):\n%s", diff)
	}

	// Under the limit the input passes through untouched.
	if diff := cmp.Diff(pts, strideSample(pts, 100)); diff != "" {
		t.Errorf("strideSample under limit mismatch (-want +got):\n%s", diff)
	}
}

func TestCircularClusterCentersSinglePoint(t *testing.T) {
	got := circularClusterCenters([]float64{50}, 1)
	if len(got) != 1 || circularDelta(got[0], 50) > 1e-9 {
		t.Errorf("single point center = %v, want [50]", got)
	}
}

func TestCircularClusterCentersClampsK(t *testing.T) {
	got := circularClusterCenters([]float64{10, 200}, 6)
	if len(got) != 2 {
		t.Errorf("got %d centers %v, want 2", len(got), got)
	}
}

func TestCircularClusterCentersSorted(t *testing.T) {
	var angles []float64
	for i := 0; i < 300; i++ {
		angles = append(angles, math.Mod(float64(i)*7.7, 360)-180)
	}
	got := circularClusterCenters(angles, 5)
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("centers not sorted: %v", got)
		}
	}
}

func TestKMeansFitSeparatesObviousClusters(t *testing.T) {
	pts := [][2]float64{
		{1, 0}, {0.99, 0.01}, {1.01, -0.01},
		{-1, 0}, {-0.99, 0.01}, {-1.01, -0.01},
	}
	centers := kmeansFit(pts, 2)
	if len(centers) != 2 {
		t.Fatalf("got %d centers, want 2", len(centers))
	}
	// One center per side of the y axis.
	if (centers[0][0] > 0) == (centers[1][0] > 0) {
		t.Errorf("centers %v do not separate the two clusters", centers)
	}
}
