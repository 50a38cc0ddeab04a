package rtm

import (
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbohn/isofit/internal/monitoring"
)

func TestNewRejectsUnknownEngineName(t *testing.T) {
	cfg := &Config{
		Engines: []EngineConfig{{Name: "banana"}},
	}
	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"banana"`)
	for _, name := range SupportedEngineNames {
		assert.Contains(t, err.Error(), name, "error should cite the valid set")
	}
}

func TestNewRejectsUnregisteredEngine(t *testing.T) {
	// srtmnet is deliberately never registered by the test suite.
	cfg := &Config{
		Engines: []EngineConfig{{Name: EngineSRTMnet}},
	}
	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no registered constructor")
}

func TestNewRejectsStateVectorMismatch(t *testing.T) {
	eng := solarStub("visnir", 400, 4, 2)
	cfg := registerStubs(t, EngineModtran, eng)
	// One configured element against an engine expecting two.
	cfg.Statevector.Elements = cfg.Statevector.Elements[:1]

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected=1")
	assert.Contains(t, err.Error(), "got=2")
}

func TestNewRejectsEmptyEngineList(t *testing.T) {
	_, err := New(&Config{}, nil)
	require.Error(t, err)
}

func TestEnginesSortedAndAggregated(t *testing.T) {
	visnir := solarStub("visnir", 400, 5, 1)
	tir := solarStub("tir", 8000, 3, 1)
	tir.topo = true
	tir.glint = true

	// Config order is TIR first; the compositor must sort by wavelength.
	cfg := registerStubs(t, EngineModtran, tir, visnir)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	wl := rt.Wavelengths()
	assert.Equal(t, 8, len(wl), "total wavelength count should be the sum of the segments")
	assert.True(t, sort.Float64sAreSorted(wl), "aggregate wavelengths should ascend across engine boundaries")
	assert.Equal(t, 400.0, wl[0])

	assert.Equal(t, 8, len(rt.SolarIrradiance()))
	assert.True(t, rt.TopographyModel(), "topography flag should OR across engines")
	assert.True(t, rt.GlintModel(), "glint flag should OR across engines")

	assert.Equal(t, []float64{0.5}, rt.Init())
	assert.Equal(t, [][2]float64{{0, 10}}, rt.Bounds())
	assert.Equal(t, []float64{1}, rt.Scale())
}

func TestXaSa(t *testing.T) {
	eng := solarStub("visnir", 400, 2, 2)
	cfg := registerStubs(t, EngineModtran, eng)
	cfg.Statevector.Elements[0].PriorMean = 1.5
	cfg.Statevector.Elements[0].PriorSigma = 3
	cfg.Statevector.Elements[1].PriorMean = -0.5
	cfg.Statevector.Elements[1].PriorSigma = 0.1

	rt, err := New(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, []float64{1.5, -0.5}, rt.Xa())

	sa := rt.Sa()
	r, c := sa.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, c)
	assert.InDelta(t, 9.0, sa.At(0, 0), 1e-12)
	assert.InDelta(t, 0.01, sa.At(1, 1), 1e-12)
	assert.Zero(t, sa.At(0, 1))
}

func TestSharedQuantitiesIntersection(t *testing.T) {
	a := solarStub("a", 400, 2, 1)
	a.quantities = func([]float64, *Geometry) Quantities {
		return Quantities{
			QuantitySphericalAlbedo: []float64{0.1, 0.2},
			QuantityTransmDownDir:   []float64{0.5, 0.6},
			"only_in_a":             []float64{9, 9},
		}
	}
	b := solarStub("b", 500, 3, 1)
	b.quantities = func([]float64, *Geometry) Quantities {
		return Quantities{
			QuantitySphericalAlbedo: []float64{0.3, 0.4, 0.5},
			QuantityTransmDownDir:   []float64{0.7, 0.8, 0.9},
		}
	}

	cfg := registerStubs(t, EngineSixS, a, b)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	var warned bool
	monitoring.SetLogger(func(string, ...interface{}) { warned = true })
	defer monitoring.SetLogger(nil)

	merged, err := rt.SharedQuantities([]float64{0.5}, &Geometry{SolarZenith: 30})
	require.NoError(t, err)

	want := Quantities{
		QuantitySphericalAlbedo: []float64{0.1, 0.2, 0.3, 0.4, 0.5},
		QuantityTransmDownDir:   []float64{0.5, 0.6, 0.7, 0.8, 0.9},
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("merged quantities mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, warned, "dropping a quantity should emit a diagnostic")
}

func TestCalcRdnIdempotent(t *testing.T) {
	eng := solarStub("visnir", 400, 4, 1)
	cfg := registerStubs(t, EngineModtran, eng)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	xRT := []float64{0.5}
	rfl := constSlice(4, 0.25)
	geom := &Geometry{SolarZenith: 30}

	first, err := rt.CalcRdn(xRT, rfl, rfl, nil, geom)
	require.NoError(t, err)
	second, err := rt.CalcRdn(xRT, rfl, rfl, nil, geom)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("CalcRdn is not idempotent (-first +second):\n%s", diff)
	}
}

func TestCalcRdnRejectsLengthMismatch(t *testing.T) {
	eng := solarStub("visnir", 400, 4, 1)
	cfg := registerStubs(t, EngineModtran, eng)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = rt.CalcRdn([]float64{0.5}, constSlice(3, 0.25), constSlice(4, 0.25), nil, &Geometry{SolarZenith: 30})
	require.Error(t, err)
}

func TestCalcRdnTwoEngineEndToEnd(t *testing.T) {
	visnir := solarStub("visnir", 400, 5, 1)
	tir := solarStub("tir", 8000, 3, 1)
	cfg := registerStubs(t, EngineModtran, tir, visnir)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	n := len(rt.Wavelengths())
	require.Equal(t, 8, n)

	// Zero reflectance isolates the path radiance: with unit quantities and
	// zero spherical albedo, the radiance is exactly the unit path term.
	rdn, err := rt.CalcRdn([]float64{0.5}, constSlice(n, 0), constSlice(n, 0), nil, &Geometry{SolarZenith: 0})
	require.NoError(t, err)
	require.Len(t, rdn, 8)
	for i, v := range rdn {
		assert.InDeltaf(t, 1.0, v, 1e-12, "channel %d", i)
	}

	// Distinct per-engine path reflectances must appear in wavelength
	// order: engine 1's segment before engine 2's.
	visnir.quantities = constQuantities(5, map[string]float64{
		QuantityPathReflectance: 1,
		QuantitySphericalAlbedo: 0,
		QuantityTransmDownDir:   1,
		QuantityTransmDownDif:   1,
		QuantityTransmUpDir:     1,
		QuantityTransmUpDif:     1,
	})
	tir.quantities = constQuantities(3, map[string]float64{
		QuantityPathReflectance: 2,
		QuantitySphericalAlbedo: 0,
		QuantityTransmDownDir:   1,
		QuantityTransmDownDif:   1,
		QuantityTransmUpDir:     1,
		QuantityTransmUpDif:     1,
	})

	rdn, err = rt.CalcRdn([]float64{0.5}, constSlice(n, 0), constSlice(n, 0), nil, &Geometry{SolarZenith: 0})
	require.NoError(t, err)
	want := append(constSlice(5, 1), constSlice(3, 2)...)
	if diff := cmp.Diff(want, rdn); diff != "" {
		t.Errorf("radiance segments out of order (-want +got):\n%s", diff)
	}
}

func TestCalcRdnThermalContribution(t *testing.T) {
	eng := solarStub("visnir", 400, 3, 1)
	cfg := registerStubs(t, EngineModtran, eng)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	zero := constSlice(3, 0)
	geom := &Geometry{SolarZenith: 0}

	noThermal, err := rt.CalcRdn([]float64{0.5}, zero, zero, nil, geom)
	require.NoError(t, err)
	withThermal, err := rt.CalcRdn([]float64{0.5}, zero, zero, constSlice(3, 2), geom)
	require.NoError(t, err)

	for i := range noThermal {
		// Ls scaled by transm_up_dir+transm_up_dif = 2.
		assert.InDelta(t, noThermal[i]+4, withThermal[i], 1e-12)
	}
}

func TestCosZen(t *testing.T) {
	eng := solarStub("visnir", 400, 2, 1)
	cfg := registerStubs(t, EngineModtran, eng)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	got := rt.CosZen(&Geometry{SolarZenith: 60})
	assert.InDelta(t, 0.5, got, 1e-12)
}

func TestCosZenEngineOverride(t *testing.T) {
	cached := 0.42
	eng := solarStub("visnir", 400, 2, 1)
	eng.coszen = &cached
	cfg := registerStubs(t, EngineSixS, eng)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	got := rt.CosZen(&Geometry{SolarZenith: 60})
	assert.Equal(t, 0.42, got, "cached engine cosine should override the geometry")
}

func TestRdnRhoRoundTrip(t *testing.T) {
	eng := solarStub("visnir", 400, 3, 1)
	eng.irr = []float64{1.2, 1.4, 1.6}
	cfg := registerStubs(t, EngineModtran, eng)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	rdn := []float64{0.3, 0.7, 1.1}
	for _, coszen := range []float64{0.2, 0.5, 1.0} {
		back := rt.RhoToRdn(rt.RdnToRho(rdn, nil, coszen), nil, coszen)
		for i := range rdn {
			assert.InDelta(t, rdn[i], back[i], 1e-12)
		}
	}

	// Caller-supplied irradiance follows the same round trip.
	irr := []float64{2, 3, 4}
	back := rt.RdnToRho(rt.RhoToRdn(rdn, irr, 0.7), irr, 0.7)
	for i := range rdn {
		assert.InDelta(t, rdn[i], back[i], 1e-12)
	}
}

func TestPathRadianceTransmittanceMode(t *testing.T) {
	eng := solarStub("visnir", 400, 2, 1)
	eng.mode = ModeTransmittance
	eng.irr = []float64{2, 4}
	eng.quantities = constQuantities(2, map[string]float64{
		QuantityPathReflectance: 0.5,
		QuantitySphericalAlbedo: 0,
		QuantityTransmDownDir:   1,
		QuantityTransmDownDif:   1,
		QuantityTransmUpDir:     1,
		QuantityTransmUpDif:     1,
	})
	cfg := registerStubs(t, EngineModtran, eng)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	lAtm, err := rt.PathRadiance([]float64{0.5}, &Geometry{SolarZenith: 0})
	require.NoError(t, err)
	// rho * irr * coszen / pi
	assert.InDelta(t, 0.5*2/math.Pi, lAtm[0], 1e-12)
	assert.InDelta(t, 0.5*4/math.Pi, lAtm[1], 1e-12)
}

func TestPathRadianceEmissive(t *testing.T) {
	eng := solarStub("tir", 8000, 2, 1)
	eng.emissive = true
	eng.quantities = constQuantities(2, map[string]float64{
		QuantityThermalUpwelling:   3.5,
		QuantityThermalDownwelling: 1.5,
		QuantitySphericalAlbedo:    0,
	})
	cfg := registerStubs(t, EngineModtran, eng)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	lAtm, err := rt.PathRadiance([]float64{0.5}, &Geometry{SolarZenith: 30})
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5, 3.5}, lAtm)
}

func TestDownwardRadianceEmissiveSegmentsAreZero(t *testing.T) {
	visnir := solarStub("visnir", 400, 2, 1)
	tir := solarStub("tir", 8000, 2, 1)
	tir.emissive = true
	tir.quantities = constQuantities(2, map[string]float64{
		QuantityThermalUpwelling:   3.5,
		QuantityThermalDownwelling: 1.5,
		QuantitySphericalAlbedo:    0,
	})
	cfg := registerStubs(t, EngineModtran, visnir, tir)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	total, dir, dif, err := rt.DownwardRadiance([]float64{0.5}, &Geometry{SolarZenith: 0})
	require.NoError(t, err)
	require.Len(t, total, 4)
	require.Len(t, dir, 4)
	require.Len(t, dif, 4)

	// Solar segment: dir+dif with unit transmittances.
	assert.Equal(t, []float64{2, 2, 1.5, 1.5}, total)
	assert.Equal(t, []float64{1, 1, 0, 0}, dir)
	assert.Equal(t, []float64{1, 1, 0, 0}, dif)
}

func TestSummarize(t *testing.T) {
	visnir := solarStub("visnir", 400, 5, 1)
	tir := solarStub("tir", 8000, 3, 1)
	cfg := registerStubs(t, EngineModtran, tir, visnir)
	rt, err := New(cfg, nil)
	require.NoError(t, err)

	got := rt.Summarize([]float64{0.5}, &Geometry{SolarZenith: 30})
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "visnir: 5 channels", lines[0])
	assert.Equal(t, "tir: 3 channels", lines[1])
}
