package rtm

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/unbohn/isofit/internal/monitoring"
	"github.com/unbohn/isofit/internal/units"
)

// RadiativeTransfer composes an ordered set of radiative transfer engines
// into the full forward radiance model. Engines cover disjoint wavelength
// sub-ranges (VSWIR and TIR, for example) and are kept sorted ascending by
// first wavelength; radiation and derivatives from each engine are
// concatenated to form the complete result.
//
// Some state vector components are shared between engines and bands (water
// vapor is shared between VSWIR and TIR). This type maintains the master
// state vector description.
//
// A RadiativeTransfer is immutable after construction and safe for
// concurrent use, one CalcRdn invocation per pixel or segment.
type RadiativeTransfer struct {
	engines []Engine

	statevecNames []string
	bounds        [][2]float64
	scale         []float64
	init          []float64
	priorMean     []float64
	priorSigma    []float64

	wl       []float64
	solarIrr []float64

	topographyModel bool
	glintModel      bool

	// bvec/bval are the declared nuisance parameter names and magnitudes.
	bvec []string
	bval []float64
}

// New instantiates every configured engine, validates it against the state
// vector, and aggregates the engine set into a single compositor. The
// instrument config may be nil; its layered parameters then contribute
// nothing to the merge.
func New(cfg *Config, instrument *InstrumentConfig) (*RadiativeTransfer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("radiative transfer config is nil")
	}
	if len(cfg.Engines) == 0 {
		return nil, fmt.Errorf("no radiative transfer engines configured")
	}

	var instLayer *LayeredParams
	if instrument != nil {
		instLayer = &instrument.LayeredParams
	}

	rt := &RadiativeTransfer{
		statevecNames: cfg.Statevector.Names(),
	}

	for i := range cfg.Engines {
		ec := cfg.Engines[i]
		ctor, err := lookupEngine(ec.Name)
		if err != nil {
			return nil, err
		}

		// Engine-level values win over instrument-level, which win over the
		// global radiative transfer section.
		params := ResolveEngineParams(&ec.LayeredParams, instLayer, &cfg.LayeredParams)

		eng, err := ctor(ec, params)
		if err != nil {
			return nil, fmt.Errorf("constructing engine %q: %w", ec.Name, err)
		}

		if expected, got := len(cfg.Statevector.Elements), len(eng.RTIndices()); expected != got {
			return nil, fmt.Errorf(
				"mismatch between the number of state vector elements and engine %q RT indices: expected=%d, got=%d",
				ec.Name, expected, got)
		}

		rt.engines = append(rt.engines, eng)
	}

	// Config order is not reliable; the rest of the model relies on the
	// engines being sorted by wavelength.
	sort.SliceStable(rt.engines, func(i, j int) bool {
		return rt.engines[i].Wavelengths()[0] < rt.engines[j].Wavelengths()[0]
	})

	for _, eng := range rt.engines {
		rt.wl = append(rt.wl, eng.Wavelengths()...)
		rt.solarIrr = append(rt.solarIrr, eng.SolarIrradiance()...)
		rt.topographyModel = rt.topographyModel || eng.TopographyModel()
		rt.glintModel = rt.glintModel || eng.GlintModel()
	}

	for _, sv := range cfg.Statevector.Elements {
		rt.bounds = append(rt.bounds, sv.Bounds)
		rt.scale = append(rt.scale, sv.Scale)
		rt.init = append(rt.init, sv.Init)
		rt.priorMean = append(rt.priorMean, sv.PriorMean)
		rt.priorSigma = append(rt.priorSigma, sv.PriorSigma)
	}

	for _, u := range cfg.Unknowns {
		rt.bvec = append(rt.bvec, u.Name)
		rt.bval = append(rt.bval, u.Value)
	}

	return rt, nil
}

// Wavelengths returns the aggregate ascending wavelength grid across all
// engines.
func (rt *RadiativeTransfer) Wavelengths() []float64 { return rt.wl }

// SolarIrradiance returns the aggregate solar irradiance across all engines.
func (rt *RadiativeTransfer) SolarIrradiance() []float64 { return rt.solarIrr }

// StateVectorNames returns the configured state vector element names.
func (rt *RadiativeTransfer) StateVectorNames() []string { return rt.statevecNames }

// Bounds returns per-element [lo,hi] bounds in state vector order.
func (rt *RadiativeTransfer) Bounds() [][2]float64 { return rt.bounds }

// Scale returns per-element scale factors in state vector order.
func (rt *RadiativeTransfer) Scale() []float64 { return rt.scale }

// Init returns per-element initial values in state vector order.
func (rt *RadiativeTransfer) Init() []float64 { return rt.init }

// TopographyModel reports whether any engine models local topography.
func (rt *RadiativeTransfer) TopographyModel() bool { return rt.topographyModel }

// GlintModel reports whether any engine models sun and sky glint.
func (rt *RadiativeTransfer) GlintModel() bool { return rt.glintModel }

// UnknownNames returns the declared nuisance parameter names.
func (rt *RadiativeTransfer) UnknownNames() []string { return rt.bvec }

// UnknownValues returns the declared nuisance parameter magnitudes.
func (rt *RadiativeTransfer) UnknownValues() []float64 { return rt.bval }

// Xa returns the prior mean vector.
func (rt *RadiativeTransfer) Xa() []float64 {
	xa := make([]float64, len(rt.priorMean))
	copy(xa, rt.priorMean)
	return xa
}

// Sa returns the prior covariance: the diagonal of squared prior sigmas.
func (rt *RadiativeTransfer) Sa() *mat.DiagDense {
	diag := make([]float64, len(rt.priorSigma))
	for i, s := range rt.priorSigma {
		diag[i] = s * s
	}
	return mat.NewDiagDense(len(diag), diag)
}

// CosZen returns the cosine of the solar zenith angle for the evaluation.
// An engine carrying a cached zenith cosine in its tables overrides the
// geometry; the first engine found wins. This is a backward-compatibility
// shim until the geometry owns the parameter outright.
func (rt *RadiativeTransfer) CosZen(geom *Geometry) float64 {
	for _, eng := range rt.engines {
		if v, ok := eng.CachedCosZen(); ok {
			return v
		}
	}
	return math.Cos(units.DegToRad(geom.SolarZenith))
}

// SharedQuantities queries every engine and merges the results by key
// intersection: only quantities present in all engine outputs survive, and
// their arrays are concatenated in ascending-wavelength engine order.
// Quantities missing from any single engine are dropped from the merged
// result; a diagnostic is logged whenever that happens so a misconfigured
// engine does not disappear silently.
func (rt *RadiativeTransfer) SharedQuantities(xRT []float64, geom *Geometry) (Quantities, error) {
	results := make([]Quantities, len(rt.engines))
	for i, eng := range rt.engines {
		r, err := eng.Get(xRT, geom)
		if err != nil {
			return nil, fmt.Errorf("engine query failed: %w", err)
		}
		results[i] = r
	}
	return mergeQuantities(results), nil
}

// mergeQuantities keeps only the quantities common to all engine outputs and
// concatenates their per-engine segments in input order.
func mergeQuantities(results []Quantities) Quantities {
	shared := make(map[string]bool, len(results[0]))
	for key := range results[0] {
		shared[key] = true
	}
	for _, r := range results[1:] {
		for key := range shared {
			if _, ok := r[key]; !ok {
				delete(shared, key)
			}
		}
	}

	for i, r := range results {
		var dropped []string
		for key := range r {
			if !shared[key] {
				dropped = append(dropped, key)
			}
		}
		if len(dropped) > 0 {
			sort.Strings(dropped)
			monitoring.Logf("rtm: quantities %v from engine %d are not shared by all engines and were dropped from the merge", dropped, i)
		}
	}

	merged := make(Quantities, len(shared))
	for key := range shared {
		var all []float64
		for _, r := range results {
			all = append(all, r[key]...)
		}
		merged[key] = all
	}
	return merged
}

// CalcRdn is the physics-based forward model for at-sensor radiance,
// including topography, background reflectance, and glint.
//
// rflDir and rflDif are the direct and diffuse surface reflectances and Ls
// the surface emission, all on the aggregate wavelength grid; Ls may be nil
// when no thermal band is modeled. The spherical albedo denominator is
// assumed to stay within its physically valid domain and is not guarded
// here.
func (rt *RadiativeTransfer) CalcRdn(xRT, rflDir, rflDif, Ls []float64, geom *Geometry) ([]float64, error) {
	n := len(rt.wl)
	if len(rflDir) != n || len(rflDif) != n {
		return nil, fmt.Errorf("reflectance length mismatch: expected=%d, got dir=%d dif=%d",
			n, len(rflDir), len(rflDif))
	}
	if Ls != nil && len(Ls) != n {
		return nil, fmt.Errorf("surface emission length mismatch: expected=%d, got=%d", n, len(Ls))
	}

	coszen := rt.CosZen(geom)

	// Local solar zenith cosine as a function of surface slope and aspect.
	cosI := coszen
	if geom.CosI != nil {
		cosI = *geom.CosI
	}

	r, err := rt.SharedQuantities(xRT, geom)
	if err != nil {
		return nil, err
	}

	lAtm, err := rt.PathRadiance(xRT, geom)
	if err != nil {
		return nil, err
	}

	sAlb := r[QuantitySphericalAlbedo]
	upDir := r[QuantityTransmUpDir]
	upDif := r[QuantityTransmUpDif]

	lead := rt.engines[0]
	coupled := coupledRadiances(r, lead.CouplingTerms(), lead.Mode(), rt.solarIrr, coszen, cosI, n)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		// Adjacency effects: background reflectance defaults to the
		// foreground reflectance of the pixel under evaluation.
		bgDir := rflDir[i]
		bgDif := rflDif[i]
		if geom.BgRfl != nil {
			bgDir = *geom.BgRfl
			bgDif = *geom.BgRfl
		}

		coupledSum := coupled.BiDirect[i]*rflDir[i] +
			coupled.HemiDirect[i]*rflDif[i] +
			coupled.DirectHemi[i]*bgDir +
			coupled.BiHemi[i]*bgDif

		// The spherical albedo feedback divides only the coupled surface
		// terms, never the path radiance or the thermal upwelling.
		out[i] = lAtm[i] + coupledSum/(1.0-sAlb[i]*bgDif)

		if Ls != nil {
			out[i] += Ls[i] * (upDir[i] + upDif[i])
		}
	}

	return out, nil
}

// PathRadiance returns the modeled atmospheric path radiance on the
// aggregate wavelength grid. Emissive engines contribute their thermal
// upwelling directly; solar-reflective engines contribute their path
// reflectance, converted to radiance when the engine tabulates
// transmittances.
func (rt *RadiativeTransfer) PathRadiance(xRT []float64, geom *Geometry) ([]float64, error) {
	coszen := rt.CosZen(geom)

	var lAtm []float64
	for _, eng := range rt.engines {
		r, err := eng.Get(xRT, geom)
		if err != nil {
			return nil, fmt.Errorf("engine query failed: %w", err)
		}

		if eng.TreatAsEmissive() {
			lAtm = append(lAtm, r[QuantityThermalUpwelling]...)
			continue
		}

		rho := r[QuantityPathReflectance]
		if eng.Mode() == ModeRadiance {
			lAtm = append(lAtm, rho...)
			continue
		}
		irr := eng.SolarIrradiance()
		for i, v := range rho {
			lAtm = append(lAtm, v*irr[i]*coszen/math.Pi)
		}
	}
	return lAtm, nil
}

// DownwardRadiance returns the total, direct, and diffuse downward radiance
// on the sun-to-surface path. Thermal downwelling already includes the
// transmission factor and is assumed to have no multiple scattering, so
// emissive engines contribute only to the total; their direct and diffuse
// segments are zero.
func (rt *RadiativeTransfer) DownwardRadiance(xRT []float64, geom *Geometry) (total, dir, dif []float64, err error) {
	coszen := rt.CosZen(geom)

	for _, eng := range rt.engines {
		r, qerr := eng.Get(xRT, geom)
		if qerr != nil {
			return nil, nil, nil, fmt.Errorf("engine query failed: %w", qerr)
		}

		if eng.TreatAsEmissive() {
			down := r[QuantityThermalDownwelling]
			total = append(total, down...)
			dir = append(dir, make([]float64, len(down))...)
			dif = append(dif, make([]float64, len(down))...)
			continue
		}

		downDir := r[QuantityTransmDownDir]
		downDif := r[QuantityTransmDownDif]
		if eng.Mode() != ModeRadiance {
			downDir = rt.RhoToRdn(downDir, eng.SolarIrradiance(), coszen)
			downDif = rt.RhoToRdn(downDif, eng.SolarIrradiance(), coszen)
		}

		segTotal := make([]float64, len(downDir))
		floats.AddTo(segTotal, downDir, downDif)

		total = append(total, segTotal...)
		dir = append(dir, downDir...)
		dif = append(dif, downDif...)
	}
	return total, dir, dif, nil
}

// RdnToRho converts a radiance vector to reflectance. When solarIrr is nil
// the compositor's aggregate irradiance is used. RhoToRdn is its exact
// inverse for any positive coszen and irradiance.
func (rt *RadiativeTransfer) RdnToRho(rdn, solarIrr []float64, coszen float64) []float64 {
	irr := solarIrr
	if irr == nil {
		irr = rt.solarIrr
	}
	rho := make([]float64, len(rdn))
	for i, v := range rdn {
		rho[i] = v * math.Pi / (irr[i] * coszen)
	}
	return rho
}

// RhoToRdn converts a reflectance vector to radiance. When solarIrr is nil
// the compositor's aggregate irradiance is used.
func (rt *RadiativeTransfer) RhoToRdn(rho, solarIrr []float64, coszen float64) []float64 {
	irr := solarIrr
	if irr == nil {
		irr = rt.solarIrr
	}
	rdn := make([]float64, len(rho))
	for i, v := range rho {
		rdn[i] = irr[i] * coszen / math.Pi * v
	}
	return rdn
}

// Summarize returns the newline-joined per-engine diagnostic summaries.
func (rt *RadiativeTransfer) Summarize(xRT []float64, geom *Geometry) string {
	parts := make([]string, len(rt.engines))
	for i, eng := range rt.engines {
		parts[i] = eng.Summarize(xRT, geom)
	}
	return strings.Join(parts, "\n")
}
