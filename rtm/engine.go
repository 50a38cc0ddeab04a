// Package rtm combines table-backed radiative transfer engines into one
// physically consistent at-sensor radiance model, with numerical Jacobians
// for the optimal-estimation inversion that consumes it.
package rtm

// Well-known radiative transfer quantity names, as produced by the LUT-backed
// engines. Engines are free to emit additional quantities; only the ones
// shared by every engine survive the compositor's merge.
const (
	QuantityPathReflectance    = "rhoatm"
	QuantitySphericalAlbedo    = "sphalb"
	QuantityTransmDownDir      = "transm_down_dir"
	QuantityTransmDownDif      = "transm_down_dif"
	QuantityTransmUpDir        = "transm_up_dir"
	QuantityTransmUpDif        = "transm_up_dif"
	QuantityThermalUpwelling   = "thermal_upwelling"
	QuantityThermalDownwelling = "thermal_downwelling"
)

// RadiometricMode describes the domain an engine's tabulated quantities live
// in: at-sensor radiance, or transmittance that must be scaled by
// solar_irr*coszen/pi before it can be treated as radiance.
type RadiometricMode string

const (
	ModeRadiance      RadiometricMode = "rdn"
	ModeTransmittance RadiometricMode = "transm"
)

// Quantities maps a named radiative transfer quantity to its per-wavelength
// values on the owning engine's wavelength grid.
type Quantities map[string][]float64

// Geometry carries the per-evaluation observation geometry. All fields are
// read-only inputs to an engine query.
type Geometry struct {
	// SolarZenith is the top-of-atmosphere solar zenith angle in degrees.
	SolarZenith float64

	// CosI is the cosine of the local solar incidence angle as a function of
	// surface slope and aspect. When nil, the top-of-atmosphere zenith cosine
	// is used instead.
	CosI *float64

	// BgRfl is the background reflectance driving adjacency effects. When
	// nil, the foreground reflectance of the pixel under evaluation is used.
	BgRfl *float64
}

// Engine is a table-backed radiative transfer provider bound to a contiguous
// wavelength sub-range. Implementations interpolate a precomputed LUT or
// evaluate a trained emulator; either way a query may cross a process or
// interpolation-service boundary and should be treated as a potentially
// expensive, blocking call.
//
// Engines must be stateless per call: Get may run concurrently from multiple
// goroutines.
type Engine interface {
	// Get returns the engine's radiative transfer quantities for the given
	// RT state subset and geometry.
	Get(xRT []float64, geom *Geometry) (Quantities, error)

	// Wavelengths returns the engine's ascending wavelength grid.
	Wavelengths() []float64

	// SolarIrradiance returns the top-of-atmosphere solar irradiance on the
	// engine's wavelength grid.
	SolarIrradiance() []float64

	// Mode reports whether tabulated quantities are radiances or
	// transmittances.
	Mode() RadiometricMode

	// TreatAsEmissive reports whether the engine covers a thermal band whose
	// path radiance comes from thermal upwelling rather than scattered
	// sunlight.
	TreatAsEmissive() bool

	// TopographyModel reports whether the engine's tables account for local
	// surface slope and aspect.
	TopographyModel() bool

	// GlintModel reports whether the engine supports sun and sky glint for
	// water surfaces.
	GlintModel() bool

	// CouplingTerms returns the ordered names of the four sun-surface-sensor
	// coupling quantities (bi-directional, hemispherical-directional,
	// directional-hemispherical, bi-hemispherical).
	CouplingTerms() []string

	// RTIndices returns the state vector indices the engine expects as its
	// RT state subset. Its length must equal the configured state vector
	// length; the compositor enforces this at construction.
	RTIndices() []int

	// CachedCosZen returns the solar zenith cosine baked into the engine's
	// tables, if any. Engines without a cached value report false and the
	// compositor derives the cosine from the geometry instead.
	CachedCosZen() (float64, bool)

	// Summarize returns a short human-readable description of the engine's
	// state for diagnostics.
	Summarize(xRT []float64, geom *Geometry) string
}
