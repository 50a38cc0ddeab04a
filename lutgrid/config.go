package lutgrid

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/unbohn/isofit/internal/units"
)

// Config holds the sampling grid options per physical dimension. For each
// dimension, the spacing is the anticipated grid step, or 0 to use a single
// point (no grid); the minimum spacing is the smallest separation allowed
// before the dimension collapses to a single point.
type Config struct {
	// Units of kilometers
	ElevationSpacing    float64
	ElevationSpacingMin float64

	// Units of g/cm2
	H2OSpacing    float64
	H2OSpacingMin float64

	// H2OMin is the minimum allowable water vapor value in g/cm2.
	H2OMin   float64
	H2ORange [2]float64

	// Units of degrees
	ToSensorZenithSpacing    float64
	ToSensorZenithSpacingMin float64

	// Units of degrees
	ToSunZenithSpacing    float64
	ToSunZenithSpacingMin float64

	// Units of degrees
	RelativeAzimuthSpacing    float64
	RelativeAzimuthSpacingMin float64

	// Units of AOD, per aerosol component
	AerosolSpacing    [3]float64
	AerosolSpacingMin [3]float64
	AerosolRange      [3][2]float64

	AOT550Spacing    float64
	AOT550SpacingMin float64
	AOT550Range      [2]float64
}

// DefaultConfig returns the canonical grid spacing defaults.
func DefaultConfig() Config {
	return Config{
		ElevationSpacing:    0.25,
		ElevationSpacingMin: 0.2,

		H2OSpacing:    0.25,
		H2OSpacingMin: 0.03,
		H2OMin:        0.05,
		H2ORange:      [2]float64{0.05, 5},

		ToSensorZenithSpacing:    10,
		ToSensorZenithSpacingMin: 2,

		ToSunZenithSpacing:    10,
		ToSunZenithSpacingMin: 2,

		RelativeAzimuthSpacing:    60,
		RelativeAzimuthSpacingMin: 25,

		AerosolSpacing:    [3]float64{0, 0, 0.25},
		AerosolSpacingMin: [3]float64{0, 0, 0},
		AerosolRange: [3][2]float64{
			{0.001, 1},
			{0.001, 1},
			{0.001, 1},
		},

		AOT550Spacing:    0,
		AOT550SpacingMin: 0,
		AOT550Range:      [2]float64{0.001, 1},
	}
}

// configOverrides mirrors Config with pointer fields so a partial JSON file
// overrides only the values it names.
type configOverrides struct {
	ElevationSpacing    *float64 `json:"elevation_spacing,omitempty"`
	ElevationSpacingMin *float64 `json:"elevation_spacing_min,omitempty"`

	H2OSpacing    *float64    `json:"h2o_spacing,omitempty"`
	H2OSpacingMin *float64    `json:"h2o_spacing_min,omitempty"`
	H2OMin        *float64    `json:"h2o_min,omitempty"`
	H2ORange      *[2]float64 `json:"h2o_range,omitempty"`

	ToSensorZenithSpacing    *float64 `json:"to_sensor_zenith_spacing,omitempty"`
	ToSensorZenithSpacingMin *float64 `json:"to_sensor_zenith_spacing_min,omitempty"`

	ToSunZenithSpacing    *float64 `json:"to_sun_zenith_spacing,omitempty"`
	ToSunZenithSpacingMin *float64 `json:"to_sun_zenith_spacing_min,omitempty"`

	RelativeAzimuthSpacing    *float64 `json:"relative_azimuth_spacing,omitempty"`
	RelativeAzimuthSpacingMin *float64 `json:"relative_azimuth_spacing_min,omitempty"`

	Aerosol0Spacing    *float64    `json:"aerosol_0_spacing,omitempty"`
	Aerosol0SpacingMin *float64    `json:"aerosol_0_spacing_min,omitempty"`
	Aerosol0Range      *[2]float64 `json:"aerosol_0_range,omitempty"`
	Aerosol1Spacing    *float64    `json:"aerosol_1_spacing,omitempty"`
	Aerosol1SpacingMin *float64    `json:"aerosol_1_spacing_min,omitempty"`
	Aerosol1Range      *[2]float64 `json:"aerosol_1_range,omitempty"`
	Aerosol2Spacing    *float64    `json:"aerosol_2_spacing,omitempty"`
	Aerosol2SpacingMin *float64    `json:"aerosol_2_spacing_min,omitempty"`
	Aerosol2Range      *[2]float64 `json:"aerosol_2_range,omitempty"`

	AOT550Spacing    *float64    `json:"aot_550_spacing,omitempty"`
	AOT550SpacingMin *float64    `json:"aot_550_spacing_min,omitempty"`
	AOT550Range      *[2]float64 `json:"aot_550_range,omitempty"`
}

// LoadConfig loads grid options from a JSON file, overriding the compiled-in
// defaults with any fields present. Omitted fields retain their defaults, so
// partial configs are safe.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var ov configOverrides
	if err := json.Unmarshal(data, &ov); err != nil {
		return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	ov.apply(&cfg)
	return cfg, nil
}

func (ov *configOverrides) apply(cfg *Config) {
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setR := func(dst *[2]float64, src *[2]float64) {
		if src != nil {
			*dst = *src
		}
	}

	setF(&cfg.ElevationSpacing, ov.ElevationSpacing)
	setF(&cfg.ElevationSpacingMin, ov.ElevationSpacingMin)
	setF(&cfg.H2OSpacing, ov.H2OSpacing)
	setF(&cfg.H2OSpacingMin, ov.H2OSpacingMin)
	setF(&cfg.H2OMin, ov.H2OMin)
	setR(&cfg.H2ORange, ov.H2ORange)
	setF(&cfg.ToSensorZenithSpacing, ov.ToSensorZenithSpacing)
	setF(&cfg.ToSensorZenithSpacingMin, ov.ToSensorZenithSpacingMin)
	setF(&cfg.ToSunZenithSpacing, ov.ToSunZenithSpacing)
	setF(&cfg.ToSunZenithSpacingMin, ov.ToSunZenithSpacingMin)
	setF(&cfg.RelativeAzimuthSpacing, ov.RelativeAzimuthSpacing)
	setF(&cfg.RelativeAzimuthSpacingMin, ov.RelativeAzimuthSpacingMin)
	setF(&cfg.AerosolSpacing[0], ov.Aerosol0Spacing)
	setF(&cfg.AerosolSpacingMin[0], ov.Aerosol0SpacingMin)
	setR(&cfg.AerosolRange[0], ov.Aerosol0Range)
	setF(&cfg.AerosolSpacing[1], ov.Aerosol1Spacing)
	setF(&cfg.AerosolSpacingMin[1], ov.Aerosol1SpacingMin)
	setR(&cfg.AerosolRange[1], ov.Aerosol1Range)
	setF(&cfg.AerosolSpacing[2], ov.Aerosol2Spacing)
	setF(&cfg.AerosolSpacingMin[2], ov.Aerosol2SpacingMin)
	setR(&cfg.AerosolRange[2], ov.Aerosol2Range)
	setF(&cfg.AOT550Spacing, ov.AOT550Spacing)
	setF(&cfg.AOT550SpacingMin, ov.AOT550SpacingMin)
	setR(&cfg.AOT550Range, ov.AOT550Range)
}

// ElevationGrid builds the elevation dimension grid (kilometers) for the
// observed elevation extent.
func (c Config) ElevationGrid(minElev, maxElev float64) []float64 {
	return Grid(minElev, maxElev, c.ElevationSpacing, c.ElevationSpacingMin)
}

// WaterVaporGrid builds the water vapor dimension grid (g/cm2), clamping the
// extent to the configured valid range.
func (c Config) WaterVaporGrid(minH2O, maxH2O float64) []float64 {
	lo := math.Max(math.Max(minH2O, c.H2OMin), c.H2ORange[0])
	hi := math.Min(maxH2O, c.H2ORange[1])
	return Grid(lo, hi, c.H2OSpacing, c.H2OSpacingMin)
}

// SensorZenithGrid builds the to-sensor zenith grid from raw per-pixel
// angles in degrees.
func (c Config) SensorZenithGrid(angles []float64) []float64 {
	return AngularGrid(angles, c.ToSensorZenithSpacing, c.ToSensorZenithSpacingMin, units.Degrees)
}

// SunZenithGrid builds the to-sun zenith grid from raw per-pixel angles in
// degrees.
func (c Config) SunZenithGrid(angles []float64) []float64 {
	return AngularGrid(angles, c.ToSunZenithSpacing, c.ToSunZenithSpacingMin, units.Degrees)
}

// RelativeAzimuthGrid builds the relative azimuth grid from raw per-pixel
// angles in degrees.
func (c Config) RelativeAzimuthGrid(angles []float64) []float64 {
	return AngularGrid(angles, c.RelativeAzimuthSpacing, c.RelativeAzimuthSpacingMin, units.Degrees)
}

// AerosolGrid builds the grid for aerosol component i over the observed
// load extent, clamped to the configured range.
func (c Config) AerosolGrid(i int, minLoad, maxLoad float64) []float64 {
	if i < 0 || i >= len(c.AerosolSpacing) {
		return nil
	}
	lo := math.Max(minLoad, c.AerosolRange[i][0])
	hi := math.Min(maxLoad, c.AerosolRange[i][1])
	return Grid(lo, hi, c.AerosolSpacing[i], c.AerosolSpacingMin[i])
}
