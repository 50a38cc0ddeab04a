package rtm

// StateVectorElement describes one retrieved scalar parameter: its bounds,
// scaling, initial guess, and Gaussian prior.
type StateVectorElement struct {
	Name       string     `json:"name"`
	Bounds     [2]float64 `json:"bounds"`
	Scale      float64    `json:"scale"`
	Init       float64    `json:"init"`
	PriorMean  float64    `json:"prior_mean"`
	PriorSigma float64    `json:"prior_sigma"`
}

// StateVectorConfig is the ordered set of retrieved radiative transfer
// parameters. Each element has an associated dimension in the LUT grid.
type StateVectorConfig struct {
	Elements []StateVectorElement `json:"elements"`
}

// Names returns the element names in state vector order.
func (c StateVectorConfig) Names() []string {
	names := make([]string, len(c.Elements))
	for i, e := range c.Elements {
		names[i] = e.Name
	}
	return names
}

// Unknown is a nuisance parameter modeled as a random variable rather than
// retrieved, per the Rodgers (2000) K_b formulation.
type Unknown struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// LayeredParams holds the engine parameters that may be specified at engine,
// instrument, or global level. Fields are pointers so an unset field defers
// to the next layer down.
type LayeredParams struct {
	InterpolatorStyle     *string `json:"interpolator_style,omitempty"`
	OverwriteInterpolator *bool   `json:"overwrite_interpolator,omitempty"`
	LUTGrid               *string `json:"lut_grid,omitempty"`
	LUTPath               *string `json:"lut_path,omitempty"`
	WavelengthFile        *string `json:"wavelength_file,omitempty"`
}

// EngineParams is the fully resolved parameter set handed to an engine
// constructor.
type EngineParams struct {
	InterpolatorStyle     string
	OverwriteInterpolator bool
	LUTGrid               string
	LUTPath               string
	WavelengthFile        string
}

// ResolveEngineParams merges parameter layers in priority order: the first
// layer carrying a non-nil value for a field wins. Callers pass the engine
// layer first, then the instrument layer, then the global layer. Nil layers
// are skipped.
func ResolveEngineParams(layers ...*LayeredParams) EngineParams {
	var out EngineParams
	var haveStyle, haveOverwrite, haveGrid, havePath, haveWl bool
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if !haveStyle && layer.InterpolatorStyle != nil {
			out.InterpolatorStyle = *layer.InterpolatorStyle
			haveStyle = true
		}
		if !haveOverwrite && layer.OverwriteInterpolator != nil {
			out.OverwriteInterpolator = *layer.OverwriteInterpolator
			haveOverwrite = true
		}
		if !haveGrid && layer.LUTGrid != nil {
			out.LUTGrid = *layer.LUTGrid
			haveGrid = true
		}
		if !havePath && layer.LUTPath != nil {
			out.LUTPath = *layer.LUTPath
			havePath = true
		}
		if !haveWl && layer.WavelengthFile != nil {
			out.WavelengthFile = *layer.WavelengthFile
			haveWl = true
		}
	}
	return out
}

// EngineConfig configures one radiative transfer engine instance.
type EngineConfig struct {
	// Name selects the engine backend; must be one of SupportedEngineNames.
	Name string `json:"engine_name"`

	LayeredParams

	// Options carries engine-specific settings (emulator files, template
	// paths) that only the selected backend interprets.
	Options map[string]string `json:"options,omitempty"`
}

// InstrumentConfig is the instrument section of the forward model
// configuration. Only its layered engine parameters matter to this package.
type InstrumentConfig struct {
	LayeredParams
}

// Config is the radiative transfer section of the forward model
// configuration.
type Config struct {
	LayeredParams

	Statevector StateVectorConfig `json:"statevector"`
	Unknowns    []Unknown         `json:"unknowns,omitempty"`
	Engines     []EngineConfig    `json:"radiative_transfer_engines"`
}
