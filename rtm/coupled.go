package rtm

import "math"

// CoupledTerms holds the radiances along the four sun-to-surface-to-sensor
// optical paths, following the nomenclature of Schaepman-Strub et al. (2006)
// adapted to the remote sensing case:
//
//	bi-directional            (downward direct * upward direct)
//	hemispherical-directional ((downward direct + diffuse) * upward direct)
//	directional-hemispherical (downward direct * upward diffuse)
//	bi-hemispherical          ((downward direct + diffuse) * upward diffuse)
type CoupledTerms struct {
	BiDirect   []float64
	HemiDirect []float64
	DirectHemi []float64
	BiHemi     []float64
}

// coupledRadiances computes the coupled path radiances from the merged
// engine quantities. It is a pure function: every call returns freshly
// allocated slices and no state is retained between calls, so concurrent
// per-pixel evaluation cannot corrupt results.
//
// Engines that do not tabulate all four coupling quantities fall back to a
// degenerate two-term model built from the downward transmittances alone.
// In transmittance mode each tabulated term is scaled to radiance by
// solar_irr*coszen/pi; already-radiance quantities pass through unscaled.
// The two direct terms are then rescaled by cosI/coszen, converting the
// top-of-atmosphere geometric scaling to the local surface slope.
func coupledRadiances(r Quantities, terms []string, mode RadiometricMode, solarIrr []float64, coszen, cosI float64, n int) CoupledTerms {
	out := CoupledTerms{
		BiDirect:   make([]float64, n),
		HemiDirect: make([]float64, n),
		DirectHemi: make([]float64, n),
		BiHemi:     make([]float64, n),
	}

	if degenerateCoupling(r, terms) {
		downDir := r[QuantityTransmDownDir]
		downDif := r[QuantityTransmDownDif]
		for i := 0; i < n; i++ {
			out.BiDirect[i] = downDir[i]
			out.HemiDirect[i] = downDir[i] + downDif[i]
		}
		// DirectHemi and BiHemi stay zero in the degenerate model.
	} else {
		dst := [4][]float64{out.BiDirect, out.HemiDirect, out.DirectHemi, out.BiHemi}
		for k, term := range terms {
			src := r[term]
			if mode == ModeTransmittance {
				for i := 0; i < n; i++ {
					dst[k][i] = solarIrr[i] * coszen / math.Pi * src[i]
				}
			} else {
				copy(dst[k], src)
			}
		}
	}

	// Unscale and rescale the downward-direct paths by the local solar
	// zenith cosine; the diffuse paths are insensitive to surface slope.
	slope := cosI / coszen
	for i := 0; i < n; i++ {
		out.BiDirect[i] *= slope
		out.DirectHemi[i] *= slope
	}

	return out
}

// degenerateCoupling reports whether any declared coupling quantity is
// missing or empty in the merged result, which forces the two-term model.
// Engines declaring anything other than the four canonical terms are also
// treated as degenerate.
func degenerateCoupling(r Quantities, terms []string) bool {
	if len(terms) != 4 {
		return true
	}
	for _, term := range terms {
		if q, ok := r[term]; !ok || len(q) == 0 {
			return true
		}
	}
	return false
}
