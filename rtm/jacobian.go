package rtm

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// fdEps is the finite difference step. It is small relative to the radiance
// scale to bound truncation error while staying above the float64 noise
// floor of the array arithmetic.
const fdEps = 1e-5

// StateNameWaterVapor is the state vector element the water vapor absorption
// unknown perturbs.
const StateNameWaterVapor = "H2OSTR"

// UnknownWaterVaporAbsorption is the single nuisance parameter with a
// modeled radiance sensitivity.
const UnknownWaterVaporAbsorption = "H2O_ABSCO"

// forwardFunc evaluates the forward model at an RT state vector.
type forwardFunc func(xRT []float64) ([]float64, error)

// directionalDerivative is the single forward-difference primitive behind
// every numerically differentiated Jacobian column: it perturbs element i of
// x by delta, re-evaluates f, and returns (f(x+delta*e_i) - base) / step.
// base must be f(x).
func directionalDerivative(f forwardFunc, x, base []float64, i int, delta, step float64) ([]float64, error) {
	perturbed := make([]float64, len(x))
	copy(perturbed, x)
	perturbed[i] += delta

	rdn, err := f(perturbed)
	if err != nil {
		return nil, fmt.Errorf("perturbed forward evaluation for element %d: %w", i, err)
	}

	col := make([]float64, len(base))
	for j := range base {
		col[j] = (rdn[j] - base[j]) / step
	}
	return col, nil
}

// DrdnDRT returns the sensitivity of modeled radiance to the atmospheric RT
// state (K_RT, by forward finite differences) and to the surface state
// (K_surface, analytic via the chain rule).
//
// drflDsurface and dLsDsurface are the externally supplied derivatives of
// surface reflectance and surface emission with respect to the surface state
// vector, both with one row per wavelength. When a glint model is active the
// last two surface columns are replaced by the analytic glint derivatives.
//
// The N+1 forward evaluations behind K_RT are mutually independent and run
// concurrently, one goroutine per state element.
func (rt *RadiativeTransfer) DrdnDRT(
	xRT, xSurface, rflDir, rflDif []float64,
	drflDsurface *mat.Dense,
	Ls []float64,
	dLsDsurface *mat.Dense,
	geom *Geometry,
) (kRT, kSurface *mat.Dense, err error) {
	f := func(x []float64) ([]float64, error) {
		return rt.CalcRdn(x, rflDir, rflDif, Ls, geom)
	}

	base, err := f(xRT)
	if err != nil {
		return nil, nil, err
	}
	nwl := len(base)

	// K_RT by concurrent forward differences.
	nState := len(xRT)
	cols := make([][]float64, nState)
	colErrs := make([]error, nState)

	var wg sync.WaitGroup
	for i := 0; i < nState; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cols[i], colErrs[i] = directionalDerivative(f, xRT, base, i, fdEps, fdEps)
		}(i)
	}
	wg.Wait()
	for _, cerr := range colErrs {
		if cerr != nil {
			return nil, nil, cerr
		}
	}

	kRT = mat.NewDense(nwl, nState, nil)
	for i, col := range cols {
		kRT.SetCol(i, col)
	}

	kSurface, err = rt.kSurface(xRT, xSurface, rflDir, rflDif, drflDsurface, dLsDsurface, geom)
	if err != nil {
		return nil, nil, err
	}
	return kRT, kSurface, nil
}

// kSurface assembles the analytic surface Jacobian.
func (rt *RadiativeTransfer) kSurface(
	xRT, xSurface, rflDir, rflDif []float64,
	drflDsurface, dLsDsurface *mat.Dense,
	geom *Geometry,
) (*mat.Dense, error) {
	coszen := rt.CosZen(geom)
	cosI := coszen
	if geom.CosI != nil {
		cosI = *geom.CosI
	}

	r, err := rt.SharedQuantities(xRT, geom)
	if err != nil {
		return nil, err
	}
	sAlb := r[QuantitySphericalAlbedo]
	upDir := r[QuantityTransmUpDir]
	upDif := r[QuantityTransmUpDif]

	total, dir, dif, err := rt.DownwardRadiance(xRT, geom)
	if err != nil {
		return nil, err
	}

	// The downward direct radiance comes scaled by the top-of-atmosphere
	// solar zenith cosine; unscale and rescale for the local surface slope.
	nwl := len(dir)
	for i := 0; i < nwl; i++ {
		dir[i] = dir[i] / coszen * cosI
	}

	// Sky glint for water surfaces, driven by the last two surface state
	// elements (direct and diffuse glint factors).
	glint := make([]float64, nwl)
	if rt.glintModel {
		gDir := xSurface[len(xSurface)-2]
		gDif := xSurface[len(xSurface)-1]
		for i := 0; i < nwl; i++ {
			lSky := gDir*dir[i] + gDif*dif[i]
			glint[i] = FresnelNadirReflectance * (lSky / total[i])
		}
	}

	nwlRfl, nSurface := drflDsurface.Dims()
	if nwlRfl != nwl {
		return nil, fmt.Errorf("drfl/dsurface row mismatch: expected=%d, got=%d", nwl, nwlRfl)
	}

	drdnDrfl := make([]float64, nwl)
	drdnDLs := make([]float64, nwl)
	denom := make([]float64, nwl)
	for i := 0; i < nwl; i++ {
		bg := rflDir[i] + glint[i]
		if geom.BgRfl != nil {
			bg = *geom.BgRfl
		}
		denom[i] = 1.0 - sAlb[i]*bg
		drdnDrfl[i] = (dir[i] + dif[i]) / denom[i] * upDir[i]
		drdnDLs[i] = upDir[i] + upDif[i]
	}

	kSurface := mat.NewDense(nwl, nSurface, nil)
	for i := 0; i < nwl; i++ {
		for j := 0; j < nSurface; j++ {
			kSurface.Set(i, j,
				drdnDrfl[i]*drflDsurface.At(i, j)+drdnDLs[i]*dLsDsurface.At(i, j))
		}
	}

	if rt.glintModel {
		gddCol := make([]float64, nwl)
		gdsfCol := make([]float64, nwl)
		for i := 0; i < nwl; i++ {
			up := upDir[i] + upDif[i]
			gddCol[i] = dir[i] * up / denom[i]
			gdsfCol[i] = dif[i] * up / denom[i]
		}
		kSurface.SetCol(nSurface-2, gddCol)
		kSurface.SetCol(nSurface-1, gdsfCol)
	}

	return kSurface, nil
}

// DrdnDRTb returns the sensitivity of modeled radiance to the declared
// nuisance parameters (the Rodgers K_b matrix), one column per unknown, by
// one-sided relative finite differences.
//
// Only the water vapor absorption unknown has a modeled sensitivity, and
// only when water vapor is part of the state vector; any other declared
// unknown yields an all-zero column. This is documented incompleteness, not
// a defect. An empty unknowns list yields a nil matrix.
func (rt *RadiativeTransfer) DrdnDRTb(xRT, rflDir, rflDif, Ls []float64, geom *Geometry) (*mat.Dense, error) {
	if len(rt.bvec) == 0 {
		return nil, nil
	}

	h2oIdx := -1
	for i, name := range rt.statevecNames {
		if name == StateNameWaterVapor {
			h2oIdx = i
			break
		}
	}

	nwl := len(rt.wl)
	kb := mat.NewDense(nwl, len(rt.bvec), nil)

	var base []float64
	for j, unknown := range rt.bvec {
		if unknown != UnknownWaterVaporAbsorption || h2oIdx < 0 {
			continue // column stays zero
		}

		f := func(x []float64) ([]float64, error) {
			return rt.CalcRdn(x, rflDir, rflDif, Ls, geom)
		}
		if base == nil {
			var err error
			base, err = f(xRT)
			if err != nil {
				return nil, err
			}
		}

		// Relative perturbation: x*(1+eps) is x + x*eps along this element.
		col, err := directionalDerivative(f, xRT, base, h2oIdx, xRT[h2oIdx]*fdEps, fdEps)
		if err != nil {
			return nil, err
		}
		kb.SetCol(j, col)
	}

	return kb, nil
}
