package rtm

import "math"

// FresnelNadirReflectance is the sky radiance reflectance factor at nadir
// view. FresnelReflectance converges to this value as the view zenith angle
// approaches zero.
const FresnelNadirReflectance = 0.02

// waterRefractiveIndex is the refractive index of water used in the Fresnel
// calculation.
const waterRefractiveIndex = 1.33

// FresnelReflectance calculates the reflectance factor of sky radiance for
// unpolarized light as a function of view zenith angle (degrees), based on
// the Fresnel equation with refraction by Snell's law.
func FresnelReflectance(vza float64) float64 {
	if vza <= 0.0 {
		return FresnelNadirReflectance
	}

	theta := vza * math.Pi / 180.0
	thetaI := math.Asin(math.Sin(theta) / waterRefractiveIndex)

	sinRatio := math.Pow(math.Sin(theta-thetaI), 2) / math.Pow(math.Sin(theta+thetaI), 2)
	tanRatio := math.Pow(math.Tan(theta-thetaI), 2) / math.Pow(math.Tan(theta+thetaI), 2)

	return 0.5 * math.Abs(sinRatio+tanRatio)
}

// Ext550ToVis converts a surface aerosol extinction coefficient at 550 nm
// (km^-1) to MODTRAN visibility: VIS[km] = ln(50) / (EXT550 + 0.01159),
// where 0.01159 is the surface Rayleigh scattering coefficient at 550 nm in
// km^-1 (MODTRAN6 manual, p. 50).
func Ext550ToVis(ext550 float64) float64 {
	return math.Log(50.0) / (ext550 + 0.01159)
}
