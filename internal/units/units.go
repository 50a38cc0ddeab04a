// Package units provides shared constants and conversions for angular units
package units

import "math"

// Unit constants
const (
	Degrees = "deg"
	Radians = "rad"
)

// ValidUnits contains all valid angular unit values
var ValidUnits = []string{Degrees, Radians}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "deg, rad"
}

// DegToRad converts an angle from degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RadToDeg converts an angle from radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// ToDegrees converts an angle in the given unit to degrees.
// Observation geometry is stored in degrees; unknown units pass through
// unchanged, matching ConvertAngle.
func ToDegrees(angle float64, unit string) float64 {
	if unit == Radians {
		return RadToDeg(angle)
	}
	return angle
}

// ConvertAngle converts an angle in degrees to the target units.
func ConvertAngle(angleDeg float64, targetUnits string) float64 {
	switch targetUnits {
	case Radians:
		return DegToRad(angleDeg)
	case Degrees:
		return angleDeg
	default:
		return angleDeg // default to degrees if unknown unit
	}
}
