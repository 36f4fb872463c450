package sgp4

import "fmt"

// ErrorCode classifies a propagation failure. The numeric values of the
// first codes follow the classic SGP4 error numbers.
type ErrorCode int

const (
	// EccentricityOutOfBounds: mean or perturbed eccentricity left [0, 1).
	EccentricityOutOfBounds ErrorCode = 1
	// OrbitDecayed: the drag-updated mean motion became non-positive.
	OrbitDecayed ErrorCode = 2
	// NegativeSemiLatusRectum: the osculating orbit is unphysical.
	NegativeSemiLatusRectum ErrorCode = 4
	// SubsurfaceOrbit: the computed radius is below the Earth's surface.
	SubsurfaceOrbit ErrorCode = 6
	// KeplerNonConvergence: Kepler's equation did not converge.
	KeplerNonConvergence ErrorCode = 7
)

// String returns the stable snake_case name of the code.
func (c ErrorCode) String() string {
	switch c {
	case EccentricityOutOfBounds:
		return "eccentricity_out_of_bounds"
	case OrbitDecayed:
		return "orbit_decayed"
	case NegativeSemiLatusRectum:
		return "negative_semi_latus_rectum"
	case SubsurfaceOrbit:
		return "subsurface_orbit"
	case KeplerNonConvergence:
		return "kepler_non_convergence"
	}
	return fmt.Sprintf("sgp4_error_%d", int(c))
}

// Error is returned when the model cannot produce a state vector.
type Error struct {
	Code   ErrorCode
	Tsince float64 // minutes since epoch
	Value  float64 // the quantity that violated the limit
}

func (e *Error) Error() string {
	var what string
	switch e.Code {
	case EccentricityOutOfBounds:
		what = "eccentricity out of bounds"
	case OrbitDecayed:
		what = "mean motion non-positive, orbit decayed"
	case NegativeSemiLatusRectum:
		what = "semi-latus rectum negative"
	case SubsurfaceOrbit:
		what = "satellite below the Earth's surface"
	case KeplerNonConvergence:
		what = "kepler equation did not converge"
	default:
		what = "model failure"
	}
	return fmt.Sprintf("sgp4: %s at tsince %.3f min (value %.6g)", what, e.Tsince, e.Value)
}

// Is matches another *Error with the same code, so callers can test
// errors.Is(err, &sgp4.Error{Code: sgp4.OrbitDecayed}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrorCode returns the stable code used in API responses.
func (e *Error) ErrorCode() string { return e.Code.String() }
