package sgp4

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Gravity holds the Earth model constants used by the propagator.
// TLEs are generated against WGS-72, which is the default.
type Gravity struct {
	Name          string
	Mu            float64 // km^3/s^2
	RadiusEarthKm float64 // km
	Xke           float64 // sqrt(mu/re^3), per minute
	Tumin         float64 // minutes per time unit
	J2, J3, J4    float64
	J3OJ2         float64
}

func newGravity(name string, mu, re, j2, j3, j4 float64) Gravity {
	xke := 60.0 / math.Sqrt(re*re*re/mu)
	return Gravity{
		Name:          name,
		Mu:            mu,
		RadiusEarthKm: re,
		Xke:           xke,
		Tumin:         1.0 / xke,
		J2:            j2,
		J3:            j3,
		J4:            j4,
		J3OJ2:         j3 / j2,
	}
}

var (
	// WGS72 is the model the NORAD element sets are fitted with.
	WGS72 = newGravity("wgs72", 398600.8, 6378.135, 0.001082616, -0.00000253881, -0.00000165597)

	// WGS72Old uses the truncated xke of the original 1980 code.
	WGS72Old = func() Gravity {
		g := newGravity("wgs72old", 398600.79964, 6378.135, 0.001082616, -0.00000253881, -0.00000165597)
		g.Xke = 0.0743669161
		g.Tumin = 1.0 / g.Xke
		return g
	}()

	// WGS84 is provided for comparison; it is not what TLEs are fitted with.
	WGS84 = newGravity("wgs84", 398600.5, 6378.137, 0.00108262998905, -0.00000253215306, -0.00000161098761)
)

// GravityByName looks up a gravity model by name (case-insensitive).
func GravityByName(name string) (Gravity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "wgs72":
		return WGS72, nil
	case "wgs72old":
		return WGS72Old, nil
	case "wgs84":
		return WGS84, nil
	}
	return Gravity{}, errors.Errorf("unknown gravity model %q (want wgs72, wgs72old or wgs84)", name)
}
