// Package transform provides coordinate frame transformations for propagated
// state vectors.
//
// SGP4 outputs positions in TEME (True Equator Mean Equinox). The Earth-fixed
// transform is a simplified Vallado-style rotation using GMST only
// (TEME → PEF ≈ ECEF). It ignores polar motion and the equation of the
// equinoxes, which introduces ~50m error at most.
//
// All distances in this package are kilometres.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"

	"github.com/Psnastudent/sgp4-service/internal/sgp4"
	"github.com/Psnastudent/sgp4-service/internal/timeconv"
)

// TEMEToECEF transforms a TEME state (km, km/s) to ECEF at the given date.
func TEMEToECEF(teme sgp4.StateVector, jd timeconv.JulianDate) sgp4.StateVector {
	return TEMEToECEFWithGMST(teme, GMST(jd))
}

// TEMEToECEFWithGMST transforms TEME to ECEF using a precomputed GMST angle (radians).
// A batch evaluated at one time computes GMST once and reuses it.
//
// Position transform: r_ECEF = R3(θ) * r_TEME
// Velocity transform: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
//
// where R3(θ) is a rotation about the Z-axis by angle θ (GMST),
// and ω = [0, 0, ω_earth] is Earth's angular velocity vector.
func TEMEToECEFWithGMST(teme sgp4.StateVector, gmst float64) sgp4.StateVector {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	xECEF := teme.X*cosG + teme.Y*sinG
	yECEF := -teme.X*sinG + teme.Y*cosG

	// ω × r_ECEF = [-ω*y_ECEF, ω*x_ECEF, 0]
	vxRot := teme.VX*cosG + teme.VY*sinG
	vyRot := -teme.VX*sinG + teme.VY*cosG

	return sgp4.StateVector{
		X:  xECEF,
		Y:  yECEF,
		Z:  teme.Z,
		VX: vxRot + OmegaEarth*yECEF,
		VY: vyRot - OmegaEarth*xECEF,
		VZ: teme.VZ,
	}
}

// ValidRadius checks that a position is physically reasonable for an
// Earth-orbiting object: finite and between 6200 km and 500000 km from the
// geocentre. Deep-space element sets can legitimately reach lunar distance.
func ValidRadius(sv sgp4.StateVector) bool {
	for _, c := range sv.Position() {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	const (
		minRadius = 6200.0
		maxRadius = 500000.0
	)
	r := sv.Radius()
	return r >= minRadius && r <= maxRadius
}
