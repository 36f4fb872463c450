package sgp4

import (
	"math"

	"github.com/Psnastudent/sgp4-service/internal/timeconv"
)

const (
	keplerMaxIter = 10
	keplerTol     = 1.0e-12
	// keplerFailTol is the size of the last Newton step above which the
	// solution is rejected rather than accepted as converged enough.
	keplerFailTol = 1.0e-6
)

// StateVector is a TEME position in km and velocity in km/s.
type StateVector struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// Position returns the position components.
func (sv StateVector) Position() [3]float64 { return [3]float64{sv.X, sv.Y, sv.Z} }

// Velocity returns the velocity components.
func (sv StateVector) Velocity() [3]float64 { return [3]float64{sv.VX, sv.VY, sv.VZ} }

// Radius returns the distance from the Earth's center in km.
func (sv StateVector) Radius() float64 { return math.Sqrt(sv.X*sv.X + sv.Y*sv.Y + sv.Z*sv.Z) }

// Speed returns the velocity magnitude in km/s.
func (sv StateVector) Speed() float64 { return math.Sqrt(sv.VX*sv.VX + sv.VY*sv.VY + sv.VZ*sv.VZ) }

// MeanElements are the singly averaged mean elements at a propagation time.
type MeanElements struct {
	SemiMajorAxis float64 // earth radii
	Eccentricity  float64
	Inclination   float64 // rad
	RAAN          float64 // rad
	ArgPerigee    float64 // rad
	MeanAnomaly   float64 // rad
	MeanMotion    float64 // rad/min
}

// PropagateAt evaluates the model at the given date.
func (s *Satellite) PropagateAt(jd timeconv.JulianDate) (StateVector, error) {
	return s.Propagate(jd.MinutesSince(s.epoch))
}

// Propagate evaluates the model tsince minutes after epoch. On failure the
// returned error is an *Error carrying one of the ErrorCode values.
func (s *Satellite) Propagate(tsince float64) (StateVector, error) {
	sv, _, err := s.propagate(tsince)
	return sv, err
}

// MeanElementsAt returns the mean elements after the secular and resonance
// updates at tsince, before periodic corrections.
func (s *Satellite) MeanElementsAt(tsince float64) (MeanElements, error) {
	_, me, err := s.propagate(tsince)
	return me, err
}

func (s *Satellite) propagate(t float64) (StateVector, MeanElements, error) {
	g := s.grav
	vkmpersec := g.RadiusEarthKm * g.Xke / 60.0

	// Secular gravity and atmospheric drag.
	xmdf := s.mo + s.mdot*t
	argpdf := s.argpo + s.argpdot*t
	nodedf := s.nodeo + s.nodedot*t
	argpm := argpdf
	mm := xmdf
	t2 := t * t
	nodem := nodedf + s.nodecf*t2
	tempa := 1.0 - s.cc1*t
	tempe := s.bstar * s.cc4 * t
	templ := s.t2cof * t2

	if !s.isimp {
		delomg := s.omgcof * t
		delmtemp := 1.0 + s.eta*math.Cos(xmdf)
		delm := s.xmcof * (delmtemp*delmtemp*delmtemp - s.delmo)
		temp := delomg + delm
		mm = xmdf + temp
		argpm = argpdf - temp
		t3 := t2 * t
		t4 := t3 * t
		tempa = tempa - s.d2*t2 - s.d3*t3 - s.d4*t4
		tempe += s.bstar * s.cc5 * (math.Sin(mm) - s.sinmao)
		templ += s.t3cof*t3 + t4*(s.t4cof+t*s.t5cof)
	}

	nm := s.noUnkozai
	em := s.ecco
	inclm := s.inclo
	if s.deep != nil {
		em, argpm, inclm, mm, nodem, nm = s.deep.secular(s, t, em, argpm, inclm, mm, nodem)
	}

	if nm <= 0.0 {
		return StateVector{}, MeanElements{}, &Error{Code: OrbitDecayed, Tsince: t, Value: nm}
	}

	am := math.Pow(g.Xke/nm, x2o3) * tempa * tempa
	nm = g.Xke / math.Pow(am, 1.5)
	em -= tempe

	if em >= 1.0 || em < -0.001 {
		return StateVector{}, MeanElements{}, &Error{Code: EccentricityOutOfBounds, Tsince: t, Value: em}
	}
	if em < 1.0e-6 {
		em = 1.0e-6
	}
	mm += s.noUnkozai * templ
	xlm := mm + argpm + nodem

	nodem = math.Mod(nodem, twoPi)
	argpm = math.Mod(argpm, twoPi)
	xlm = math.Mod(xlm, twoPi)
	mm = math.Mod(xlm-argpm-nodem, twoPi)

	mean := MeanElements{
		SemiMajorAxis: am,
		Eccentricity:  em,
		Inclination:   inclm,
		RAAN:          nodem,
		ArgPerigee:    argpm,
		MeanAnomaly:   mm,
		MeanMotion:    nm,
	}

	sinim := math.Sin(inclm)
	cosim := math.Cos(inclm)

	// Lunar-solar periodics.
	ep := em
	xincp := inclm
	argpp := argpm
	nodep := nodem
	mp := mm
	sinip := sinim
	cosip := cosim

	aycof, xlcof := s.aycof, s.xlcof
	con41, x1mth2, x7thm1 := s.con41, s.x1mth2, s.x7thm1

	if s.deep != nil {
		ep, xincp, nodep, argpp, mp = s.deep.periodics(t, ep, xincp, nodep, argpp, mp)
		if xincp < 0.0 {
			xincp = -xincp
			nodep += math.Pi
			argpp -= math.Pi
		}
		if ep < 0.0 || ep > 1.0 {
			return StateVector{}, mean, &Error{Code: EccentricityOutOfBounds, Tsince: t, Value: ep}
		}

		sinip = math.Sin(xincp)
		cosip = math.Cos(xincp)
		aycof = -0.5 * g.J3OJ2 * sinip
		xlcof = longPeriodCoefficient(g.J3OJ2, sinip, cosip)
	}

	// Long-period periodics.
	axnl := ep * math.Cos(argpp)
	temp := 1.0 / (am * (1.0 - ep*ep))
	aynl := ep*math.Sin(argpp) + temp*aycof
	xl := mp + argpp + nodep + temp*xlcof*axnl

	// Kepler's equation.
	u := math.Mod(xl-nodep, twoPi)
	eo1 := u
	tem5 := 9999.9
	var sineo1, coseo1 float64
	for ktr := 1; math.Abs(tem5) >= keplerTol && ktr <= keplerMaxIter; ktr++ {
		sineo1 = math.Sin(eo1)
		coseo1 = math.Cos(eo1)
		tem5 = 1.0 - coseo1*axnl - sineo1*aynl
		tem5 = (u - aynl*coseo1 + axnl*sineo1 - eo1) / tem5
		if math.Abs(tem5) >= 0.95 {
			if tem5 > 0.0 {
				tem5 = 0.95
			} else {
				tem5 = -0.95
			}
		}
		eo1 += tem5
	}
	if !(math.Abs(tem5) < keplerFailTol) {
		return StateVector{}, mean, &Error{Code: KeplerNonConvergence, Tsince: t, Value: tem5}
	}

	// Short-period preliminary quantities.
	ecose := axnl*coseo1 + aynl*sineo1
	esine := axnl*sineo1 - aynl*coseo1
	el2 := axnl*axnl + aynl*aynl
	pl := am * (1.0 - el2)
	if pl < 0.0 {
		return StateVector{}, mean, &Error{Code: NegativeSemiLatusRectum, Tsince: t, Value: pl}
	}

	rl := am * (1.0 - ecose)
	rdotl := math.Sqrt(am) * esine / rl
	rvdotl := math.Sqrt(pl) / rl
	betal := math.Sqrt(1.0 - el2)
	temp = esine / (1.0 + betal)
	sinu := am / rl * (sineo1 - aynl - axnl*temp)
	cosu := am / rl * (coseo1 - axnl + aynl*temp)
	su := math.Atan2(sinu, cosu)
	sin2u := (cosu + cosu) * sinu
	cos2u := 1.0 - 2.0*sinu*sinu
	temp = 1.0 / pl
	temp1 := 0.5 * g.J2 * temp
	temp2 := temp1 * temp

	if s.deep != nil {
		cosisq := cosip * cosip
		con41 = 3.0*cosisq - 1.0
		x1mth2 = 1.0 - cosisq
		x7thm1 = 7.0*cosisq - 1.0
	}

	// Short-period periodics.
	mrt := rl*(1.0-1.5*temp2*betal*con41) + 0.5*temp1*x1mth2*cos2u
	su -= 0.25 * temp2 * x7thm1 * sin2u
	xnode := nodep + 1.5*temp2*cosip*sin2u
	xinc := xincp + 1.5*temp2*cosip*sinip*cos2u
	mvt := rdotl - nm*temp1*x1mth2*sin2u/g.Xke
	rvdot := rvdotl + nm*temp1*(x1mth2*cos2u+1.5*con41)/g.Xke

	if mrt < 1.0 {
		return StateVector{}, mean, &Error{Code: SubsurfaceOrbit, Tsince: t, Value: mrt}
	}

	// Orientation vectors.
	sinsu := math.Sin(su)
	cossu := math.Cos(su)
	snod := math.Sin(xnode)
	cnod := math.Cos(xnode)
	sini := math.Sin(xinc)
	cosi := math.Cos(xinc)
	xmx := -snod * cosi
	xmy := cnod * cosi
	ux := xmx*sinsu + cnod*cossu
	uy := xmy*sinsu + snod*cossu
	uz := sini * sinsu
	vx := xmx*cossu - cnod*sinsu
	vy := xmy*cossu - snod*sinsu
	vz := sini * cossu

	mr := mrt * g.RadiusEarthKm
	return StateVector{
		X:  mr * ux,
		Y:  mr * uy,
		Z:  mr * uz,
		VX: (mvt*ux + rvdot*vx) * vkmpersec,
		VY: (mvt*uy + rvdot*vy) * vkmpersec,
		VZ: (mvt*uz + rvdot*vz) * vkmpersec,
	}, mean, nil
}
