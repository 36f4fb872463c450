// Package sgp4 implements the SGP4/SDP4 analytic orbit propagator for
// two-line element sets, including the deep-space lunar-solar and
// geopotential resonance terms.
//
// A Satellite is immutable once built by New; Propagate can be called from
// any number of goroutines concurrently.
package sgp4

import (
	"math"

	"github.com/Psnastudent/sgp4-service/internal/timeconv"
	"github.com/Psnastudent/sgp4-service/internal/tle"
)

const (
	twoPi = 2.0 * math.Pi
	x2o3  = 2.0 / 3.0
	temp4 = 1.5e-12

	// DeepSpacePeriod is the orbital period, in minutes, at and above which
	// the deep-space (SDP4) terms are applied.
	DeepSpacePeriod = 225.0

	// jd1950 converts a Julian date to days since 1950 January 0.0.
	jd1950 = 2433281.5
)

// Satellite holds an initialized element set. Build it with New.
type Satellite struct {
	grav   Gravity
	satnum string
	epoch  timeconv.JulianDate

	// Mean elements at epoch.
	bstar, ecco, argpo, inclo, mo, nodeo float64
	noKozai, noUnkozai                   float64

	// Derived at initialization.
	a, altp, alta float64
	gsto          float64
	isimp         bool

	aycof, con41, cc1, cc4, cc5, d2, d3, d4 float64
	delmo, eta, argpdot, omgcof, sinmao     float64
	t2cof, t3cof, t4cof, t5cof              float64
	x1mth2, x7thm1, mdot, nodedot           float64
	xlcof, xmcof, nodecf                    float64

	deep *deepSpace
}

// New initializes the model for el using the given gravity constants and
// evaluates it once at epoch. An element set that cannot be evaluated at
// its own epoch is rejected with an *Error.
func New(el *tle.Elements, grav Gravity) (*Satellite, error) {
	s := &Satellite{
		grav:    grav,
		satnum:  el.SatNum,
		epoch:   el.Epoch,
		bstar:   el.BStar,
		ecco:    el.Eccentricity,
		argpo:   el.ArgPerigee,
		inclo:   el.Inclination,
		mo:      el.MeanAnomaly,
		nodeo:   el.RAAN,
		noKozai: el.MeanMotion,
	}
	s.init()

	if _, err := s.Propagate(0); err != nil {
		return nil, err
	}
	return s, nil
}

// init computes the secular and drag coefficients for the element set.
func (s *Satellite) init() {
	g := s.grav
	re := g.RadiusEarthKm

	ss := 78.0/re + 1.0
	qzms2ttemp := (120.0 - 78.0) / re
	qzms2t := qzms2ttemp * qzms2ttemp * qzms2ttemp * qzms2ttemp

	// Days since 1950 January 0.0, used by the lunar-solar terms.
	epoch := (s.epoch.Day - jd1950) + s.epoch.Fraction

	// Recover the original (un-Kozai) mean motion and semi-major axis.
	eccsq := s.ecco * s.ecco
	omeosq := 1.0 - eccsq
	rteosq := math.Sqrt(omeosq)
	cosio := math.Cos(s.inclo)
	cosio2 := cosio * cosio

	ak := math.Pow(g.Xke/s.noKozai, x2o3)
	d1 := 0.75 * g.J2 * (3.0*cosio2 - 1.0) / (rteosq * omeosq)
	del := d1 / (ak * ak)
	adel := ak * (1.0 - del*del - del*(1.0/3.0+134.0*del*del/81.0))
	del = d1 / (adel * adel)
	s.noUnkozai = s.noKozai / (1.0 + del)

	ao := math.Pow(g.Xke/s.noUnkozai, x2o3)
	sinio := math.Sin(s.inclo)
	po := ao * omeosq
	con42 := 1.0 - 5.0*cosio2
	s.con41 = -con42 - cosio2 - cosio2
	posq := po * po
	rp := ao * (1.0 - s.ecco)
	s.gsto = GSTime(s.epoch.Day + s.epoch.Fraction)

	s.a = math.Pow(s.noUnkozai*g.Tumin, -x2o3)
	s.alta = s.a*(1.0+s.ecco) - 1.0
	s.altp = s.a*(1.0-s.ecco) - 1.0

	// Very low perigees use the simplified drag model.
	s.isimp = rp < 220.0/re+1.0

	sfour := ss
	qzms24 := qzms2t
	perige := (rp - 1.0) * re
	if perige < 156.0 {
		sfour = perige - 78.0
		if perige < 98.0 {
			sfour = 20.0
		}
		qzms24temp := (120.0 - sfour) / re
		qzms24 = qzms24temp * qzms24temp * qzms24temp * qzms24temp
		sfour = sfour/re + 1.0
	}
	pinvsq := 1.0 / posq

	tsi := 1.0 / (ao - sfour)
	s.eta = ao * s.ecco * tsi
	etasq := s.eta * s.eta
	eeta := s.ecco * s.eta
	psisq := math.Abs(1.0 - etasq)
	coef := qzms24 * math.Pow(tsi, 4.0)
	coef1 := coef / math.Pow(psisq, 3.5)
	cc2 := coef1 * s.noUnkozai * (ao*(1.0+1.5*etasq+eeta*(4.0+etasq)) +
		0.375*g.J2*tsi/psisq*s.con41*(8.0+3.0*etasq*(8.0+etasq)))
	s.cc1 = s.bstar * cc2
	cc3 := 0.0
	if s.ecco > 1.0e-4 {
		cc3 = -2.0 * coef * tsi * g.J3OJ2 * s.noUnkozai * sinio / s.ecco
	}
	s.x1mth2 = 1.0 - cosio2
	s.cc4 = 2.0 * s.noUnkozai * coef1 * ao * omeosq *
		(s.eta*(2.0+0.5*etasq) + s.ecco*(0.5+2.0*etasq) -
			g.J2*tsi/(ao*psisq)*(-3.0*s.con41*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
				0.75*s.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*math.Cos(2.0*s.argpo)))
	s.cc5 = 2.0 * coef1 * ao * omeosq * (1.0 + 2.75*(etasq+eeta) + eeta*etasq)

	cosio4 := cosio2 * cosio2
	temp1 := 1.5 * g.J2 * pinvsq * s.noUnkozai
	temp2 := 0.5 * temp1 * g.J2 * pinvsq
	temp3 := -0.46875 * g.J4 * pinvsq * pinvsq * s.noUnkozai
	s.mdot = s.noUnkozai + 0.5*temp1*rteosq*s.con41 +
		0.0625*temp2*rteosq*(13.0-78.0*cosio2+137.0*cosio4)
	s.argpdot = -0.5*temp1*con42 + 0.0625*temp2*(7.0-114.0*cosio2+395.0*cosio4) +
		temp3*(3.0-36.0*cosio2+49.0*cosio4)
	xhdot1 := -temp1 * cosio
	s.nodedot = xhdot1 + (0.5*temp2*(4.0-19.0*cosio2)+2.0*temp3*(3.0-7.0*cosio2))*cosio
	xpidot := s.argpdot + s.nodedot
	s.omgcof = s.bstar * cc3 * math.Cos(s.argpo)
	if s.ecco > 1.0e-4 {
		s.xmcof = -x2o3 * coef * s.bstar / eeta
	}
	s.nodecf = 3.5 * omeosq * xhdot1 * s.cc1
	s.t2cof = 1.5 * s.cc1
	s.xlcof = longPeriodCoefficient(g.J3OJ2, sinio, cosio)
	s.aycof = -0.5 * g.J3OJ2 * sinio
	delmotemp := 1.0 + s.eta*math.Cos(s.mo)
	s.delmo = delmotemp * delmotemp * delmotemp
	s.sinmao = math.Sin(s.mo)
	s.x7thm1 = 7.0*cosio2 - 1.0

	if twoPi/s.noUnkozai >= DeepSpacePeriod {
		s.isimp = true
		s.deep = newDeepSpace(s, epoch, eccsq, xpidot)
		return
	}

	if !s.isimp {
		cc1sq := s.cc1 * s.cc1
		s.d2 = 4.0 * ao * tsi * cc1sq
		temp := s.d2 * tsi * s.cc1 / 3.0
		s.d3 = (17.0*ao + sfour) * temp
		s.d4 = 0.5 * temp * ao * tsi * (221.0*ao + 31.0*sfour) * s.cc1
		s.t3cof = s.d2 + 2.0*cc1sq
		s.t4cof = 0.25 * (3.0*s.d3 + s.cc1*(12.0*s.d2+10.0*cc1sq))
		s.t5cof = 0.2 * (3.0*s.d4 + 12.0*s.cc1*s.d3 + 6.0*s.d2*s.d2 + 15.0*cc1sq*(2.0*s.d2+cc1sq))
	}
}

// longPeriodCoefficient is the L coefficient of the long-period periodics,
// guarded against the 180 degree inclination singularity.
func longPeriodCoefficient(j3oj2, sini, cosi float64) float64 {
	den := 1.0 + cosi
	if math.Abs(den) <= temp4 {
		den = temp4
	}
	return -0.25 * j3oj2 * sini * (3.0 + 5.0*cosi) / den
}

// GSTime returns the Greenwich mean sidereal time in radians for a UT1
// Julian date (IAU-82).
func GSTime(jdut1 float64) float64 {
	tut1 := (jdut1 - 2451545.0) / 36525.0
	temp := -6.2e-6*tut1*tut1*tut1 + 0.093104*tut1*tut1 +
		(876600.0*3600+8640184.812866)*tut1 + 67310.54841 // seconds
	temp = math.Mod(temp*(math.Pi/180.0)/240.0, twoPi)
	if temp < 0.0 {
		temp += twoPi
	}
	return temp
}

// SatNum returns the catalog number as printed in the element set.
func (s *Satellite) SatNum() string { return s.satnum }

// Epoch returns the element set epoch.
func (s *Satellite) Epoch() timeconv.JulianDate { return s.epoch }

// DeepSpace reports whether the deep-space terms are in use.
func (s *Satellite) DeepSpace() bool { return s.deep != nil }

// Resonance returns the geopotential resonance class: 0 for none, 1 for
// synchronous (24 h) orbits and 2 for half-day (12 h) orbits.
func (s *Satellite) Resonance() int {
	if s.deep == nil {
		return 0
	}
	return s.deep.irez
}

// Period returns the orbital period in minutes from the recovered mean motion.
func (s *Satellite) Period() float64 { return twoPi / s.noUnkozai }

// MeanMotion returns the recovered (un-Kozai) mean motion in rad/min.
func (s *Satellite) MeanMotion() float64 { return s.noUnkozai }

// SemiMajorAxis returns the recovered semi-major axis in earth radii.
func (s *Satellite) SemiMajorAxis() float64 { return s.a }

// PerigeeAltitude returns the perigee height above the reference radius in km.
func (s *Satellite) PerigeeAltitude() float64 { return s.altp * s.grav.RadiusEarthKm }

// ApogeeAltitude returns the apogee height above the reference radius in km.
func (s *Satellite) ApogeeAltitude() float64 { return s.alta * s.grav.RadiusEarthKm }

// Gravity returns the constants the model was built with.
func (s *Satellite) Gravity() Gravity { return s.grav }
