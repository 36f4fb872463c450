package propagation

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/Psnastudent/sgp4-service/internal/timeconv"
)

// Deviation is the distance between two engines' state vectors for one input.
type Deviation struct {
	Name        string
	PositionKm  float64
	VelocityKmS float64
	Err         error // set when either engine failed; the first failure wins
}

// Comparison is the result of running one batch through two engines.
type Comparison struct {
	Time       timeconv.JulianDate
	Deviations []Deviation
	MaxPosKm   float64
	MaxVelKmS  float64
	Compared   int
}

// Compare propagates inputs with a and b at jd rounded to the whole
// second, and reports per-satellite TEME differences.
func Compare(a, b *Propagator, inputs []Input, jd timeconv.JulianDate) (*Comparison, error) {
	jd = timeconv.FromTime(jd.Time().Round(time.Second))

	ba, err := a.PropagateAt(inputs, jd, Options{})
	if err != nil {
		return nil, err
	}
	bb, err := b.PropagateAt(inputs, jd, Options{})
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{Time: jd, Deviations: make([]Deviation, len(inputs))}
	for i := range inputs {
		ra, rb := ba.Results[i], bb.Results[i]
		d := Deviation{Name: ra.Name}
		switch {
		case ra.Err != nil:
			d.Err = ra.Err
		case rb.Err != nil:
			d.Err = rb.Err
		default:
			pa, pb := ra.State.Position(), rb.State.Position()
			va, vb := ra.State.Velocity(), rb.State.Velocity()
			d.PositionKm = floats.Distance(pa[:], pb[:], 2)
			d.VelocityKmS = floats.Distance(va[:], vb[:], 2)
			cmp.MaxPosKm = max(cmp.MaxPosKm, d.PositionKm)
			cmp.MaxVelKmS = max(cmp.MaxVelKmS, d.VelocityKmS)
			cmp.Compared++
		}
		cmp.Deviations[i] = d
	}
	return cmp, nil
}
