package propagation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/pkg/errors"

	"github.com/Psnastudent/sgp4-service/internal/sgp4"
	"github.com/Psnastudent/sgp4-service/internal/timeconv"
	"github.com/Psnastudent/sgp4-service/internal/tle"
	"github.com/Psnastudent/sgp4-service/internal/transform"
)

// ReferenceEngine wraps github.com/joshuaferrara/go-satellite, an independent
// SGP4 port, for cross-checking the native engine.
//
// go-satellite calls log.Fatal on fields it cannot parse, so every element
// set is pre-flighted with the same field expressions before it is handed
// over. Its Propagate takes whole seconds and hides the model's error code;
// failures are detected from the output instead.
type ReferenceEngine struct {
	grav satellite.Gravity
}

// NewReferenceEngine creates a ReferenceEngine for the given gravity model.
func NewReferenceEngine(grav sgp4.Gravity) (*ReferenceEngine, error) {
	switch grav.Name {
	case sgp4.WGS72.Name:
		return &ReferenceEngine{grav: satellite.GravityWGS72}, nil
	case sgp4.WGS84.Name:
		return &ReferenceEngine{grav: satellite.GravityWGS84}, nil
	}
	return nil, errors.Errorf("reference engine does not support gravity model %q", grav.Name)
}

// Name returns "reference".
func (e *ReferenceEngine) Name() string { return EngineReference }

// Initialize builds a go-satellite model from the element set's source lines.
func (e *ReferenceEngine) Initialize(el *tle.Elements) (Model, error) {
	if err := preflight(el.Line1, el.Line2); err != nil {
		return nil, &EngineError{Engine: EngineReference, Detail: err.Error()}
	}

	sat := satellite.TLEToSat(el.Line1, el.Line2, e.grav)
	if sat.Error != 0 {
		return nil, &EngineError{
			Engine: EngineReference,
			Detail: fmt.Sprintf("init failed for %s: code=%d %s", el.SatNum, sat.Error, sat.ErrorStr),
		}
	}
	return &referenceModel{sat: sat, satnum: el.SatNum}, nil
}

// preflight repeats the conversions TLEToSat performs on each field.
func preflight(line1, line2 string) error {
	if _, err := strconv.ParseInt(strings.TrimSpace(line1[2:7]), 10, 0); err != nil {
		return errors.Errorf("catalog number %q is not numeric", line1[2:7])
	}
	ints := []string{line1[18:20]}
	floats := []string{
		line1[20:32],
		strings.Replace(line1[33:43], " ", "", 2),
		strings.Replace(line1[44:45]+"."+line1[45:50]+"e"+line1[50:52], " ", "", 2),
		strings.Replace(line1[53:54]+"."+line1[54:59]+"e"+line1[59:61], " ", "", 2),
		strings.Replace(line2[8:16], " ", "", 2),
		strings.Replace(line2[17:25], " ", "", 2),
		"." + line2[26:33],
		strings.Replace(line2[34:42], " ", "", 2),
		strings.Replace(line2[43:51], " ", "", 2),
		strings.Replace(line2[52:63], " ", "", 2),
	}
	for _, s := range ints {
		if _, err := strconv.ParseInt(s, 10, 0); err != nil {
			return errors.Errorf("field %q is not an integer", s)
		}
	}
	for _, s := range floats {
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return errors.Errorf("field %q is not a number", s)
		}
	}
	return nil
}

type referenceModel struct {
	sat    satellite.Satellite
	satnum string
}

// PropagateAt rounds jd to the nearest second before evaluating.
func (m *referenceModel) PropagateAt(jd timeconv.JulianDate) (sgp4.StateVector, error) {
	t := jd.Time().Round(time.Second)
	pos, vel := satellite.Propagate(m.sat,
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	sv := sgp4.StateVector{X: pos.X, Y: pos.Y, Z: pos.Z, VX: vel.X, VY: vel.Y, VZ: vel.Z}
	if !transform.ValidRadius(sv) {
		return sgp4.StateVector{}, &EngineError{
			Engine: EngineReference,
			Detail: fmt.Sprintf("propagation failed for %s: radius %.1f km", m.satnum, sv.Radius()),
		}
	}
	return sv, nil
}
