package propagation

import (
	"github.com/pkg/errors"

	"github.com/Psnastudent/sgp4-service/internal/sgp4"
	"github.com/Psnastudent/sgp4-service/internal/timeconv"
	"github.com/Psnastudent/sgp4-service/internal/tle"
)

// Model is an initialized element set that can be evaluated at any time.
// Implementations must be safe for concurrent use.
type Model interface {
	PropagateAt(jd timeconv.JulianDate) (sgp4.StateVector, error)
}

// Engine turns parsed element sets into Models.
type Engine interface {
	Name() string
	Initialize(el *tle.Elements) (Model, error)
}

// Engine names accepted by NewEngine.
const (
	EngineNative    = "native"
	EngineReference = "reference"
)

// NewEngine returns the named engine using the given gravity model.
func NewEngine(name string, grav sgp4.Gravity) (Engine, error) {
	switch name {
	case "", EngineNative:
		return NewNativeEngine(grav), nil
	case EngineReference:
		return NewReferenceEngine(grav)
	}
	return nil, errors.Errorf("unknown propagation engine %q", name)
}

// NativeEngine runs the in-tree SGP4/SDP4 implementation.
type NativeEngine struct {
	grav sgp4.Gravity
}

// NewNativeEngine creates a NativeEngine.
func NewNativeEngine(grav sgp4.Gravity) *NativeEngine {
	return &NativeEngine{grav: grav}
}

// Name returns "native".
func (e *NativeEngine) Name() string { return EngineNative }

// Initialize builds the model, rejecting element sets that fail at epoch.
func (e *NativeEngine) Initialize(el *tle.Elements) (Model, error) {
	sat, err := sgp4.New(el, e.grav)
	if err != nil {
		return nil, err
	}
	return sat, nil
}
