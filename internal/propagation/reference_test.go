package propagation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Psnastudent/sgp4-service/internal/sgp4"
	"github.com/Psnastudent/sgp4-service/internal/tle"
)

func referencePropagator(t *testing.T) *Propagator {
	t.Helper()
	engine, err := NewReferenceEngine(sgp4.WGS72)
	require.NoError(t, err)
	return NewPropagator(engine, PropConfig{Workers: 2}, testLogger())
}

// TestNativeMatchesReference cross-checks the native engine against
// go-satellite at a whole-second time, where both see identical inputs.
func TestNativeMatchesReference(t *testing.T) {
	inputs := []Input{
		{Name: "ISS", Line1: issLine1, Line2: issLine2},
		{Name: "STARLINK", Line1: starlinkLine1, Line2: starlinkLine2},
		{Name: "GPS", Line1: gpsLine1, Line2: gpsLine2},
		{Name: "GEO", Line1: geoLine1, Line2: geoLine2},
	}
	tolerance := []float64{0.01, 0.01, 5, 5} // km; deep-space sets get a looser bound

	cmp, err := Compare(nativePropagator(2), referencePropagator(t), inputs, mustJD(t, testTimestamp))
	require.NoError(t, err)
	require.Len(t, cmp.Deviations, len(inputs))
	assert.Equal(t, len(inputs), cmp.Compared)

	for i, d := range cmp.Deviations {
		require.NoError(t, d.Err, d.Name)
		assert.Less(t, d.PositionKm, tolerance[i], "%s position deviation", d.Name)
		assert.Less(t, d.VelocityKmS, tolerance[i]/100, "%s velocity deviation", d.Name)
	}
	assert.GreaterOrEqual(t, cmp.MaxPosKm, cmp.Deviations[0].PositionKm)
}

func TestCompareReportsFailures(t *testing.T) {
	inputs := []Input{
		{Name: "ISS", Line1: issLine1, Line2: issLine2},
		{Name: "BROKEN", Line1: issLine1, Line2: "2 25544"},
	}
	cmp, err := Compare(nativePropagator(1), referencePropagator(t), inputs, mustJD(t, testTimestamp))
	require.NoError(t, err)

	assert.NoError(t, cmp.Deviations[0].Err)
	assert.Error(t, cmp.Deviations[1].Err)
	assert.Equal(t, "malformed_line", ErrorCode(cmp.Deviations[1].Err))
	assert.Equal(t, 1, cmp.Compared)
}

func TestReferenceRejectsAlpha5(t *testing.T) {
	// go-satellite only reads numeric catalog numbers.
	el, err := tle.ParseElements(
		"1 A0001U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9000",
		"2 A0001  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    02")
	require.NoError(t, err)
	require.Equal(t, 100001, el.CatalogNumber)

	engine, err := NewReferenceEngine(sgp4.WGS72)
	require.NoError(t, err)
	_, err = engine.Initialize(el)
	require.Error(t, err)
	assert.Equal(t, "engine_failure", ErrorCode(err))

	// The native engine has no such limit.
	_, err = NewNativeEngine(sgp4.WGS72).Initialize(el)
	assert.NoError(t, err)
}

func TestPreflight(t *testing.T) {
	assert.NoError(t, preflight(issLine1, issLine2))
	assert.NoError(t, preflight(gpsLine1, gpsLine2))

	// Blank eccentricity digits parse natively but not in go-satellite.
	line2 := issLine2[:26] + "  01000" + issLine2[33:]
	assert.Error(t, preflight(issLine1, line2))
}
