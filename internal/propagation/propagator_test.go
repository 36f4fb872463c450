package propagation

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"testing"

	"github.com/Psnastudent/sgp4-service/internal/sgp4"
	"github.com/Psnastudent/sgp4-service/internal/timeconv"
	"github.com/Psnastudent/sgp4-service/internal/tle"
	"github.com/Psnastudent/sgp4-service/internal/transform"
)

// Synthetic element sets with epochs on whole seconds, so the reference
// engine (which truncates epoch seconds) sees the same epoch as the native one.
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01"

	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9998"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    07"

	gpsLine1 = "1 28474U 04045A   24100.50000000 -.00000018  00000-0  00000+0 0  9999"
	gpsLine2 = "2 28474  55.0000 120.0000 0050000 200.0000 160.0000  2.00563000    00"

	geoLine1 = "1 41866U 16071A   24100.50000000 -.00000270  00000-0  00000+0 0  9991"
	geoLine2 = "2 41866   0.0200  90.0000 0001000 270.0000 180.0000  1.00270000    07"

	// Re-enters within an hour of epoch.
	decayLine1 = "1 28872U 05037B   05333.02012661  .25992681  00000-0  24476-3 0  1534"
	decayLine2 = "2 28872  96.4736 157.9986 0303955 244.0492 110.6523 16.46015938 10708"

	// A day after the synthetic epochs.
	testTimestamp = "2024-04-10T12:00:00Z"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func nativePropagator(workers int) *Propagator {
	return NewPropagator(NewNativeEngine(sgp4.WGS72), PropConfig{Workers: workers}, testLogger())
}

func mustJD(t testing.TB, s string) timeconv.JulianDate {
	t.Helper()
	jd, err := timeconv.ParseTimestamp(s)
	if err != nil {
		t.Fatalf("ParseTimestamp(%q): %v", s, err)
	}
	return jd
}

func distance(a, b sgp4.StateVector) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// TestPropagateSingle verifies that a single satellite can be propagated
// and that the output is reasonable.
func TestPropagateSingle(t *testing.T) {
	batch, err := nativePropagator(1).PropagateBatch(
		[]Input{{Name: "ISS (ZARYA)", Line1: issLine1, Line2: issLine2}}, testTimestamp, Options{})
	if err != nil {
		t.Fatalf("PropagateBatch failed: %v", err)
	}
	if len(batch.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(batch.Results))
	}

	r := batch.Results[0]
	if !r.OK() {
		t.Fatalf("propagation failed: %v", r.Err)
	}
	if r.Name != "ISS (ZARYA)" || r.NORADID != 25544 {
		t.Errorf("identity = %q/%d, want ISS (ZARYA)/25544", r.Name, r.NORADID)
	}

	// ~6378 + 420 km.
	if mag := r.State.Radius(); mag < 6700 || mag > 6900 {
		t.Errorf("TEME position magnitude = %.1f km, expected ~6795 km", mag)
	}
	if v := r.State.Speed(); v < 7.5 || v > 7.9 {
		t.Errorf("speed = %.3f km/s, expected ~7.66 km/s", v)
	}
	if batch.Engine != EngineNative || batch.Frame != FrameTEME {
		t.Errorf("batch engine/frame = %s/%s", batch.Engine, batch.Frame)
	}
}

// TestBatchIsolation checks that one bad entry among nine good ones yields
// ten results in input order, exactly one of them an error.
func TestBatchIsolation(t *testing.T) {
	badLine1 := issLine1[:len(issLine1)-1] + "0" // checksum digit no longer matches

	var inputs []Input
	for i := 0; i < 10; i++ {
		in := Input{Name: "SAT-" + strconv.Itoa(i), Line1: issLine1, Line2: issLine2}
		if i%2 == 1 {
			in.Line1, in.Line2 = starlinkLine1, starlinkLine2
		}
		if i == 4 {
			in.Line1 = badLine1
		}
		inputs = append(inputs, in)
	}

	batch, err := nativePropagator(4).PropagateBatch(inputs, testTimestamp, Options{})
	if err != nil {
		t.Fatalf("PropagateBatch failed: %v", err)
	}
	if len(batch.Results) != len(inputs) {
		t.Fatalf("got %d results, want %d", len(batch.Results), len(inputs))
	}
	if batch.Succeeded != 9 || batch.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 9/1", batch.Succeeded, batch.Failed)
	}

	for i, r := range batch.Results {
		if r.Name != inputs[i].Name {
			t.Errorf("result %d: name = %q, want %q", i, r.Name, inputs[i].Name)
		}
		if i == 4 {
			if r.OK() {
				t.Errorf("result 4: expected checksum failure")
			}
			if r.Code() != "checksum_mismatch" {
				t.Errorf("result 4: code = %q, want checksum_mismatch", r.Code())
			}
			if !errors.Is(r.Err, tle.ErrChecksumMismatch) {
				t.Errorf("result 4: error %v does not match ErrChecksumMismatch", r.Err)
			}
			continue
		}
		if !r.OK() {
			t.Errorf("result %d: unexpected error %v", i, r.Err)
		}
	}

	// The good entries are unaffected by the bad one.
	alone, err := nativePropagator(1).PropagateBatch(inputs[:1], testTimestamp, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if alone.Results[0].State != batch.Results[0].State {
		t.Errorf("state differs when propagated alone: %v vs %v", alone.Results[0].State, batch.Results[0].State)
	}
}

func TestErrorCodes(t *testing.T) {
	decayEl, err := tle.ParseElements(decayLine1, decayLine2)
	if err != nil {
		t.Fatalf("ParseElements: %v", err)
	}

	inputs := []Input{
		{Name: "short", Line1: issLine1[:60], Line2: issLine2},
		{Name: "checksum", Line1: issLine1, Line2: issLine2[:len(issLine2)-1] + "9"},
		{Name: "swapped", Line1: issLine2, Line2: issLine1},
		{Name: "decayed", Line1: decayLine1, Line2: decayLine2},
	}
	want := []string{"malformed_line", "checksum_mismatch", "malformed_line", "subsurface_orbit"}

	batch, err := nativePropagator(2).PropagateAt(inputs, decayEl.Epoch.AddMinutes(60), Options{})
	if err != nil {
		t.Fatalf("PropagateAt failed: %v", err)
	}
	for i, r := range batch.Results {
		if got := r.Code(); got != want[i] {
			t.Errorf("%s: code = %q, want %q (err: %v)", r.Name, got, want[i], r.Err)
		}
	}

	var perr *sgp4.Error
	if !errors.As(batch.Results[3].Err, &perr) || perr.Code != sgp4.SubsurfaceOrbit {
		t.Errorf("decayed: error %v is not an sgp4 subsurface error", batch.Results[3].Err)
	}

	if got := ErrorCode(errors.New("unclassified")); got != "engine_failure" {
		t.Errorf("unclassified error code = %q, want engine_failure", got)
	}
	if got := ErrorCode(&EngineError{Engine: EngineReference, Detail: "x"}); got != "engine_failure" {
		t.Errorf("engine error code = %q, want engine_failure", got)
	}
	if got := ErrorCode(nil); got != "" {
		t.Errorf("nil error code = %q, want empty", got)
	}
}

func TestInvalidTimestampFailsBatch(t *testing.T) {
	inputs := []Input{{Name: "ISS", Line1: issLine1, Line2: issLine2}}
	for _, ts := range []string{"", "yesterday", "2024-13-01T00:00:00Z", "2023-02-29T00:00:00"} {
		batch, err := nativePropagator(1).PropagateBatch(inputs, ts, Options{})
		if err == nil {
			t.Errorf("%q: expected error, got batch with %d results", ts, len(batch.Results))
			continue
		}
		if !errors.Is(err, timeconv.ErrInvalidTimestamp) {
			t.Errorf("%q: error %v does not match ErrInvalidTimestamp", ts, err)
		}
		if ErrorCode(err) != "invalid_timestamp" {
			t.Errorf("%q: code = %q", ts, ErrorCode(err))
		}
	}
}

// TestOrderPreserved runs many entries through more workers than CPUs and
// checks every result lands in its input's slot.
func TestOrderPreserved(t *testing.T) {
	inputs := make([]Input, 200)
	for i := range inputs {
		inputs[i] = Input{Name: strconv.Itoa(i), Line1: issLine1, Line2: issLine2}
		if i%3 == 0 {
			inputs[i].Line2 = "garbage"
		}
	}

	batch, err := nativePropagator(16).PropagateBatch(inputs, testTimestamp, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range batch.Results {
		if r.Name != strconv.Itoa(i) {
			t.Fatalf("result %d has name %q", i, r.Name)
		}
		if wantErr := i%3 == 0; wantErr == r.OK() {
			t.Errorf("result %d: ok = %v, want %v", i, r.OK(), !wantErr)
		}
	}
}

func TestEmptyBatch(t *testing.T) {
	batch, err := nativePropagator(4).PropagateBatch(nil, testTimestamp, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Results) != 0 || batch.Succeeded != 0 || batch.Failed != 0 {
		t.Errorf("empty batch = %+v", batch)
	}
}

func TestMaxBatch(t *testing.T) {
	p := NewPropagator(NewNativeEngine(sgp4.WGS72), PropConfig{Workers: 2, MaxBatch: 2}, testLogger())
	inputs := []Input{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	_, err := p.PropagateBatch(inputs, testTimestamp, Options{})
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("error = %v, want ErrBatchTooLarge", err)
	}
}

// TestPeriodicity propagates a near-circular LEO element set one orbital
// period and expects it back near its epoch position. The residual is
// mostly nodal regression, about 30 km per revolution at this inclination.
func TestPeriodicity(t *testing.T) {
	el, err := tle.ParseElements(issLine1, issLine2)
	if err != nil {
		t.Fatal(err)
	}
	model, err := NewNativeEngine(sgp4.WGS72).Initialize(el)
	if err != nil {
		t.Fatal(err)
	}
	period := model.(*sgp4.Satellite).Period()

	at := func(minutes float64) sgp4.StateVector {
		sv, err := model.PropagateAt(el.Epoch.AddMinutes(minutes))
		if err != nil {
			t.Fatalf("PropagateAt(+%.1f min): %v", minutes, err)
		}
		return sv
	}

	start := at(0)
	if d := distance(start, at(period)); d > 50 {
		t.Errorf("after one period the satellite is %.1f km from its epoch position", d)
	}
	if d := distance(start, at(period/2)); d < 13000 {
		t.Errorf("after half a period the satellite is only %.1f km away", d)
	}
}

func TestOutputFrames(t *testing.T) {
	inputs := []Input{{Name: "ISS", Line1: issLine1, Line2: issLine2}}
	obs := transform.NewObserver(51.4779, -0.0015, 0.046)
	p := nativePropagator(1)

	teme, err := p.PropagateBatch(inputs, testTimestamp, Options{})
	if err != nil {
		t.Fatal(err)
	}
	ecef, err := p.PropagateBatch(inputs, testTimestamp, Options{Frame: FrameECEF, Geodetic: true, Observer: &obs})
	if err != nil {
		t.Fatal(err)
	}

	rt, re := teme.Results[0], ecef.Results[0]
	if !rt.OK() || !re.OK() {
		t.Fatalf("errors: %v, %v", rt.Err, re.Err)
	}
	if rt.Geodetic != nil || rt.Look != nil {
		t.Error("TEME batch should not carry geodetic or look angles")
	}
	if math.Abs(rt.State.Radius()-re.State.Radius()) > 1e-9 {
		t.Errorf("radius changed between frames: %.9f vs %.9f", rt.State.Radius(), re.State.Radius())
	}
	if rt.State.Z != re.State.Z {
		t.Errorf("Z changed between frames: %v vs %v", rt.State.Z, re.State.Z)
	}
	want := transform.TEMEToECEF(rt.State, mustJD(t, testTimestamp))
	if distance(want, re.State) > 1e-9 {
		t.Errorf("ECEF = %v, want %v", re.State.Position(), want.Position())
	}

	if re.Geodetic == nil {
		t.Fatal("missing geodetic point")
	}
	if alt := re.Geodetic.AltKm; alt < 380 || alt > 450 {
		t.Errorf("altitude = %.1f km, want ISS-like", alt)
	}
	if lat := re.Geodetic.LatDeg; math.Abs(lat) > 52 {
		t.Errorf("latitude %.2f exceeds inclination", lat)
	}

	if re.Look == nil {
		t.Fatal("missing look angles")
	}
	if re.Look.RangeKm < 380 || re.Look.RangeKm > 13500 {
		t.Errorf("range = %.1f km", re.Look.RangeKm)
	}

	if _, err := p.PropagateBatch(inputs, testTimestamp, Options{Frame: "j2000"}); err == nil {
		t.Error("expected error for unknown frame")
	}
}

// panicEngine panics for one catalog number and otherwise defers to the
// native engine.
type panicEngine struct {
	NativeEngine
	bad int
}

func (e *panicEngine) Initialize(el *tle.Elements) (Model, error) {
	if el.CatalogNumber == e.bad {
		panic("boom")
	}
	return e.NativeEngine.Initialize(el)
}

func TestPanicIsolated(t *testing.T) {
	engine := &panicEngine{NativeEngine: *NewNativeEngine(sgp4.WGS72), bad: 44713}
	p := NewPropagator(engine, PropConfig{Workers: 2}, testLogger())

	inputs := []Input{
		{Name: "ISS", Line1: issLine1, Line2: issLine2},
		{Name: "STARLINK", Line1: starlinkLine1, Line2: starlinkLine2},
		{Name: "GPS", Line1: gpsLine1, Line2: gpsLine2},
	}
	batch, err := p.PropagateBatch(inputs, testTimestamp, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !batch.Results[0].OK() || !batch.Results[2].OK() {
		t.Errorf("neighbours of the panicking entry failed: %v, %v", batch.Results[0].Err, batch.Results[2].Err)
	}
	if got := batch.Results[1].Code(); got != "engine_failure" {
		t.Errorf("panicking entry code = %q, want engine_failure", got)
	}
	if batch.Results[1].Name != "STARLINK" {
		t.Errorf("panicking entry name = %q", batch.Results[1].Name)
	}
}

func TestDeepSpaceInBatch(t *testing.T) {
	inputs := []Input{
		{Name: "GPS", Line1: gpsLine1, Line2: gpsLine2},
		{Name: "GEO", Line1: geoLine1, Line2: geoLine2},
	}
	batch, err := nativePropagator(2).PropagateBatch(inputs, testTimestamp, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range batch.Results {
		if !r.OK() {
			t.Fatalf("%s: %v", r.Name, r.Err)
		}
	}
	if r := batch.Results[0].State.Radius(); r < 25000 || r > 28500 {
		t.Errorf("GPS radius = %.1f km", r)
	}
	if r := batch.Results[1].State.Radius(); math.Abs(r-42164) > 100 {
		t.Errorf("GEO radius = %.1f km", r)
	}
}

func TestNewEngine(t *testing.T) {
	for _, name := range []string{"", EngineNative, EngineReference} {
		e, err := NewEngine(name, sgp4.WGS72)
		if err != nil {
			t.Errorf("NewEngine(%q): %v", name, err)
			continue
		}
		if name != "" && e.Name() != name {
			t.Errorf("NewEngine(%q).Name() = %q", name, e.Name())
		}
	}
	if _, err := NewEngine("sdp8", sgp4.WGS72); err == nil {
		t.Error("expected error for unknown engine")
	}
	if _, err := NewEngine(EngineReference, sgp4.WGS72Old); err == nil {
		t.Error("expected error for gravity model the reference engine lacks")
	}
}

func BenchmarkPropagate1000(b *testing.B) {
	inputs := make([]Input, 1000)
	for i := range inputs {
		inputs[i] = Input{Name: "TEST", Line1: issLine1, Line2: issLine2}
	}
	p := nativePropagator(4)
	jd := mustJD(b, testTimestamp)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.PropagateAt(inputs, jd, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
