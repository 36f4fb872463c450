package propagation

import (
	"time"

	"github.com/Psnastudent/sgp4-service/internal/sgp4"
	"github.com/Psnastudent/sgp4-service/internal/timeconv"
	"github.com/Psnastudent/sgp4-service/internal/transform"
)

// Frame selects the reference frame of returned state vectors.
type Frame string

const (
	FrameTEME Frame = "teme"
	FrameECEF Frame = "ecef"
)

// Input is one satellite of a batch: a caller-chosen name and its TLE lines.
type Input struct {
	Name  string
	Line1 string
	Line2 string
}

// Options are per-batch output choices. The zero value returns TEME vectors only.
type Options struct {
	Frame    Frame
	Geodetic bool                // add the sub-satellite point
	Observer *transform.Observer // add look angles from this site
}

// Result is the outcome for one input: a state vector or an error, never both.
type Result struct {
	Name     string
	NORADID  int // zero when the lines could not be parsed
	State    sgp4.StateVector
	Geodetic *transform.GeodeticPoint
	Look     *transform.LookAngles
	Err      error
}

// OK reports whether the entry propagated.
func (r Result) OK() bool { return r.Err == nil }

// Code returns the stable error code of a failed entry, or "" on success.
func (r Result) Code() string { return ErrorCode(r.Err) }

// Batch is the ordered outcome of one request: Results[i] belongs to input i.
type Batch struct {
	Time      timeconv.JulianDate
	Engine    string
	Frame     Frame
	Results   []Result
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// PropConfig holds propagation configuration.
type PropConfig struct {
	Workers  int    // worker pool size (default: runtime.NumCPU())
	Engine   string // "native" or "reference"
	Gravity  string // "wgs72", "wgs72old" or "wgs84"
	MaxBatch int    // largest accepted batch, 0 for unlimited
}
