package propagation

import (
	"log/slog"
	"sync"

	"github.com/Psnastudent/sgp4-service/internal/timeconv"
	"github.com/Psnastudent/sgp4-service/internal/tle"
	"github.com/Psnastudent/sgp4-service/internal/transform"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	index int
	input Input
}

// propagateResult is the output of a single satellite propagation.
type propagateResult struct {
	index  int
	result Result
}

// batchContext is everything an entry shares with the rest of its batch.
// It is computed once and only read by the workers.
type batchContext struct {
	engine Engine
	jd     timeconv.JulianDate
	gmst   float64 // precomputed GMST for jd
	opts   Options
}

// WorkerPool manages a fixed number of goroutines for parallel SGP4 propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int { return wp.workers }

// run propagates every input and returns one Result per input, in input
// order. Entries never share mutable state, so a failure or panic in one
// cannot affect another.
func (wp *WorkerPool) run(bc *batchContext, inputs []Input) []Result {
	out := make([]Result, len(inputs))
	if len(inputs) == 0 {
		return out
	}

	workers := wp.workers
	if workers > len(inputs) {
		workers = len(inputs)
	}

	jobs := make(chan propagateJob, workers*2)
	results := make(chan propagateResult, workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- propagateResult{index: job.index, result: propagateSingle(bc, job.input)}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, in := range inputs {
			jobs <- propagateJob{index: i, input: in}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.result.Err != nil {
			wp.logger.Debug("propagation failed",
				"index", r.index,
				"name", r.result.Name,
				"code", r.result.Code(),
				"error", r.result.Err,
			)
		}
		out[r.index] = r.result
	}
	return out
}

// propagateSingle runs parse, initialize and propagate for one input and
// applies the requested output transforms.
func propagateSingle(bc *batchContext, in Input) (res Result) {
	res.Name = in.Name
	defer func() {
		if v := recover(); v != nil {
			res = Result{Name: in.Name, Err: &panicError{value: v}}
		}
	}()

	el, err := tle.ParseElements(in.Line1, in.Line2)
	if err != nil {
		res.Err = err
		return res
	}
	res.NORADID = el.CatalogNumber

	model, err := bc.engine.Initialize(el)
	if err != nil {
		res.Err = err
		return res
	}

	teme, err := model.PropagateAt(bc.jd)
	if err != nil {
		res.Err = err
		return res
	}
	res.State = teme

	if bc.opts.Frame != FrameECEF && !bc.opts.Geodetic && bc.opts.Observer == nil {
		return res
	}

	ecef := transform.TEMEToECEFWithGMST(teme, bc.gmst)
	if bc.opts.Frame == FrameECEF {
		res.State = ecef
	}
	if bc.opts.Geodetic {
		g := transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z)
		res.Geodetic = &g
	}
	if bc.opts.Observer != nil {
		la := transform.ECEFToLookAngles(*bc.opts.Observer, ecef.X, ecef.Y, ecef.Z)
		res.Look = &la
	}
	return res
}
