package propagation

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/Psnastudent/sgp4-service/internal/metrics"
	"github.com/Psnastudent/sgp4-service/internal/timeconv"
	"github.com/Psnastudent/sgp4-service/internal/transform"
)

// Propagator runs batches: one shared time, many independent satellites.
// It holds no state between batches and is safe for concurrent use.
type Propagator struct {
	engine Engine
	pool   *WorkerPool
	config PropConfig
	logger *slog.Logger
}

// NewPropagator creates a new propagation orchestrator.
func NewPropagator(engine Engine, config PropConfig, logger *slog.Logger) *Propagator {
	pool := NewWorkerPool(config.Workers, logger)
	return &Propagator{
		engine: engine,
		pool:   pool,
		config: config,
		logger: logger,
	}
}

// Engine returns the engine batches are run with.
func (p *Propagator) Engine() Engine { return p.engine }

// Config returns the configuration with the effective worker count.
func (p *Propagator) Config() PropConfig {
	cfg := p.config
	cfg.Workers = p.pool.Workers()
	cfg.Engine = p.engine.Name()
	return cfg
}

// PropagateBatch converts timestamp once and propagates every input to it.
// A bad timestamp fails the whole batch with a *timeconv.TimestampError;
// anything that goes wrong with a single satellite is reported in its Result.
func (p *Propagator) PropagateBatch(inputs []Input, timestamp string, opts Options) (*Batch, error) {
	jd, err := timeconv.ParseTimestamp(timestamp)
	if err != nil {
		return nil, err
	}
	return p.PropagateAt(inputs, jd, opts)
}

// PropagateAt propagates every input to jd. The returned Batch has exactly
// one Result per input, in input order.
func (p *Propagator) PropagateAt(inputs []Input, jd timeconv.JulianDate, opts Options) (*Batch, error) {
	if p.config.MaxBatch > 0 && len(inputs) > p.config.MaxBatch {
		return nil, errors.Wrapf(ErrBatchTooLarge, "%d satellites, limit %d", len(inputs), p.config.MaxBatch)
	}
	switch opts.Frame {
	case "":
		opts.Frame = FrameTEME
	case FrameTEME, FrameECEF:
	default:
		return nil, errors.Errorf("unknown frame %q", opts.Frame)
	}

	bc := &batchContext{
		engine: p.engine,
		jd:     jd,
		gmst:   transform.GMST(jd),
		opts:   opts,
	}

	start := time.Now()
	results := p.pool.run(bc, inputs)
	duration := time.Since(start)

	batch := &Batch{
		Time:     jd,
		Engine:   p.engine.Name(),
		Frame:    opts.Frame,
		Results:  results,
		Duration: duration,
	}
	codes := make([]string, len(results))
	for i, r := range results {
		codes[i] = r.Code()
		if r.OK() {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
	}
	metrics.RecordBatch(batch.Engine, duration, codes)

	p.logger.Debug("batch propagated",
		"engine", batch.Engine,
		"satellites", len(inputs),
		"success", batch.Succeeded,
		"errors", batch.Failed,
		"target_time", jd.Time().Format(time.RFC3339Nano),
		"duration_ms", duration.Milliseconds(),
	)
	return batch, nil
}
