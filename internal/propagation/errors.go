package propagation

import (
	"fmt"

	"github.com/pkg/errors"
)

// Codes for failures that do not come from the parser or the model.
// CodeEngineFailure is the per-entry code; CodeInternal is only used for
// request-level HTTP 500 responses.
const (
	CodeEngineFailure = "engine_failure"
	CodeInternal      = "internal_error"
)

// ErrBatchTooLarge is returned when a batch exceeds PropConfig.MaxBatch.
var ErrBatchTooLarge = errors.New("batch too large")

// coder is implemented by every error with a stable API code:
// *tle.ParseError, *sgp4.Error, *timeconv.TimestampError and *EngineError.
type coder interface {
	ErrorCode() string
}

// ErrorCode returns the stable code carried by err, or CodeEngineFailure
// when nothing in its chain declares one. A nil error has no code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeEngineFailure
}

// EngineError reports a failure the engine could detect but not classify.
type EngineError struct {
	Engine string
	Detail string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s engine: %s", e.Engine, e.Detail)
}

// ErrorCode returns CodeEngineFailure.
func (e *EngineError) ErrorCode() string { return CodeEngineFailure }

// panicError wraps a recovered panic from one entry.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("internal error: %v", e.value)
}

func (e *panicError) ErrorCode() string { return CodeEngineFailure }
