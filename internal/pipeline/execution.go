package pipeline

import (
	"context"
	"log/slog"
	"time"

	"deepcheck/internal/acquire"
	"deepcheck/internal/logging"
	"deepcheck/internal/services"
)

// execution tracks the state and owned resources of one pipeline run.
type execution struct {
	ctx       context.Context
	base      *slog.Logger
	logger    *slog.Logger
	state     State
	started   time.Time
	asset     *acquire.Asset
	cacheable bool
	cleaned   bool
	history   []State
}

func newExecution(ctx context.Context, logger *slog.Logger) *execution {
	return &execution{
		ctx:     ctx,
		base:    logger,
		logger:  logging.WithContext(ctx, logger),
		state:   StateIdle,
		started: time.Now(),
	}
}

func (e *execution) transition(next State) {
	from := e.state
	e.state = next
	e.history = append(e.history, next)
	e.ctx = services.WithStage(e.ctx, string(next))
	e.logger = logging.WithContext(e.ctx, e.base)
	e.logger.Info("stage transition",
		logging.String(logging.FieldEventType, "stage_transition"),
		logging.String("from", string(from)),
		logging.String("to", string(next)))
}

func (e *execution) own(asset *acquire.Asset) {
	e.asset = asset
}

func (e *execution) succeed() {
	if e.cacheable {
		e.transition(StateCached)
	}
	e.cleanup()
	e.transition(StateDone)
	e.logger.Info("analysis complete",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.Duration("elapsed", time.Since(e.started)))
}

func (e *execution) fail(err error) {
	failedIn := e.state
	e.cleanup()
	e.transition(StateFailed)
	e.logger.Error("analysis failed",
		logging.String(logging.FieldEventType, "analysis_failed"),
		logging.String("failed_in", string(failedIn)),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err))
}

// cleanup enters the cleanup state and releases the owned asset. It runs
// exactly once per execution: before the terminal transition on normal
// exits, or from the deferred call when a stage panics.
func (e *execution) cleanup() {
	if e.cleaned {
		return
	}
	e.cleaned = true
	if !e.state.Terminal() {
		e.transition(StateCleanup)
	}
	if e.asset == nil {
		return
	}
	if err := e.asset.Release(); err != nil {
		logging.WarnWithContext(e.logger, "failed to release staged media", "cleanup_failed",
			logging.Error(err),
			logging.String("path", e.asset.Path),
			logging.String(logging.FieldErrorHint, "remove the file from the staging directory"),
			logging.String(logging.FieldImpact, "staging directory keeps a stale file"))
		return
	}
	e.logger.Debug("staged media released",
		logging.String(logging.FieldEventType, "cleanup"),
		logging.String("path", e.asset.Path))
}
