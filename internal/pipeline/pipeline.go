// Package pipeline runs one analysis request end to end:
//
//	Idle → Acquiring → EvidenceExtraction → OracleSynthesis → Fused → Cached → Done
//
// Fatal errors turn into an Error verdict record instead of a Go error, so
// callers always get a record for well-formed input. The staged asset is
// released exactly once however the execution ends.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deepcheck/internal/acquire"
	"deepcheck/internal/evidence"
	"deepcheck/internal/fingerprint"
	"deepcheck/internal/logging"
	"deepcheck/internal/oracle"
	"deepcheck/internal/services"
	"deepcheck/internal/verdict"
	"deepcheck/internal/verdictcache"
)

// Collector gathers forensic evidence for a staged asset.
type Collector interface {
	Collect(ctx context.Context, media evidence.Media) evidence.Bundle
}

// Request is one analysis request. Input is a URL for video and image
// requests and the claim itself for text.
type Request struct {
	Kind  fingerprint.Kind
	Input string
}

// Result is the serialized record plus how it was obtained.
type Result struct {
	Key     string
	Record  []byte
	Verdict verdict.Verdict
	Outcome verdictcache.Outcome
}

// Options tunes the pipeline.
type Options struct {
	// Timeout bounds one execution. Zero means no limit.
	Timeout time.Duration
	// MaxTextBytes caps text requests. Zero means no limit.
	MaxTextBytes int
}

// Pipeline wires the collaborators of an analysis.
type Pipeline struct {
	cache    *verdictcache.Cache
	acquirer acquire.Acquirer
	evidence Collector
	oracle   oracle.Oracle
	opts     Options
	now      func() time.Time
	logger   *slog.Logger
}

// New builds a pipeline. cache may be nil to disable caching.
func New(cache *verdictcache.Cache, acquirer acquire.Acquirer, collector Collector, orc oracle.Oracle, opts Options, logger *slog.Logger) *Pipeline {
	if cache == nil {
		cache = verdictcache.New(nil, 0, logger)
	}
	return &Pipeline{
		cache:    cache,
		acquirer: acquirer,
		evidence: collector,
		oracle:   orc,
		opts:     opts,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Analyze returns the verdict record for req, from the cache when possible.
// Concurrent requests with the same fingerprint share one execution.
// The returned error is non-nil only for invalid input (ErrValidation) or
// when ctx ends before a record is available.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (Result, error) {
	key, err := p.validate(req)
	if err != nil {
		return Result{}, err
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	ctx = services.WithFingerprint(ctx, key)
	logger := logging.WithContext(ctx, p.logger)

	data, outcome, err := p.cache.Resolve(ctx, key, func(ctx context.Context) ([]byte, bool, error) {
		return p.execute(ctx, req, key)
	})
	if err != nil {
		return Result{}, err
	}
	rec, err := verdict.Decode(data)
	if err != nil {
		return Result{}, err
	}

	switch {
	case outcome.Hit:
		logger.Info("verdict served from cache",
			logging.String(logging.FieldEventType, "cache_hit"),
			logging.String("verdict", string(rec.Verdict)))
	case outcome.Shared:
		logger.Info("verdict shared with concurrent request",
			logging.String(logging.FieldEventType, "flight_shared"),
			logging.String("verdict", string(rec.Verdict)))
	}
	return Result{Key: key, Record: data, Verdict: rec.Verdict, Outcome: outcome}, nil
}

func (p *Pipeline) validate(req Request) (string, error) {
	if !req.Kind.Valid() {
		return "", services.Wrap(services.ErrValidation, "pipeline", "validate", fmt.Sprintf("unknown kind %q", req.Kind), nil)
	}
	if req.Kind == fingerprint.KindText && p.opts.MaxTextBytes > 0 && len(req.Input) > p.opts.MaxTextBytes {
		return "", services.Wrap(services.ErrValidation, "pipeline", "validate",
			fmt.Sprintf("text exceeds %d bytes", p.opts.MaxTextBytes), nil)
	}
	key, err := fingerprint.Key(req.Kind, req.Input)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "pipeline", "validate", "", err)
	}
	return key, nil
}

// execute runs the state machine once. It returns the serialized record and
// whether it may be cached.
func (p *Pipeline) execute(ctx context.Context, req Request, key string) ([]byte, bool, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	run := newExecution(ctx, p.logger)
	defer run.cleanup()

	var bundle *evidence.Bundle
	fail := func(err error) ([]byte, bool, error) {
		run.fail(err)
		rec := verdict.NewError(req.Kind, key, err, bundle, p.now())
		data, mErr := rec.Marshal()
		if mErr != nil {
			return nil, false, errors.Join(err, mErr)
		}
		return data, false, nil
	}

	orcReq := oracle.Request{Kind: req.Kind}
	if req.Kind == fingerprint.KindText {
		orcReq.Text = req.Input
	} else {
		orcReq.Locator = req.Input

		run.transition(StateAcquiring)
		asset, err := p.acquirer.Acquire(run.ctx, req.Input, req.Kind)
		if err != nil {
			return fail(err)
		}
		run.own(asset)
		orcReq.MediaPath = asset.Path
		orcReq.MimeType = asset.MimeType

		run.transition(StateEvidenceExtraction)
		collected := p.evidence.Collect(run.ctx, evidence.Media{Path: asset.Path, Kind: req.Kind})
		bundle = &collected
		orcReq.Evidence = collected.Summary()
		run.logger.Info("evidence collected",
			logging.Int("valid_extractors", collected.ValidCount()),
			logging.Bool("ai_tool_signature", collected.Metadata.HasAITool()))
	}

	run.transition(StateOracleSynthesis)
	assessment, err := p.oracle.Synthesize(run.ctx, orcReq)
	if err != nil {
		return fail(err)
	}

	rec := verdict.Fuse(req.Kind, key, assessment, bundle, p.now())
	data, err := rec.Marshal()
	if err != nil {
		return fail(err)
	}
	run.transition(StateFused)
	run.logger.Info("verdict fused",
		logging.String("verdict", string(rec.Verdict)),
		logging.Int("score", rec.Score),
		logging.String("oracle", p.oracle.Name()))
	run.cacheable = rec.Cacheable()
	run.succeed()
	return data, rec.Cacheable(), nil
}
