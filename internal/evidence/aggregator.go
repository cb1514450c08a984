package evidence

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"deepcheck/internal/classifier"
	"deepcheck/internal/config"
	"deepcheck/internal/fingerprint"
	"deepcheck/internal/forensics/ela"
	"deepcheck/internal/forensics/flux"
	"deepcheck/internal/forensics/metadata"
	"deepcheck/internal/logging"
	"deepcheck/internal/media/ffprobe"
	"deepcheck/internal/media/frames"
	"deepcheck/internal/services"
)

// Reasons recorded on sub-results that could not run.
const (
	ReasonNoFrame      = "Could not extract frame"
	ReasonModelMissing = "model not loaded"
	ReasonNotRun       = "not run"
)

// FrameSource is the subset of frames.Sampler the aggregator needs.
type FrameSource interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
	Middle(ctx context.Context, path string) (image.Image, error)
	SampleEven(ctx context.Context, path string, count int) ([]image.Image, error)
}

// Media is the asset under analysis.
type Media struct {
	Path string
	Kind fingerprint.Kind
}

// Options tunes the extractors.
type Options struct {
	ELA         ela.Options
	FluxSamples int
	// Timeout bounds each ffmpeg-backed extractor.
	Timeout time.Duration
}

// OptionsFromConfig maps forensics configuration onto Options.
func OptionsFromConfig(cfg config.Forensics) Options {
	return Options{
		ELA:         ela.Options{Quality: cfg.ELAQuality, Threshold: cfg.ELAThreshold},
		FluxSamples: cfg.FluxSamples,
		Timeout:     time.Duration(cfg.ExtractorTimeout) * time.Second,
	}
}

// Aggregator runs every extractor concurrently. Models may be nil, in which
// case the matching sub-result is reported invalid.
type Aggregator struct {
	frames    FrameSource
	opts      Options
	frequency *classifier.FrequencyModel
	anomaly   *classifier.AnomalyModel
	logger    *slog.Logger
}

// New constructs an aggregator.
func New(source FrameSource, opts Options, frequency *classifier.FrequencyModel, anomaly *classifier.AnomalyModel, logger *slog.Logger) *Aggregator {
	if opts.FluxSamples < 2 {
		opts.FluxSamples = flux.DefaultSamples
	}
	return &Aggregator{
		frames:    source,
		opts:      opts,
		frequency: frequency,
		anomaly:   anomaly,
		logger:    logging.NewComponentLogger(logger, "evidence"),
	}
}

// Collect runs the extractors on media and returns the bundle. It never
// fails: each extractor absorbs its own error into its sub-result.
func (a *Aggregator) Collect(ctx context.Context, media Media) Bundle {
	logger := logging.WithContext(ctx, a.logger)
	start := time.Now()

	representative := sync.OnceValues(func() (image.Image, error) {
		return a.representativeFrame(ctx, media)
	})

	var bundle Bundle
	var g errgroup.Group
	g.Go(func() error {
		bundle.Metadata = guard(logger, "metadata", func() metadata.Result { return a.metadata(ctx, media) },
			func(reason string) metadata.Result { return metadata.Invalid(string(media.Kind), reason) })
		return nil
	})
	g.Go(func() error {
		bundle.FrameConsistency = guard(logger, "frame_consistency", func() flux.Result { return a.flux(ctx, media) },
			func(reason string) flux.Result { return flux.Invalid(reason, 0) })
		return nil
	})
	g.Go(func() error {
		bundle.ELA = guard(logger, "ela", func() ela.Result {
			img, err := representative()
			if err != nil {
				return ela.Invalid(frameReason(media, err))
			}
			res, err := ela.Analyze(img, a.opts.ELA)
			if err != nil {
				return ela.Invalid(err.Error())
			}
			return res
		}, ela.Invalid)
		return nil
	})
	g.Go(func() error {
		bundle.AnomalyModel = guard(logger, "anomaly_model", func() classifier.AnomalyResult {
			if a.anomaly == nil {
				return classifier.AnomalyResult{Error: ReasonModelMissing}
			}
			img, err := representative()
			if err != nil {
				return classifier.AnomalyResult{Error: frameReason(media, err)}
			}
			return a.anomaly.Score(img)
		}, func(reason string) classifier.AnomalyResult { return classifier.AnomalyResult{Error: reason} })
		return nil
	})
	g.Go(func() error {
		bundle.Frequency = guard(logger, "frequency", func() classifier.FrequencyResult {
			if a.frequency == nil {
				return classifier.FrequencyResult{Error: ReasonModelMissing}
			}
			img, err := representative()
			if err != nil {
				return classifier.FrequencyResult{Error: frameReason(media, err)}
			}
			res, err := a.frequency.ClassifyImage(img)
			if err != nil {
				return classifier.FrequencyResult{Error: err.Error()}
			}
			return res
		}, func(reason string) classifier.FrequencyResult { return classifier.FrequencyResult{Error: reason} })
		return nil
	})
	_ = g.Wait()

	logger.Info("evidence collected",
		logging.String("kind", string(media.Kind)),
		logging.Int("valid", bundle.ValidCount()),
		logging.Int("findings", len(bundle.Findings())),
		logging.Duration("elapsed", time.Since(start)))
	return bundle
}

func (a *Aggregator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.Timeout > 0 {
		return context.WithTimeout(ctx, a.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (a *Aggregator) representativeFrame(ctx context.Context, media Media) (image.Image, error) {
	if media.Kind == fingerprint.KindImage {
		return frames.DecodeFile(media.Path)
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.frames.Middle(ctx, media.Path)
}

func (a *Aggregator) metadata(ctx context.Context, media Media) metadata.Result {
	if media.Kind == fingerprint.KindImage {
		data, err := os.ReadFile(media.Path)
		if err != nil {
			return metadata.Invalid(metadata.KindImage, err.Error())
		}
		return metadata.FromImage(data)
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	probe, err := a.frames.Probe(ctx, media.Path)
	if err != nil {
		return metadata.Invalid(metadata.KindVideo, err.Error())
	}
	return metadata.FromProbe(probe)
}

func (a *Aggregator) flux(ctx context.Context, media Media) flux.Result {
	if media.Kind != fingerprint.KindVideo {
		return flux.Invalid(flux.NotApplicableStill, 0)
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	samples, err := a.frames.SampleEven(ctx, media.Path, a.opts.FluxSamples)
	if err != nil && len(samples) == 0 {
		return flux.Invalid(err.Error(), 0)
	}
	res, err := flux.Analyze(samples)
	if err != nil {
		return flux.Invalid(err.Error(), len(samples))
	}
	return res
}

// frameReason maps a representative-frame failure to the recorded reason:
// a fixed message for video and the decoder's reason for images.
func frameReason(media Media, err error) string {
	if media.Kind == fingerprint.KindImage {
		return err.Error()
	}
	return ReasonNoFrame
}

// guard runs fn and converts a panic into an invalid result so one
// misbehaving extractor cannot take down the request.
func guard[T any](logger *slog.Logger, name string, fn func() T, invalid func(string) T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			err := services.Wrap(services.ErrExtraction, "evidence", name, "extractor panicked", fmt.Errorf("%v", r))
			logging.WarnWithContext(logger, "extractor panicked", "extractor_panic",
				logging.String("extractor", name),
				logging.Error(err),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldImpact, "sub-result marked invalid"))
			out = invalid(err.Error())
		}
	}()
	return fn()
}
