package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"deepcheck/internal/acquire"
	"deepcheck/internal/classifier"
	"deepcheck/internal/config"
	"deepcheck/internal/evidence"
	"deepcheck/internal/logging"
	"deepcheck/internal/media/frames"
	"deepcheck/internal/oracle"
	"deepcheck/internal/pipeline"
	"deepcheck/internal/verdictcache"
)

// runtime holds the long-lived collaborators shared by serve and analyze.
type runtime struct {
	store    verdictcache.Store
	pipeline *pipeline.Pipeline
}

// runtimeOverrides lets tests swap external collaborators.
type runtimeOverrides struct {
	acquirer acquire.Acquirer
	oracle   oracle.Oracle
}

func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, overrides runtimeOverrides) (*runtime, error) {
	orc := overrides.oracle
	if orc == nil {
		if err := cfg.RequireOracle(); err != nil {
			return nil, err
		}
		var err error
		if orc, err = oracle.New(cfg.Oracle, logger); err != nil {
			return nil, err
		}
	}
	acq := overrides.acquirer
	if acq == nil {
		acq = acquire.New(cfg.Acquire, cfg.Paths.StagingDir, logger)
	}

	store, err := verdictcache.Open(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("open verdict cache: %w", err)
	}

	frequency, anomaly := loadModels(cfg, logger)
	sampler := frames.Sampler{FFmpegBinary: cfg.Forensics.FFmpegBinary, FFprobeBinary: cfg.Forensics.FFprobeBinary}
	collector := evidence.New(sampler, evidence.OptionsFromConfig(cfg.Forensics), frequency, anomaly, logger)

	cache := verdictcache.New(store, cfg.CacheTTL(), logger)
	pipe := pipeline.New(cache, acq, collector, orc, pipeline.Options{
		Timeout:      cfg.RequestTimeout(),
		MaxTextBytes: cfg.Server.MaxTextBytes,
	}, logger)

	logger.Info("runtime ready",
		logging.String("oracle", orc.Name()),
		logging.String("cache_backend", store.Name()),
		logging.Bool("frequency_model", frequency != nil),
		logging.Bool("anomaly_model", anomaly != nil))
	return &runtime{store: store, pipeline: pipe}, nil
}

func (r *runtime) Close() error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.Close()
}

// loadModels reads the trained artifacts. A missing or unreadable artifact
// disables the matching extractor instead of failing startup.
func loadModels(cfg *config.Config, logger *slog.Logger) (*classifier.FrequencyModel, *classifier.AnomalyModel) {
	var frequency *classifier.FrequencyModel
	var anomaly *classifier.AnomalyModel
	if path := cfg.FrequencyModelPath(); artifactPresent(path, "frequency", "deepcheck train fft", logger) {
		m, err := classifier.LoadFrequencyModel(path)
		if err != nil {
			modelLoadFailed(logger, "frequency", path, err)
		} else {
			frequency = m
		}
	}
	if path := cfg.AnomalyModelPath(); artifactPresent(path, "anomaly", "deepcheck train pca", logger) {
		m, err := classifier.LoadAnomalyModel(path)
		if err != nil {
			modelLoadFailed(logger, "anomaly", path, err)
		} else {
			anomaly = m
		}
	}
	return frequency, anomaly
}

func artifactPresent(path, name, trainCmd string, logger *slog.Logger) bool {
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(logger, "model artifact missing", "model_missing",
			logging.String("model", name),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "train it with `"+trainCmd+"`"),
			logging.String(logging.FieldImpact, "the "+name+" sub-result is reported invalid"))
		return false
	}
	modelLoadFailed(logger, name, path, err)
	return false
}

func modelLoadFailed(logger *slog.Logger, name, path string, err error) {
	logging.WarnWithContext(logger, "model artifact unusable", "model_load_failed",
		logging.String("model", name),
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "retrain or remove the artifact"),
		logging.String(logging.FieldImpact, "the "+name+" sub-result is reported invalid"))
}
