package classifier

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"deepcheck/internal/forensics/spectrum"
	"deepcheck/internal/logging"
)

// TrainOptions configures an offline training run.
type TrainOptions struct {
	DataDir      string
	OutputPath   string
	Seed         uint64
	TestFraction float64
	C            float64
	Nu           float64
	Retain       float64
	Logger       *slog.Logger
	now          func() time.Time
}

func (o TrainOptions) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now().UTC()
}

// FrequencyRun is the outcome of TrainFrequency.
type FrequencyRun struct {
	Model *FrequencyModel
	Stats DatasetStats
}

// TrainFrequency loads <data>/real and <data>/fake, fits the spectrum SVC
// on a stratified split, evaluates it on the held-out part and writes the
// artifact. The artifact lock is held for the whole run.
func TrainFrequency(ctx context.Context, opts TrainOptions) (FrequencyRun, error) {
	logger := logging.NewComponentLogger(opts.Logger, "classifier")
	lock, err := lockArtifact(ctx, opts.OutputPath)
	if err != nil {
		return FrequencyRun{}, err
	}
	defer func() { _ = lock.Unlock() }()

	samples, stats, err := LoadLabeled(ctx, opts.DataDir, spectrum.Profile, opts.Logger)
	if err != nil {
		return FrequencyRun{Stats: stats}, err
	}
	labels := make([]int, len(samples))
	for i, s := range samples {
		labels[i] = s.Label
	}
	split := StratifiedSplit(labels, opts.TestFraction, opts.Seed)
	trainX, trainY := gather(samples, split.Train)
	testX, testY := gather(samples, split.Test)

	logger.Info("training frequency classifier",
		logging.Int("train_samples", len(trainX)),
		logging.Int("test_samples", len(testX)),
		logging.Int("skipped", len(stats.Skipped)))
	svc, err := TrainSVC(trainX, trainY, SVCParams{C: opts.C, Probability: true, Seed: opts.Seed})
	if err != nil {
		return FrequencyRun{Stats: stats}, fmt.Errorf("fit frequency classifier: %w", err)
	}

	predicted := make([]int, len(testX))
	for i, x := range testX {
		predicted[i] = svc.Predict(x)
	}
	model := &FrequencyModel{
		Version:      ArtifactVersion,
		Kind:         KindFrequencySVM,
		TrainedAt:    opts.clock(),
		Features:     spectrum.Bins,
		TrainSamples: len(trainX),
		TestSamples:  len(testX),
		Report:       Evaluate(testY, predicted),
		SVC:          svc,
	}
	if err := writeArtifact(opts.OutputPath, model); err != nil {
		return FrequencyRun{Stats: stats}, err
	}
	logger.Info("frequency classifier saved",
		logging.String("path", opts.OutputPath),
		logging.Float64("accuracy", model.Report.Accuracy),
		logging.Int("support_vectors", len(svc.SupportVectors)))
	return FrequencyRun{Model: model, Stats: stats}, nil
}

// AnomalyRun is the outcome of TrainAnomaly.
type AnomalyRun struct {
	Model *AnomalyModel
	Stats DatasetStats
}

// TrainAnomaly fits PCA and a one-class SVM on real exemplars and writes the
// artifact.
func TrainAnomaly(ctx context.Context, opts TrainOptions) (AnomalyRun, error) {
	logger := logging.NewComponentLogger(opts.Logger, "classifier")
	lock, err := lockArtifact(ctx, opts.OutputPath)
	if err != nil {
		return AnomalyRun{}, err
	}
	defer func() { _ = lock.Unlock() }()

	extract := func(img image.Image) []float64 { return AnomalyFeatures(img, AnomalyImageSize) }
	samples, stats, err := LoadExemplars(ctx, opts.DataDir, extract, opts.Logger)
	if err != nil {
		return AnomalyRun{Stats: stats}, err
	}
	x := make([][]float64, len(samples))
	for i, s := range samples {
		x[i] = s.Features
	}

	pca, err := FitPCA(x, opts.Retain)
	if err != nil {
		return AnomalyRun{Stats: stats}, err
	}
	projected := make([][]float64, len(x))
	for i, row := range x {
		projected[i] = pca.Transform(row)
	}
	nu := opts.Nu
	if nu <= 0 {
		nu = DefaultNu
	}
	ocsvm, err := TrainOneClass(projected, nu, 0)
	if err != nil {
		return AnomalyRun{Stats: stats}, fmt.Errorf("fit anomaly detector: %w", err)
	}

	model := &AnomalyModel{
		Version:   ArtifactVersion,
		Kind:      KindPCAAnomaly,
		TrainedAt: opts.clock(),
		ImageSize: AnomalyImageSize,
		Samples:   len(x),
		PCA:       pca,
		OCSVM:     ocsvm,
	}
	if err := writeArtifact(opts.OutputPath, model); err != nil {
		return AnomalyRun{Stats: stats}, err
	}
	logger.Info("anomaly model saved",
		logging.String("path", opts.OutputPath),
		logging.Int("samples", len(x)),
		logging.Int("components", pca.Dims()))
	return AnomalyRun{Model: model, Stats: stats}, nil
}

func gather(samples []Sample, idx []int) ([][]float64, []int) {
	x := make([][]float64, len(idx))
	y := make([]int, len(idx))
	for i, j := range idx {
		x[i] = samples[j].Features
		y[i] = samples[j].Label
	}
	return x, y
}
