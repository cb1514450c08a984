package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"deepcheck/internal/forensics/spectrum"
	"deepcheck/internal/media/frames"
)

// Artifact kinds and the schema version written into every artifact.
const (
	ArtifactVersion   = 1
	KindFrequencySVM  = "frequency_svm"
	KindPCAAnomaly    = "pca_ocsvm"
	AnomalyImageSize  = 64
	lockRetryInterval = 250 * time.Millisecond
)

// Decisions reported by the anomaly model.
const (
	DecisionInlier  = "REAL"
	DecisionOutlier = "FAKE/ANOMALY"
)

// ErrArtifactMismatch reports an artifact of the wrong kind or version.
var ErrArtifactMismatch = errors.New("model artifact kind or version mismatch")

// FrequencyModel is the persisted frequency classifier.
type FrequencyModel struct {
	Version      int       `json:"version"`
	Kind         string    `json:"kind"`
	TrainedAt    time.Time `json:"trained_at"`
	Features     int       `json:"features"`
	TrainSamples int       `json:"train_samples"`
	TestSamples  int       `json:"test_samples"`
	Report       Report    `json:"report"`
	SVC          *SVC      `json:"svc"`
}

// FrequencyResult is the frequency sub-result of an evidence bundle.
type FrequencyResult struct {
	Valid           bool    `json:"valid"`
	Decision        string  `json:"decision,omitempty"`
	ProbabilityFake float64 `json:"probability_fake"`
	Error           string  `json:"error,omitempty"`
}

// Classify runs a radial profile through the model.
func (m *FrequencyModel) Classify(profile []float64) (FrequencyResult, error) {
	if len(profile) != m.Features {
		return FrequencyResult{}, fmt.Errorf("%w: got %d features, model expects %d", spectrum.ErrProfileShape, len(profile), m.Features)
	}
	return FrequencyResult{
		Valid:           true,
		Decision:        LabelName(m.SVC.Predict(profile)),
		ProbabilityFake: m.SVC.ProbabilityFake(profile),
	}, nil
}

// ClassifyImage extracts the profile of img and classifies it.
func (m *FrequencyModel) ClassifyImage(img image.Image) (FrequencyResult, error) {
	return m.Classify(spectrum.Profile(img))
}

// AnomalyModel is the persisted PCA + one-class SVM detector.
type AnomalyModel struct {
	Version   int          `json:"version"`
	Kind      string       `json:"kind"`
	TrainedAt time.Time    `json:"trained_at"`
	ImageSize int          `json:"image_size"`
	Samples   int          `json:"samples"`
	PCA       *PCA         `json:"pca"`
	OCSVM     *OneClassSVM `json:"ocsvm"`
}

// AnomalyResult is the anomaly sub-result of an evidence bundle.
type AnomalyResult struct {
	Valid               bool    `json:"valid"`
	Decision            string  `json:"decision,omitempty"`
	Inlier              bool    `json:"inlier"`
	Score               float64 `json:"score"`
	ReconstructionError float64 `json:"reconstruction_error"`
	Error               string  `json:"error,omitempty"`
}

// AnomalyFeatures flattens img to size x size grayscale scaled into [0, 1].
func AnomalyFeatures(img image.Image, size int) []float64 {
	flat := frames.GrayMatrix(img, size, size)
	for i := range flat {
		flat[i] /= 255
	}
	return flat
}

// Score projects img and reports the decision and reconstruction error.
func (m *AnomalyModel) Score(img image.Image) AnomalyResult {
	flat := AnomalyFeatures(img, m.ImageSize)
	projected := m.PCA.Transform(flat)
	score := m.OCSVM.Decision(projected)
	res := AnomalyResult{
		Valid:               true,
		Inlier:              score > 0,
		Score:               score,
		ReconstructionError: m.PCA.ReconstructionError(flat),
		Decision:            DecisionOutlier,
	}
	if res.Inlier {
		res.Decision = DecisionInlier
	}
	return res
}

// FormatPrediction renders a result the way the predict command prints it.
func FormatPrediction(res AnomalyResult) string {
	return fmt.Sprintf("Result: %s (Error: %.5f)", res.Decision, res.ReconstructionError)
}

// LoadFrequencyModel reads and checks a frequency artifact.
func LoadFrequencyModel(path string) (*FrequencyModel, error) {
	var m FrequencyModel
	if err := readArtifact(path, &m); err != nil {
		return nil, err
	}
	if m.Kind != KindFrequencySVM || m.Version != ArtifactVersion || m.SVC == nil {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMismatch, path)
	}
	return &m, nil
}

// LoadAnomalyModel reads and checks an anomaly artifact.
func LoadAnomalyModel(path string) (*AnomalyModel, error) {
	var m AnomalyModel
	if err := readArtifact(path, &m); err != nil {
		return nil, err
	}
	if m.Kind != KindPCAAnomaly || m.Version != ArtifactVersion || m.PCA == nil || m.OCSVM == nil || m.ImageSize <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMismatch, path)
	}
	return &m, nil
}

func readArtifact(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read model artifact: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	return nil
}

// lockArtifact takes the exclusive training lock beside path, waiting
// until ctx is done.
func lockArtifact(ctx context.Context, path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire training lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("training lock %s is held by another process", lock.Path())
	}
	return lock, nil
}

// writeArtifact writes v as JSON through a temp file and rename so readers
// never observe a partial artifact.
func writeArtifact(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model artifact: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("install model artifact: %w", err)
	}
	return nil
}
