package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"deepcheck/internal/logging"
	"deepcheck/internal/media/frames"
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
	".bmp": {}, ".gif": {}, ".tif": {}, ".tiff": {},
}

// ErrEmptyDataset reports a training directory with no usable images.
var ErrEmptyDataset = errors.New("no usable training images")

// FeatureFunc turns a decoded image into a feature vector.
type FeatureFunc func(image.Image) []float64

// Sample is one decoded training example.
type Sample struct {
	Path     string
	Label    int
	Features []float64
}

// DatasetStats counts what a load kept and dropped.
type DatasetStats struct {
	Loaded  map[string]int
	Skipped []string
}

// Total returns the number of loaded samples.
func (s DatasetStats) Total() int {
	total := 0
	for _, n := range s.Loaded {
		total += n
	}
	return total
}

// LoadLabeled reads <dir>/real and <dir>/fake.
func LoadLabeled(ctx context.Context, dir string, extract FeatureFunc, logger *slog.Logger) ([]Sample, DatasetStats, error) {
	stats := DatasetStats{Loaded: make(map[string]int)}
	var out []Sample
	for _, label := range []int{LabelReal, LabelFake} {
		samples, skipped, err := loadFolder(ctx, filepath.Join(dir, LabelName(label)), label, extract, logger)
		if err != nil {
			return nil, stats, err
		}
		stats.Loaded[LabelName(label)] = len(samples)
		stats.Skipped = append(stats.Skipped, skipped...)
		out = append(out, samples...)
	}
	if len(out) == 0 {
		return nil, stats, fmt.Errorf("%w in %s", ErrEmptyDataset, dir)
	}
	return out, stats, nil
}

// LoadExemplars reads the real exemplars for anomaly training: <dir>/real
// when present, otherwise the images directly under dir.
func LoadExemplars(ctx context.Context, dir string, extract FeatureFunc, logger *slog.Logger) ([]Sample, DatasetStats, error) {
	folder := filepath.Join(dir, LabelName(LabelReal))
	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		folder = dir
	}
	samples, skipped, err := loadFolder(ctx, folder, LabelReal, extract, logger)
	stats := DatasetStats{Loaded: map[string]int{LabelName(LabelReal): len(samples)}, Skipped: skipped}
	if err != nil {
		return nil, stats, err
	}
	if len(samples) == 0 {
		return nil, stats, fmt.Errorf("%w in %s", ErrEmptyDataset, folder)
	}
	return samples, stats, nil
}

// loadFolder decodes every image file in folder concurrently. Files that
// fail to decode or yield non-finite features are skipped and reported.
func loadFolder(ctx context.Context, folder string, label int, extract FeatureFunc, logger *slog.Logger) ([]Sample, []string, error) {
	logger = logging.NewComponentLogger(logger, "classifier")
	entries, err := os.ReadDir(folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("training folder %s does not exist", folder)
		}
		return nil, nil, fmt.Errorf("read training folder: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		paths = append(paths, filepath.Join(folder, name))
	}
	sort.Strings(paths)
	logger.Info("loading training images",
		logging.String("folder", folder),
		logging.String("label", LabelName(label)),
		logging.Int("files", len(paths)))

	results := make([]*Sample, len(paths))
	var (
		mu      sync.Mutex
		skipped []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := frames.DecodeFile(path)
			var features []float64
			if err == nil {
				features = extract(img)
				if len(features) == 0 || !allFinite(features) {
					err = errors.New("non-finite features")
				}
			}
			if err != nil {
				logger.Debug("skipping training image", logging.String("path", path), logging.Error(err))
				mu.Lock()
				skipped = append(skipped, path)
				mu.Unlock()
				return nil
			}
			results[i] = &Sample{Path: path, Label: label, Features: features}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]Sample, 0, len(results))
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	sort.Strings(skipped)
	return out, skipped, nil
}
