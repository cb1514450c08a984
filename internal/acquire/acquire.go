// Package acquire stages remote media on local disk for analysis.
//
// Videos are fetched with yt-dlp, images with a size-limited HTTP GET.
// Every staged file gets a random name under the staging directory and is
// owned by the returned Asset until Release.
package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"deepcheck/internal/config"
	"deepcheck/internal/fingerprint"
	"deepcheck/internal/logging"
	"deepcheck/internal/services"
)

// Acquirer stages the media a locator points at.
type Acquirer interface {
	Acquire(ctx context.Context, locator string, kind fingerprint.Kind) (*Asset, error)
}

// Option configures a Service.
type Option func(*Service)

// WithRunner replaces the yt-dlp command runner.
func WithRunner(r Runner) Option {
	return func(s *Service) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithHTTPClient replaces the image download client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.http = client
		}
	}
}

func withStatfs(fn statfsFunc) Option {
	return func(s *Service) { s.statfs = fn }
}

// Service is the default Acquirer.
type Service struct {
	cfg        config.Acquire
	stagingDir string
	runner     Runner
	http       *http.Client
	statfs     statfsFunc
	logger     *slog.Logger
}

// New builds an acquisition service that stages into stagingDir.
func New(cfg config.Acquire, stagingDir string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:        cfg,
		stagingDir: stagingDir,
		runner:     commandRunner{},
		http:       &http.Client{},
		statfs:     realStatfs,
		logger:     logging.NewComponentLogger(logger, "acquire"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire stages the media behind locator. Any failure is an
// ErrAcquisition and leaves nothing behind in the staging directory.
func (s *Service) Acquire(ctx context.Context, locator string, kind fingerprint.Kind) (*Asset, error) {
	target, err := validateLocator(locator)
	if err != nil {
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "validate locator", "", err)
	}
	if err := os.MkdirAll(s.stagingDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "prepare staging", s.stagingDir, err)
	}
	if err := ensureFreeSpace(s.statfs, s.stagingDir, s.cfg.MinFreeMiB); err != nil {
		return nil, err
	}

	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()
	var asset *Asset
	switch kind {
	case fingerprint.KindVideo:
		asset, err = s.fetchVideo(ctx, target.String())
	case fingerprint.KindImage:
		asset, err = s.fetchImage(ctx, target.String())
	default:
		err = services.Wrap(services.ErrAcquisition, "acquire", "select method", fmt.Sprintf("kind %q has no media", kind), nil)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("media staged",
		logging.String("kind", string(kind)),
		logging.String("path", asset.Path),
		logging.Int64("bytes", asset.Size),
		logging.String("sha256", asset.SHA256),
		logging.Duration("elapsed", time.Since(started)))
	return asset, nil
}

func validateLocator(locator string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("missing host")
	}
	return parsed, nil
}

func (s *Service) fetchVideo(ctx context.Context, locator string) (*Asset, error) {
	stem := uuid.NewString()
	template := filepath.Join(s.stagingDir, stem+".%(ext)s")
	args := ytdlpArgs(s.cfg.YtDlpFormat, s.cfg.UserAgent, template, locator)
	if _, err := s.runner.Run(ctx, s.cfg.YtDlpBinary, args); err != nil {
		removeStem(s.stagingDir, stem)
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "yt-dlp", "download failed", err)
	}
	path, err := findDownload(s.stagingDir, stem)
	if err != nil {
		removeStem(s.stagingDir, stem)
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "yt-dlp", "locate download", err)
	}
	asset, err := NewAsset(path, locator, videoMimeType(path), fingerprint.KindVideo)
	if err != nil {
		_ = os.Remove(path)
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "yt-dlp", "", err)
	}
	return asset, nil
}

func (s *Service) fetchImage(ctx context.Context, locator string) (*Asset, error) {
	limit := int64(s.cfg.MaxImageMiB) * 1024 * 1024
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "image download", "build request", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	req.Header.Set("Accept", "image/*")
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "image download", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "image download", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	if limit > 0 && resp.ContentLength > limit {
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "image download", fmt.Sprintf("image exceeds %d MiB", s.cfg.MaxImageMiB), nil)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "image download", "read body", err)
	}
	head = head[:n]
	mimeType := http.DetectContentType(head)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "image download", fmt.Sprintf("content is %s, not an image", mimeType), nil)
	}

	path := filepath.Join(s.stagingDir, uuid.NewString()+imageExtension(mimeType))
	if err := writeLimited(path, io.MultiReader(bytes.NewReader(head), resp.Body), limit); err != nil {
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "image download", "", err)
	}
	asset, err := NewAsset(path, locator, mimeType, fingerprint.KindImage)
	if err != nil {
		_ = os.Remove(path)
		return nil, services.Wrap(services.ErrAcquisition, "acquire", "image download", "", err)
	}
	return asset, nil
}

// writeLimited copies src into path and removes the file when src holds
// more than limit bytes.
func writeLimited(path string, src io.Reader, limit int64) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close staged file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	if limit <= 0 {
		_, err = io.Copy(file, src)
		return err
	}
	written, err := io.Copy(file, io.LimitReader(src, limit+1))
	if err != nil {
		return fmt.Errorf("write staged file: %w", err)
	}
	if written > limit {
		return fmt.Errorf("image exceeds %d bytes", limit)
	}
	return nil
}

func imageExtension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	}
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}

func removeStem(dir, stem string) {
	matches, _ := filepath.Glob(filepath.Join(dir, stem+".*"))
	for _, match := range matches {
		_ = os.Remove(match)
	}
}
