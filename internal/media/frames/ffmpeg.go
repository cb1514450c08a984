package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"deepcheck/internal/media/ffprobe"
)

// ErrNoFrames reports a video from which no frame could be decoded.
var ErrNoFrames = errors.New("no decodable frames")

// Sampler pulls frames out of video files with ffmpeg.
type Sampler struct {
	FFmpegBinary  string
	FFprobeBinary string
}

func (s Sampler) ffmpeg() string {
	if b := strings.TrimSpace(s.FFmpegBinary); b != "" {
		return b
	}
	return "ffmpeg"
}

// Probe runs ffprobe on path.
func (s Sampler) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	return ffprobe.Inspect(ctx, s.FFprobeBinary, path)
}

// FrameAt decodes the frame at the given offset in seconds.
func (s Sampler) FrameAt(ctx context.Context, path string, seconds float64) (image.Image, error) {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	args := []string{
		"-v", "error", "-nostdin",
		"-ss", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "png", "-",
	}
	cmd := exec.CommandContext(ctx, s.ffmpeg(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame at %.3fs: %w: %s", seconds, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg frame at %.3fs: %w", seconds, ErrNoFrames)
	}
	return Decode(stdout.Bytes())
}

// Duration returns the media duration in seconds, or 0 when unknown.
func (s Sampler) Duration(ctx context.Context, path string) (float64, error) {
	probe, err := s.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	duration := probe.DurationSeconds()
	if math.IsNaN(duration) || duration < 0 {
		return 0, nil
	}
	return duration, nil
}

// Middle decodes the frame halfway through the video.
func (s Sampler) Middle(ctx context.Context, path string) (image.Image, error) {
	duration, err := s.Duration(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.FrameAt(ctx, path, duration/2)
}

// SampleOffsets returns count evenly spaced offsets across duration, the
// first at 0 and the last one frame-interval short of the end.
func SampleOffsets(duration float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if duration <= 0 {
		return []float64{0}
	}
	offsets := make([]float64, count)
	step := duration / float64(count)
	for i := range offsets {
		offsets[i] = step * float64(i)
	}
	return offsets
}

// SampleEven decodes count frames spaced evenly across the video. Frames
// that fail to decode are skipped; the caller decides how many it needs.
func (s Sampler) SampleEven(ctx context.Context, path string, count int) ([]image.Image, error) {
	duration, err := s.Duration(ctx, path)
	if err != nil {
		return nil, err
	}
	var (
		out     []image.Image
		lastErr error
	)
	for _, offset := range SampleOffsets(duration, count) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		img, err := s.FrameAt(ctx, path, offset)
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, img)
	}
	if len(out) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoFrames, lastErr)
		}
		return nil, ErrNoFrames
	}
	return out, nil
}
