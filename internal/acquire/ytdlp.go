package acquire

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func ytdlpArgs(format, userAgent, outputTemplate, locator string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"--no-warnings",
		"-f", format,
		"-o", outputTemplate,
	}
	if userAgent != "" {
		args = append(args, "--user-agent", userAgent)
	}
	return append(args, "--", locator)
}

// findDownload returns the file yt-dlp produced for the given stem and
// removes everything else it left under that stem: partial downloads and
// per-format streams such as stem.f137.mp4.
func findDownload(dir, stem string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, stem+".*"))
	if err != nil {
		return "", err
	}
	var found string
	var leftovers []string
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") || strings.HasSuffix(match, ".ytdl") {
			leftovers = append(leftovers, match)
			continue
		}
		rest := strings.TrimPrefix(filepath.Base(match), stem+".")
		if found == "" && !strings.Contains(rest, ".") {
			found = match
			continue
		}
		leftovers = append(leftovers, match)
	}
	if found == "" {
		return "", fmt.Errorf("no output file for %s", stem)
	}
	for _, path := range leftovers {
		_ = os.Remove(path)
	}
	return found, nil
}

func videoMimeType(path string) string {
	if value := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(value, "video/") {
		return value
	}
	return "video/mp4"
}
