// Package oracle adapts external reasoning models into a single Synthesize
// call that returns a validated verdict.Assessment.
//
// The Gemini backend uploads media through the Files API, waits for the
// file to become ACTIVE under a bounded poll, then requests
// schema-constrained JSON. The OpenRouter backend is text only: media
// requests are reasoned over from the forensic evidence summary alone.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deepcheck/internal/config"
	"deepcheck/internal/fingerprint"
	"deepcheck/internal/services"
	"deepcheck/internal/services/gemini"
	"deepcheck/internal/services/llm"
	"deepcheck/internal/verdict"
)

// Request is the input to one synthesis call.
type Request struct {
	Kind fingerprint.Kind
	// Locator is the user-supplied URL, when there is one.
	Locator string
	// MediaPath and MimeType describe the staged asset for video and image.
	MediaPath string
	MimeType  string
	// Text is the claim under review for text requests.
	Text string
	// Evidence is the newline-separated forensic summary.
	Evidence string
}

// Oracle produces an assessment for a request.
type Oracle interface {
	Synthesize(ctx context.Context, req Request) (verdict.Assessment, error)
	Name() string
}

// New builds the oracle selected by cfg.Provider.
func New(cfg config.Oracle, logger *slog.Logger) (Oracle, error) {
	switch cfg.Provider {
	case config.OracleProviderGemini, "":
		client := gemini.NewClient(gemini.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			UploadURL:      cfg.UploadURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
		})
		return NewGemini(client, PollConfigFrom(cfg), logger), nil
	case config.OracleProviderOpenRouter:
		client := llm.NewClient(llm.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			TimeoutSeconds: cfg.TimeoutSeconds,
		})
		return NewOpenRouter(client, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "oracle", "select provider", fmt.Sprintf("unknown provider %q", cfg.Provider), nil)
	}
}

// PollConfigFrom maps the oracle poll settings.
func PollConfigFrom(cfg config.Oracle) gemini.PollConfig {
	return gemini.PollConfig{
		Interval:    time.Duration(cfg.PollInterval) * time.Second,
		MaxInterval: time.Duration(cfg.PollMaxInterval) * time.Second,
		MaxAttempts: cfg.PollMaxAttempts,
		Deadline:    time.Duration(cfg.PollDeadline) * time.Second,
	}
}
