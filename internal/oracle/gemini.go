package oracle

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"deepcheck/internal/logging"
	"deepcheck/internal/services"
	"deepcheck/internal/services/gemini"
	"deepcheck/internal/verdict"
)

const deleteTimeout = 30 * time.Second

// Stage names logged while the oracle works.
const (
	StageUpload          = "oracle_upload"
	StageWaitingForReady = "waiting_for_ready"
	StageGenerate        = "oracle_generate"
)

type geminiAPI interface {
	Upload(ctx context.Context, path, mimeType, displayName string) (gemini.File, error)
	WaitForActive(ctx context.Context, file gemini.File, cfg gemini.PollConfig) (gemini.File, error)
	GenerateJSON(ctx context.Context, request gemini.GenerateRequest) (string, error)
	DeleteFile(ctx context.Context, name string) error
	Model() string
}

// Gemini synthesizes verdicts with the Gemini API.
type Gemini struct {
	client geminiAPI
	poll   gemini.PollConfig
	logger *slog.Logger
}

// NewGemini wraps a Gemini client.
func NewGemini(client *gemini.Client, poll gemini.PollConfig, logger *slog.Logger) *Gemini {
	return newGemini(client, poll, logger)
}

func newGemini(client geminiAPI, poll gemini.PollConfig, logger *slog.Logger) *Gemini {
	return &Gemini{client: client, poll: poll, logger: logging.NewComponentLogger(logger, "oracle")}
}

func (g *Gemini) Name() string { return "gemini/" + g.client.Model() }

// Synthesize uploads the media (if any), waits until it is ready, asks for
// a schema-constrained assessment and removes the uploaded file on every
// exit path.
func (g *Gemini) Synthesize(ctx context.Context, req Request) (verdict.Assessment, error) {
	logger := logging.WithContext(ctx, g.logger)
	genReq := gemini.GenerateRequest{
		SystemInstruction: systemPrompt,
		Schema:            verdict.ResponseSchema,
	}

	if req.MediaPath != "" {
		logger.Info("uploading media to oracle", logging.String(logging.FieldStage, StageUpload), logging.String("mime_type", req.MimeType))
		file, err := g.client.Upload(ctx, req.MediaPath, req.MimeType, filepath.Base(req.MediaPath))
		if err != nil {
			return verdict.Assessment{}, services.Wrap(services.ErrOracle, "oracle", "upload", "media upload failed", err)
		}
		defer g.deleteFile(ctx, logger, file.Name)

		logger.Info("waiting for oracle file", logging.String(logging.FieldStage, StageWaitingForReady), logging.String("file", file.Name))
		ready, err := g.client.WaitForActive(ctx, file, g.poll)
		if err != nil {
			return verdict.Assessment{}, mapPollError(err)
		}
		genReq.File = &ready
	}
	genReq.Prompt = buildPrompt(req, req.MediaPath != "")

	logger.Info("requesting oracle verdict", logging.String(logging.FieldStage, StageGenerate), logging.String("model", g.client.Model()))
	raw, err := g.client.GenerateJSON(ctx, genReq)
	if err != nil {
		return verdict.Assessment{}, services.Wrap(services.ErrOracle, "oracle", "generate", "generateContent failed", err)
	}
	return verdict.ParseAssessment(raw)
}

func (g *Gemini) deleteFile(ctx context.Context, logger *slog.Logger, name string) {
	if name == "" {
		return
	}
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeout)
	defer cancel()
	if err := g.client.DeleteFile(delCtx, name); err != nil {
		logging.WarnWithContext(logger, "failed to delete oracle file", "oracle_file_delete_failed",
			logging.String("file", name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the file expires server-side after 48h"),
			logging.String(logging.FieldImpact, "uploaded media lingers in the oracle's file store"))
	}
}

func mapPollError(err error) error {
	switch {
	case errors.Is(err, gemini.ErrPollExhausted):
		return services.Wrap(services.ErrOracleTimeout, "oracle", "wait for ready", "", err)
	case errors.Is(err, gemini.ErrFileFailed):
		return services.Wrap(services.ErrOracleProcessing, "oracle", "wait for ready", "", err)
	default:
		return services.Wrap(services.ErrOracle, "oracle", "wait for ready", "", err)
	}
}
