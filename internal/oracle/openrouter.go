package oracle

import (
	"context"
	"encoding/json"
	"log/slog"

	"deepcheck/internal/logging"
	"deepcheck/internal/services"
	"deepcheck/internal/services/llm"
	"deepcheck/internal/verdict"
)

type chatAPI interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt, name string, schema json.RawMessage) (string, error)
	Model() string
}

// OpenRouter synthesizes verdicts through an OpenAI-compatible chat API.
// It never uploads media.
type OpenRouter struct {
	client chatAPI
	logger *slog.Logger
}

// NewOpenRouter wraps a chat completion client.
func NewOpenRouter(client *llm.Client, logger *slog.Logger) *OpenRouter {
	return newOpenRouter(client, logger)
}

func newOpenRouter(client chatAPI, logger *slog.Logger) *OpenRouter {
	return &OpenRouter{client: client, logger: logging.NewComponentLogger(logger, "oracle")}
}

func (o *OpenRouter) Name() string { return "openrouter/" + o.client.Model() }

func (o *OpenRouter) Synthesize(ctx context.Context, req Request) (verdict.Assessment, error) {
	logger := logging.WithContext(ctx, o.logger)
	if req.MediaPath != "" {
		logger.Info("oracle media handling",
			logging.Args(logging.DecisionAttrs("oracle_media", "evidence_only", "provider accepts text only")...)...)
	}
	logger.Info("requesting oracle verdict", logging.String(logging.FieldStage, StageGenerate), logging.String("model", o.client.Model()))
	raw, err := o.client.CompleteJSON(ctx, systemPrompt, buildPrompt(req, false), "verdict", verdict.JSONSchema)
	if err != nil {
		return verdict.Assessment{}, services.Wrap(services.ErrOracle, "oracle", "complete", "chat completion failed", err)
	}
	return verdict.ParseAssessment(raw)
}
