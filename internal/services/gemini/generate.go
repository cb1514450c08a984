package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"deepcheck/internal/services/llm"
)

// GenerateRequest is one schema-constrained generation call.
type GenerateRequest struct {
	SystemInstruction string
	Prompt            string
	// File, when set, is referenced as a file_data part ahead of the prompt.
	File   *File
	Schema json.RawMessage
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
	Temperature      float64         `json:"temperature"`
}

type generateContentRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GenerateJSON runs generateContent with a JSON response MIME type and returns
// the concatenated text of the first candidate.
func (c *Client) GenerateJSON(ctx context.Context, request GenerateRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("gemini generate: api key required")
	}
	prompt := strings.TrimSpace(request.Prompt)
	if prompt == "" {
		return "", errors.New("gemini generate: prompt required")
	}
	parts := make([]part, 0, 2)
	if request.File != nil {
		parts = append(parts, part{FileData: &fileData{MimeType: request.File.MimeType, FileURI: request.File.URI}})
	}
	parts = append(parts, part{Text: prompt})
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   request.Schema,
		},
	}
	if system := strings.TrimSpace(request.SystemInstruction); system != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini generate: encode: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/models/" + url.PathEscape(c.cfg.Model) + ":generateContent"

	var text string
	err = c.retry.Do(ctx, "gemini generate", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		_, body, err := c.do(req)
		if err != nil {
			return err
		}
		var decoded generateContentResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return fmt.Errorf("gemini generate: decode response: %w", err)
		}
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			return fmt.Errorf("%w: %s", ErrBlocked, decoded.PromptFeedback.BlockReason)
		}
		if len(decoded.Candidates) == 0 {
			return llm.MarkRetryable(fmt.Errorf("gemini generate: no candidates (body: %s)", llm.Snippet(string(body))))
		}
		var b strings.Builder
		for _, p := range decoded.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
		text = strings.TrimSpace(b.String())
		if text == "" {
			if reason := decoded.Candidates[0].FinishReason; reason == "SAFETY" {
				return fmt.Errorf("%w: finish reason %s", ErrBlocked, reason)
			}
			return llm.MarkRetryable(errors.New("gemini generate: empty candidate text"))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
