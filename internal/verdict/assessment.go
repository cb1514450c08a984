package verdict

import (
	"encoding/json"
	"math"
	"strings"

	"deepcheck/internal/services"
	"deepcheck/internal/services/llm"
)

// Assessment is the oracle's structured answer before fusion.
type Assessment struct {
	Score     float64   `json:"score"`
	Verdict   Verdict   `json:"verdict"`
	Reasoning string    `json:"reasoning"`
	Anomalies Anomalies `json:"anomalies"`
	Sources   []string  `json:"sources"`
	Sentiment string    `json:"sentiment"`
}

// ParseAssessment decodes an oracle answer, tolerating code fences and
// surrounding prose, and validates it. Any failure is reported as a
// malformed oracle response.
func ParseAssessment(raw string) (Assessment, error) {
	payload := llm.ExtractJSON(raw)
	if payload == "" {
		return Assessment{}, services.Wrap(services.ErrMalformedResponse, "oracle", "parse", "no JSON object in response: "+llm.Snippet(raw), nil)
	}
	if err := validateAssessment([]byte(payload)); err != nil {
		return Assessment{}, services.Wrap(services.ErrMalformedResponse, "oracle", "parse", "response does not match schema", err)
	}
	var a Assessment
	if err := llm.DecodeJSON(payload, &a); err != nil {
		return Assessment{}, services.Wrap(services.ErrMalformedResponse, "oracle", "parse", "decode response", err)
	}
	a.Reasoning = strings.TrimSpace(a.Reasoning)
	return a, nil
}

// RoundedScore clamps the score into [0, 100] and rounds it.
func (a Assessment) RoundedScore() int {
	return int(math.Round(math.Max(0, math.Min(100, a.Score))))
}

// ResponseSchema is the generation-side schema sent to the oracle. It uses
// the OpenAPI subset accepted by structured-output endpoints.
var ResponseSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "score": {"type": "INTEGER", "description": "0 = certainly authentic, 100 = certainly fabricated or AI generated"},
    "verdict": {"type": "STRING", "enum": ["Real", "Fake", "Uncertain"]},
    "reasoning": {"type": "STRING"},
    "anomalies": {
      "type": "OBJECT",
      "properties": {
        "visual": {"type": "ARRAY", "items": {"type": "STRING"}},
        "audio": {"type": "ARRAY", "items": {"type": "STRING"}},
        "logical_flaws": {"type": "ARRAY", "items": {"type": "STRING"}},
        "forensic": {"type": "ARRAY", "items": {"type": "STRING"}}
      }
    },
    "sources": {"type": "ARRAY", "items": {"type": "STRING"}},
    "sentiment": {"type": "STRING"}
  },
  "required": ["score", "verdict", "reasoning"]
}`)

// JSONSchema is ResponseSchema in standard JSON Schema form for
// OpenAI-compatible json_schema response formats.
var JSONSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "score": {"type": "integer", "minimum": 0, "maximum": 100},
    "verdict": {"type": "string", "enum": ["Real", "Fake", "Uncertain"]},
    "reasoning": {"type": "string"},
    "anomalies": {
      "type": "object",
      "properties": {
        "visual": {"type": "array", "items": {"type": "string"}},
        "audio": {"type": "array", "items": {"type": "string"}},
        "logical_flaws": {"type": "array", "items": {"type": "string"}},
        "forensic": {"type": "array", "items": {"type": "string"}}
      }
    },
    "sources": {"type": "array", "items": {"type": "string"}},
    "sentiment": {"type": "string"}
  },
  "required": ["score", "verdict", "reasoning"]
}`)
