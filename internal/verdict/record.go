// Package verdict defines the VerdictRecord returned to callers and cached
// by fingerprint, validates it against an embedded JSON Schema, and fuses
// the oracle's assessment with the forensic evidence.
package verdict

import (
	"encoding/json"
	"fmt"
	"time"

	"deepcheck/internal/evidence"
	"deepcheck/internal/fingerprint"
)

// Verdict is the categorical outcome.
type Verdict string

const (
	Real      Verdict = "Real"
	Fake      Verdict = "Fake"
	Uncertain Verdict = "Uncertain"
	Error     Verdict = "Error"
)

// Anomalies groups the flagged observations by source.
type Anomalies struct {
	Visual       []string `json:"visual"`
	Audio        []string `json:"audio"`
	LogicalFlaws []string `json:"logical_flaws"`
	Forensic     []string `json:"forensic"`
}

func (a Anomalies) normalized() Anomalies {
	return Anomalies{
		Visual:       nonNil(a.Visual),
		Audio:        nonNil(a.Audio),
		LogicalFlaws: nonNil(a.LogicalFlaws),
		Forensic:     nonNil(a.Forensic),
	}
}

// Record is the final, serializable result of one analysis. Text records
// carry no HardScience.
type Record struct {
	Kind        fingerprint.Kind `json:"kind"`
	Score       int              `json:"score"`
	Verdict     Verdict          `json:"verdict"`
	Reasoning   string           `json:"reasoning"`
	Anomalies   Anomalies        `json:"anomalies"`
	Sources     []string         `json:"sources"`
	Sentiment   string           `json:"sentiment,omitempty"`
	Error       string           `json:"error,omitempty"`
	Fingerprint string           `json:"fingerprint"`
	AnalyzedAt  time.Time        `json:"analyzed_at"`
	HardScience *evidence.Bundle `json:"hard_science,omitempty"`
}

// Cacheable reports whether the record may be written to the cache.
// Error records are always recomputed.
func (r Record) Cacheable() bool { return r.Verdict != Error }

// Marshal serializes the record and validates the bytes against the record
// schema.
func (r Record) Marshal() ([]byte, error) {
	r.Anomalies = r.Anomalies.normalized()
	r.Sources = nonNil(r.Sources)
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode verdict record: %w", err)
	}
	if err := ValidateRecord(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Decode parses record bytes, typically from the cache.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decode verdict record: %w", err)
	}
	return r, nil
}

// NewError builds the Error record for a failed request. The underlying
// error text is embedded verbatim in both reasoning and error.
func NewError(kind fingerprint.Kind, key string, cause error, bundle *evidence.Bundle, now time.Time) Record {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return Record{
		Kind:        kind,
		Score:       0,
		Verdict:     Error,
		Reasoning:   "Analysis failed: " + msg,
		Anomalies:   Anomalies{}.normalized(),
		Sources:     []string{},
		Error:       msg,
		Fingerprint: key,
		AnalyzedAt:  now.UTC(),
		HardScience: bundle,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
