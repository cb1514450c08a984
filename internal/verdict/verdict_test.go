package verdict

import (
	"errors"
	"strings"
	"testing"
	"time"

	"deepcheck/internal/evidence"
	"deepcheck/internal/fingerprint"
	"deepcheck/internal/forensics/metadata"
	"deepcheck/internal/services"
)

var analyzedAt = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func testKey(t *testing.T, kind fingerprint.Kind, input string) string {
	t.Helper()
	key, err := fingerprint.Key(kind, input)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	return key
}

func TestParseAssessmentToleratesFences(t *testing.T) {
	raw := "```json\n{\"score\": 82, \"verdict\": \"Fake\", \"reasoning\": \"lip sync drifts\", \"anomalies\": {\"visual\": [\"mouth blur\"]}}\n```"
	a, err := ParseAssessment(raw)
	if err != nil {
		t.Fatalf("ParseAssessment: %v", err)
	}
	if a.Verdict != Fake || a.RoundedScore() != 82 || len(a.Anomalies.Visual) != 1 {
		t.Fatalf("unexpected assessment: %+v", a)
	}
}

func TestParseAssessmentRejectsOutOfEnum(t *testing.T) {
	_, err := ParseAssessment(`{"score": 50, "verdict": "Probably", "reasoning": "hmm"}`)
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
	if !errors.Is(err, services.ErrOracle) {
		t.Fatalf("malformed response should be an oracle error: %v", err)
	}
}

func TestParseAssessmentRejectsProse(t *testing.T) {
	if _, err := ParseAssessment("I cannot analyze this video."); !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
	if _, err := ParseAssessment(`{"score": 150, "verdict": "Real", "reasoning": "x"}`); err == nil {
		t.Fatal("expected score range violation")
	}
}

func TestFuseDowngradesRealWithAITool(t *testing.T) {
	bundle := &evidence.Bundle{
		Metadata: metadata.Result{
			Valid:                true,
			AITool:               "Midjourney",
			SuspiciousIndicators: []string{"AI tool signature in metadata: Midjourney"},
		},
	}
	key := testKey(t, fingerprint.KindImage, "https://example.com/cat.png")
	rec := Fuse(fingerprint.KindImage, key, Assessment{Score: 10, Verdict: Real, Reasoning: "Looks natural."}, bundle, analyzedAt)

	if rec.Verdict != Uncertain {
		t.Fatalf("verdict = %s, want Uncertain", rec.Verdict)
	}
	if !strings.Contains(rec.Reasoning, "Midjourney") {
		t.Fatalf("reasoning = %q", rec.Reasoning)
	}
	if len(rec.Anomalies.Forensic) != 1 || !strings.Contains(rec.Anomalies.Forensic[0], "Midjourney") {
		t.Fatalf("forensic anomalies = %v", rec.Anomalies.Forensic)
	}
	data, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Verdict != Uncertain || back.HardScience == nil || back.HardScience.Metadata.AITool != "Midjourney" {
		t.Fatalf("round trip lost data: %+v", back)
	}
}

func TestFuseKeepsFakeAndText(t *testing.T) {
	key := testKey(t, fingerprint.KindText, "The moon is made of cheese")
	rec := Fuse(fingerprint.KindText, key, Assessment{Score: 97.6, Verdict: Fake, Reasoning: "No sources."}, nil, analyzedAt)
	if rec.Verdict != Fake || rec.Score != 98 || rec.HardScience != nil {
		t.Fatalf("unexpected record: %+v", rec)
	}
	data, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "hard_science") {
		t.Fatalf("text record should omit hard_science: %s", data)
	}
	if !strings.Contains(string(data), `"sources":[]`) {
		t.Fatalf("sources should serialize as an empty array: %s", data)
	}
}

func TestNewErrorRecord(t *testing.T) {
	key := testKey(t, fingerprint.KindVideo, "https://youtu.be/abc")
	cause := errors.New("yt-dlp: HTTP Error 403: Forbidden")
	rec := NewError(fingerprint.KindVideo, key, cause, nil, analyzedAt)
	if rec.Cacheable() {
		t.Fatal("error records must not be cacheable")
	}
	if rec.Error != cause.Error() || !strings.Contains(rec.Reasoning, cause.Error()) {
		t.Fatalf("error text not embedded verbatim: %+v", rec)
	}
	if _, err := rec.Marshal(); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
}

func TestValidateRecordRejectsBadDocuments(t *testing.T) {
	key := testKey(t, fingerprint.KindVideo, "https://youtu.be/abc")
	cases := map[string]Record{
		"bad verdict":     {Kind: fingerprint.KindVideo, Verdict: "Maybe", Fingerprint: key, AnalyzedAt: analyzedAt},
		"bad fingerprint": {Kind: fingerprint.KindVideo, Verdict: Real, Fingerprint: "abc", AnalyzedAt: analyzedAt},
		"score too high":  {Kind: fingerprint.KindVideo, Verdict: Real, Score: 101, Fingerprint: key, AnalyzedAt: analyzedAt},
		"error sans text": {Kind: fingerprint.KindVideo, Verdict: Error, Fingerprint: key, AnalyzedAt: analyzedAt},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := rec.Marshal()
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
