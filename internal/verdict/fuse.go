package verdict

import (
	"fmt"
	"time"

	"deepcheck/internal/evidence"
	"deepcheck/internal/fingerprint"
)

// Fuse combines the oracle assessment with the forensic bundle. Evidence
// findings are appended to the forensic anomalies, and a Real verdict is
// downgraded to Uncertain when metadata carries a known AI tool signature.
func Fuse(kind fingerprint.Kind, key string, a Assessment, bundle *evidence.Bundle, now time.Time) Record {
	rec := Record{
		Kind:        kind,
		Score:       a.RoundedScore(),
		Verdict:     a.Verdict,
		Reasoning:   a.Reasoning,
		Anomalies:   a.Anomalies.normalized(),
		Sources:     nonNil(a.Sources),
		Sentiment:   a.Sentiment,
		Fingerprint: key,
		AnalyzedAt:  now.UTC(),
		HardScience: bundle,
	}
	if bundle == nil {
		return rec
	}
	rec.Anomalies.Forensic = appendUnique(rec.Anomalies.Forensic, bundle.Findings()...)
	if rec.Verdict == Real && bundle.Metadata.HasAITool() {
		rec.Verdict = Uncertain
		rec.Reasoning = fmt.Sprintf("%s Downgraded from Real to Uncertain: metadata carries the AI tool signature %q.",
			rec.Reasoning, bundle.Metadata.AITool)
	}
	return rec
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}
