// Package evidence runs the forensic extractors against one media asset and
// collects their independent results into a Bundle.
package evidence

import (
	"fmt"
	"strings"

	"deepcheck/internal/classifier"
	"deepcheck/internal/forensics/ela"
	"deepcheck/internal/forensics/flux"
	"deepcheck/internal/forensics/metadata"
)

// Bundle holds one sub-result per extractor. Each carries its own validity
// flag; an invalid entry never affects the others.
type Bundle struct {
	Metadata         metadata.Result            `json:"metadata"`
	ELA              ela.Result                 `json:"ela"`
	FrameConsistency flux.Result                `json:"frame_consistency"`
	AnomalyModel     classifier.AnomalyResult   `json:"anomaly_model"`
	Frequency        classifier.FrequencyResult `json:"frequency"`
}

// ValidCount returns how many sub-results are valid.
func (b Bundle) ValidCount() int {
	n := 0
	for _, ok := range []bool{b.Metadata.Valid, b.ELA.Valid, b.FrameConsistency.Valid, b.AnomalyModel.Valid, b.Frequency.Valid} {
		if ok {
			n++
		}
	}
	return n
}

// Summaries returns one short sentence per extractor, in a fixed order,
// suitable for an oracle prompt.
func (b Bundle) Summaries() []string {
	return []string{
		b.metadataSummary(),
		b.elaSummary(),
		b.fluxSummary(),
		b.anomalySummary(),
		b.frequencySummary(),
	}
}

// Summary joins Summaries into a single block of text.
func (b Bundle) Summary() string {
	return "- " + strings.Join(b.Summaries(), "\n- ")
}

// Findings lists the evidence that points toward manipulation. They are
// appended to the verdict's forensic anomalies.
func (b Bundle) Findings() []string {
	var out []string
	if b.Metadata.Valid {
		for _, indicator := range b.Metadata.SuspiciousIndicators {
			out = append(out, "metadata: "+indicator)
		}
	}
	if b.ELA.Valid && b.ELA.Interpretation == ela.LowNoise {
		out = append(out, fmt.Sprintf("ela: low recompression noise (score %.2f)", b.ELA.Score))
	}
	if b.AnomalyModel.Valid && !b.AnomalyModel.Inlier {
		out = append(out, fmt.Sprintf("anomaly model: outlier (reconstruction error %.5f)", b.AnomalyModel.ReconstructionError))
	}
	if b.Frequency.Valid && b.Frequency.Decision == classifier.LabelName(classifier.LabelFake) {
		out = append(out, fmt.Sprintf("frequency classifier: fake spectrum (p=%.2f)", b.Frequency.ProbabilityFake))
	}
	return out
}

func (b Bundle) metadataSummary() string {
	if !b.Metadata.Valid {
		return unavailable("Metadata", b.Metadata.Error)
	}
	return "Metadata: " + b.Metadata.Summary
}

func (b Bundle) elaSummary() string {
	if !b.ELA.Valid {
		return unavailable("Error level analysis", b.ELA.Error)
	}
	return fmt.Sprintf("Error level analysis: mean difference %.2f, max %d; %s",
		b.ELA.Score, b.ELA.MaxDifference, b.ELA.Interpretation)
}

func (b Bundle) fluxSummary() string {
	if !b.FrameConsistency.Valid {
		return unavailable("Frame consistency", b.FrameConsistency.Error)
	}
	return fmt.Sprintf("Frame consistency: flux variance %.2f, average movement %.2f across %d frames",
		b.FrameConsistency.FluxScore, b.FrameConsistency.AvgMovement, b.FrameConsistency.FramesSampled)
}

func (b Bundle) anomalySummary() string {
	if !b.AnomalyModel.Valid {
		return unavailable("PCA anomaly model", b.AnomalyModel.Error)
	}
	return fmt.Sprintf("PCA anomaly model: %s, reconstruction error %.5f",
		b.AnomalyModel.Decision, b.AnomalyModel.ReconstructionError)
}

func (b Bundle) frequencySummary() string {
	if !b.Frequency.Valid {
		return unavailable("Frequency classifier", b.Frequency.Error)
	}
	return fmt.Sprintf("Frequency classifier: %s, probability fake %.2f",
		b.Frequency.Decision, b.Frequency.ProbabilityFake)
}

func unavailable(label, reason string) string {
	if strings.TrimSpace(reason) == "" {
		reason = ReasonNotRun
	}
	return label + ": unavailable (" + reason + ")"
}
