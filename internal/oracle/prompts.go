package oracle

import (
	"fmt"
	"strings"

	"deepcheck/internal/fingerprint"
)

const systemPrompt = `You are a digital forensics analyst. You decide whether media or a claim is authentic, manipulated, or AI generated.

Score from 0 to 100, where 0 means certainly authentic and 100 means certainly fabricated or AI generated.
Verdict is one of "Real", "Fake" or "Uncertain". Use "Uncertain" when the evidence conflicts or is too weak.
Treat the forensic measurements as hard evidence: cite them in your reasoning when they support or contradict what you observe.
List concrete observations only. Leave a list empty rather than inventing entries.
Respond with JSON only.`

// buildPrompt renders the user prompt for req.
func buildPrompt(req Request, withMedia bool) string {
	var b strings.Builder
	switch req.Kind {
	case fingerprint.KindText:
		b.WriteString("Fact-check the following text. Judge whether its claims are accurate and whether it reads as machine generated or deliberately misleading. ")
		b.WriteString("Put unsupported or contradictory claims in anomalies.logical_flaws, list supporting or refuting sources in sources, and describe the emotional tone in sentiment.\n\n")
		fmt.Fprintf(&b, "Text:\n%q\n", req.Text)
		return b.String()
	case fingerprint.KindImage:
		b.WriteString("Analyze this image for signs of AI generation or manipulation (lighting, anatomy, text rendering, texture, edges). ")
	default:
		b.WriteString("Analyze this video for deepfake manipulation (face blending, lip sync, blinking, lighting, audio artifacts, temporal glitches). ")
		b.WriteString("Put audio issues in anomalies.audio and narrative inconsistencies in anomalies.logical_flaws. ")
	}
	if !withMedia {
		b.WriteString("The media itself is not attached; base the judgement on the forensic measurements and the source location. ")
	}
	if req.Locator != "" {
		fmt.Fprintf(&b, "\n\nSource: %s", req.Locator)
	}
	if evidence := strings.TrimSpace(req.Evidence); evidence != "" {
		b.WriteString("\n\nForensic measurements:\n")
		b.WriteString(evidence)
	}
	b.WriteString("\n")
	return b.String()
}
