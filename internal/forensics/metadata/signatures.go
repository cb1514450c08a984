package metadata

import (
	"regexp"
	"strings"
)

// aiToolPattern matches generator and face-swap tool names that show up in
// encoder, software, comment or PNG text fields.
var aiToolPattern = regexp.MustCompile(`(?i)\b(` + strings.Join([]string{
	`midjourney`,
	`dall[-·\s]?e(?:\s?[23])?`,
	`stable[\s_-]?diffusion`,
	`sdxl`,
	`comfyui`,
	`automatic1111`,
	`invokeai`,
	`novelai`,
	`adobe\s+firefly`,
	`runway(?:ml)?`,
	`openai\s+sora`,
	`sora`,
	`pika\s?labs`,
	`kling`,
	`leonardo\.ai`,
	`ideogram`,
	`google\s+imagen`,
	`veo\s?[23]?`,
	`synthesia`,
	`heygen`,
	`deepfacelab`,
	`faceswap`,
	`dreamstudio`,
	`nightcafe`,
	`craiyon`,
	`flux\.1`,
}, "|") + `)\b`)

// generatorChunkKeys are PNG text keywords written by diffusion front-ends.
var generatorChunkKeys = map[string]struct{}{
	"parameters":      {},
	"prompt":          {},
	"workflow":        {},
	"negative_prompt": {},
	"sd-metadata":     {},
	"dream":           {},
}

// reencoderPattern matches generic muxers/encoders that replace the
// capture device's own tags.
var reencoderPattern = regexp.MustCompile(`(?i)\b(lavf|lavc|libavformat|ffmpeg|handbrake|x264|x265)`)

// syntheticSourceMarkers are IPTC/C2PA declarations of generated media.
var syntheticSourceMarkers = []string{
	"trainedAlgorithmicMedia",
	"compositeSynthetic",
	"algorithmicMedia",
}

// vendorFamilies lists camera makers with the tokens their firmware writes
// into software/encoder fields, checked in order.
var vendorFamilies = []struct {
	vendor string
	tokens []string
}{
	{"apple", []string{"apple", "iphone", "ipad", "quicktime", "ios "}},
	{"samsung", []string{"samsung", "one ui"}},
	{"google", []string{"google", "pixel", "hdr+"}},
	{"sony", []string{"sony", "ilce", "xperia"}},
	{"canon", []string{"canon"}},
	{"nikon", []string{"nikon"}},
	{"fujifilm", []string{"fujifilm"}},
	{"dji", []string{"dji"}},
	{"gopro", []string{"gopro"}},
	{"huawei", []string{"huawei"}},
	{"xiaomi", []string{"xiaomi", "miui"}},
}

// MatchAITool returns the first AI tool signature found in value.
func MatchAITool(value string) (string, bool) {
	m := aiToolPattern.FindString(value)
	if m == "" {
		return "", false
	}
	return m, true
}

func vendorOf(value string) string {
	lower := strings.ToLower(value) + " "
	for _, family := range vendorFamilies {
		for _, token := range family.tokens {
			if strings.Contains(lower, token) {
				return family.vendor
			}
		}
	}
	return ""
}
