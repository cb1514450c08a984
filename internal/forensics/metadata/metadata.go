// Package metadata extracts container, EXIF and PNG text metadata from
// media and flags signatures that suggest synthetic generation or
// re-encoding.
package metadata

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"

	"deepcheck/internal/media/ffprobe"
)

// Kinds of media a Result describes.
const (
	KindVideo = "video"
	KindImage = "image"
)

const maxTextValue = 512

// Result is the metadata sub-result of an evidence bundle.
type Result struct {
	Valid                bool              `json:"valid"`
	Kind                 string            `json:"kind,omitempty"`
	Format               string            `json:"format,omitempty"`
	Codec                string            `json:"codec,omitempty"`
	Width                int               `json:"width,omitempty"`
	Height               int               `json:"height,omitempty"`
	DurationSeconds      float64           `json:"duration_seconds,omitempty"`
	Encoder              string            `json:"encoder,omitempty"`
	Handler              string            `json:"handler,omitempty"`
	Make                 string            `json:"make,omitempty"`
	Model                string            `json:"model,omitempty"`
	Software             string            `json:"software,omitempty"`
	CreationTime         string            `json:"creation_time,omitempty"`
	AITool               string            `json:"ai_tool,omitempty"`
	TextChunks           map[string]string `json:"text_chunks,omitempty"`
	SuspiciousIndicators []string          `json:"suspicious_indicators"`
	Summary              string            `json:"summary"`
	Error                string            `json:"error,omitempty"`

	tags []string
}

// Invalid builds a failed result carrying reason.
func Invalid(kind, reason string) Result {
	return Result{Valid: false, Kind: kind, SuspiciousIndicators: []string{}, Summary: "metadata unavailable", Error: reason}
}

// HasAITool reports whether a known generator signature was found.
func (r Result) HasAITool() bool { return r.AITool != "" }

// FromProbe builds the video result from an ffprobe inspection.
func FromProbe(probe ffprobe.Result) Result {
	res := Result{
		Valid:           true,
		Kind:            KindVideo,
		Format:          probe.Format.FormatName,
		DurationSeconds: probe.DurationSeconds(),
	}
	if video, ok := probe.PrimaryVideo(); ok {
		res.Codec = video.CodecName
		res.Width = video.Width
		res.Height = video.Height
		if handler, ok := lookup(video.Tags, "handler_name"); ok {
			res.Handler = handler
		}
	}
	res.Encoder = firstTag(probe, "encoder", "com.apple.quicktime.software", "software")
	res.Make = firstTag(probe, "com.apple.quicktime.make", "make", "com.android.manufacturer")
	res.Model = firstTag(probe, "com.apple.quicktime.model", "model", "com.android.model")
	res.Software = firstTag(probe, "com.apple.quicktime.software", "software", "com.android.version")
	res.CreationTime = firstTag(probe, "com.apple.quicktime.creationdate", "creation_time", "date")
	if res.Handler == "" {
		res.Handler = firstTag(probe, "handler_name")
	}

	tags := probe.AllTags()
	for _, key := range sortedKeys(tags) {
		res.tags = append(res.tags, tags[key])
	}
	res.finish()
	return res
}

// FromImage builds the image result from raw file bytes.
func FromImage(data []byte) Result {
	res := Result{Valid: true, Kind: KindImage}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		res.Format = format
		res.Width = cfg.Width
		res.Height = cfg.Height
	}

	if x, err := exif.Decode(bytes.NewReader(data)); err == nil {
		res.Make = exifString(x, exif.Make)
		res.Model = exifString(x, exif.Model)
		res.Software = exifString(x, exif.Software)
		res.CreationTime = exifString(x, exif.DateTimeOriginal)
		if res.CreationTime == "" {
			res.CreationTime = exifString(x, exif.DateTime)
		}
		for _, field := range []exif.FieldName{exif.ImageDescription, exif.Artist, exif.UserComment} {
			if v := exifString(x, field); v != "" {
				res.tags = append(res.tags, v)
			}
		}
	}

	if chunks, err := pngTextChunks(data); err == nil && len(chunks) > 0 {
		res.TextChunks = make(map[string]string, len(chunks))
		for _, key := range sortedKeys(chunks) {
			value := chunks[key]
			res.tags = append(res.tags, key+"="+value)
			res.TextChunks[key] = truncate(value, maxTextValue)
			if strings.EqualFold(key, "Software") && res.Software == "" {
				res.Software = value
			}
			if strings.EqualFold(key, "Creation Time") && res.CreationTime == "" {
				res.CreationTime = value
			}
		}
	}

	for _, marker := range syntheticSourceMarkers {
		if bytes.Contains(data, []byte(marker)) {
			res.tags = append(res.tags, "digital_source_type="+marker)
		}
	}
	res.finish()
	return res
}

// finish evaluates indicators and the summary once every field is set.
func (r *Result) finish() {
	r.SuspiciousIndicators = r.indicators()
	r.Summary = r.summarize()
}

func (r *Result) indicators() []string {
	out := []string{}
	add := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		for _, existing := range out {
			if existing == msg {
				return
			}
		}
		out = append(out, msg)
	}

	for _, value := range append([]string{r.Encoder, r.Software, r.Handler, r.Make, r.Model}, r.tags...) {
		if tool, ok := MatchAITool(value); ok {
			if r.AITool == "" {
				r.AITool = tool
			}
			add("AI tool signature in metadata: %s", tool)
		}
	}
	for _, key := range sortedKeys(r.TextChunks) {
		if _, ok := generatorChunkKeys[strings.ToLower(key)]; ok {
			add("generator prompt chunk present: %s", key)
		}
	}
	for _, tag := range r.tags {
		for _, marker := range syntheticSourceMarkers {
			if strings.HasSuffix(tag, "="+marker) {
				add("declared synthetic source type: %s", marker)
			}
		}
	}

	hasCamera := r.Make != "" || r.Model != ""
	if !hasCamera {
		reencoded := reencoderPattern.MatchString(r.Encoder) || reencoderPattern.MatchString(r.Software)
		if reencoded {
			add("no camera metadata and generic re-encoder (%s)", firstNonEmpty(r.Encoder, r.Software))
		}
		if r.CreationTime == "" {
			add("no camera metadata and missing creation time")
		}
	} else {
		makeVendor := vendorOf(r.Make)
		for _, field := range []string{r.Software, r.Encoder} {
			if field == "" || makeVendor == "" {
				continue
			}
			if other := vendorOf(field); other != "" && other != makeVendor {
				add("software %q does not match camera make %q", field, r.Make)
			}
		}
	}
	return out
}

func (r *Result) summarize() string {
	var parts []string
	switch {
	case r.Make != "" || r.Model != "":
		parts = append(parts, "camera "+strings.TrimSpace(r.Make+" "+r.Model))
	default:
		parts = append(parts, "no camera make/model")
	}
	if sw := firstNonEmpty(r.Software, r.Encoder); sw != "" {
		parts = append(parts, "software "+sw)
	}
	if r.CreationTime != "" {
		parts = append(parts, "created "+r.CreationTime)
	} else {
		parts = append(parts, "no creation time")
	}
	if len(r.SuspiciousIndicators) == 0 {
		parts = append(parts, "no suspicious indicators")
	} else {
		parts = append(parts, fmt.Sprintf("%d suspicious indicator(s): %s",
			len(r.SuspiciousIndicators), strings.Join(r.SuspiciousIndicators, "; ")))
	}
	return strings.Join(parts, ", ")
}

func firstTag(probe ffprobe.Result, keys ...string) string {
	for _, key := range keys {
		if v, ok := probe.Tag(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func lookup(tags map[string]string, key string) (string, bool) {
	for k, v := range tags {
		if strings.EqualFold(k, key) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func exifString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	v, err := tag.StringVal()
	if err != nil {
		return strings.Trim(tag.String(), `"`)
	}
	return strings.TrimSpace(strings.TrimRight(v, "\x00"))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
