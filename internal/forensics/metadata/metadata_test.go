package metadata

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"strings"
	"testing"

	"deepcheck/internal/media/ffprobe"
)

func pngWithChunks(t *testing.T, chunks ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	data := buf.Bytes()
	iend := bytes.LastIndex(data, []byte("IEND")) - 4
	var out bytes.Buffer
	out.Write(data[:iend])
	for _, c := range chunks {
		body := append([]byte(c[0]+"\x00"), c[1]...)
		writeChunk(&out, "tEXt", body)
	}
	out.Write(data[iend:])
	return out.Bytes()
}

func writeChunk(w *bytes.Buffer, kind string, body []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(body)))
	w.Write(length[:])
	w.WriteString(kind)
	w.Write(body)
	crc := crc32.NewIEEE()
	crc.Write([]byte(kind))
	crc.Write(body)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	w.Write(sum[:])
}

func probe(t *testing.T, raw string) ffprobe.Result {
	t.Helper()
	res, err := ffprobe.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse probe: %v", err)
	}
	return res
}

func contains(list []string, substr string) bool {
	for _, item := range list {
		if strings.Contains(item, substr) {
			return true
		}
	}
	return false
}

func TestFromImageGeneratorChunks(t *testing.T) {
	data := pngWithChunks(t,
		[2]string{"parameters", "a cat astronaut, Steps: 30, Sampler: Euler a, Model: sdxl"},
		[2]string{"Software", "ComfyUI"},
	)
	res := FromImage(data)
	if !res.Valid || res.Format != "png" || res.Width != 4 {
		t.Fatalf("unexpected basics: %+v", res)
	}
	if !res.HasAITool() {
		t.Fatalf("expected AI tool detection: %+v", res)
	}
	if !contains(res.SuspiciousIndicators, "generator prompt chunk present: parameters") {
		t.Fatalf("missing prompt chunk indicator: %v", res.SuspiciousIndicators)
	}
	if res.Software != "ComfyUI" {
		t.Fatalf("software = %q", res.Software)
	}
	if !strings.Contains(res.Summary, "suspicious indicator") {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestFromImageBarePNG(t *testing.T) {
	res := FromImage(pngWithChunks(t))
	if res.HasAITool() {
		t.Fatalf("unexpected AI tool: %+v", res)
	}
	if !contains(res.SuspiciousIndicators, "missing creation time") {
		t.Fatalf("expected missing metadata indicator: %v", res.SuspiciousIndicators)
	}
}

func TestFromImageSyntheticSourceMarker(t *testing.T) {
	data := pngWithChunks(t, [2]string{"XML:com.adobe.xmp", "<Iptc4xmpExt:DigitalSourceType>http://cv.iptc.org/newscodes/digitalsourcetype/trainedAlgorithmicMedia</Iptc4xmpExt:DigitalSourceType>"})
	res := FromImage(data)
	if !contains(res.SuspiciousIndicators, "declared synthetic source type") {
		t.Fatalf("expected synthetic source indicator: %v", res.SuspiciousIndicators)
	}
}

func TestFromProbeCameraFootage(t *testing.T) {
	res := FromProbe(probe(t, `{
		"streams": [{"codec_type": "video", "codec_name": "hevc", "width": 1920, "height": 1080}],
		"format": {"format_name": "mov,mp4", "duration": "12.5", "tags": {
			"com.apple.quicktime.make": "Apple",
			"com.apple.quicktime.model": "iPhone 15",
			"com.apple.quicktime.software": "17.4.1",
			"creation_time": "2026-03-01T10:00:00.000000Z"
		}}
	}`))
	if len(res.SuspiciousIndicators) != 0 {
		t.Fatalf("camera footage flagged: %v", res.SuspiciousIndicators)
	}
	if res.Make != "Apple" || res.Codec != "hevc" || res.DurationSeconds != 12.5 {
		t.Fatalf("unexpected fields: %+v", res)
	}
}

func TestFromProbeReencodedWithoutCamera(t *testing.T) {
	res := FromProbe(probe(t, `{
		"streams": [{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720}],
		"format": {"format_name": "mov,mp4", "duration": "8.0", "tags": {"encoder": "Lavf60.16.100"}}
	}`))
	if !contains(res.SuspiciousIndicators, "generic re-encoder") {
		t.Fatalf("expected re-encoder indicator: %v", res.SuspiciousIndicators)
	}
	if !contains(res.SuspiciousIndicators, "missing creation time") {
		t.Fatalf("expected creation time indicator: %v", res.SuspiciousIndicators)
	}
}

func TestFromProbeAIToolAndMismatch(t *testing.T) {
	res := FromProbe(probe(t, `{
		"streams": [{"codec_type": "video", "codec_name": "h264"}],
		"format": {"format_name": "mp4", "tags": {
			"make": "Apple",
			"software": "Samsung Galaxy Camera",
			"comment": "Generated with Runway Gen-3",
			"creation_time": "2026-01-01T00:00:00Z"
		}}
	}`))
	if res.AITool == "" {
		t.Fatalf("expected AI tool: %+v", res)
	}
	if !contains(res.SuspiciousIndicators, "does not match camera make") {
		t.Fatalf("expected mismatch indicator: %v", res.SuspiciousIndicators)
	}
}

func TestMatchAITool(t *testing.T) {
	cases := map[string]bool{
		"Midjourney v6":           true,
		"DALL-E 3":                true,
		"Stable Diffusion XL":     true,
		"Adobe Photoshop 25.0":    false,
		"Lavf60.16.100":           false,
		"video handler":           false,
		"Google Imagen 3":         true,
		"HandBrake 1.7.0 2023110": false,
	}
	for value, want := range cases {
		if _, got := MatchAITool(value); got != want {
			t.Errorf("MatchAITool(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestPNGTextChunksRejectsOtherFormats(t *testing.T) {
	if _, err := pngTextChunks([]byte("GIF89a")); err == nil {
		t.Fatal("expected error for non-png data")
	}
}
