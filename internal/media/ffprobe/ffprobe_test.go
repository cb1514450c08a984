package ffprobe

import (
	"context"
	"math"
	"os/exec"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1080, "height": 1920,
     "avg_frame_rate": "30000/1001", "r_frame_rate": "30/1", "duration": "12.5",
     "tags": {"handler_name": "Core Media Video", "encoder": "Lavc60.3.100 libx264"}},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "tags": {"handler_name": "SoundHandler"}}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "12.512", "size": "2048", "bit_rate": "1310",
    "tags": {"major_brand": "isom", "com.apple.quicktime.make": "Apple", "Encoder": "Lavf60.3.100"}}
}`

func TestParseAndTagLookup(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected stream counts")
	}
	if got, _ := result.Tag("encoder"); got != "Lavf60.3.100" {
		t.Fatalf("container tag should win, got %q", got)
	}
	if got, ok := result.Tag("handler_name"); !ok || got != "Core Media Video" {
		t.Fatalf("expected stream tag fallback, got %q", got)
	}
	if _, ok := result.Tag("missing"); ok {
		t.Fatal("expected missing tag")
	}
	tags := result.AllTags()
	if tags["com.apple.quicktime.make"] != "Apple" || tags["encoder"] != "Lavf60.3.100" {
		t.Fatalf("unexpected flattened tags %v", tags)
	}
	video, ok := result.PrimaryVideo()
	if !ok || video.Width != 1080 {
		t.Fatalf("unexpected primary video %+v", video)
	}
	if rate := video.FrameRate(); math.Abs(rate-29.97) > 0.01 {
		t.Fatalf("unexpected frame rate %v", rate)
	}
	if result.DurationSeconds() != 12.512 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
	if (Stream{RFrameRate: "0/0"}).FrameRate() != 0 {
		t.Fatal("expected zero frame rate for 0/0")
	}
}

func TestDurationFallsBackToVideoStream(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "video", Duration: "4.0"}}}
	if result.DurationSeconds() != 4.0 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectMissingBinary(t *testing.T) {
	if _, err := exec.LookPath("deepcheck-no-such-ffprobe"); err == nil {
		t.Skip("unexpected binary present")
	}
	if _, err := Inspect(context.Background(), "deepcheck-no-such-ffprobe", "/tmp/x.mp4"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
