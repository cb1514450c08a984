package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeCollapsesTrivialCases(t *testing.T) {
	if tee(nil, nil) != slog.DiscardHandler {
		t.Fatal("expected the discard handler when every child is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := tee(nil, inner); h != inner {
		t.Fatal("expected the single child to be returned unwrapped")
	}
}

func TestTeeRespectsChildLevels(t *testing.T) {
	var console, file bytes.Buffer
	info := slog.NewJSONHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := tee(info, debug)
	logger := slog.New(handler).With(FieldComponent, "pipeline")

	logger.Debug("frame sampled")
	logger.Info("verdict fused")

	if strings.Contains(console.String(), "frame sampled") {
		t.Fatalf("info child received a debug record: %q", console.String())
	}
	if !strings.Contains(file.String(), "frame sampled") || !strings.Contains(file.String(), "verdict fused") {
		t.Fatalf("debug child missing records: %q", file.String())
	}
	if !strings.Contains(console.String(), `"component":"pipeline"`) {
		t.Fatalf("WithAttrs not propagated: %q", console.String())
	}
	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee enabled when any child is")
	}
}

func TestRenderValueQuotesAmbiguousStrings(t *testing.T) {
	cases := map[string]string{
		"plain":     "plain",
		"two words": `"two words"`,
		"key=value": `"key=value"`,
		"":          `""`,
	}
	for in, want := range cases {
		if got := renderValue(slog.StringValue(in), true); got != want {
			t.Errorf("renderValue(%q) = %s, want %s", in, got, want)
		}
	}
	if got := renderValue(slog.StringValue("two words"), false); got != "two words" {
		t.Errorf("unquoted render = %s", got)
	}
}
