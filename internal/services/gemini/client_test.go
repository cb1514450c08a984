package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"deepcheck/internal/services/llm"
)

type fakeGemini struct {
	mu          sync.Mutex
	states      []string
	polls       int
	uploaded    []byte
	deleted     []string
	generateReq generateContentRequest
	answer      string
}

func (f *fakeGemini) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("X-Goog-Upload-Command") != "start" {
			t.Errorf("unexpected command %q", r.Header.Get("X-Goog-Upload-Command"))
		}
		w.Header().Set("X-Goog-Upload-URL", "http://"+r.Host+"/session/abc")
	})
	mux.HandleFunc("POST /session/abc", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.uploaded = body
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"file": map[string]any{
			"name": "files/abc", "uri": "http://" + r.Host + "/v1beta/files/abc", "mimeType": "video/mp4", "state": StateProcessing,
		}})
	})
	mux.HandleFunc("GET /v1beta/files/abc", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		state := StateProcessing
		if f.polls < len(f.states) {
			state = f.states[f.polls]
		}
		f.polls++
		f.mu.Unlock()
		payload := map[string]any{"name": "files/abc", "uri": "gs://abc", "mimeType": "video/mp4", "state": state}
		if state == StateFailed {
			payload["error"] = map[string]any{"code": 3, "message": "unsupported codec"}
		}
		_ = json.NewEncoder(w).Encode(payload)
	})
	mux.HandleFunc("DELETE /v1beta/files/abc", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, "files/abc")
		f.mu.Unlock()
	})
	mux.HandleFunc("POST /v1beta/models/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		f.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&f.generateReq)
		answer := f.answer
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": answer}}}},
		}})
	})
	return mux
}

func (f *fakeGemini) snapshot() fakeGemini {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeGemini{
		polls:       f.polls,
		uploaded:    append([]byte(nil), f.uploaded...),
		deleted:     append([]string(nil), f.deleted...),
		generateReq: f.generateReq,
	}
}

func newTestClient(t *testing.T, fake *fakeGemini) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	return NewClient(
		Config{APIKey: "key", BaseURL: server.URL + "/v1beta", UploadURL: server.URL + "/upload/v1beta/files", Model: "gemini-test"},
		WithRetryPolicy(llm.RetryPolicy{MaxAttempts: 1}),
		WithPollSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
	)
}

func writeMedia(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("fake-mp4-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadPollGenerateDelete(t *testing.T) {
	fake := &fakeGemini{states: []string{StateProcessing, StateActive}, answer: `{"score":12,"verdict":"Fake"}`}
	client := newTestClient(t, fake)
	ctx := context.Background()

	file, err := client.Upload(ctx, writeMedia(t), "video/mp4", "clip")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := fake.snapshot().uploaded; string(got) != "fake-mp4-bytes" {
		t.Fatalf("unexpected upload body %q", got)
	}
	ready, err := client.WaitForActive(ctx, file, PollConfig{MaxAttempts: 5})
	if err != nil {
		t.Fatalf("WaitForActive: %v", err)
	}
	if polls := fake.snapshot().polls; ready.State != StateActive || polls != 2 {
		t.Fatalf("expected ACTIVE after 2 polls, got %s after %d", ready.State, polls)
	}

	text, err := client.GenerateJSON(ctx, GenerateRequest{Prompt: "analyze", File: &ready, Schema: json.RawMessage(`{"type":"OBJECT"}`)})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if text != fake.answer {
		t.Fatalf("unexpected text %q", text)
	}
	sent := fake.snapshot().generateReq
	parts := sent.Contents[0].Parts
	if len(parts) != 2 || parts[0].FileData == nil || parts[0].FileData.FileURI != "gs://abc" {
		t.Fatalf("expected file_data part first, got %+v", parts)
	}
	if sent.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("unexpected mime type %q", sent.GenerationConfig.ResponseMimeType)
	}

	if err := client.DeleteFile(ctx, ready.Name); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if deleted := fake.snapshot().deleted; len(deleted) != 1 {
		t.Fatalf("expected one delete, got %v", deleted)
	}
}

func TestWaitForActiveReportsFailedState(t *testing.T) {
	fake := &fakeGemini{states: []string{StateFailed}}
	client := newTestClient(t, fake)
	_, err := client.WaitForActive(context.Background(), File{Name: "files/abc", State: StateProcessing}, PollConfig{MaxAttempts: 5})
	if !errors.Is(err, ErrFileFailed) {
		t.Fatalf("expected ErrFileFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported codec") {
		t.Fatalf("expected service reason in error, got %v", err)
	}
}

func TestWaitForActiveBoundedByAttempts(t *testing.T) {
	fake := &fakeGemini{}
	client := newTestClient(t, fake)
	_, err := client.WaitForActive(context.Background(), File{Name: "files/abc", State: StateProcessing}, PollConfig{MaxAttempts: 3})
	if !errors.Is(err, ErrPollExhausted) {
		t.Fatalf("expected ErrPollExhausted, got %v", err)
	}
	if polls := fake.snapshot().polls; polls != 3 {
		t.Fatalf("expected exactly 3 polls, got %d", polls)
	}
}

func TestWaitForActiveBoundedByDeadline(t *testing.T) {
	fake := &fakeGemini{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()
	client := NewClient(
		Config{APIKey: "key", BaseURL: server.URL + "/v1beta"},
		WithRetryPolicy(llm.RetryPolicy{MaxAttempts: 1}),
		WithPollSleeper(func(ctx context.Context, _ time.Duration) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	_, err := client.WaitForActive(context.Background(), File{Name: "files/abc", State: StateProcessing}, PollConfig{MaxAttempts: 100, Deadline: 20 * time.Millisecond})
	if !errors.Is(err, ErrPollExhausted) {
		t.Fatalf("expected ErrPollExhausted at deadline, got %v", err)
	}
}

func TestWaitForActiveCallerCancellationIsNotTimeout(t *testing.T) {
	client := newTestClient(t, &fakeGemini{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.WaitForActive(ctx, File{Name: "files/abc", State: StateProcessing}, PollConfig{})
	if errors.Is(err, ErrPollExhausted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateJSONTextOnlyOmitsFilePart(t *testing.T) {
	fake := &fakeGemini{answer: `{"score":90}`}
	client := newTestClient(t, fake)
	if _, err := client.GenerateJSON(context.Background(), GenerateRequest{Prompt: "check this claim"}); err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	parts := fake.snapshot().generateReq.Contents[0].Parts
	if len(parts) != 1 || parts[0].FileData != nil || parts[0].Text != "check this claim" {
		t.Fatalf("unexpected parts %+v", parts)
	}
}
