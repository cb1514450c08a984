package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"deepcheck/internal/acquire"
	"deepcheck/internal/evidence"
	"deepcheck/internal/fingerprint"
	"deepcheck/internal/forensics/ela"
	"deepcheck/internal/forensics/metadata"
	"deepcheck/internal/logging"
	"deepcheck/internal/oracle"
	"deepcheck/internal/services"
	"deepcheck/internal/verdict"
	"deepcheck/internal/verdictcache"
)

type fakeAcquirer struct {
	dir    string
	err    error
	calls  atomic.Int32
	mu     sync.Mutex
	assets []*acquire.Asset
}

func (f *fakeAcquirer) Acquire(_ context.Context, locator string, kind fingerprint.Kind) (*acquire.Asset, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.dir, fmt.Sprintf("asset-%d.mp4", n))
	if err := os.WriteFile(path, []byte("media"), 0o600); err != nil {
		return nil, err
	}
	asset, err := acquire.NewAsset(path, locator, "video/mp4", kind)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.assets = append(f.assets, asset)
	f.mu.Unlock()
	return asset, nil
}

type fakeCollector struct {
	bundle evidence.Bundle
	calls  atomic.Int32
}

func (f *fakeCollector) Collect(_ context.Context, media evidence.Media) evidence.Bundle {
	f.calls.Add(1)
	if _, err := os.Stat(media.Path); err != nil {
		panic("collector ran after cleanup: " + err.Error())
	}
	return f.bundle
}

type fakeOracle struct {
	assessment verdict.Assessment
	err        error
	calls      atomic.Int32
	gate       chan struct{}
	lastReq    oracle.Request
	mu         sync.Mutex
}

func (f *fakeOracle) Synthesize(ctx context.Context, req oracle.Request) (verdict.Assessment, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return verdict.Assessment{}, ctx.Err()
		}
	}
	return f.assessment, f.err
}

func (f *fakeOracle) Name() string { return "fake" }

func fakeAssessment() verdict.Assessment {
	return verdict.Assessment{
		Score:     88,
		Verdict:   verdict.Fake,
		Reasoning: "face boundary flickers between frames",
		Anomalies: verdict.Anomalies{Visual: []string{"boundary flicker"}},
	}
}

func validBundle() evidence.Bundle {
	return evidence.Bundle{
		ELA:      ela.Result{Valid: true, Score: 1.1, MaxDifference: 9, Interpretation: ela.LowNoise},
		Metadata: metadata.Result{Valid: true, Kind: metadata.KindVideo, Summary: "mp4 h264"},
	}
}

type harness struct {
	pipe      *Pipeline
	acquirer  *fakeAcquirer
	collector *fakeCollector
	oracle    *fakeOracle
	store     *verdictcache.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		acquirer:  &fakeAcquirer{dir: t.TempDir()},
		collector: &fakeCollector{bundle: validBundle()},
		oracle:    &fakeOracle{assessment: fakeAssessment()},
		store:     verdictcache.NewMemoryStore(),
	}
	cache := verdictcache.New(h.store, time.Hour, logging.NewNop())
	h.pipe = New(cache, h.acquirer, h.collector, h.oracle, Options{Timeout: 5 * time.Second, MaxTextBytes: 64}, logging.NewNop())
	return h
}

func (h *harness) assertReleased(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.acquirer.dir)
	if err != nil {
		t.Fatalf("read staging: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staged files left behind: %d", len(entries))
	}
}

func decode(t *testing.T, data []byte) verdict.Record {
	t.Helper()
	rec, err := verdict.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec
}

func TestAnalyzeVideoFusesAndCaches(t *testing.T) {
	h := newHarness(t)
	req := Request{Kind: fingerprint.KindVideo, Input: "https://video.example.com/watch?v=42&utm_source=x"}

	first, err := h.pipe.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	rec := decode(t, first.Record)
	if rec.Verdict != verdict.Fake || rec.Score != 88 || rec.Kind != fingerprint.KindVideo {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.HardScience == nil || !rec.HardScience.ELA.Valid {
		t.Fatal("record should carry the evidence bundle")
	}
	if rec.Fingerprint != first.Key {
		t.Fatalf("fingerprint mismatch %s vs %s", rec.Fingerprint, first.Key)
	}
	if !strings.Contains(h.oracle.lastReq.Evidence, "Error level analysis") || h.oracle.lastReq.MimeType != "video/mp4" {
		t.Fatalf("oracle request missing evidence: %+v", h.oracle.lastReq)
	}
	h.assertReleased(t)

	second, err := h.pipe.Analyze(context.Background(), Request{Kind: fingerprint.KindVideo, Input: "https://VIDEO.example.com/watch?v=42"})
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if !second.Outcome.Hit {
		t.Fatal("equivalent locator should hit the cache")
	}
	if string(second.Record) != string(first.Record) {
		t.Fatal("cache hit must return identical bytes")
	}
	if h.oracle.calls.Load() != 1 || h.acquirer.calls.Load() != 1 {
		t.Fatalf("expected one execution, oracle=%d acquire=%d", h.oracle.calls.Load(), h.acquirer.calls.Load())
	}
}

func TestAnalyzeOracleTimeoutYieldsUncachedErrorRecord(t *testing.T) {
	h := newHarness(t)
	h.oracle.err = services.Wrap(services.ErrOracleTimeout, "oracle", "wait for ready", "", errors.New("files/abc still PROCESSING after 30 polls"))
	req := Request{Kind: fingerprint.KindVideo, Input: "https://video.example.com/slow"}

	res, err := h.pipe.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	rec := decode(t, res.Record)
	if rec.Verdict != verdict.Error || res.Verdict != verdict.Error {
		t.Fatalf("expected error verdict, got %+v", rec)
	}
	if !strings.Contains(rec.Error, "still PROCESSING after 30 polls") || !strings.Contains(rec.Reasoning, rec.Error) {
		t.Fatalf("error text should be embedded verbatim: %+v", rec)
	}
	if rec.HardScience == nil {
		t.Fatal("evidence gathered before the failure should be kept")
	}
	h.assertReleased(t)
	if h.store.Len() != 0 {
		t.Fatal("error records must not be cached")
	}

	if _, err := h.pipe.Analyze(context.Background(), req); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if h.oracle.calls.Load() != 2 {
		t.Fatalf("error records should be recomputed, oracle calls=%d", h.oracle.calls.Load())
	}
}

func TestAnalyzeAcquisitionFailureSkipsOracle(t *testing.T) {
	h := newHarness(t)
	h.acquirer.err = services.Wrap(services.ErrAcquisition, "acquire", "yt-dlp", "download failed", errors.New("HTTP Error 403"))

	res, err := h.pipe.Analyze(context.Background(), Request{Kind: fingerprint.KindVideo, Input: "https://video.example.com/private"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	rec := decode(t, res.Record)
	if rec.Verdict != verdict.Error || !strings.Contains(rec.Error, "HTTP Error 403") {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.HardScience != nil {
		t.Fatal("no evidence exists before acquisition")
	}
	if h.oracle.calls.Load() != 0 || h.collector.calls.Load() != 0 {
		t.Fatal("later stages must not run")
	}
}

func TestAnalyzeMalformedOracleAnswer(t *testing.T) {
	h := newHarness(t)
	_, parseErr := verdict.ParseAssessment("no json here")
	h.oracle.err = parseErr

	res, err := h.pipe.Analyze(context.Background(), Request{Kind: fingerprint.KindImage, Input: "https://img.example.com/a.png"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Verdict != verdict.Error {
		t.Fatalf("expected error verdict, got %s", res.Verdict)
	}
	h.assertReleased(t)
}

func TestAnalyzeTextSkipsMedia(t *testing.T) {
	h := newHarness(t)
	h.oracle.assessment = verdict.Assessment{Score: 12, Verdict: verdict.Real, Reasoning: "consistent with wire reports", Sources: []string{"https://example.org"}, Sentiment: "neutral"}

	res, err := h.pipe.Analyze(context.Background(), Request{Kind: fingerprint.KindText, Input: "The bridge reopened Monday."})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	rec := decode(t, res.Record)
	if rec.Kind != fingerprint.KindText || rec.HardScience != nil || rec.Sentiment != "neutral" {
		t.Fatalf("unexpected text record: %+v", rec)
	}
	if h.acquirer.calls.Load() != 0 || h.collector.calls.Load() != 0 {
		t.Fatal("text requests must not acquire media")
	}
	if h.oracle.lastReq.Text != "The bridge reopened Monday." {
		t.Fatalf("oracle got %+v", h.oracle.lastReq)
	}
}

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	cases := []Request{
		{Kind: fingerprint.KindText, Input: "   "},
		{Kind: fingerprint.KindText, Input: strings.Repeat("x", 65)},
		{Kind: fingerprint.KindVideo, Input: "not a url"},
		{Kind: fingerprint.Kind("audio"), Input: "https://example.com/a"},
	}
	for _, req := range cases {
		if _, err := h.pipe.Analyze(context.Background(), req); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%+v: expected validation error, got %v", req, err)
		}
	}
	if h.oracle.calls.Load() != 0 {
		t.Fatal("invalid input must not reach the oracle")
	}
}

func TestAnalyzeCollapsesConcurrentRequests(t *testing.T) {
	h := newHarness(t)
	h.oracle.gate = make(chan struct{})
	req := Request{Kind: fingerprint.KindVideo, Input: "https://video.example.com/viral"}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Result, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = h.pipe.Analyze(context.Background(), req)
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for h.oracle.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(h.oracle.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		if string(results[i].Record) != string(results[0].Record) {
			t.Fatalf("caller %d got different bytes", i)
		}
	}
	if got := h.oracle.calls.Load(); got != 1 {
		t.Fatalf("expected one oracle call, got %d", got)
	}
	h.assertReleased(t)
}

func TestAnalyzeCallerCancellationKeepsExecution(t *testing.T) {
	h := newHarness(t)
	h.oracle.gate = make(chan struct{})
	req := Request{Kind: fingerprint.KindVideo, Input: "https://video.example.com/cancel"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.pipe.Analyze(ctx, req)
		done <- err
	}()
	for h.oracle.calls.Load() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	close(h.oracle.gate)

	deadline := time.Now().Add(2 * time.Second)
	for h.store.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	res, err := h.pipe.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.Outcome.Hit || h.oracle.calls.Load() != 1 {
		t.Fatalf("abandoned execution should still populate the cache: hit=%v calls=%d", res.Outcome.Hit, h.oracle.calls.Load())
	}
}

func TestRecordIsSchemaValidJSON(t *testing.T) {
	h := newHarness(t)
	h.collector.bundle.Metadata.AITool = "Midjourney"
	h.oracle.assessment.Verdict = verdict.Real
	h.oracle.assessment.Score = 5

	res, err := h.pipe.Analyze(context.Background(), Request{Kind: fingerprint.KindImage, Input: "https://img.example.com/b.png"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := verdict.ValidateRecord(res.Record); err != nil {
		t.Fatalf("record failed validation: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(res.Record, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["verdict"] != string(verdict.Uncertain) {
		t.Fatalf("AI tool signature should downgrade Real, got %v", raw["verdict"])
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateDone, StateFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StateIdle, StateAcquiring, StateEvidenceExtraction, StateOracleSynthesis, StateFused, StateCleanup, StateCached} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func stagedAsset(t *testing.T) *acquire.Asset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged.mp4")
	if err := os.WriteFile(path, []byte("media"), 0o600); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	asset, err := acquire.NewAsset(path, "https://video.example.com/v", "video/mp4", fingerprint.KindVideo)
	if err != nil {
		t.Fatalf("NewAsset: %v", err)
	}
	return asset
}

func TestExecutionEntersCleanupBeforeTerminalState(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*execution)
		want   []State
	}{
		{
			name:   "success",
			finish: func(e *execution) { e.cacheable = true; e.succeed() },
			want:   []State{StateAcquiring, StateCached, StateCleanup, StateDone},
		},
		{
			name:   "failure",
			finish: func(e *execution) { e.fail(services.ErrOracleTimeout) },
			want:   []State{StateAcquiring, StateCleanup, StateFailed},
		},
		{
			name:   "panic path",
			finish: func(*execution) {},
			want:   []State{StateAcquiring, StateCleanup},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := stagedAsset(t)
			run := newExecution(context.Background(), logging.NewNop())
			run.transition(StateAcquiring)
			run.own(asset)
			tt.finish(run)
			run.cleanup()
			run.cleanup()

			if fmt.Sprint(run.history) != fmt.Sprint(tt.want) {
				t.Fatalf("history = %v, want %v", run.history, tt.want)
			}
			if _, err := os.Stat(asset.Path); !os.IsNotExist(err) {
				t.Fatalf("asset still staged: %v", err)
			}
		})
	}
}
