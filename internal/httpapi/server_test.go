package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dispatchd/internal/dispatch"
	"dispatchd/internal/producers"
	"dispatchd/pkg/types"
)

// newTestServer starts a real pool behind the mux: JobStream construction is
// internal to dispatch, so the handlers are exercised against the actual
// dispatcher rather than a stub.
func newTestServer(t *testing.T) (*dispatch.Pool, *httptest.Server) {
	t.Helper()
	pool, err := dispatch.NewPool(dispatch.PoolConfig{
		Workers: []dispatch.WorkerSpec{
			{Tag: "llm", Kind: producers.KindTokenGen, Adapter: producers.TokenGen(producers.TokenGenOptions{Steps: 2, Delay: time.Millisecond})},
			{Tag: "tts", Kind: producers.KindByteGen, Adapter: producers.ByteGen(producers.ByteGenOptions{Blocks: 3, BlockSize: 5, Delay: time.Millisecond, Fill: 'b'})},
			{Tag: "echo", Kind: producers.KindEcho, Adapter: producers.Echo(0)},
		},
	})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	ts := httptest.NewServer(NewMux(pool))
	t.Cleanup(func() {
		ts.Close()
		pool.Close()
	})
	return pool, ts
}

func postInfer(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/infer", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestInferUnaryJSON(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInfer(t, ts, `{"args":["Hello"],"target":"echo"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
	var out types.InferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result != "Async result for Hello" {
		t.Fatalf("result = %q", out.Result)
	}
	if out.JobID == "" {
		t.Fatalf("missing job id")
	}
}

func TestInferUnaryByIndex(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInfer(t, ts, `{"args":["x"],"target":2}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out types.InferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result != "Async result for x" {
		t.Fatalf("result = %q", out.Result)
	}
}

func TestInferSSEStream(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInfer(t, ts, `{"args":["q"],"stream":true,"target":"llm"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	events := strings.Split(strings.TrimSuffix(string(body), "\n\n"), "\n\n")
	if len(events) != 3 { // prefix + 2 tokens
		t.Fatalf("expected 3 events, got %d: %q", len(events), body)
	}
	if events[0] != `data: Response to "q": ` {
		t.Fatalf("first event = %q", events[0])
	}
	if events[1] != "data: token_0 " || events[2] != "data: token_1 " {
		t.Fatalf("token events = %q, %q", events[1], events[2])
	}
}

func TestInferBinaryRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInfer(t, ts, `{"stream":true,"target":"tts","chunk_size":7}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/octet-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	want := bytes.Repeat([]byte("b"), 15) // 3 blocks of 5
	if !bytes.Equal(body, want) {
		t.Fatalf("body = %q (%d bytes), want %d bytes of 'b'", body, len(body), len(want))
	}
}

func TestInferBinaryMediaType(t *testing.T) {
	_, ts := newTestServer(t)

	// A non-text media type forces binary framing even without a chunk size.
	resp := postInfer(t, ts, `{"stream":true,"target":"tts","media_type":"audio/wav"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(body) != 15 {
		t.Fatalf("body length = %d", len(body))
	}
}

func TestInferUnknownTag(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInfer(t, ts, `{"target":"vision"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var e types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Code != http.StatusNotFound || e.Error == "" {
		t.Fatalf("error body = %+v", e)
	}
}

func TestInferIndexOutOfRange(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInfer(t, ts, `{"target":99}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestInferInvalidBody(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInfer(t, ts, `{"args":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestInferNegativeChunkSize(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInfer(t, ts, `{"chunk_size":-1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestInferWrongContentType(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/infer", "text/plain", strings.NewReader("hi"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", resp.StatusCode)
	}
}

func TestInferPoolClosed(t *testing.T) {
	pool, ts := newTestServer(t)
	pool.Close()

	resp := postInfer(t, ts, `{"target":"echo"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestWorkersEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/workers")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out types.WorkersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Workers) != 3 {
		t.Fatalf("expected 3 workers, got %d", len(out.Workers))
	}
	for i, want := range []string{"llm", "tts", "echo"} {
		if out.Workers[i].Tag != want {
			t.Fatalf("worker %d tag = %q, want %q", i, out.Workers[i].Tag, want)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var out types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.State != "ready" {
		t.Fatalf("state = %q", out.State)
	}
	if len(out.Workers) != 3 {
		t.Fatalf("expected 3 workers, got %d", len(out.Workers))
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestReadyzTracksPoolState(t *testing.T) {
	pool, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	pool.Close()
	resp, err = http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status after close = %d, want 503", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "dispatchd_") {
		t.Fatalf("expected dispatchd metrics in output")
	}
}

func TestModeDerivation(t *testing.T) {
	cases := []struct {
		name string
		req  types.InferRequest
		want dispatch.ResponseMode
	}{
		{"no stream", types.InferRequest{}, dispatch.ModeUnary},
		{"stream text", types.InferRequest{Stream: true}, dispatch.ModeSSEStream},
		{"stream text media", types.InferRequest{Stream: true, MediaType: "text/plain"}, dispatch.ModeSSEStream},
		{"stream chunked", types.InferRequest{Stream: true, ChunkSize: 64}, dispatch.ModeBinaryStream},
		{"stream binary media", types.InferRequest{Stream: true, MediaType: "audio/wav"}, dispatch.ModeBinaryStream},
		{"no stream binary media", types.InferRequest{MediaType: "audio/wav"}, dispatch.ModeUnary},
	}
	for _, tc := range cases {
		if got := modeFor(tc.req); got != tc.want {
			t.Fatalf("%s: mode = %q, want %q", tc.name, got, tc.want)
		}
	}
}
