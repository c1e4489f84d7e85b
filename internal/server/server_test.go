package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/danja/semem-sub000/internal/metrics"
	"github.com/danja/semem-sub000/internal/search"
	"github.com/danja/semem-sub000/internal/server"
	"github.com/danja/semem-sub000/internal/store"
)

// testLogger creates a logger that writes to stderr for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixedSearcher returns the same candidates for every pass.
func fixedSearcher(cands ...search.Candidate) search.Searcher {
	return search.SearcherFunc(func(_ context.Context, _ string, _ int, threshold float64) ([]search.Candidate, error) {
		out := make([]search.Candidate, 0, len(cands))
		for _, c := range cands {
			if c.Similarity >= threshold {
				out = append(out, c)
			}
		}
		return out, nil
	})
}

// fakeMemory records calls so handlers can be asserted without a database.
type fakeMemory struct {
	mu      sync.Mutex
	touched []string
	added   []store.MemoryInput
	count   int
	addErr  error
}

func (m *fakeMemory) Add(_ context.Context, input store.MemoryInput) (*store.Interaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return nil, false, m.addErr
	}
	if input.ID == "" {
		input.ID = "generated"
	}
	m.added = append(m.added, input)
	return &store.Interaction{
		ID:       surrealmodels.RecordID{Table: "interaction", ID: input.ID},
		Prompt:   input.Prompt,
		Response: input.Response,
	}, true, nil
}

func (m *fakeMemory) Touch(_ context.Context, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, ids...)
}

func (m *fakeMemory) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

func (m *fakeMemory) touchedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.touched...)
}

func (m *fakeMemory) addedInputs() []store.MemoryInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.MemoryInput(nil), m.added...)
}

func newTestServer(t *testing.T, searcher search.Searcher, memory server.Memory) *httptest.Server {
	t.Helper()
	engine := search.NewAdaptiveSearchEngine(searcher, nil, nil, search.NewPerformanceLedger(0), metrics.NewCollector())
	srv := server.New(engine, memory, search.DefaultOptions(), testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestSearchEndpoint(t *testing.T) {
	memory := &fakeMemory{}
	ts := newTestServer(t, fixedSearcher(
		search.Candidate{ID: "memo-1", Prompt: "graph databases", Response: "use surrealdb", Similarity: 0.92},
		search.Candidate{ID: "memo-2", Prompt: "vector search", Response: "hnsw index", Similarity: 0.81},
	), memory)

	resp := postJSON(t, ts.URL+"/search", map[string]any{
		"query": "how do I index vectors",
		"zoom":  "entity",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	outcome := decodeBody[search.SearchOutcome](t, resp)
	assert.True(t, outcome.Success)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "memo-1", outcome.Results[0].ID, "results should be ranked best first")
	assert.NotEmpty(t, outcome.Stats.RequestID)
	assert.GreaterOrEqual(t, outcome.PassesUsed, 1)

	assert.ElementsMatch(t, []string{"memo-1", "memo-2"}, memory.touchedIDs(),
		"returned interactions should be access-tracked")
}

func TestSearchEndpointInvalidZoom(t *testing.T) {
	ts := newTestServer(t, fixedSearcher(), &fakeMemory{})

	resp := postJSON(t, ts.URL+"/search", map[string]any{
		"query": "anything",
		"zoom":  "galaxy",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "zoom")
}

func TestSearchEndpointInvalidOptions(t *testing.T) {
	ts := newTestServer(t, fixedSearcher(), &fakeMemory{})

	resp := postJSON(t, ts.URL+"/search", map[string]any{
		"query":   "anything",
		"options": map[string]any{"max_passes": 99},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "max passes")
}

func TestSearchEndpointThresholdOverride(t *testing.T) {
	var (
		mu         sync.Mutex
		thresholds []float64
	)
	searcher := search.SearcherFunc(func(_ context.Context, _ string, _ int, threshold float64) ([]search.Candidate, error) {
		mu.Lock()
		thresholds = append(thresholds, threshold)
		mu.Unlock()
		return nil, nil
	})
	ts := newTestServer(t, searcher, &fakeMemory{})

	resp := postJSON(t, ts.URL+"/search", map[string]any{
		"query":   "anything",
		"options": map[string]any{"threshold": 0.66},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	outcome := decodeBody[search.SearchOutcome](t, resp)
	assert.Equal(t, 1, outcome.PassesUsed, "explicit threshold should run exactly one pass")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, thresholds, 1)
	assert.InDelta(t, 0.66, thresholds[0], 1e-9)
}

func TestSearchEndpointMalformedBody(t *testing.T) {
	ts := newTestServer(t, fixedSearcher(), &fakeMemory{})

	resp, err := http.Post(ts.URL+"/search", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchEndpointMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, fixedSearcher(), &fakeMemory{})

	resp, err := http.Get(ts.URL + "/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAddMemoryEndpoint(t *testing.T) {
	memory := &fakeMemory{}
	ts := newTestServer(t, fixedSearcher(), memory)

	resp := postJSON(t, ts.URL+"/memory", map[string]any{
		"prompt":   "what is zpt navigation",
		"response": "zoom, pan and tilt over a knowledge space",
		"concepts": []string{"zpt"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "generated", body["id"])
	assert.Equal(t, true, body["created"])

	added := memory.addedInputs()
	require.Len(t, added, 1)
	assert.Equal(t, "what is zpt navigation", added[0].Prompt)
	assert.Equal(t, []string{"zpt"}, added[0].Concepts)
}

func TestAddMemoryEndpointBlankPrompt(t *testing.T) {
	ts := newTestServer(t, fixedSearcher(), &fakeMemory{})

	resp := postJSON(t, ts.URL+"/memory", map[string]any{"prompt": "   "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "prompt")
}

func TestAddMemoryEndpointStoreFailure(t *testing.T) {
	memory := &fakeMemory{addErr: fmt.Errorf("connection refused")}
	ts := newTestServer(t, fixedSearcher(), memory)

	resp := postJSON(t, ts.URL+"/memory", map[string]any{"prompt": "hello"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, fixedSearcher(
		search.Candidate{ID: "memo-1", Prompt: "a", Response: "b", Similarity: 0.9},
	), &fakeMemory{})

	resp := postJSON(t, ts.URL+"/search", map[string]any{"query": "warm up the counters"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	require.Equal(t, http.StatusOK, mresp.StatusCode)

	report := decodeBody[search.PerformanceReport](t, mresp)
	require.NotNil(t, report.Engine)
	assert.Equal(t, int64(1), report.Engine.Total)
	assert.Contains(t, report.Operations, metrics.OpSearch)
}

func TestHealthEndpoint(t *testing.T) {
	memory := &fakeMemory{count: 7}
	ts := newTestServer(t, fixedSearcher(), memory)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(7), body["memory_count"])
}

func TestSearchLiveStreamsPasses(t *testing.T) {
	searcher := search.SearcherFunc(func(context.Context, string, int, float64) ([]search.Candidate, error) {
		return nil, nil
	})
	ts := newTestServer(t, searcher, &fakeMemory{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/search/live"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"query": "stream me the passes"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	type liveEvent struct {
		Type    string                `json:"type"`
		Pass    *search.PassRecord    `json:"pass"`
		Outcome *search.SearchOutcome `json:"outcome"`
		Error   string                `json:"error"`
	}

	var passes int
	for {
		var ev liveEvent
		require.NoError(t, conn.ReadJSON(&ev))
		switch ev.Type {
		case "pass":
			require.NotNil(t, ev.Pass)
			passes++
			assert.Equal(t, passes, ev.Pass.Pass, "passes should stream in order")
		case "result":
			require.NotNil(t, ev.Outcome)
			assert.False(t, ev.Outcome.Success, "no candidates means a failed outcome")
			assert.Equal(t, passes, ev.Outcome.PassesUsed)
			assert.GreaterOrEqual(t, passes, 1, "at least one pass event before the result")
			return
		default:
			t.Fatalf("unexpected event type %q (error: %s)", ev.Type, ev.Error)
		}
	}
}

func TestSearchLiveInvalidTilt(t *testing.T) {
	ts := newTestServer(t, fixedSearcher(), &fakeMemory{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/search/live"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"query": "q", "tilt": "sideways"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "error", ev["type"])
	assert.Contains(t, ev["error"], "tilt")
}
