package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbyapp/nbyapp/internal/app"
	"github.com/nbyapp/nbyapp/internal/generator"
	"github.com/nbyapp/nbyapp/internal/llm"
	"github.com/nbyapp/nbyapp/internal/metrics"
	"github.com/nbyapp/nbyapp/internal/status"
	"github.com/nbyapp/nbyapp/internal/store"
)

type blockingProvider struct {
	started chan struct{}
}

func (p *blockingProvider) Name() string { return "blocking" }

func (p *blockingProvider) Invoke(ctx context.Context, req llm.Request) (string, error) {
	select {
	case p.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return "", ctx.Err()
}

type testServer struct {
	router    *gin.Engine
	gen       *generator.Generator
	store     store.Store
	sse       *SSEManager
	providers llm.Providers
}

func newTestServer(t *testing.T, providers llm.Providers, mockMode bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg, err := llm.DefaultRegistry()
	require.NoError(t, err)

	st := store.NewMemoryStore()
	b := status.NewBroadcaster()
	m := metrics.New()
	gen := generator.NewGenerator(reg, providers, st, b, generator.Options{
		Timeout:  time.Minute,
		MockMode: mockMode,
		Metrics:  m,
	})
	sse := NewSSEManager(b)
	t.Cleanup(sse.Close)

	h := NewHandler(gen, st, sse, m, nil)
	return &testServer{
		router:    SetupRouter(h, RouterConfig{CORSOrigins: []string{"*"}}),
		gen:       gen,
		store:     st,
		sse:       sse,
		providers: providers,
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func waitIdle(t *testing.T, gen *generator.Generator) {
	t.Helper()
	require.Eventually(t, func() bool { return !gen.Busy() }, 5*time.Second, 5*time.Millisecond)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, llm.Providers{}, true)

	w := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestListServices(t *testing.T) {
	s := newTestServer(t, llm.Providers{}, true)

	w := s.do(http.MethodGet, "/api/v1/services", "")
	require.Equal(t, http.StatusOK, w.Code)

	var services []ServiceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &services))
	require.Len(t, services, 3)
	assert.Equal(t, "openai", services[0].ID)
	assert.Equal(t, "gpt-4o", services[0].DefaultModel)
	assert.Equal(t, "claude", services[1].ID)
	assert.Equal(t, "claude-3-opus-20240229", services[1].DefaultModel)
	assert.Len(t, services[2].Models, 2)
}

func TestGenerateValidation(t *testing.T) {
	s := newTestServer(t, llm.Providers{}, true)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "invalid json", body: `{`, code: http.StatusBadRequest},
		{name: "missing service", body: `{"idea":"a todo list"}`, code: http.StatusBadRequest},
		{name: "blank idea", body: `{"idea":"   ","service_id":"openai"}`, code: http.StatusBadRequest},
		{name: "unknown service", body: `{"idea":"a todo list","service_id":"gemini"}`, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/v1/generate", tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
	assert.False(t, s.gen.Busy())
}

func TestGenerateAndBrowseApps(t *testing.T) {
	s := newTestServer(t, llm.Providers{}, true)

	w := s.do(http.MethodPost, "/api/v1/generate", `{"idea":"a habit tracker","service_id":"claude"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "generating", resp.Status)
	assert.NotEmpty(t, resp.JobID)

	waitIdle(t, s.gen)

	w = s.do(http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st status.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, resp.JobID, st.JobID)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, status.OutcomeCompleted, st.Outcome)
	require.NotEmpty(t, st.AppID)

	w = s.do(http.MethodGet, "/api/v1/apps", "")
	require.Equal(t, http.StatusOK, w.Code)
	var records []app.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, st.AppID, records[0].ID)
	assert.Equal(t, `App from "a habit tracker"`, records[0].DisplayName)

	w = s.do(http.MethodGet, "/api/v1/apps/"+st.AppID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec app.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Len(t, rec.Files, 3)

	w = s.do(http.MethodDelete, "/api/v1/apps/"+st.AppID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/apps/"+st.AppID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/apps/"+st.AppID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAppsNewestFirst(t *testing.T) {
	s := newTestServer(t, llm.Providers{}, true)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"app_1", "app_3", "app_2"} {
		_, err := s.store.Save(ctx, app.Record{
			ID:        id,
			Idea:      id,
			CreatedAt: base.Add(time.Duration([]int{1, 3, 2}[i]) * time.Minute),
			Files:     []app.File{{Name: "index.html", Content: "<p></p>", Type: app.FileTypeHTML}},
		})
		require.NoError(t, err)
	}

	w := s.do(http.MethodGet, "/api/v1/apps", "")
	require.Equal(t, http.StatusOK, w.Code)
	var records []app.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 3)
	assert.Equal(t, "app_3", records[0].ID)
	assert.Equal(t, "app_2", records[1].ID)
	assert.Equal(t, "app_1", records[2].ID)
}

func TestGenerateBusyAndCancel(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{}, 1)}
	s := newTestServer(t, llm.Providers{"openai": provider}, false)

	w := s.do(http.MethodPost, "/api/v1/generate", `{"idea":"a timer","service_id":"openai"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-provider.started:
	case <-time.After(5 * time.Second):
		t.Fatal("provider was not invoked")
	}

	w = s.do(http.MethodPost, "/api/v1/generate", `{"idea":"another","service_id":"openai"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/generate/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cancelled":true}`, w.Body.String())

	waitIdle(t, s.gen)
	assert.Equal(t, status.OutcomeCancelled, s.gen.Status().Snapshot().Outcome)

	w = s.do(http.MethodPost, "/api/v1/generate/cancel", "")
	assert.JSONEq(t, `{"cancelled":false}`, w.Body.String())
}

func TestStatusStreamTerminalSnapshot(t *testing.T) {
	s := newTestServer(t, llm.Providers{}, true)

	_, err := s.gen.Generate(context.Background(), generator.Request{ServiceID: "openai", Idea: "a quiz"})
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/api/v1/status/stream", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event: status\n"))

	data := strings.TrimPrefix(strings.Split(body, "\n")[1], "data: ")
	var st status.Status
	require.NoError(t, json.Unmarshal([]byte(data), &st))
	assert.Equal(t, status.OutcomeCompleted, st.Outcome)
	assert.Equal(t, 100, st.Progress)
}

func TestStatusStreamLive(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{}, 1)}
	s := newTestServer(t, llm.Providers{"openai": provider}, false)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	w := s.do(http.MethodPost, "/api/v1/generate", `{"idea":"a metronome","service_id":"openai"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	<-provider.started

	resp, err := http.Get(srv.URL + "/api/v1/status/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	events := make(chan status.Status, 64)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var st status.Status
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st); err == nil {
				events <- st
			}
		}
	}()

	first := <-events
	assert.True(t, first.IsGenerating)
	assert.Equal(t, "a metronome", first.Idea)

	s.gen.Cancel()

	var last status.Status
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case st, ok := <-events:
			if !ok {
				done = true
				break
			}
			last = st
		case <-timeout:
			t.Fatal("stream did not end")
		}
	}
	assert.Equal(t, status.OutcomeCancelled, last.Outcome)
	assert.False(t, last.IsGenerating)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, llm.Providers{}, true)

	_, err := s.gen.Generate(context.Background(), generator.Request{ServiceID: "deepseek", Idea: "a notes app"})
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `nbyapp_generations_total{outcome="completed",service="deepseek"} 1`)
}
