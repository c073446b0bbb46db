package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/chat"
	"github.com/hupe1980/webdevchat/internal/testutil"
	"github.com/hupe1980/webdevchat/metrics"
	"github.com/hupe1980/webdevchat/runner"
)

func newTestService(t *testing.T, m *testutil.ScriptedModel, optFns ...func(o *runner.Options)) *chat.Service {
	t.Helper()
	fe := agent.NewPersona("Frontend Architect", func(o *agent.PersonaOptions) { o.Description = "UI" })
	be := agent.NewPersona("Backend Architect", func(o *agent.PersonaOptions) { o.Description = "APIs" })
	triage := agent.NewPersona("Triage Agent", func(o *agent.PersonaOptions) {
		o.Candidates = []*agent.Persona{fe, be}
	})
	reg, err := agent.NewRegistry("Triage Agent", triage, fe, be)
	require.NoError(t, err)

	r, err := runner.New(m, optFns...)
	require.NoError(t, err)
	return chat.New(r, reg)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(body).Decode(&v))
	return v
}

func TestChat_RoundTrip(t *testing.T) {
	m := testutil.NewScriptedModel().Reply("Backend Architect").Reply("Use connection pooling.")
	h := New(newTestService(t, m)).Handler()

	rec := postJSON(t, h, "/api/chat", `{"session_id":"s1","message":"how do I scale my DB?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[chatResponse](t, rec.Body)
	assert.Equal(t, chatResponse{SessionID: "s1", Response: "Use connection pooling.", Persona: "Backend Architect"}, resp)
	assert.Equal(t, "how do I scale my DB?", m.LastUserText(1))
}

func TestChat_NewSessionID(t *testing.T) {
	m := testutil.NewScriptedModel().Reply("x").Reply("y")
	rec := postJSON(t, New(newTestService(t, m)).Handler(), "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[chatResponse](t, rec.Body).SessionID)
}

func TestChat_BadRequests(t *testing.T) {
	h := New(newTestService(t, testutil.NewScriptedModel())).Handler()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"invalid json", `{"message":`, http.StatusBadRequest},
		{"empty message", `{"message":"  "}`, http.StatusBadRequest},
		{"unknown persona", `{"message":"q","persona":"Chef"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/api/chat", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, decode[errorResponse](t, rec.Body).Error)
		})
	}
}

func TestChat_UpstreamFailureIsOK(t *testing.T) {
	m := testutil.NewScriptedModel().Fail(errors.New("invalid api key"))
	rec := postJSON(t, New(newTestService(t, m)).Handler(), "/api/chat", `{"message":"hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[chatResponse](t, rec.Body)
	assert.Equal(t, runner.ErrorPersona, resp.Persona)
	assert.True(t, strings.HasPrefix(resp.Response, "Error: "))
}

func TestChat_TargetPersona(t *testing.T) {
	m := testutil.NewScriptedModel().Reply("Use semantic HTML.")
	rec := postJSON(t, New(newTestService(t, m)).Handler(), "/api/chat", `{"message":"a11y?","persona":"Frontend Architect"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Frontend Architect", decode[chatResponse](t, rec.Body).Persona)
	assert.Equal(t, 1, m.CallCount())
}

func TestPersonas(t *testing.T) {
	h := New(newTestService(t, testutil.NewScriptedModel())).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/personas", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[personasResponse](t, rec.Body)
	assert.Equal(t, "Triage Agent", resp.Entry)
	require.Len(t, resp.Personas, 3)
	assert.Equal(t, []string{"Frontend Architect", "Backend Architect"}, resp.Personas[0].Candidates)
}

func TestSessions_HistoryAndReset(t *testing.T) {
	m := testutil.NewScriptedModel().Reply("Frontend Architect").Reply("Flexbox.")
	h := New(newTestService(t, m)).Handler()

	require.Equal(t, http.StatusOK, postJSON(t, h, "/api/chat", `{"session_id":"s1","message":"layout?"}`).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[historyResponse](t, rec.Body)
	require.Len(t, hist.Events, 2)
	assert.Equal(t, "user", hist.Events[0].Role)
	assert.Equal(t, "layout?", hist.Events[0].Text)
	assert.Equal(t, "Frontend Architect", hist.Events[1].Author)
	assert.Equal(t, "Flexbox.", hist.Events[1].Text)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/s1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil))
	assert.Empty(t, decode[historyResponse](t, rec.Body).Events)
}

func TestHealthzAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := metrics.NewMetrics(reg)
	m := testutil.NewScriptedModel().Reply("Frontend Architect").Reply("ok")
	h := New(newTestService(t, m, func(o *runner.Options) { o.Metrics = mt }), func(o *Options) { o.Gatherer = reg }).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	postJSON(t, h, "/api/chat", `{"message":"q"}`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `webdevchat_runs_total{persona="Frontend Architect"} 1`)
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	h := New(newTestService(t, testutil.NewScriptedModel())).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
}

func TestWebSocket_Chat(t *testing.T) {
	m := testutil.NewScriptedModel().
		Reply("Frontend Architect").Reply("Use CSS grid.").
		Reply("Backend Architect").Reply("Use REST.")
	srv := httptest.NewServer(New(newTestService(t, m)).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatRequest{Message: "layout?"}))
	var first chatResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "Frontend Architect", first.Persona)
	assert.Equal(t, "Use CSS grid.", first.Response)
	require.NotEmpty(t, first.SessionID)

	require.NoError(t, conn.WriteJSON(chatRequest{Message: "api style?"}))
	var second chatResponse
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "Backend Architect", second.Persona)
	assert.Equal(t, first.SessionID, second.SessionID, "connection keeps its session")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var errResp errorResponse
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.Equal(t, "invalid JSON message", errResp.Error)

	require.NoError(t, conn.WriteJSON(chatRequest{Message: " "}))
	errResp = errorResponse{}
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.Equal(t, chat.ErrEmptyMessage.Error(), errResp.Error)
}

func TestWebSocket_OriginCheck(t *testing.T) {
	srv := httptest.NewServer(New(newTestService(t, testutil.NewScriptedModel()), func(o *Options) {
		o.AllowedOrigins = []string{"http://localhost:3000"}
	}).Handler())
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	conn.Close()
}

func TestIsOriginAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://chat.local:8080/ws/chat", nil)
	req.Host = "chat.local:8080"

	assert.True(t, isOriginAllowed(req, nil), "no origin header")

	req.Header.Set("Origin", "http://chat.local:5173")
	assert.True(t, isOriginAllowed(req, nil), "same host")

	req.Header.Set("Origin", "http://other.local")
	assert.False(t, isOriginAllowed(req, nil))
	assert.True(t, isOriginAllowed(req, []string{"other.local"}))

	req.Header.Set("Origin", "::bad")
	assert.False(t, isOriginAllowed(req, nil))
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(newTestService(t, testutil.NewScriptedModel()), func(o *Options) { o.ShutdownTimeout = time.Second })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestChat_BodyTooLarge(t *testing.T) {
	h := New(newTestService(t, testutil.NewScriptedModel()), func(o *Options) { o.MaxBodyBytes = 16 }).Handler()
	body := bytes.Repeat([]byte("a"), 64)
	rec := postJSON(t, h, "/api/chat", `{"message":"`+string(body)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type recordingLogger struct {
	mu   sync.Mutex
	args [][]any
}

func (r *recordingLogger) record(args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.args = append(r.args, args)
}

func (r *recordingLogger) Debug(_ string, args ...any) { r.record(args) }
func (r *recordingLogger) Info(_ string, args ...any)  { r.record(args) }
func (r *recordingLogger) Warn(_ string, args ...any)  { r.record(args) }
func (r *recordingLogger) Error(_ string, args ...any) { r.record(args) }

func TestServer_LogsComponentOnce(t *testing.T) {
	rl := &recordingLogger{}
	h := New(newTestService(t, testutil.NewScriptedModel()), func(o *Options) { o.Logger = rl }).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	require.NotEmpty(t, rl.args)
	for _, args := range rl.args {
		components := 0
		for i := 0; i+1 < len(args); i += 2 {
			if args[i] == "component" {
				components++
				assert.Equal(t, "server", args[i+1])
			}
		}
		assert.Equal(t, 1, components)
	}
}
