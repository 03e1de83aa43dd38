package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/undolog"
	"github.com/aretw0/undolog/internal/demo"
	"github.com/aretw0/undolog/pkg/adapters/memory"
	"github.com/aretw0/undolog/pkg/domain"
	"github.com/aretw0/undolog/pkg/observability"
	"github.com/aretw0/undolog/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler http.Handler
	streams *StreamManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	streams := NewStreamManager(nil)
	journal := memory.NewJournal(0)
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg, "undolog")
	require.NoError(t, err)

	hooks := domain.CombineHooks(
		streams.Hooks(),
		metrics.Hooks(),
		observability.JournalHooks(journal, nil),
	)
	sessions := session.NewManager(func(id string) (*demo.Session, error) {
		return demo.NewSession(id, undolog.WithLifecycleHooks(hooks)), nil
	}, session.WithOnDelete(metrics.Forget))

	return fixture{
		handler: NewHandler(sessions, WithJournal(journal), WithStreams(streams), WithMetrics(reg)),
		streams: streams,
	}
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) Outcome {
	t.Helper()
	var out Outcome
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/sessions", `{"id":"s1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, "POST", "/sessions", `{"id":"s1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, "POST", "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	generated := decodeOutcome(t, w).Session.ID
	assert.NotEmpty(t, generated)

	w = f.do(t, "GET", "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list map[string][]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.ElementsMatch(t, []string{"s1", generated}, list["sessions"])

	w = f.do(t, "DELETE", "/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, "GET", "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGreetUndoHandle(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/sessions", `{"id":"s1"}`)

	w := f.do(t, "POST", "/sessions/s1/greetings", `{"name":"World"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decodeOutcome(t, w)
	assert.Equal(t, []string{"Hi", "World"}, first.Words)

	w = f.do(t, "POST", "/sessions/s1/greetings", `{"name":"Gura"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, "POST", "/sessions/s1/handles/1/undo", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decodeOutcome(t, w)
	assert.Equal(t, 1, out.Remaining)
	assert.Equal(t, [][]string{{"Hi", "Gura"}}, out.Session.Board)

	w = f.do(t, "POST", "/sessions/s1/handles/1/undo", "")
	assert.Equal(t, http.StatusConflict, w.Code, "second call on the same handle")

	w = f.do(t, "POST", "/sessions/s1/handles/99/undo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, "POST", "/sessions/s1/handles/abc/undo", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "POST", "/sessions/s1/greetings", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUndoPurgeMerge(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/sessions", `{"id":"s1"}`)
	for _, name := range []string{"a", "b", "c"} {
		f.do(t, "POST", "/sessions/s1/greetings", `{"name":"`+name+`"}`)
	}

	w := f.do(t, "POST", "/sessions/s1/merge?last=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decodeOutcome(t, w)
	assert.Equal(t, 2, out.Remaining)
	assert.Equal(t, domain.TxID(4), out.TxID)

	w = f.do(t, "POST", "/sessions/s1/undo", "")
	require.Equal(t, http.StatusOK, w.Code)
	out = decodeOutcome(t, w)
	assert.Equal(t, 1, out.Remaining)
	assert.Equal(t, [][]string{{"Hi", "a"}}, out.Session.Board)

	w = f.do(t, "POST", "/sessions/s1/handles/2/undo", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeOutcome(t, w).Nothing, "absorbed by the merge")

	w = f.do(t, "POST", "/sessions/s1/purge", "")
	require.Equal(t, http.StatusOK, w.Code)
	out = decodeOutcome(t, w)
	assert.Equal(t, 0, out.Remaining)
	assert.Equal(t, [][]string{{"Hi", "a"}}, out.Session.Board)

	w = f.do(t, "POST", "/sessions/s1/undo?all=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	out = decodeOutcome(t, w)
	assert.True(t, out.Nothing)
	assert.Equal(t, undolog.ErrNothingToUndo.Error(), out.Reason)

	w = f.do(t, "POST", "/sessions/s1/undo?count=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "POST", "/sessions/missing/undo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJournalAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/sessions", `{"id":"s1"}`)
	f.do(t, "POST", "/sessions/s1/greetings", `{"name":"a"}`)
	f.do(t, "POST", "/sessions/s1/undo", "")

	w := f.do(t, "GET", "/sessions/s1/journal?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Events []domain.TxEvent `json:"events"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, domain.EventUndo, body.Events[0].Type)

	w = f.do(t, "GET", "/sessions/s1/journal?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `undolog_transactions_total{event="commit"} 1`)
}

func TestSubscribeEvents_Session(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/sessions", `{"id":"sess-1"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/sessions/sess-1/events", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.handler.ServeHTTP(wSub, reqSub)
	}()

	require.Eventually(t, func() bool {
		f.streams.mu.RLock()
		defer f.streams.mu.RUnlock()
		return len(f.streams.subscribers["sess-1"]) == 1
	}, time.Second, 5*time.Millisecond)

	w := f.do(t, "POST", "/sessions/sess-1/greetings", `{"name":"go"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"type":"commit"`)
	assert.Contains(t, output, `"label":"hi go"`)
}

func TestSubscribeEvents_UnknownSession(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, "GET", "/sessions/nope/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
