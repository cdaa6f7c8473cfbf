package apiserver

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rung-dev/rung/internal/config"
	"github.com/rung-dev/rung/internal/logging"
	"github.com/rung-dev/rung/internal/manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.New(logging.Config{Level: "error", Format: "json", OutputPath: "stdout"})
	require.NoError(t, err)
	return log
}

// fakeManager is a minimal stand-in for *manager.Manager, avoiding a real
// process supervision tree in unit tests.
type fakeManager struct {
	mu           sync.Mutex
	states       map[string]manager.ProcessState
	listeners    []manager.Listener
	restartCalls int
}

func (f *fakeManager) GetAllStates() map[string]manager.ProcessState {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]manager.ProcessState, len(f.states))
	for k, v := range f.states {
		out[k] = v
	}
	return out
}

func (f *fakeManager) GetProcessNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.states))
	for k := range f.states {
		names = append(names, k)
	}
	return names
}

func (f *fakeManager) On(l manager.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, l)
	idx := len(f.listeners) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listeners[idx] = nil
	}
}

func (f *fakeManager) RestartAll(cols, rows int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restartCalls++
}

func (f *fakeManager) emit(ev manager.Event) {
	f.mu.Lock()
	listeners := append([]manager.Listener{}, f.listeners...)
	f.mu.Unlock()
	for _, l := range listeners {
		if l != nil {
			l(ev)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	mgr := &fakeManager{states: map[string]manager.ProcessState{}}
	s := New(mgr, newTestLogger(t))
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHandleProcessesReturnsCurrentStates(t *testing.T) {
	mgr := &fakeManager{states: map[string]manager.ProcessState{
		"db": {Name: "db", Status: config.StatusReady},
	}}
	s := New(mgr, newTestLogger(t))
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/api/processes")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	var out map[string]manager.ProcessState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, config.StatusReady, out["db"].Status)
}

func TestHandleRestartAllInvokesManager(t *testing.T) {
	mgr := &fakeManager{states: map[string]manager.ProcessState{}}
	s := New(mgr, newTestLogger(t))
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/api/restart", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 202, resp.StatusCode)

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Equal(t, 1, mgr.restartCalls)
}

func TestHandleEventsWSStreamsEvents(t *testing.T) {
	mgr := &fakeManager{states: map[string]manager.ProcessState{}}
	s := New(mgr, newTestLogger(t))
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		mgr.mu.Lock()
		defer mgr.mu.Unlock()
		return len(mgr.listeners) == 1
	}, time.Second, 10*time.Millisecond)

	mgr.emit(manager.Event{Kind: manager.EventStatus, Name: "db", Status: config.StatusReady})

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev wireEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "db", ev.Name)
	assert.Equal(t, string(config.StatusReady), ev.Status)
}
