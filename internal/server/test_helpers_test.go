package server

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"letter-rush/internal/config"
	"letter-rush/internal/game"
	"letter-rush/internal/store"
)

// fakeScheduler records scheduled callbacks so tests can fire deadlines
// deterministically instead of waiting on real timers.
type fakeScheduler struct {
	mu  sync.Mutex
	fns map[string]func()
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{fns: make(map[string]func())}
}

func (f *fakeScheduler) Schedule(key string, _ time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fns[key] = fn
}

func (f *fakeScheduler) Cancel(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fns, key)
}

func (f *fakeScheduler) fire(t *testing.T, key string) {
	t.Helper()
	f.mu.Lock()
	fn, ok := f.fns[key]
	delete(f.fns, key)
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no scheduled callback for key %s", key)
	}
	fn()
}

func (f *fakeScheduler) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.fns[key]
	return ok
}

func newTestEnv(t *testing.T) (*httptest.Server, *fakeScheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sched := newFakeScheduler()
	srv := New(game.NewManager(store.NewMemory()), nil, sched, config.Default())

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: srv.Router()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, sched
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

// createGame creates a lobby hosted by playerID and returns (gameID, joinCode).
func createGame(t *testing.T, ts *httptest.Server, playerID, name string) (string, string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games", map[string]string{
		"host_player_id": playerID,
		"display_name":   name,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["id"].(string), body["join_code"].(string)
}

func joinPlayer(t *testing.T, ts *httptest.Server, joinCode, playerID, name string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/join", map[string]string{
		"join_code":    joinCode,
		"player_id":    playerID,
		"display_name": name,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func fetchGame(t *testing.T, ts *httptest.Server, gameID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+gameID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func startGame(t *testing.T, ts *httptest.Server, sched *fakeScheduler, gameID, hostID string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/start", map[string]string{
		"player_id": hostID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	sched.fire(t, "begin-round:"+gameID)
}

// currentLetter reads the active round's letter through the API.
func currentLetter(t *testing.T, ts *httptest.Server, gameID string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+gameID+"/round", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	letter, ok := body["letter"].(string)
	if !ok || letter == "" {
		t.Fatalf("expected round letter, got %#v", body["letter"])
	}
	return letter
}

func submitAnswers(t *testing.T, ts *httptest.Server, gameID, playerID string, answers map[string]string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/round/answers", map[string]any{
		"player_id": playerID,
		"answers":   answers,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}
