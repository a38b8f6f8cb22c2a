package server

import (
	"net/http"
	"strings"
	"testing"
)

func TestGetGameNotFound(t *testing.T) {
	ts, _ := newTestEnv(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/games/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestLookupByJoinCode(t *testing.T) {
	ts, _ := newTestEnv(t)
	gameID, code := createGame(t, ts, "host", "Ada")

	resp := doRequest(t, ts, http.MethodGet, "/api/join-codes/"+strings.ToLower(code), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["id"] != gameID {
		t.Fatalf("expected game %s, got %v", gameID, body["id"])
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/join-codes/ZZZZZZ", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestJoinUnknownCode(t *testing.T) {
	ts, _ := newTestEnv(t)
	resp := doRequest(t, ts, http.MethodPost, "/api/join", map[string]string{
		"join_code":    "ZZZZZZ",
		"player_id":    "p1",
		"display_name": "Ada",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestCreateGameRejectsBadName(t *testing.T) {
	ts, _ := newTestEnv(t)
	for _, name := range []string{"", "   ", "<script>"} {
		resp := doRequest(t, ts, http.MethodPost, "/api/games", map[string]string{
			"host_player_id": "p1",
			"display_name":   name,
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("name %q: expected status %d, got %d", name, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestStartGameGuards(t *testing.T) {
	ts, sched := newTestEnv(t)
	gameID, code := createGame(t, ts, "host", "Ada")
	joinPlayer(t, ts, code, "p2", "Ben")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/start", map[string]string{
		"player_id": "p2",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-host start: expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/start", map[string]string{
		"player_id": "host",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("host start: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if !sched.has("begin-round:" + gameID) {
		t.Fatalf("start should arm the lobby countdown")
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/start", map[string]string{
		"player_id": "host",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double start: expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	ts, _ := newTestEnv(t)
	gameID, _ := createGame(t, ts, "host", "Ada")

	bad := []map[string]any{
		{"max_rounds": 0, "max_players": 4, "dispute_voting_window_seconds": 30},
		{"max_rounds": 3, "max_players": 1, "dispute_voting_window_seconds": 30},
		{"max_rounds": 3, "max_players": 4, "dispute_voting_window_seconds": 2},
		{"max_rounds": 3, "max_players": 4, "dispute_voting_window_seconds": 30, "timed_mode": true, "round_duration_seconds": 5},
		{"max_rounds": 3, "max_players": 4, "dispute_voting_window_seconds": 30, "unique_answer_points": -1},
	}
	for i, settings := range bad {
		resp := doRequest(t, ts, http.MethodPut, "/api/games/"+gameID+"/settings", map[string]any{
			"player_id": "host",
			"settings":  settings,
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("case %d: expected status %d, got %d", i, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestSubmitAnswersOutsideRound(t *testing.T) {
	ts, _ := newTestEnv(t)
	gameID, _ := createGame(t, ts, "host", "Ada")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/round/answers", map[string]any{
		"player_id": "host",
		"answers":   map[string]string{"Animal": "bison"},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestDisputeVoteRequiresBallot(t *testing.T) {
	ts, _ := newTestEnv(t)
	gameID, _ := createGame(t, ts, "host", "Ada")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/disputes/Animal:ant/vote", map[string]any{
		"player_id": "host",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing is_valid: expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestJoinAfterStartRejected(t *testing.T) {
	ts, sched := newTestEnv(t)
	gameID, code := createGame(t, ts, "host", "Ada")
	joinPlayer(t, ts, code, "p2", "Ben")
	startGame(t, ts, sched, gameID, "host")

	resp := doRequest(t, ts, http.MethodPost, "/api/join", map[string]string{
		"join_code":    code,
		"player_id":    "p3",
		"display_name": "Cam",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}
