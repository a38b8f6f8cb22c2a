package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"letter-rush/internal/game"
)

// Memory keeps whole game documents in a mutex-guarded map. Get and
// Save exchange deep copies so callers never share live pointers with
// the store.
type Memory struct {
	mu    sync.RWMutex
	games map[string]json.RawMessage
	codes map[string]string // join code → game id
}

func NewMemory() *Memory {
	return &Memory{
		games: make(map[string]json.RawMessage),
		codes: make(map[string]string),
	}
}

func (s *Memory) Get(ctx context.Context, id string) (*game.Game, error) {
	s.mu.RLock()
	raw, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("game %s: %w", id, game.ErrNotFound)
	}
	var g game.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &g, nil
}

func (s *Memory) GetByJoinCode(ctx context.Context, joinCode string) (*game.Game, error) {
	s.mu.RLock()
	id, ok := s.codes[joinCode]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("join code %s: %w", joinCode, game.ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *Memory) Save(ctx context.Context, g *game.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	s.mu.Lock()
	s.games[g.ID] = raw
	s.codes[g.JoinCode] = g.ID
	s.mu.Unlock()
	return nil
}

func (s *Memory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw, ok := s.games[id]; ok {
		var g game.Game
		if err := json.Unmarshal(raw, &g); err == nil {
			delete(s.codes, g.JoinCode)
		}
		delete(s.games, id)
	}
	return nil
}
