package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"letter-rush/internal/game"
)

// gameTTL keeps abandoned lobbies from living in Redis forever; every
// save refreshes it.
const gameTTL = 24 * time.Hour

// Redis stores each game as one JSON document at game:<id> with a
// join-code index at joincode:<code>.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func gameKey(id string) string       { return "game:" + id }
func joinCodeKey(code string) string { return "joincode:" + code }

func (s *Redis) Get(ctx context.Context, id string) (*game.Game, error) {
	raw, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("game %s: %w", id, game.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	var g game.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &g, nil
}

func (s *Redis) GetByJoinCode(ctx context.Context, joinCode string) (*game.Game, error) {
	id, err := s.client.Get(ctx, joinCodeKey(joinCode)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("join code %s: %w", joinCode, game.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup join code %s: %w", joinCode, err)
	}
	return s.Get(ctx, id)
}

func (s *Redis) Save(ctx context.Context, g *game.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, gameKey(g.ID), raw, gameTTL)
	pipe.Set(ctx, joinCodeKey(g.JoinCode), g.ID, gameTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save game %s: %w", g.ID, err)
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	g, err := s.Get(ctx, id)
	if errors.Is(err, game.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, gameKey(id), joinCodeKey(g.JoinCode)).Err(); err != nil {
		return fmt.Errorf("delete game %s: %w", id, err)
	}
	return nil
}
