package game

import "context"

// Repository stores whole Game aggregates. Implementations live in
// internal/store; engines only depend on this interface.
type Repository interface {
	Get(ctx context.Context, id string) (*Game, error)
	GetByJoinCode(ctx context.Context, joinCode string) (*Game, error)
	Save(ctx context.Context, g *Game) error
	Delete(ctx context.Context, id string) error
}
