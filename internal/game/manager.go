package game

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StartCountdown is the grace period between StartGame and the first
// round beginning.
const StartCountdown = 5 * time.Second

// Manager runs every game mutation as a load-mutate-save cycle against
// the Repository, serialized per game id so concurrent requests cannot
// lose each other's writes.
type Manager struct {
	repo  Repository
	locks *KeyedLock
	now   func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

type ManagerOption func(*Manager)

// WithRand replaces the randomness source, for deterministic tests.
func WithRand(rng *rand.Rand) ManagerOption {
	return func(m *Manager) { m.rng = rng }
}

// WithClock replaces the time source, for deterministic tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(repo Repository, opts ...ManagerOption) *Manager {
	var seed [8]byte
	_, _ = crand.Read(seed[:])
	m := &Manager{
		repo:  repo,
		locks: NewKeyedLock(),
		now:   time.Now,
		rng:   rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:])))),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// errUnchanged is returned by a mutate fn to report that it modified
// nothing; update then skips the save.
var errUnchanged = errors.New("unchanged")

// update runs fn against the game under its per-id lock and saves the
// result if fn succeeds.
func (m *Manager) update(ctx context.Context, gameID string, fn func(*Game) error) (*Game, error) {
	m.locks.Lock(gameID)
	defer m.locks.Unlock(gameID)

	g, err := m.repo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := fn(g); err != nil {
		if errors.Is(err, errUnchanged) {
			return g, nil
		}
		return nil, err
	}
	if err := m.repo.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("save game %s: %w", gameID, err)
	}
	return g, nil
}

func (m *Manager) requireHost(g *Game, playerID string) error {
	if g.HostPlayerID != playerID {
		return fmt.Errorf("player %s is not the host: %w", playerID, ErrUnauthorized)
	}
	return nil
}

// CreateGame makes a new lobby with the host as its only player.
func (m *Manager) CreateGame(ctx context.Context, hostPlayerID, hostDisplayName string) (*Game, error) {
	joinCode, err := m.uniqueJoinCode(ctx)
	if err != nil {
		return nil, err
	}

	g := &Game{
		ID:                uuid.NewString(),
		JoinCode:          joinCode,
		HostPlayerID:      hostPlayerID,
		Status:            GameStatusLobby,
		Settings:          DefaultSettings(),
		CurrentRoundIndex: -1,
		CreatedAt:         m.now().UTC(),
		Players: []Player{{
			ID:          hostPlayerID,
			DisplayName: hostDisplayName,
			IsConnected: true,
		}},
	}
	if err := m.repo.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("save new game: %w", err)
	}
	return g, nil
}

func (m *Manager) uniqueJoinCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		m.rngMu.Lock()
		code := newJoinCode(m.rng)
		m.rngMu.Unlock()

		_, err := m.repo.GetByJoinCode(ctx, code)
		if errors.Is(err, ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not allocate a unique join code")
}

// JoinGame adds a player to a lobby. Rejoining with a known player id
// is a no-op returning current state.
func (m *Manager) JoinGame(ctx context.Context, joinCode, playerID, displayName string) (*Game, error) {
	found, err := m.repo.GetByJoinCode(ctx, NormalizeJoinCode(joinCode))
	if err != nil {
		return nil, err
	}

	return m.update(ctx, found.ID, func(g *Game) error {
		if _, ok := g.FindPlayer(playerID); ok {
			return errUnchanged
		}
		if g.Status != GameStatusLobby {
			return fmt.Errorf("game already started: %w", ErrInvalidState)
		}
		if len(g.Players) >= g.Settings.MaxPlayers {
			return fmt.Errorf("%w", ErrCapacity)
		}
		g.Players = append(g.Players, Player{
			ID:          playerID,
			DisplayName: displayName,
			IsConnected: true,
		})
		return nil
	})
}

// UpdateSettings replaces the lobby's settings. Host only.
func (m *Manager) UpdateSettings(ctx context.Context, gameID, playerID string, settings Settings) (*Game, error) {
	return m.update(ctx, gameID, func(g *Game) error {
		if err := m.requireHost(g, playerID); err != nil {
			return err
		}
		if g.Status != GameStatusLobby {
			return fmt.Errorf("settings are frozen once the game starts: %w", ErrInvalidState)
		}
		g.Settings = settings
		return nil
	})
}

// StartGame moves a lobby into the starting countdown and returns the
// moment the first round should begin.
func (m *Manager) StartGame(ctx context.Context, gameID, playerID string) (*Game, time.Time, error) {
	var startAt time.Time
	g, err := m.update(ctx, gameID, func(g *Game) error {
		if err := m.requireHost(g, playerID); err != nil {
			return err
		}
		if g.Status != GameStatusLobby {
			return fmt.Errorf("game is not in lobby: %w", ErrInvalidState)
		}
		startAt = m.now().UTC().Add(StartCountdown)
		g.Status = GameStatusStarting
		return nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	return g, startAt, nil
}

// BeginRound generates the round sequence on first call and opens round
// one for answering.
func (m *Manager) BeginRound(ctx context.Context, gameID string) (*Game, *Round, error) {
	g, err := m.update(ctx, gameID, func(g *Game) error {
		if g.Status != GameStatusStarting {
			return fmt.Errorf("game is not starting: %w", ErrInvalidState)
		}
		if len(g.Rounds) == 0 {
			g.Rounds = m.generateRounds(&g.Settings)
		}
		g.Status = GameStatusInRound
		g.CurrentRoundIndex = 0
		m.openRound(&g.Rounds[0], g.Settings)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	round, _ := g.CurrentRound()
	return g, round, nil
}

// generateRounds samples maxRounds distinct letters from the pool in
// random order. Rounds start at number 1.
func (m *Manager) generateRounds(settings *Settings) []Round {
	categories := settings.Categories
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	m.rngMu.Lock()
	perm := m.rng.Perm(len(letterPool))
	m.rngMu.Unlock()

	count := settings.MaxRounds
	if count > len(letterPool) {
		count = len(letterPool)
	}

	rounds := make([]Round, count)
	for i := 0; i < count; i++ {
		rounds[i] = Round{
			RoundNumber:   i + 1,
			Letter:        letterPool[perm[i]],
			Categories:    append([]string(nil), categories...),
			Answers:       make(map[string]PlayerAnswers),
			RoundScores:   make(map[string]int),
			DisputeVotes:  make(map[string]map[string]bool),
			CategoryLikes: make(map[string]map[string]string),
			Status:        RoundStatusNotStarted,
		}
	}
	return rounds
}

func (m *Manager) openRound(r *Round, settings Settings) {
	started := m.now().UTC()
	r.Status = RoundStatusAnswering
	r.StartedAt = &started
	if settings.TimedMode {
		ends := started.Add(time.Duration(settings.RoundDurationSeconds) * time.Second)
		r.EndedAt = &ends
	}
}

// AuthorizeHost checks that playerID is the game's host without
// mutating anything.
func (m *Manager) AuthorizeHost(ctx context.Context, gameID, playerID string) error {
	g, err := m.repo.Get(ctx, gameID)
	if err != nil {
		return err
	}
	return m.requireHost(g, playerID)
}

// GetGame loads a game by id.
func (m *Manager) GetGame(ctx context.Context, gameID string) (*Game, error) {
	return m.repo.Get(ctx, gameID)
}

// GetGameByJoinCode loads a game by its join code.
func (m *Manager) GetGameByJoinCode(ctx context.Context, joinCode string) (*Game, error) {
	return m.repo.GetByJoinCode(ctx, NormalizeJoinCode(joinCode))
}
