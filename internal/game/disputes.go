package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// VoteStatus is what CastVote reports back for broadcasting.
type VoteStatus struct {
	DisputeID   string `json:"dispute_id"`
	VoteCount   int    `json:"vote_count"`
	TotalVoters int    `json:"total_voters"`
	Resolved    bool   `json:"resolved"`
	IsValid     bool   `json:"is_valid"`
}

// DetectDisputes scans the locked current round for answers whose first
// letter does not match the round letter and fills round.Disputes with
// one Pending record per offending (player, category, answer). Records
// are ordered by category then normalized answer; several records can
// share an id when players gave the same wrong answer. Detection runs
// at most once per round: once records exist they are returned as they
// stand, so a late or duplicate end-round delivery cannot reset
// resolved disputes or drag the game status backward.
func (m *Manager) DetectDisputes(ctx context.Context, gameID string) (*Game, []Dispute, error) {
	var disputes []Dispute
	g, err := m.update(ctx, gameID, func(g *Game) error {
		round, ok := g.CurrentRound()
		if !ok {
			return fmt.Errorf("no active round: %w", ErrInvalidState)
		}
		if roundStatusOrder[round.Status] < roundStatusOrder[RoundStatusLocked] {
			return fmt.Errorf("round is not locked: %w", ErrInvalidState)
		}
		if len(round.Disputes) > 0 {
			disputes = round.Disputes
			return errUnchanged
		}

		expected := strings.ToLower(round.Letter)
		disputes = nil
		for _, p := range g.Players {
			pa, ok := round.Answers[p.ID]
			if !ok {
				continue
			}
			for _, category := range round.Categories {
				norm := pa.Normalized[category]
				if norm == "" || norm[:1] == expected {
					continue
				}
				raw := pa.Raw[category]
				if raw == "" {
					raw = norm
				}
				disputes = append(disputes, Dispute{
					ID:               DisputeID(category, norm),
					Category:         category,
					PlayerID:         p.ID,
					RawAnswer:        raw,
					NormalizedAnswer: norm,
					Status:           DisputeStatusPending,
				})
			}
		}

		sort.SliceStable(disputes, func(i, j int) bool {
			if disputes[i].Category != disputes[j].Category {
				return disputes[i].Category < disputes[j].Category
			}
			return disputes[i].NormalizedAnswer < disputes[j].NormalizedAnswer
		})

		if len(disputes) == 0 {
			return errUnchanged
		}
		round.Disputes = disputes
		g.Status = GameStatusDisputes
		round.advanceStatus(RoundStatusDisputes)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g, disputes, nil
}

// disputeAuthors returns the distinct player ids behind every record
// sharing the given dispute id.
func disputeAuthors(round *Round, disputeID string) map[string]bool {
	authors := make(map[string]bool)
	for _, d := range round.Disputes {
		if d.ID == disputeID {
			authors[d.PlayerID] = true
		}
	}
	return authors
}

func disputeStatus(round *Round, disputeID string) (DisputeStatus, bool) {
	for _, d := range round.Disputes {
		if d.ID == disputeID {
			return d.Status, true
		}
	}
	return "", false
}

func setDisputeStatus(round *Round, disputeID string, status DisputeStatus) {
	for i := range round.Disputes {
		if round.Disputes[i].ID == disputeID {
			round.Disputes[i].Status = status
		}
	}
}

// voteOutcome applies the majority rule; an exact tie counts as valid.
func voteOutcome(votes map[string]bool) bool {
	valid, invalid := 0, 0
	for _, v := range votes {
		if v {
			valid++
		} else {
			invalid++
		}
	}
	return valid >= invalid
}

// CastVote records one player's valid/invalid vote on a dispute.
// Authors of the disputed answer may not vote. The dispute resolves
// the moment every eligible voter has voted.
func (m *Manager) CastVote(ctx context.Context, gameID, votingPlayerID, disputeID string, isValid bool) (*Game, *VoteStatus, error) {
	var status *VoteStatus
	g, err := m.update(ctx, gameID, func(g *Game) error {
		round, ok := g.CurrentRound()
		if !ok {
			return fmt.Errorf("no active round: %w", ErrInvalidState)
		}
		current, ok := disputeStatus(round, disputeID)
		if !ok {
			return fmt.Errorf("dispute %s: %w", disputeID, ErrNotFound)
		}
		if current != DisputeStatusPending {
			return fmt.Errorf("dispute %s already resolved: %w", disputeID, ErrInvalidState)
		}

		authors := disputeAuthors(round, disputeID)
		if authors[votingPlayerID] {
			return fmt.Errorf("players cannot vote on their own answer: %w", ErrInvalidVote)
		}

		if round.DisputeVotes == nil {
			round.DisputeVotes = make(map[string]map[string]bool)
		}
		if round.DisputeVotes[disputeID] == nil {
			round.DisputeVotes[disputeID] = make(map[string]bool)
		}
		round.DisputeVotes[disputeID][votingPlayerID] = isValid

		votes := round.DisputeVotes[disputeID]
		eligible := len(g.Players) - len(authors)
		status = &VoteStatus{
			DisputeID:   disputeID,
			VoteCount:   len(votes),
			TotalVoters: eligible,
		}
		if eligible > 0 && len(votes) >= eligible {
			status.Resolved = true
			status.IsValid = voteOutcome(votes)
			resolved := DisputeStatusInvalid
			if status.IsValid {
				resolved = DisputeStatusValid
			}
			setDisputeStatus(round, disputeID, resolved)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g, status, nil
}

// CloseDisputeVoting is the scheduled auto-close path. Late or
// duplicate deliveries on an already resolved dispute are no-ops.
// Whatever votes are in by the deadline decide the outcome; no votes
// at all defaults to valid.
func (m *Manager) CloseDisputeVoting(ctx context.Context, gameID, disputeID string) (*Game, *VoteStatus, error) {
	var status *VoteStatus
	g, err := m.update(ctx, gameID, func(g *Game) error {
		round, ok := g.CurrentRound()
		if !ok {
			return errUnchanged
		}
		current, ok := disputeStatus(round, disputeID)
		if !ok || current != DisputeStatusPending {
			return errUnchanged
		}

		votes := round.DisputeVotes[disputeID]
		isValid := voteOutcome(votes)
		resolved := DisputeStatusInvalid
		if isValid {
			resolved = DisputeStatusValid
		}
		setDisputeStatus(round, disputeID, resolved)
		status = &VoteStatus{
			DisputeID:   disputeID,
			VoteCount:   len(votes),
			TotalVoters: len(g.Players) - len(disputeAuthors(round, disputeID)),
			Resolved:    true,
			IsValid:     isValid,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g, status, nil
}

// ResolveAllPendingForCategory force-resolves every still pending
// dispute in one category so review can move on. Already resolved
// disputes are untouched.
func (m *Manager) ResolveAllPendingForCategory(ctx context.Context, gameID, category string) (*Game, []Dispute, error) {
	var resolved []Dispute
	g, err := m.update(ctx, gameID, func(g *Game) error {
		round, ok := g.CurrentRound()
		if !ok {
			return fmt.Errorf("no active round: %w", ErrInvalidState)
		}
		resolved = resolvePendingForCategory(round, category)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g, resolved, nil
}

// resolvePendingForCategory resolves each still pending dispute id in
// the category by its cast votes (none at all defaults to valid) and
// returns one record per resolved id.
func resolvePendingForCategory(round *Round, category string) []Dispute {
	var resolved []Dispute
	for i := range round.Disputes {
		d := &round.Disputes[i]
		if d.Category != category || d.Status != DisputeStatusPending {
			continue
		}
		status := DisputeStatusInvalid
		if voteOutcome(round.DisputeVotes[d.ID]) {
			status = DisputeStatusValid
		}
		setDisputeStatus(round, d.ID, status)
		resolved = append(resolved, *d)
	}
	return resolved
}
