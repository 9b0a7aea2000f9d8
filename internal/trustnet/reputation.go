package trustnet

import (
	"sync"

	"github.com/banshee-data/roadtrust/internal/geo"
)

// ReputationStore maps vehicle ids to trust scores in [0,1]. Entries are
// lazily initialized to the default on first reference and never removed:
// reputation survives a vehicle leaving the feed.
//
// Every read-modify-write happens under the store lock, so concurrent
// validators updating the same reporter serialize rather than losing updates.
type ReputationStore struct {
	mu     sync.Mutex
	scores map[string]float64

	defaultScore float64
	reward       float64
	penalty      float64
}

// NewReputationStore creates a store with the given dynamics. The canonical
// values are default 0.5, reward +0.1, penalty -0.3.
func NewReputationStore(defaultScore, reward, penalty float64) *ReputationStore {
	return &ReputationStore{
		scores:       make(map[string]float64),
		defaultScore: defaultScore,
		reward:       reward,
		penalty:      penalty,
	}
}

// Get returns the vehicle's current trust score, initializing it to the
// default on first reference.
func (s *ReputationStore) Get(vehicleID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(vehicleID)
}

func (s *ReputationStore) getLocked(vehicleID string) float64 {
	if score, ok := s.scores[vehicleID]; ok {
		return score
	}
	s.scores[vehicleID] = s.defaultScore
	return s.defaultScore
}

// Reward nudges the vehicle's score up by the reward delta, clamped to 1,
// and returns the new score.
func (s *ReputationStore) Reward(vehicleID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := geo.Clamp(s.getLocked(vehicleID)+s.reward, 0, 1)
	s.scores[vehicleID] = next
	return next
}

// Penalize nudges the vehicle's score down by the penalty delta, clamped to
// 0, and returns the new score.
func (s *ReputationStore) Penalize(vehicleID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := geo.Clamp(s.getLocked(vehicleID)-s.penalty, 0, 1)
	s.scores[vehicleID] = next
	return next
}

// Len returns the number of tracked vehicles.
func (s *ReputationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scores)
}

// Snapshot returns a copy of all tracked scores.
func (s *ReputationStore) Snapshot() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.scores))
	for id, score := range s.scores {
		out[id] = score
	}
	return out
}
