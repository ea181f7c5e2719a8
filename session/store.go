package session

import (
	"context"
	"sync"

	balancer "github.com/expensesbalancer/balancer-go"
)

// Store is the client-side cache of the authenticated wallet's sessions.
// It holds the merged backend+chain view produced by the coordinator and
// serves lookups between refreshes.
type Store struct {
	mu sync.RWMutex

	wallet      string
	coordinator *Coordinator
	sessions    []balancer.Session
}

// NewStore creates a cache bound to one wallet.
func NewStore(coordinator *Coordinator, wallet string) *Store {
	return &Store{coordinator: coordinator, wallet: wallet}
}

// Refresh replaces the cache with a fresh merged view. On failure the
// previous contents are kept.
func (s *Store) Refresh(ctx context.Context) error {
	sessions, err := s.coordinator.Sessions(ctx, s.wallet)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()
	return nil
}

// All returns a copy of the cached sessions.
func (s *Store) All() []balancer.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]balancer.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Get returns the cached session with the given id.
func (s *Store) Get(sessionID int64) (balancer.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if session.ID == sessionID {
			return session, true
		}
	}
	return balancer.Session{}, false
}

// Join joins the wallet to a session through the coordinator and patches
// the cached record so the UI reflects the join before the next refresh.
func (s *Store) Join(ctx context.Context, sessionID int64) (JoinResult, error) {
	result, err := s.coordinator.Join(ctx, sessionID, s.wallet)
	if err != nil {
		return JoinResult{}, err
	}

	s.mu.Lock()
	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			s.sessions[i].IsJoined = true
			if result.QuorumReached {
				s.sessions[i].State = balancer.StateActive
			}
		}
	}
	s.mu.Unlock()

	return result, nil
}
