package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
)

// purgeAfter is how long past expiry a state is kept before Put drops it.
const purgeAfter = time.Hour

// Store keeps install states in process memory. States do not survive a
// restart, which only invalidates installs that were in flight.
type Store struct {
	mu     sync.Mutex
	states map[string]domain.InstallationState
	clock  ports.Clock
}

var _ ports.StateStore = (*Store)(nil)

func NewStore(clock ports.Clock) *Store {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Store{
		states: make(map[string]domain.InstallationState),
		clock:  clock,
	}
}

func (s *Store) Get(ctx context.Context, token string) (domain.InstallationState, error) {
	if err := ctx.Err(); err != nil {
		return domain.InstallationState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[token]
	if !ok {
		return domain.InstallationState{}, fmt.Errorf("state %q: %w", token, domain.ErrStateNotFound)
	}

	return state, nil
}

func (s *Store) Put(ctx context.Context, state domain.InstallationState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()
	s.states[state.Token] = state

	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, token string, old, next domain.InstallationState) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.states[token]
	if !ok || !current.Equal(old) {
		return false, nil
	}
	s.states[token] = next

	return true, nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.states)
}

func (s *Store) purgeLocked() {
	cutoff := s.clock.Now().Add(-purgeAfter)
	for token, state := range s.states {
		if state.ExpiresAt.Before(cutoff) {
			delete(s.states, token)
		}
	}
}
