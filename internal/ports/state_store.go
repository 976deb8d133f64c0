package ports

import (
	"context"

	"github.com/bnema/repo-digest-notifier/internal/domain"
)

type StateStore interface {
	// Get returns domain.ErrStateNotFound for unknown tokens.
	Get(ctx context.Context, token string) (domain.InstallationState, error)
	Put(ctx context.Context, state domain.InstallationState) error
	// CompareAndSwap replaces old with next only if the stored value still
	// equals old, as one indivisible step.
	CompareAndSwap(ctx context.Context, token string, old, next domain.InstallationState) (bool, error)
}

type TokenGenerator interface {
	NewToken() (string, error)
}
