package ports

import (
	"context"

	"github.com/bnema/repo-digest-notifier/internal/domain"
)

type InstallationRepository interface {
	Get(ctx context.Context, workspaceKey string) (domain.Installation, error)
	List(ctx context.Context) ([]domain.Installation, error)
	// Save overwrites any installation with the same workspace key.
	Save(ctx context.Context, installation domain.Installation) error
}

// OAuthProvider is the workspace's identity provider.
type OAuthProvider interface {
	AuthorizeURL(state string) (string, error)
	// Exchange trades an authorization code for an access grant.
	Exchange(ctx context.Context, code string) (domain.Installation, error)
}
