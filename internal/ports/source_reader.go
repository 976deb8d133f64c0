package ports

import (
	"context"
	"iter"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/domain"
)

// RawActivity is an issue or pull request as listed by the source, before
// normalization.
type RawActivity struct {
	Kind      domain.Kind
	Title     string
	URL       string
	CreatedAt time.Time
}

// SourceReader lists an organization's repositories and their open items.
// Sequences are lazy: pages are fetched as the caller ranges over them, and
// a non-nil error ends the sequence.
type SourceReader interface {
	Repositories(ctx context.Context, org string) iter.Seq2[domain.Repository, error]
	OpenIssues(ctx context.Context, repo domain.Repository) iter.Seq2[RawActivity, error]
	OpenPullRequests(ctx context.Context, repo domain.Repository) iter.Seq2[RawActivity, error]
}
