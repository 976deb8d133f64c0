package github

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
)

// Source lists an organization's repositories and their open issues and
// pull requests.
type Source struct {
	client *Client
}

var _ ports.SourceReader = (*Source)(nil)

func NewSource(client *Client) *Source {
	return &Source{client: client}
}

func (s *Source) Repositories(ctx context.Context, org string) iter.Seq2[domain.Repository, error] {
	path := fmt.Sprintf("/orgs/%s/repos?type=all&per_page=%d", url.PathEscape(org), perPage)

	return listAll(ctx, s.client, path, func(r repositoryJSON) (domain.Repository, bool) {
		owner := r.Owner.Login
		if owner == "" {
			owner = org
		}
		return domain.Repository{Owner: owner, Name: r.Name}, true
	})
}

// OpenIssues skips entries that are pull requests, which the issues
// endpoint also returns.
func (s *Source) OpenIssues(ctx context.Context, repo domain.Repository) iter.Seq2[ports.RawActivity, error] {
	path := fmt.Sprintf("/repos/%s/%s/issues?state=open&per_page=%d", url.PathEscape(repo.Owner), url.PathEscape(repo.Name), perPage)

	return listAll(ctx, s.client, path, func(i issueJSON) (ports.RawActivity, bool) {
		if i.PullRequest != nil {
			return ports.RawActivity{}, false
		}
		return ports.RawActivity{
			Kind:      domain.KindIssue,
			Title:     i.Title,
			URL:       i.HTMLURL,
			CreatedAt: i.CreatedAt,
		}, true
	})
}

func (s *Source) OpenPullRequests(ctx context.Context, repo domain.Repository) iter.Seq2[ports.RawActivity, error] {
	path := fmt.Sprintf("/repos/%s/%s/pulls?state=open&per_page=%d", url.PathEscape(repo.Owner), url.PathEscape(repo.Name), perPage)

	return listAll(ctx, s.client, path, func(p pullRequestJSON) (ports.RawActivity, bool) {
		return ports.RawActivity{
			Kind:      domain.KindPullRequest,
			Title:     p.Title,
			URL:       p.HTMLURL,
			CreatedAt: p.CreatedAt,
		}, true
	})
}

func listAll[J, T any](ctx context.Context, client *Client, path string, convert func(J) (T, bool)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		err := client.pages(ctx, path, func(body []byte) (bool, error) {
			var page []J
			if err := json.Unmarshal(body, &page); err != nil {
				return false, fmt.Errorf("decode page of %s: %w", path, err)
			}
			for _, item := range page {
				value, ok := convert(item)
				if !ok {
					continue
				}
				if !yield(value, nil) {
					return false, nil
				}
			}
			return true, nil
		})
		if err != nil {
			yield(zero, err)
		}
	}
}
