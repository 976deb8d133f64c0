package domain

import (
	"fmt"
	"strings"
	"time"
)

type Kind int

const (
	KindIssue Kind = iota + 1
	KindPullRequest
)

func (k Kind) Valid() bool {
	switch k {
	case KindIssue, KindPullRequest:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindIssue:
		return "Issue"
	case KindPullRequest:
		return "PullRequest"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Activity is one open issue or pull request observed during a poll cycle.
// Fields are unexported so a value cannot change after NewActivity.
type Activity struct {
	kind      Kind
	title     string
	url       string
	createdAt time.Time
	repoName  string
}

func NewActivity(kind Kind, title, url string, createdAt time.Time, repoName string) (Activity, error) {
	if !kind.Valid() {
		return Activity{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidActivity, int(kind))
	}
	if strings.TrimSpace(title) == "" {
		return Activity{}, fmt.Errorf("%w: title is required", ErrInvalidActivity)
	}
	if strings.TrimSpace(url) == "" {
		return Activity{}, fmt.Errorf("%w: url is required", ErrInvalidActivity)
	}
	if strings.TrimSpace(repoName) == "" {
		return Activity{}, fmt.Errorf("%w: repository name is required", ErrInvalidActivity)
	}

	return Activity{
		kind:      kind,
		title:     title,
		url:       url,
		createdAt: createdAt,
		repoName:  repoName,
	}, nil
}

func (a Activity) Kind() Kind           { return a.kind }
func (a Activity) Title() string        { return a.title }
func (a Activity) URL() string          { return a.url }
func (a Activity) CreatedAt() time.Time { return a.createdAt }
func (a Activity) RepoName() string     { return a.repoName }

// Repository identifies one repository of the polled organization.
type Repository struct {
	Owner string
	Name  string
}

func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}
