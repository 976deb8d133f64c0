package application

import (
	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
)

// Normalize tags a raw source record with the repository it was listed under.
func Normalize(repo domain.Repository, raw ports.RawActivity) (domain.Activity, error) {
	return domain.NewActivity(raw.Kind, raw.Title, raw.URL, raw.CreatedAt, repo.Name)
}
