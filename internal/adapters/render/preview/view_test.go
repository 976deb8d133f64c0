package preview

import (
	"strings"
	"testing"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustActivity(t *testing.T, kind domain.Kind, title, repo string, createdAt time.Time) domain.Activity {
	t.Helper()

	a, err := domain.NewActivity(kind, title, "https://github.com/acme/"+repo+"/"+title, createdAt, repo)
	require.NoError(t, err)
	return a
}

func TestRenderDigestGroups(t *testing.T) {
	now := time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC)
	digest, ok := domain.BuildDigest([]domain.Activity{
		mustActivity(t, domain.KindIssue, "A", "R1", time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)),
		mustActivity(t, domain.KindPullRequest, "B", "R1", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)),
		mustActivity(t, domain.KindIssue, "C", "R2", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
	}, time.UTC)
	require.True(t, ok)

	output, err := Render(digest, RenderOptions{Org: "acme", Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "Open issues and pull requests in acme")
	assert.Contains(t, output, "open items: 3")
	assert.Contains(t, output, "2024-01-02")
	assert.Contains(t, output, "Pull Requests (1)")
	assert.Contains(t, output, "Issues (1)")
	assert.Contains(t, output, "• B")
	assert.Contains(t, output, "https://github.com/acme/R2/C")
	assert.Contains(t, output, "opened 2 days ago")
	assert.Contains(t, output, "opened 3 days ago")
	assert.Less(t, strings.Index(output, "2024-01-02"), strings.Index(output, "2024-01-01"))
	assert.Less(t, strings.Index(output, "• B"), strings.Index(output, "• A"))
}

func TestRenderEmptyDigest(t *testing.T) {
	output, err := Render(domain.Digest{}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "open items: 0")
	assert.Contains(t, output, "Nothing open")
}

func TestRenderWithoutNowOmitsAges(t *testing.T) {
	digest, ok := domain.BuildDigest([]domain.Activity{
		mustActivity(t, domain.KindIssue, "A", "R1", time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)),
	}, time.UTC)
	require.True(t, ok)

	output, err := Render(digest, RenderOptions{})
	require.NoError(t, err)
	assert.NotContains(t, output, "opened")
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "opened just now", formatAge(10*time.Minute))
	assert.Equal(t, "opened 1 hour ago", formatAge(90*time.Minute))
	assert.Equal(t, "opened 5 hours ago", formatAge(5*time.Hour))
	assert.Equal(t, "opened 1 day ago", formatAge(36*time.Hour))
	assert.Equal(t, "opened 12 days ago", formatAge(12*24*time.Hour))
}

func TestAgeColorFadesWithAge(t *testing.T) {
	assert.Equal(t, lipgloss.Color("255"), ageColor(0))
	assert.Equal(t, lipgloss.Color("240"), ageColor(60*24*time.Hour))
}
