package preview

import (
	"fmt"
	"math"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Org string
	// Now enables item ages; zero hides them.
	Now time.Time
}

func renderView(digest domain.Digest, opts RenderOptions, s styles) string {
	title := "Open issues and pull requests"
	if opts.Org != "" {
		title += " in " + opts.Org
	}
	lines := []string{
		s.title.Render(title),
		s.header.Render(fmt.Sprintf("open items: %d", digest.Total)),
	}

	if len(digest.Days) == 0 {
		lines = append(lines, s.empty.Render("Nothing open. No message would be sent."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, day := range digest.Days {
		lines = append(lines, s.section.Render(renderDay(day, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderDay(day domain.DayGroup, opts RenderOptions, s styles) string {
	parts := []string{s.date.Render(day.Date)}

	for _, repo := range day.Repos {
		parts = append(parts, s.repo.Render(repo.Name))
		parts = append(parts, kindLines("Pull Requests", repo.PullRequests, opts, s)...)
		parts = append(parts, kindLines("Issues", repo.Issues, opts, s)...)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func kindLines(label string, activities []domain.Activity, opts RenderOptions, s styles) []string {
	if len(activities) == 0 {
		return nil
	}

	lines := []string{s.kind.Render(fmt.Sprintf("%s (%d)", label, len(activities)))}
	for _, activity := range activities {
		lines = append(lines, itemLine(activity, opts, s))
	}

	return lines
}

func itemLine(activity domain.Activity, opts RenderOptions, s styles) string {
	line := s.item.Render("• " + activity.Title())
	parts := []string{line, " ", s.url.Render(activity.URL())}

	if !opts.Now.IsZero() {
		age := opts.Now.Sub(activity.CreatedAt())
		ageStyle := lipgloss.NewStyle().Foreground(ageColor(age))
		parts = append(parts, " ", ageStyle.Render(fmt.Sprintf("(%s)", formatAge(age))))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func formatAge(age time.Duration) string {
	if age < time.Hour {
		return "opened just now"
	}
	if age < 24*time.Hour {
		hours := int(math.Floor(age.Hours()))
		return fmt.Sprintf("opened %d %s ago", hours, plural(hours, "hour"))
	}

	days := int(math.Floor(age.Hours() / 24))
	return fmt.Sprintf("opened %d %s ago", days, plural(days, "day"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// ageColor fades from bright white for fresh items to grey at 30 days.
func ageColor(age time.Duration) lipgloss.Color {
	const staleAfter = 30 * 24 * time.Hour
	return interpolateColor((staleAfter - age).Seconds(), 0, staleAfter.Seconds())
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, 240 faded to 255 bright
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(baseColor + (targetColor-baseColor)*normalized)

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
