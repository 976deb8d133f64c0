// Package mrkdwn renders a digest as Slack mrkdwn text.
package mrkdwn

import (
	"fmt"
	"strings"

	"github.com/bnema/repo-digest-notifier/internal/domain"
)

const header = "*Reminder for the Notification*"

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape makes s safe to embed in mrkdwn, including inside a link label.
func Escape(s string) string {
	return escaper.Replace(s)
}

func Render(digest domain.Digest) string {
	var b strings.Builder

	b.WriteString(header)
	b.WriteString("\n")
	fmt.Fprintf(&b, "There are %d open PRs/issues:\n", digest.Total)

	for _, day := range digest.Days {
		fmt.Fprintf(&b, "\n*%s*\n", day.Date)
		for _, repo := range day.Repos {
			fmt.Fprintf(&b, "_%s_\n", Escape(repo.Name))
			writeSection(&b, "Pull Requests:", repo.PullRequests)
			writeSection(&b, "Issues:", repo.Issues)
		}
	}

	return b.String()
}

func writeSection(b *strings.Builder, label string, activities []domain.Activity) {
	if len(activities) == 0 {
		return
	}

	b.WriteString(label)
	b.WriteString("\n")
	for _, activity := range activities {
		fmt.Fprintf(b, "• <%s|%s>\n", activity.URL(), Escape(activity.Title()))
	}
}
