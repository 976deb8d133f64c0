package cmd

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/adapters/console"
	"github.com/bnema/repo-digest-notifier/internal/adapters/render/mrkdwn"
	"github.com/bnema/repo-digest-notifier/internal/adapters/render/preview"
	"github.com/bnema/repo-digest-notifier/internal/application"
	"github.com/bnema/repo-digest-notifier/internal/config"
	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
	"github.com/spf13/cobra"
)

func newPollCmd(root *rootOptions) *cobra.Command {
	var dryRun bool
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run one poll cycle now",
		Long:  "poll fetches the organization's open issues and pull requests once and posts the digest. With --dry-run the digest is printed instead of posted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			purpose := config.PurposePoll
			if dryRun {
				purpose = config.PurposePreview
			}

			app, err := root.wire(cmd, purpose)
			if err != nil {
				return err
			}
			defer app.Close()

			return runPoll(cmd, app, dryRun, !noProgress)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the digest instead of posting it")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the progress spinner")

	return cmd
}

func runPoll(cmd *cobra.Command, app *app, dryRun bool, progress bool) error {
	var printed bytes.Buffer
	var render func(domain.Digest) string
	var deliverer ports.Deliverer
	if dryRun {
		render = previewRenderer(app.cfg.Org, time.Now)
		deliverer = console.NewDeliverer(&printed)
	}

	svc, err := app.pollService(render, deliverer)
	if err != nil {
		return err
	}

	var report application.CycleReport
	cycle := func(ctx context.Context) error {
		if timeout := app.cfg.Poll.CycleTimeout; timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		report = svc.RunCycle(ctx)
		return nil
	}

	if progress {
		err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching open issues and pull requests...", cycle)
	} else {
		err = cycle(cmd.Context())
	}
	if err != nil {
		return err
	}

	if report.Err != nil {
		return report.Err
	}

	out := cmd.OutOrStdout()
	switch {
	case dryRun && report.Outcome == application.OutcomeEmpty:
		_, err = fmt.Fprintln(out, previewRenderer(app.cfg.Org, time.Now)(domain.Digest{}))
	case dryRun:
		_, err = out.Write(printed.Bytes())
	case report.Delivered:
		_, err = fmt.Fprintf(out, "Posted digest of %d open items from %d repositories\n", report.Activities, report.Repositories)
	default:
		_, err = fmt.Fprintf(out, "Nothing open in %s, no message sent\n", app.cfg.Org)
	}

	return err
}

// previewRenderer draws the digest for a terminal, falling back to the
// Slack text when the terminal renderer fails.
func previewRenderer(org string, now func() time.Time) func(domain.Digest) string {
	return func(digest domain.Digest) string {
		rendered, err := preview.Render(digest, preview.RenderOptions{Org: org, Now: now()})
		if err != nil {
			return mrkdwn.Render(digest)
		}
		return rendered
	}
}
