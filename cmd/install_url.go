package cmd

import (
	"fmt"

	"github.com/bnema/repo-digest-notifier/internal/config"
	"github.com/spf13/cobra"
)

func newInstallURLCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install-url",
		Short: "Issue a state token and print the Slack authorize URL",
		Long:  "install-url stores a single-use state token in the shared sqlite store and prints the URL to open. The running server consumes the state on callback within ten minutes.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := root.wire(cmd, config.PurposeInstallURL)
			if err != nil {
				return err
			}
			defer app.Close()

			installer, err := app.installService()
			if err != nil {
				return err
			}

			authorizeURL, err := installer.Begin(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), authorizeURL)
			return err
		},
	}
}
