package cmd

import (
	"github.com/bnema/repo-digest-notifier/internal/config"
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "notifier",
		Short:         "Post a daily digest of open GitHub issues and pull requests to Slack",
		Long:          "notifier lists every repository of a GitHub organization, groups their open issues and pull requests by day and posts the digest to a Slack incoming webhook. It also serves the Slack install flow.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the TOML config file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(opts),
		newPollCmd(opts),
		newInstallURLCmd(opts),
		newInstallationsCmd(opts),
		newSecretsCmd(opts),
	)

	return rootCmd
}

// wire builds the app for cmd. The config file is only mandatory when
// --config was given explicitly.
func (o *rootOptions) wire(cmd *cobra.Command, purpose config.Purpose) (*app, error) {
	return wireApp(cmd.Context(), wireOptions{
		configPath: o.configPath,
		explicit:   cmd.Flags().Changed("config"),
		purpose:    purpose,
		logOutput:  cmd.ErrOrStderr(),
	})
}
