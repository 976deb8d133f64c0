package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/repo-digest-notifier/internal/config"
	"github.com/spf13/cobra"
)

func newSecretsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage values referenced as secret://<key> in the config",
	}

	cmd.AddCommand(newSecretsSetCmd(root), newSecretsRemoveCmd(root))

	return cmd
}

func newSecretsSetCmd(root *rootOptions) *cobra.Command {
	var key string
	var value string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read secret from stdin: %w", err)
				}
				value = strings.TrimRight(line, "\r\n")
			}
			if value == "" {
				return errors.New("secret value is empty: pass --value or --stdin")
			}

			app, err := root.wire(cmd, config.PurposeInspect)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.secrets.Put(cmd.Context(), key, value); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s%s\n", config.SecretScheme, key)
			return err
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Secret-store key")
	cmd.Flags().StringVar(&value, "value", "", "Secret value")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the secret value from the first line of stdin")
	_ = cmd.MarkFlagRequired("key")
	cmd.MarkFlagsMutuallyExclusive("value", "stdin")

	return cmd
}

func newSecretsRemoveCmd(root *rootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := root.wire(cmd, config.PurposeInspect)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.secrets.Delete(cmd.Context(), key)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Secret-store key")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}
