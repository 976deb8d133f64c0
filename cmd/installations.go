package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/config"
	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

func newInstallationsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installations",
		Short: "Inspect Slack workspace installations",
	}

	cmd.AddCommand(newInstallationsListCmd(root))

	return cmd
}

type installationView struct {
	Workspace   string    `json:"workspace"`
	TeamName    string    `json:"team_name"`
	AppID       string    `json:"app_id"`
	BotUserID   string    `json:"bot_user_id"`
	Scope       string    `json:"scope"`
	SecretRef   string    `json:"secret_ref"`
	InstalledAt time.Time `json:"installed_at"`
}

func newInstallationView(installation domain.Installation) installationView {
	return installationView{
		Workspace:   installation.WorkspaceKey(),
		TeamName:    installation.TeamName,
		AppID:       installation.AppID,
		BotUserID:   installation.BotUserID,
		Scope:       installation.Scope,
		SecretRef:   installation.SecretRef,
		InstalledAt: installation.InstalledAt,
	}
}

func newInstallationsListCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed workspaces without their tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := root.wire(cmd, config.PurposeInspect)
			if err != nil {
				return err
			}
			defer app.Close()

			installations, err := app.installations.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list installations: %w", err)
			}

			views := make([]installationView, 0, len(installations))
			for _, installation := range installations {
				views = append(views, newInstallationView(installation))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}

			if len(views) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No workspaces installed")
				return err
			}

			return renderInstallations(cmd.OutOrStdout(), views)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print installations as JSON")

	return cmd
}

func renderInstallations(w io.Writer, views []installationView) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)

	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			view.Workspace,
			view.TeamName,
			view.Scope,
			view.InstalledAt.Format(time.RFC3339),
		})
	}

	table.Header([]string{"Workspace", "Team", "Scope", "Installed"})
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("render installations: %w", err)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("render installations: %w", err)
	}
	return nil
}
