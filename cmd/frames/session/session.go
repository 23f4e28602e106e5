// Package sessioncmder provides the session command. A session pins the run
// id that successive frames invocations append to.
package sessioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/cmd/frames/workspace"
	"github.com/papercomputeco/frames/pkg/cliui"
	"github.com/papercomputeco/frames/pkg/dotdir"
)

const sessionLongDesc string = `Manage the current frames session.

Every frames command appends to the run pinned in .frames/session.json.
The first command starts a run automatically; "session new" starts a fresh
one and "session end" forgets the current one. Frames of earlier runs stay
in the database.

Examples:
  frames session new --project api
  frames session show
  frames session end`

func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the current frames session",
		Long:  sessionLongDesc,
	}

	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newEndCmd())

	return cmd
}

func newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := workspace.ResolveConfig(cmd)
			if err != nil {
				return err
			}
			configDir, _ := cmd.Flags().GetString("config-dir")

			state, err := workspace.NewSession(cmd.Context(), configDir, cfg.Session.Project)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), state)
			return nil
		},
	}
	workspace.AddFlags(cmd)
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			state, err := dotdir.NewManager().LoadSession(configDir)
			if err != nil {
				return err
			}
			if state == nil {
				fmt.Fprintln(cmd.OutOrStdout(), cliui.DimStyle.Render("No active session."))
				return nil
			}
			printSession(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func newEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "Forget the current run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			if err := dotdir.NewManager().ClearSession(configDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Session ended\n", cliui.SuccessMark)
			return nil
		},
	}
}

func printSession(w io.Writer, s *dotdir.SessionState) {
	fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render("run:    "), s.RunID)
	if s.ProjectID != "" {
		fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render("project:"), s.ProjectID)
	}
	fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render("started:"), s.StartedAt.Format("2006-01-02 15:04:05Z07:00"))
}
