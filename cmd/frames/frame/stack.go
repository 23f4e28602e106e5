package framecmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/cmd/frames/workspace"
	"github.com/papercomputeco/frames/pkg/cliui"
)

func newStackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Print the active frame path, root first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(w *workspace.Workspace) error {
				path, err := w.Engine.GetActiveFramePath(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(path) == 0 {
					fmt.Fprintln(out, cliui.DimStyle.Render("No active frames."))
					return nil
				}
				for i, f := range path {
					fmt.Fprintf(out, "%s%s %s %s\n",
						strings.Repeat("  ", i),
						cliui.NameStyle.Render(f.Name),
						cliui.DimStyle.Render("("+string(f.Kind)+")"),
						cliui.DimStyle.Render(f.ID),
					)
				}
				return nil
			})
		},
	}
	workspace.AddFlags(cmd)
	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the frame stack against the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(w *workspace.Workspace) error {
				violations, err := w.Engine.ValidateStack(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(violations) == 0 {
					fmt.Fprintf(out, "%s Stack is consistent (depth %d)\n", cliui.SuccessMark, w.Engine.GetStackDepth())
					return nil
				}
				for _, v := range violations {
					fmt.Fprintf(out, "%s %s\n", cliui.FailMark, v)
				}
				return fmt.Errorf("%d stack violation(s)", len(violations))
			})
		},
	}
	workspace.AddFlags(cmd)
	return cmd
}
