package framecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/cmd/frames/workspace"
	"github.com/papercomputeco/frames/pkg/engine"
	"github.com/papercomputeco/frames/pkg/frame"
)

func newCreateCmd() *cobra.Command {
	var (
		parent string
		inputs payloadFlags
	)

	cmd := &cobra.Command{
		Use:   "create <kind> <name>",
		Short: "Create a frame on top of the stack",
		Long: fmt.Sprintf(`Create a frame on top of the stack and print its id.

Kinds: %v`, frame.Kinds),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := inputs.value()
			if err != nil {
				return err
			}

			return withWorkspace(cmd, func(w *workspace.Workspace) error {
				id, err := w.Engine.CreateFrame(cmd.Context(), engine.CreateFrameRequest{
					Kind:     frame.Kind(args[0]),
					Name:     args[1],
					Inputs:   in,
					ParentID: parent,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				kinds := make([]string, len(frame.Kinds))
				for i, k := range frame.Kinds {
					kinds[i] = string(k)
				}
				return kinds, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Parent frame id (must be the current frame)")
	inputs.register(cmd, "input")
	workspace.AddFlags(cmd)

	return cmd
}
