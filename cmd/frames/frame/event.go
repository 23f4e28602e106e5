package framecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/cmd/frames/workspace"
	"github.com/papercomputeco/frames/pkg/frame"
)

func newEventCmd() *cobra.Command {
	var (
		frameID string
		payload payloadFlags
	)

	cmd := &cobra.Command{
		Use:   "event <kind>",
		Short: "Append an event to a frame",
		Long: fmt.Sprintf(`Append an event to the current frame and print its id.

Kinds: %v`, frame.EventKinds),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := payload.value()
			if err != nil {
				return err
			}

			return withWorkspace(cmd, func(w *workspace.Workspace) error {
				id, err := w.Engine.AddEvent(cmd.Context(), frame.EventKind(args[0]), p, frameID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&frameID, "frame", "", "Target frame id (default: current frame)")
	payload.register(cmd, "payload")
	workspace.AddFlags(cmd)

	return cmd
}
