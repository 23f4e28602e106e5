package framecmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/cmd/frames/workspace"
	"github.com/papercomputeco/frames/pkg/engine"
	"github.com/papercomputeco/frames/pkg/frame"
)

func newAnchorCmd() *cobra.Command {
	var (
		frameID  string
		priority int
		metadata payloadFlags
	)

	cmd := &cobra.Command{
		Use:   "anchor <type> <text>",
		Short: "Attach an anchor to a frame",
		Long: fmt.Sprintf(`Attach an anchor to the current frame and print its id.

Types: %v
Priority ranges from %d to %d.`, frame.AnchorTypes, frame.MinPriority, frame.MaxPriority),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := metadata.value()
			if err != nil {
				return err
			}

			req := engine.AnchorRequest{
				Type:     frame.AnchorType(strings.ToUpper(args[0])),
				Text:     strings.Join(args[1:], " "),
				Metadata: meta,
			}
			if cmd.Flags().Changed("priority") {
				req.Priority = &priority
			}

			return withWorkspace(cmd, func(w *workspace.Workspace) error {
				id, err := w.Engine.AddAnchor(cmd.Context(), req, frameID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&frameID, "frame", "", "Target frame id (default: current frame)")
	cmd.Flags().IntVar(&priority, "priority", frame.DefaultPriority, "Anchor priority")
	metadata.register(cmd, "metadata")
	workspace.AddFlags(cmd)

	return cmd
}
