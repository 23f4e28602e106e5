package framecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/cmd/frames/workspace"
	"github.com/papercomputeco/frames/pkg/cliui"
	"github.com/papercomputeco/frames/pkg/digest"
)

func newCloseCmd() *cobra.Command {
	var (
		status  string
		outputs payloadFlags
	)

	cmd := &cobra.Command{
		Use:   "close [frame-id]",
		Short: "Close a frame and every active frame above it",
		Long: `Close a frame, or the current frame, together with its active descendants.

The frame's digest is compiled from its events and anchors. --status
partial or --status cancelled overrides the extracted exit status.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := outputs.payload()
			if err != nil {
				return err
			}
			switch digest.ExitStatus(status) {
			case "":
			case digest.ExitPartial, digest.ExitCancelled:
				out["exitStatus"] = status
			default:
				return fmt.Errorf("invalid --status %q: expected partial or cancelled", status)
			}

			var id string
			if len(args) == 1 {
				id = args[0]
			}

			return withWorkspace(cmd, func(w *workspace.Workspace) error {
				if id == "" {
					id, _ = w.Engine.GetCurrentFrameID()
				}
				if err := w.Engine.CloseFrame(cmd.Context(), id, out); err != nil {
					return err
				}

				f, err := w.Engine.GetFrame(cmd.Context(), id)
				if err != nil {
					return err
				}
				d, err := digest.Decode(f.DigestData)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Closed %s %s\n",
					cliui.SuccessMark,
					cliui.NameStyle.Render(f.Name),
					cliui.Status(string(d.Status)),
				)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Override exit status (partial, cancelled)")
	outputs.register(cmd, "output")
	workspace.AddFlags(cmd)

	return cmd
}
