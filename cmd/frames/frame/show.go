package framecmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/cmd/frames/workspace"
	"github.com/papercomputeco/frames/pkg/cliui"
	"github.com/papercomputeco/frames/pkg/digest"
	"github.com/papercomputeco/frames/pkg/frame"
)

type frameView struct {
	Frame   *frame.Frame    `json:"frame"`
	Events  []*frame.Event  `json:"events"`
	Anchors []*frame.Anchor `json:"anchors"`
}

func newShowCmd() *cobra.Command {
	var (
		asJSON bool
		render bool
	)

	cmd := &cobra.Command{
		Use:   "show [frame-id]",
		Short: "Show a frame with its events, anchors and digest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(w *workspace.Workspace) error {
				ctx := cmd.Context()

				var id string
				if len(args) == 1 {
					id = args[0]
				} else {
					var ok bool
					if id, ok = w.Engine.GetCurrentFrameID(); !ok {
						return errors.New("no frame id given and no active frame")
					}
				}

				f, err := w.Engine.GetFrame(ctx, id)
				if err != nil {
					return err
				}
				events, err := w.Engine.GetFrameEvents(ctx, id)
				if err != nil {
					return err
				}
				anchors, err := w.Engine.GetFrameAnchors(ctx, id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(frameView{Frame: f, Events: events, Anchors: anchors})
				}
				return printFrame(out, f, events, anchors, render)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the frame, events and anchors as JSON")
	cmd.Flags().BoolVar(&render, "render", false, "Render the digest text as markdown")
	workspace.AddFlags(cmd)

	return cmd
}

func printFrame(w io.Writer, f *frame.Frame, events []*frame.Event, anchors []*frame.Anchor, render bool) error {
	fmt.Fprintf(w, "%s %s\n", cliui.HeaderStyle.Render(f.Name), cliui.DimStyle.Render("("+string(f.Kind)+")"))
	fmt.Fprintf(w, "  id:     %s\n", f.ID)
	if parent := f.Parent(); parent != "" {
		fmt.Fprintf(w, "  parent: %s\n", parent)
	}
	fmt.Fprintf(w, "  depth:  %d\n", f.Depth)
	fmt.Fprintf(w, "  state:  %s\n", cliui.Status(string(f.State)))
	fmt.Fprintf(w, "  events: %d  anchors: %d\n", len(events), len(anchors))

	for _, a := range anchors {
		fmt.Fprintf(w, "  [%s p%d] %s\n", a.Type, a.Priority, a.Text)
	}

	if f.IsActive() {
		return nil
	}

	if d, err := digest.Decode(f.DigestData); err == nil {
		fmt.Fprintf(w, "  digest: %s (attempts %d)\n", cliui.Status(string(d.Status)), d.Attempts)
		if d.LastError != "" {
			fmt.Fprintf(w, "  last error: %s\n", cliui.WarnStyle.Render(d.LastError))
		}
		if d.AI != nil {
			fmt.Fprintf(w, "  summary: %s\n", d.AI.Summary)
		}
	}

	if f.DigestText == nil {
		return nil
	}
	text := *f.DigestText
	if render {
		rendered, err := cliui.RenderMarkdown(w, text)
		if err != nil {
			return err
		}
		text = rendered
	}
	fmt.Fprintf(w, "\n%s\n", text)
	return nil
}
