// Package digestcmder provides the digest command for inspecting and
// draining the AI enrichment queue.
package digestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/cmd/frames/workspace"
	"github.com/papercomputeco/frames/pkg/cliui"
	"github.com/papercomputeco/frames/pkg/config"
	"github.com/papercomputeco/frames/pkg/digest"
	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/scheduler"
	"github.com/papercomputeco/frames/pkg/storage"
	"github.com/papercomputeco/frames/pkg/utils"
)

const digestLongDesc string = `Inspect and drain frame digests.

Closing a frame writes its deterministic digest immediately. When
digest.enabled is set the frame is also queued for an AI summary, which
runs when the session goes idle, on close (digest.process_on_close), or
when drained here.

Examples:
  frames digest status
  frames digest drain --timeout 2m`

func NewDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Inspect and drain frame digests",
		Long:  digestLongDesc,
	}

	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDrainCmd())

	return cmd
}

func withWorkspace(cmd *cobra.Command, fn func(w *workspace.Workspace) error) (err error) {
	w, err := workspace.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(w)
}

func newStatusCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the digest status of closed frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(w *workspace.Workspace) error {
				q := storage.FrameQuery{State: frame.StateClosed}
				if !all {
					q.RunID = w.Engine.RunID()
				}
				frames, err := w.Store.ListFrames(cmd.Context(), q)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), frames, w.Scheduler)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include frames from every run")
	workspace.AddFlags(cmd)

	return cmd
}

func printStatus(w io.Writer, frames []*frame.Frame, sched *scheduler.Scheduler) {
	if len(frames) == 0 {
		fmt.Fprintln(w, cliui.DimStyle.Render("No closed frames."))
		return
	}

	counts := map[digest.Status]int{}
	for _, f := range frames {
		d, err := digest.Decode(f.DigestData)
		if err != nil {
			fmt.Fprintf(w, "%s %s %s\n", cliui.FailMark, f.ID, cliui.WarnStyle.Render("unreadable digest"))
			continue
		}
		counts[d.Status]++

		line := cliui.StatusCell(string(d.Status), 20) + " " + utils.Truncate(f.Name, 48)
		if d.Attempts > 0 {
			line += cliui.DimStyle.Render(fmt.Sprintf("  attempts=%d", d.Attempts))
		}
		if d.LastError != "" {
			line += cliui.DimStyle.Render("  " + utils.Truncate(d.LastError, 60))
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	for _, s := range []digest.Status{
		digest.StatusPending,
		digest.StatusProcessing,
		digest.StatusComplete,
		digest.StatusFailed,
		digest.StatusDeterministicOnly,
	} {
		if counts[s] > 0 {
			fmt.Fprintf(w, "%s: %d\n", cliui.Status(string(s)), counts[s])
		}
	}

	if sched != nil {
		fmt.Fprintf(w, "%s %d queued\n", cliui.KeyStyle.Render("queue:"), len(sched.Pending()))
	}
}

func newDrainCmd() *cobra.Command {
	var (
		timeout    time.Duration
		maxRetries int
	)

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Summarize every queued frame now",
		Long: `Summarize every queued frame of the current run, waiting out retry
delays, until each one is complete or has exhausted its attempts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			return withWorkspace(cmd, func(w *workspace.Workspace) error {
				if w.Scheduler == nil {
					return errors.New("digests are disabled (digest.enabled = false)")
				}

				out := cmd.OutOrStdout()
				queued := len(w.Scheduler.Pending())
				if queued == 0 {
					fmt.Fprintln(out, cliui.DimStyle.Render("Nothing to drain."))
					return nil
				}

				err := cliui.Step(out, fmt.Sprintf("Summarizing %d frame(s)", queued), func() error {
					return w.Scheduler.Drain(ctx)
				})

				st := w.Scheduler.Stats()
				fmt.Fprintf(out, "%s %d  %s %d  %s %d\n",
					cliui.Status("complete"), st.Completed,
					cliui.Status("ai_failed"), st.Failed,
					cliui.KeyStyle.Render("retried"), st.Retried,
				)
				return err
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits until the queue is empty)")
	config.AddIntFlag(cmd, config.Flags, config.FlagMaxRetries, &maxRetries)
	workspace.AddFlags(cmd)

	return cmd
}
