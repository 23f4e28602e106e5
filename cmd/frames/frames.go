// Package framescmder
package framescmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/frames/cmd/frames/auth"
	configcmder "github.com/papercomputeco/frames/cmd/frames/config"
	digestcmder "github.com/papercomputeco/frames/cmd/frames/digest"
	framecmder "github.com/papercomputeco/frames/cmd/frames/frame"
	initcmder "github.com/papercomputeco/frames/cmd/frames/init"
	sessioncmder "github.com/papercomputeco/frames/cmd/frames/session"
	versioncmder "github.com/papercomputeco/frames/cmd/version"
)

const framesLongDesc string = `Frames is a durable call stack for coding agent sessions.

Work is recorded as nested frames. Each frame collects events and anchors
while it is open and is digested when it closes:
  frames init                       Create a .frames/ directory here
  frames frame create task "..."    Open a frame on top of the stack
  frames frame event tool_call      Record an event in the current frame
  frames frame close                Close the current frame
  frames digest drain               Summarize queued digests now`

const framesShortDesc string = "Frames - Durable agent call stack"

func NewFramesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "frames",
		Short:        framesShortDesc,
		Long:         framesLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .frames/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(sessioncmder.NewSessionCmd())
	cmd.AddCommand(framecmder.NewFrameCmd())
	cmd.AddCommand(digestcmder.NewDigestCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
