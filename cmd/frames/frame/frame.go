// Package framecmder provides the frame command: create, close and inspect
// frames of the current session's run.
package framecmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/cmd/frames/workspace"
	"github.com/papercomputeco/frames/pkg/frame"
)

const frameLongDesc string = `Create, close and inspect frames.

Frames nest: a new frame is pushed on top of the current one and closing a
frame closes everything still open above it. Commands that take an optional
frame id act on the current frame when it is omitted.

Examples:
  frames frame create task "Add login endpoint"
  frames frame event tool_call --set tool=write_file --set path=api/login.go
  frames frame anchor decision "Use JWT over sessions" --priority 8
  frames frame close --status partial
  frames frame stack`

func NewFrameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Create, close and inspect frames",
		Long:  frameLongDesc,
	}

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newCloseCmd())
	cmd.AddCommand(newEventCmd())
	cmd.AddCommand(newAnchorCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newStackCmd())
	cmd.AddCommand(newValidateCmd())

	return cmd
}

// withWorkspace opens the workspace for cmd, runs fn and closes it.
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

// payloadFlags collects a JSON value plus key=value overrides.
type payloadFlags struct {
	raw  string
	sets []string
}

func (p *payloadFlags) register(cmd *cobra.Command, noun string) {
	cmd.Flags().StringVar(&p.raw, "json", "", fmt.Sprintf("%s as JSON", noun))
	cmd.Flags().StringArrayVar(&p.sets, "set", nil, fmt.Sprintf("Set a %s key (key=value, value parsed as JSON when valid)", noun))
}

// value accepts any JSON value. --set requires the value to be an object.
func (p *payloadFlags) value() (frame.Value, error) {
	v, err := frame.DecodeValue([]byte(p.raw))
	if err != nil {
		return nil, err
	}
	if len(p.sets) == 0 {
		return v, nil
	}
	if v == nil {
		v = frame.Payload{}
	}
	obj, ok := frame.AsObject(v)
	if !ok {
		return nil, fmt.Errorf("--set needs a JSON object, got %T from --json", v)
	}
	return obj, p.apply(obj)
}

// payload accepts a JSON object only.
func (p *payloadFlags) payload() (frame.Payload, error) {
	out, err := frame.DecodePayload([]byte(p.raw))
	if err != nil {
		return nil, err
	}
	return out, p.apply(out)
}

func (p *payloadFlags) apply(out frame.Payload) error {
	for _, kv := range p.sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --set %q: expected key=value", kv)
		}

		var decoded any = value
		if strings.TrimSpace(value) != "" {
			if v, err := frame.DecodeValue([]byte(value)); err == nil {
				decoded = v
			}
		}
		out[key] = decoded
	}
	return nil
}
