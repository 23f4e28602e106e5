// Package initcmder provides the init command for initializing a local .frames
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/pkg/cliui"
	"github.com/papercomputeco/frames/pkg/config"
	"github.com/papercomputeco/frames/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .frames/ directory in the current working directory.

The local .frames/ directory takes precedence over ~/.frames/ and holds the
frame database, config.toml, frames.log and the current session.

A config.toml is written when none exists. --preset selects the
summarization provider and always rewrites the llm section.

Examples:
  frames init
  frames init --preset anthropic`

const initShortDesc string = "Initialize a local .frames/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", fmt.Sprintf("Summarization provider preset %v", config.ValidPresetNames()))

	return cmd
}

func runInit(w io.Writer, preset string) error {
	var cfg *config.Config
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir, created, err := dotdir.NewManager().InitLocal(cwd)
	if err != nil {
		return err
	}

	cfgPath := filepath.Join(dir, dotdir.ConfigFile)
	_, statErr := os.Stat(cfgPath)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return fmt.Errorf("reading config: %w", statErr)
	}

	switch {
	case cfg == nil && exists:
		// keep the user's file
	case cfg == nil:
		cfg = config.NewDefaultConfig()
		fallthrough
	default:
		cfger, err := config.NewConfiger(dir)
		if err != nil {
			return err
		}
		if exists {
			current, err := cfger.LoadConfig()
			if err != nil {
				return err
			}
			current.LLM = cfg.LLM
			cfg = current
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	}

	if created {
		fmt.Fprintf(w, "%s Initialized %s\n", cliui.SuccessMark, dir)
	} else {
		fmt.Fprintf(w, "%s Already initialized: %s\n", cliui.SuccessMark, dir)
	}
	return nil
}
