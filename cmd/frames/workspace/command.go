package workspace

import (
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/pkg/config"
)

// AddFlags registers the shared store and session flags on cmd.
func AddFlags(cmd *cobra.Command) {
	for _, key := range []string{
		config.FlagStorageDriver,
		config.FlagSQLite,
		config.FlagPostgresDSN,
		config.FlagProject,
		config.FlagLLMProvider,
		config.FlagLLMModel,
		config.FlagEventStream,
	} {
		config.AddStringFlag(cmd, config.Flags, key, new(string))
	}
}

// ResolveConfig layers flags, FRAMES_ env vars, config.toml and defaults.
func ResolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, slices.Sorted(maps.Keys(config.Flags)))

	return config.FromViper(v)
}

// FromCommand opens a Workspace configured from cmd's flags.
func FromCommand(cmd *cobra.Command) (*Workspace, error) {
	cfg, err := ResolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	return Open(cmd.Context(), Options{
		ConfigDir: configDir,
		Debug:     debug,
		Config:    cfg,
		LogOutput: cmd.ErrOrStderr(),
	})
}
