// Package configcmder provides the config command for managing persistent
// frames configuration stored in the .frames/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent frames configuration.

Configuration is stored as config.toml in the .frames/ directory. FRAMES_*
environment variables override file values and command flags override both.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  session.project,
  digest.enabled, digest.process_on_close, digest.max_retries, digest.retry_delay, ...
  llm.provider, llm.model, llm.base_url, llm.timeout,
  eventstream.provider, eventstream.brokers, eventstream.redis_url, ...

Examples:
  frames config set llm.provider anthropic
  frames config set digest.max_retries 5
  frames config get storage.driver
  frames config list`

const configShortDesc string = "Manage persistent frames configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return validKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
