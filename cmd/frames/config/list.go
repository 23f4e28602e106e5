package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/pkg/config"
)

func newListCmd() *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configuration values grouped by section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir, section)
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "only list keys in this section (e.g. digest, llm)")
	return cmd
}

func runList(w io.Writer, configDir, section string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	groups, order := groupKeys(config.ValidConfigKeys())
	if section != "" {
		if _, ok := groups[section]; !ok {
			return fmt.Errorf("unknown config section %q (valid: %s)", section, strings.Join(order, ", "))
		}
		order = []string{section}
	}

	fmt.Fprintf(w, "Using config file: %s\n", cfger.GetTarget())

	for _, name := range order {
		keys := groups[name]
		width := 0
		for _, k := range keys {
			width = max(width, len(k)-len(name)-1)
		}

		fmt.Fprintf(w, "\n[%s]\n", name)
		for _, key := range keys {
			value, err := cfger.GetConfigValue(key)
			if err != nil {
				return err
			}
			field := strings.TrimPrefix(key, name+".")
			if value == "" {
				fmt.Fprintf(w, "  %-*s = <not set>\n", width, field)
				continue
			}
			fmt.Fprintf(w, "  %-*s = %q\n", width, field, value)
		}
	}
	return nil
}

// groupKeys splits dotted keys by their first segment, keeping the order in
// which sections first appear.
func groupKeys(keys []string) (map[string][]string, []string) {
	groups := make(map[string][]string)
	var order []string
	for _, key := range keys {
		name, _, _ := strings.Cut(key, ".")
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], key)
	}
	return groups, order
}
