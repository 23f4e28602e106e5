// Package authcmder manages the API keys the digest summarizer uses.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/frames/pkg/cliui"
	"github.com/papercomputeco/frames/pkg/credentials"
)

const authLongDesc string = `Manage API keys for the digest summarizer.

Keys live in credentials.toml in the .frames/ directory and win over
OPENAI_API_KEY / ANTHROPIC_API_KEY. Ollama needs no key.

Examples:
  frames auth set anthropic            Prompt for an Anthropic API key
  echo $KEY | frames auth set openai   Pipe the key from stdin
  frames auth status                   Show where each provider's key resolves from
  frames auth remove openai            Forget the stored OpenAI key`

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage API keys for the digest summarizer",
		Long:  authLongDesc,
	}
	cmd.AddCommand(newSetCmd(), newStatusCmd(), newRemoveCmd())
	return cmd
}

func completeProviders(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <provider>",
		Short:             "Store an API key",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := normalize(args[0])
			if err != nil {
				return err
			}
			mgr, err := manager(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			key, err := readAPIKey(cmd.InOrStdin(), out, provider)
			if err != nil {
				return err
			}
			if key = strings.TrimSpace(key); key == "" {
				return errors.New("API key cannot be empty")
			}
			if err := mgr.SetKey(provider, key); err != nil {
				return err
			}

			fmt.Fprintf(out, "%s Stored %s key %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(provider),
				cliui.DimStyle.Render("(wins over "+credentials.EnvVarForProvider(provider)+")"),
			)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where each provider's key resolves from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := manager(cmd)
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), mgr)
		},
	}
}

func printStatus(w io.Writer, mgr *credentials.Manager) error {
	fmt.Fprintln(w, cliui.HeaderStyle.Render("Summarizer credentials"))
	for _, p := range credentials.SupportedProviders() {
		_, src, err := mgr.Resolve(p)
		if err != nil {
			return err
		}

		var detail string
		switch src {
		case credentials.SourceStored:
			detail = "stored in " + mgr.GetTarget()
		case credentials.SourceEnv:
			detail = "from $" + credentials.EnvVarForProvider(p)
		default:
			detail = "not set"
		}
		fmt.Fprintf(w, "%s  %-10s %s\n",
			cliui.Mark(missing(src)),
			cliui.NameStyle.Render(p),
			cliui.DimStyle.Render(detail),
		)
	}
	fmt.Fprintf(w, "%s  %-10s %s\n", cliui.SuccessMark, cliui.NameStyle.Render("ollama"), cliui.DimStyle.Render("no key needed"))
	return nil
}

func missing(src credentials.Source) error {
	if src == credentials.SourceMissing {
		return errors.New("missing")
	}
	return nil
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "remove <provider>",
		Short:             "Forget a stored API key",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := normalize(args[0])
			if err != nil {
				return err
			}
			mgr, err := manager(cmd)
			if err != nil {
				return err
			}
			if err := mgr.RemoveKey(provider); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %s key\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))
			return nil
		},
	}
}

func normalize(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !credentials.IsSupportedProvider(provider) {
		return "", fmt.Errorf("unsupported provider: %q (supported: %s)",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}
	return provider, nil
}

func manager(cmd *cobra.Command) (*credentials.Manager, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	return mgr, nil
}

// readAPIKey prompts with hidden input on a terminal and otherwise reads the
// first line of in.
func readAPIKey(in io.Reader, out io.Writer, provider string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "API key for %s: ", provider)
		key, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(key), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
