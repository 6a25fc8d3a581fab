package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/config"
	"github.com/sprite-ai/gert/internal/ident"
	"github.com/sprite-ai/gert/internal/setupui"
)

var setupCmd = &cobra.Command{
	Use:     "setup",
	Aliases: []string{"init"},
	Short:   "Configure the Gerrit host and credentials",
	Long: `Interactively configure the Gerrit host, HTTP credentials, and the
preferred AI review tool. Credentials are verified against the server
before being saved to ` + "`~/.config/gert/config.yaml`" + `.

Environment overrides (GERT_HOST, GERT_USERNAME, GERT_PASSWORD,
GERT_AI_TOOL, optionally via a .env file) always win over the file.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	existing, _ := config.Load()

	var creds *config.Credentials
	var err error
	if isatty.IsTerminal(os.Stdin.Fd()) {
		creds, err = setupui.Run(existing)
	} else {
		creds, err = promptCredentials(cmd.InOrStdin(), existing)
	}
	if err != nil {
		return err
	}
	if creds == nil {
		fmt.Fprintln(os.Stderr, "Setup cancelled.")
		return nil
	}

	// Probe before persisting so a typo doesn't poison the config.
	client, _, err := clientFor(cmd, creds)
	if err != nil {
		return err
	}
	account, err := client.VerifyAuth(cmd.Context())
	if err != nil {
		return err
	}

	if err := config.Save(creds); err != nil {
		return err
	}
	fmt.Fprintf(stdout(), "Authenticated as %s. Configuration saved to %s\n",
		account.Display(), config.Path())
	return nil
}

// promptCredentials is the non-TTY fallback: plain line-based prompts.
func promptCredentials(in io.Reader, existing *config.Credentials) (*config.Credentials, error) {
	reader := bufio.NewReader(in)
	ask := func(label, current string) (string, error) {
		if current != "" {
			fmt.Fprintf(os.Stderr, "%s [%s]: ", label, current)
		} else {
			fmt.Fprintf(os.Stderr, "%s: ", label)
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", label, err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return current, nil
		}
		return line, nil
	}

	var cur config.Credentials
	if existing != nil {
		cur = *existing
	}
	host, err := ask("Gerrit host", cur.Host)
	if err != nil {
		return nil, err
	}
	username, err := ask("Username", cur.Username)
	if err != nil {
		return nil, err
	}
	password, err := ask("Password", "")
	if err != nil {
		return nil, err
	}
	tool, err := ask("AI tool (blank to auto-detect)", cur.AITool)
	if err != nil {
		return nil, err
	}

	creds := &config.Credentials{
		Host:         ident.NormalizeHost(host),
		Username:     username,
		Password:     password,
		AITool:       tool,
		AIAutoDetect: tool == "",
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return creds, nil
}
