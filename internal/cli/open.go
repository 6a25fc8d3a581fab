package cli

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/ident"
)

var openCmd = &cobra.Command{
	Use:   "open [change]",
	Short: "Open a change in the browser",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOpen,
}

func runOpen(cmd *cobra.Command, args []string) error {
	client, creds, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := resolveChange(args)
	if err != nil {
		return err
	}
	ch, err := client.GetChange(cmd.Context(), id)
	if err != nil {
		return err
	}

	url := ident.ChangeURL(creds.Host, ch.Project, ch.Number, 0)
	fmt.Fprintln(stdout(), url)

	// Opening the browser is best-effort; the URL above is the contract.
	if err := openBrowser(url); err != nil {
		fmt.Fprintf(os.Stderr, "Could not open a browser: %v\n", err)
	}
	return nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
