// Package cli wires the gert subcommands: flag parsing, format selection,
// error lowering, and exit-code discipline.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/config"
	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/gitx"
	"github.com/sprite-ai/gert/internal/ident"
	"github.com/sprite-ai/gert/internal/output"
)

var rootCmd = &cobra.Command{
	Use:   "gert",
	Short: "A Gerrit code-review client",
	Long: `gert talks to a Gerrit server: query changes, inspect diffs and
comments, vote, manage reviewers and topics, push for review, check out
changes locally, and run AI-assisted reviews.

Every informational command emits text by default, XML with --xml, and
JSON with --json.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("xml", false, "emit XML output")
	rootCmd.PersistentFlags().Bool("json", false, "emit JSON output")
	rootCmd.PersistentFlags().Bool("debug", false, "print request and subprocess details to stderr")

	rootCmd.AddCommand(
		setupCmd, statusCmd, mineCmd, incomingCmd, searchCmd, showCmd,
		diffCmd, commentsCmd, commentCmd, addReviewerCmd, removeReviewerCmd,
		voteCmd, submitCmd, abandonCmd, restoreCmd, rebaseCmd, topicCmd,
		projectsCmd, groupsCmd, groupsShowCmd, groupsMembersCmd,
		extractURLCmd, buildStatusCmd, pushCmd, checkoutCmd, reviewCmd,
		openCmd, versionCmd,
	)
}

// Execute runs the root command and lowers any error into the requested
// output format. SIGINT and SIGTERM cancel the command context instead
// of killing the process, so cleanup paths (the review worktree above
// all) still run before exit.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	switch activeFormat {
	case output.FormatXML:
		fmt.Println(output.XMLError(err.Error()))
	case output.FormatJSON:
		output.JSON(os.Stdout, output.ErrorEnvelope(err.Error()))
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// activeFormat is resolved once per invocation so error lowering after
// RunE returns uses the same format the command did.
var activeFormat = output.FormatText

func outFormat(cmd *cobra.Command) output.Format {
	if xml, _ := cmd.Flags().GetBool("xml"); xml {
		activeFormat = output.FormatXML
	} else if js, _ := cmd.Flags().GetBool("json"); js {
		activeFormat = output.FormatJSON
	} else {
		activeFormat = output.FormatText
	}
	return activeFormat
}

func debugEnabled(cmd *cobra.Command) bool {
	d, _ := cmd.Flags().GetBool("debug")
	return d
}

func debugfFor(cmd *cobra.Command) func(format string, args ...any) {
	if !debugEnabled(cmd) {
		return func(string, ...any) {}
	}
	return func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// stdout wraps os.Stdout in the drain-aware writer so large structured
// documents survive slow pipe consumers.
func stdout() *output.DrainWriter {
	return output.NewDrainWriter(os.Stdout)
}

func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// newClient loads credentials and builds the REST adapter.
func newClient(cmd *cobra.Command) (*gerrit.Client, *config.Credentials, error) {
	creds, err := config.Require()
	if err != nil {
		return nil, nil, err
	}
	return clientFor(cmd, creds)
}

// clientFor builds the adapter from explicit credentials (setup probes
// before anything is persisted).
func clientFor(cmd *cobra.Command, creds *config.Credentials) (*gerrit.Client, *config.Credentials, error) {
	client := gerrit.New(creds.Host, creds.Username, creds.Password,
		gerrit.WithDebugf(debugfFor(cmd)))
	if debugEnabled(cmd) {
		gitx.Debugf = debugfFor(cmd)
	}
	return client, creds, nil
}

// resolveChange turns the optional positional argument into the identifier
// used on REST paths. With no argument it falls back to the Change-Id
// footer of HEAD in the enclosing repository.
func resolveChange(args []string) (string, error) {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	}
	var head ident.HeadReader
	if repo, err := gitx.Open(); err == nil {
		head = repo
	}
	res, err := ident.Resolve(raw, head)
	if err != nil {
		return "", err
	}
	return res.Ref.Value, nil
}

// changeArg is resolveChange for commands that require the argument.
func changeArg(arg string) (string, error) {
	return resolveChange([]string{arg})
}

func itoa(n int) string { return strconv.Itoa(n) }
