package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/buildwatch"
	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/output"
)

var buildStatusCmd = &cobra.Command{
	Use:   "build-status [change]",
	Short: "Report the CI build state of a change",
	Long: `Interpret a change's review messages as a build state: pending,
running, success, failure, or not_found.

With --watch, poll until a terminal state, printing one JSON line per
poll. Exit codes: 0 on any observed state, 2 on timeout, 3 on unexpected
errors; with --exit-status, a terminal failure exits 1.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuildStatus,
}

func init() {
	buildStatusCmd.Flags().Bool("watch", false, "poll until a terminal state")
	buildStatusCmd.Flags().IntP("interval", "i", 10, "poll interval in seconds (minimum 1)")
	buildStatusCmd.Flags().Int("timeout", 1800, "watch timeout in seconds")
	buildStatusCmd.Flags().Bool("exit-status", false, "exit 1 when the build failed")
}

func runBuildStatus(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := resolveChange(args)
	if err != nil {
		return err
	}

	poll := func(ctx context.Context) (buildwatch.State, error) {
		ch, err := client.GetChangeWithMessages(ctx, id)
		if err != nil {
			if gerrit.IsNotFound(err) {
				return buildwatch.StateNotFound, nil
			}
			return "", err
		}
		return buildwatch.Interpret(ch.Messages), nil
	}

	exitStatus, _ := cmd.Flags().GetBool("exit-status")

	watch, _ := cmd.Flags().GetBool("watch")
	if watch {
		intervalSec, _ := cmd.Flags().GetInt("interval")
		timeoutSec, _ := cmd.Flags().GetInt("timeout")
		interval := time.Duration(intervalSec) * time.Second
		timeout := time.Duration(timeoutSec) * time.Second
		w := buildwatch.New(poll, interval, timeout, stdout())

		state, err := w.Watch(cmd.Context())
		switch {
		case errors.Is(err, buildwatch.ErrTimeout):
			fmt.Fprintf(os.Stderr, "Timed out after %s waiting for a terminal build state (last: %s)\n", timeout, state)
			os.Exit(2)
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
		if exitStatus && state == buildwatch.StateFailure {
			os.Exit(1)
		}
		return nil
	}

	state, err := poll(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(3)
	}

	switch format {
	case output.FormatXML:
		fmt.Fprintln(stdout(), output.NewElem("build_status").Attr("state", string(state)).Render())
	case output.FormatJSON:
		if err := output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"state": state})); err != nil {
			return err
		}
	default:
		fmt.Fprintln(stdout(), string(state))
	}

	if exitStatus && state == buildwatch.StateFailure {
		os.Exit(1)
	}
	return nil
}
