package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/output"
)

var submitCmd = &cobra.Command{
	Use:   "submit <change>",
	Short: "Submit (merge) a change",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

var abandonCmd = &cobra.Command{
	Use:   "abandon <change>",
	Short: "Abandon a change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args[0], "abandon")
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <change>",
	Short: "Restore an abandoned change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args[0], "restore")
	},
}

var rebaseCmd = &cobra.Command{
	Use:   "rebase [change]",
	Short: "Rebase a change onto its target branch tip",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRebase,
}

func init() {
	abandonCmd.Flags().StringP("message", "m", "", "reason to record")
	restoreCmd.Flags().StringP("message", "m", "", "reason to record")
	rebaseCmd.Flags().String("base", "", "rebase onto this revision instead of the branch tip")
}

// submitBlockers accumulates the reasons a change cannot be submitted, so
// the user sees all of them at once instead of one per attempt.
func submitBlockers(ch *gerrit.Change) []string {
	var reasons []string
	if ch.Status != gerrit.StatusNew {
		reasons = append(reasons, fmt.Sprintf("status is %s, not NEW", ch.Status))
	}
	if ch.WorkInProgress {
		reasons = append(reasons, "change is marked work-in-progress")
	}
	if cr, ok := ch.Labels["Code-Review"]; !ok || cr.Value < 2 {
		reasons = append(reasons, "missing Code-Review+2")
	}
	if v, ok := ch.Labels["Verified"]; !ok || v.Value < 1 {
		reasons = append(reasons, "missing Verified+1")
	}
	return reasons
}

func runSubmit(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := changeArg(args[0])
	if err != nil {
		return err
	}

	ch, err := client.GetChange(cmd.Context(), id, "DETAILED_LABELS")
	if err != nil {
		return err
	}
	if ch.Submittable != nil && !*ch.Submittable {
		reasons := submitBlockers(ch)
		switch format {
		case output.FormatXML:
			root := output.NewElem("submit").Attr("ok", "false")
			for _, r := range reasons {
				root.ChildCDATA("reason", r)
			}
			fmt.Fprintln(stdout(), root.Render())
		case output.FormatJSON:
			env := output.Envelope{"status": "error", "submittable": false, "reasons": reasons}
			if err := output.JSON(stdout(), env); err != nil {
				return err
			}
		default:
			fmt.Fprintf(stdout(), "Change %d is not submittable:\n", ch.Number)
			for _, r := range reasons {
				fmt.Fprintf(stdout(), "  - %s\n", r)
			}
		}
		return fmt.Errorf("change %d is not submittable: %s", ch.Number, strings.Join(reasons, "; "))
	}

	if err := client.SubmitChange(cmd.Context(), id); err != nil {
		return err
	}
	return emitAction(format, "submit", fmt.Sprintf("Change %d submitted.", ch.Number))
}

func runLifecycle(cmd *cobra.Command, arg, action string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := changeArg(arg)
	if err != nil {
		return err
	}
	message, _ := cmd.Flags().GetString("message")

	switch action {
	case "abandon":
		err = client.AbandonChange(cmd.Context(), id, message)
	case "restore":
		err = client.RestoreChange(cmd.Context(), id, message)
	}
	if err != nil {
		return err
	}
	return emitAction(format, action, fmt.Sprintf("Change %sed.", strings.TrimSuffix(action, "e")))
}

func runRebase(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := resolveChange(args)
	if err != nil {
		return err
	}
	base, _ := cmd.Flags().GetString("base")
	if err := client.RebaseChange(cmd.Context(), id, base); err != nil {
		return err
	}
	return emitAction(format, "rebase", "Change rebased.")
}

func emitAction(f output.Format, action, text string) error {
	switch f {
	case output.FormatXML:
		fmt.Fprintln(stdout(), output.NewElem(action).Attr("ok", "true").Render())
	case output.FormatJSON:
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"action": action}))
	default:
		fmt.Fprintln(stdout(), text)
	}
	return nil
}
