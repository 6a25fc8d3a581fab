package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/output"
)

var addReviewerCmd = &cobra.Command{
	Use:   "add-reviewer <principal>...",
	Short: "Add reviewers or CCs to a change",
	Long: `Add one or more reviewers to a change. Principals are usernames,
email addresses, or (with --group) group names.

Examples:
  gert add-reviewer alice@example.com -c 12345
  gert add-reviewer backend-team --group -c 12345
  gert add-reviewer bob --cc`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAddReviewer,
}

var removeReviewerCmd = &cobra.Command{
	Use:   "remove-reviewer <principal>...",
	Short: "Remove reviewers from a change",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemoveReviewer,
}

func init() {
	for _, c := range []*cobra.Command{addReviewerCmd, removeReviewerCmd} {
		c.Flags().StringP("change", "c", "", "change to modify (defaults to HEAD's Change-Id)")
		c.Flags().String("notify", "", "notification policy: none, owner, owner_reviewers, all")
	}
	addReviewerCmd.Flags().Bool("cc", false, "add as CC instead of reviewer")
	addReviewerCmd.Flags().Bool("group", false, "principals are group names")
}

// normalizeNotify maps user input onto Gerrit's NotifyHandling values.
func normalizeNotify(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	v := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"))
	switch v {
	case "NONE", "OWNER", "OWNER_REVIEWERS", "ALL":
		return v, nil
	}
	return "", fmt.Errorf("invalid --notify %q (want none, owner, owner_reviewers, or all)", raw)
}

// principalResult is one per-principal outcome in the aggregate report.
type principalResult struct {
	Principal string
	Err       error
}

func emitPrincipalResults(format output.Format, action string, results []principalResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	switch format {
	case output.FormatXML:
		root := output.NewElem(action).
			Attr("total", itoa(len(results))).
			Attr("failed", itoa(failed))
		for _, r := range results {
			e := root.Child("principal").Attr("name", r.Principal)
			if r.Err != nil {
				e.Attr("ok", "false").ChildCDATA("error", r.Err.Error())
			} else {
				e.Attr("ok", "true")
			}
		}
		fmt.Fprintln(stdout(), root.Render())
	case output.FormatJSON:
		list := make([]output.Envelope, 0, len(results))
		for _, r := range results {
			entry := output.Envelope{"principal": r.Principal, "ok": r.Err == nil}
			if r.Err != nil {
				entry["error"] = r.Err.Error()
			}
			list = append(list, entry)
		}
		env := output.SuccessEnvelope(output.Envelope{"results": list})
		if failed > 0 {
			env["status"] = "partial"
		}
		if err := output.JSON(stdout(), env); err != nil {
			return err
		}
	default:
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(stdout(), "✗ %s: %v\n", r.Principal, r.Err)
			} else {
				fmt.Fprintf(stdout(), "✓ %s\n", r.Principal)
			}
		}
	}

	if failed == len(results) {
		return fmt.Errorf("%s failed for all %d principal(s)", action, len(results))
	}
	return nil
}

func runAddReviewer(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)

	group, _ := cmd.Flags().GetBool("group")
	if group {
		for _, p := range args {
			if strings.Contains(p, "@") {
				return fmt.Errorf("--group expects group identifiers, but %q looks like an email address", p)
			}
		}
	}
	notifyRaw, _ := cmd.Flags().GetString("notify")
	notify, err := normalizeNotify(notifyRaw)
	if err != nil {
		return err
	}

	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	changeFlag, _ := cmd.Flags().GetString("change")
	id, err := resolveChange(flagArgs(changeFlag))
	if err != nil {
		return err
	}

	state := gerrit.StateReviewer
	if cc, _ := cmd.Flags().GetBool("cc"); cc {
		state = gerrit.StateCC
	}

	results := make([]principalResult, 0, len(args))
	for _, p := range args {
		err := client.AddReviewer(cmd.Context(), id, gerrit.ReviewerInput{
			Reviewer: p,
			State:    state,
			Notify:   notify,
		})
		results = append(results, principalResult{Principal: p, Err: err})
	}
	return emitPrincipalResults(format, "add-reviewer", results)
}

func runRemoveReviewer(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)

	notifyRaw, _ := cmd.Flags().GetString("notify")
	notify, err := normalizeNotify(notifyRaw)
	if err != nil {
		return err
	}

	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	changeFlag, _ := cmd.Flags().GetString("change")
	id, err := resolveChange(flagArgs(changeFlag))
	if err != nil {
		return err
	}

	results := make([]principalResult, 0, len(args))
	for _, p := range args {
		err := client.RemoveReviewer(cmd.Context(), id, p, notify)
		results = append(results, principalResult{Principal: p, Err: err})
	}
	return emitPrincipalResults(format, "remove-reviewer", results)
}

// flagArgs adapts an optional -c flag value to resolveChange's argv shape.
func flagArgs(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
