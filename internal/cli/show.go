package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/ident"
	"github.com/sprite-ai/gert/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show [change]",
	Short: "Show one change in detail",
	Long: `Show a change: subject, owner, labels, reviewers, and the commit
message of the current patchset. Without an argument, the change is taken
from the Change-Id footer of HEAD.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the change for the current HEAD commit",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, creds, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := resolveChange(args)
	if err != nil {
		return err
	}

	ch, err := client.GetChange(cmd.Context(), id, "DETAILED_LABELS", "DETAILED_ACCOUNTS")
	if err != nil {
		return err
	}
	if err := populateReviewers(cmd.Context(), client, ch); err != nil {
		return err
	}

	url := ident.ChangeURL(creds.Host, ch.Project, ch.Number, 0)
	switch format {
	case output.FormatXML:
		e := changeElem(ch)
		e.ChildText("url", url)
		if rev, ok := ch.CurrentRevisionInfo(); ok && rev.Commit != nil {
			e.ChildCDATA("commit_message", rev.Commit.Message)
		}
		fmt.Fprintln(stdout(), e.Render())
	case output.FormatJSON:
		fields := changeFields(ch)
		fields["url"] = url
		if rev, ok := ch.CurrentRevisionInfo(); ok && rev.Commit != nil {
			fields["commit_message"] = rev.Commit.Message
		}
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"change": fields}))
	default:
		fmt.Fprint(stdout(), showText(ch, url, stdoutIsTTY()))
	}
	return nil
}

// populateReviewers fills Reviewers via a targeted search when the primary
// response lacks them (some servers omit reviewer data on GetChange).
func populateReviewers(ctx context.Context, client *gerrit.Client, ch *gerrit.Change) error {
	if len(ch.Reviewers) > 0 || ch.ChangeID == "" {
		return nil
	}
	found, err := client.ListChanges(ctx, "change:"+ch.ChangeID)
	if err != nil {
		return err
	}
	for i := range found {
		if found[i].Number == ch.Number {
			ch.Reviewers = found[i].Reviewers
			if len(ch.Labels) == 0 {
				ch.Labels = found[i].Labels
			}
			return nil
		}
	}
	return nil
}

func showText(ch *gerrit.Change, url string, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Change %d: %s\n", statusGlyph(ch.Status, color), ch.Number, ch.Subject)
	fmt.Fprintf(&b, "  Project:  %s\n", ch.Project)
	fmt.Fprintf(&b, "  Branch:   %s\n", ch.Branch)
	fmt.Fprintf(&b, "  Status:   %s\n", ch.Status)
	if ch.Topic != "" {
		fmt.Fprintf(&b, "  Topic:    %s\n", ch.Topic)
	}
	if ch.Owner != nil {
		fmt.Fprintf(&b, "  Owner:    %s\n", ch.Owner.Display())
	}
	if ch.Updated != "" {
		fmt.Fprintf(&b, "  Updated:  %s\n", ch.Updated)
	}
	if ch.Insertions != 0 || ch.Deletions != 0 {
		fmt.Fprintf(&b, "  Size:     +%d -%d\n", ch.Insertions, ch.Deletions)
	}
	if votes := voteSummary(ch.Labels, color); votes != "" {
		fmt.Fprintf(&b, "  Votes:    %s\n", votes)
	}
	if reviewers := ch.Reviewers[gerrit.StateReviewer]; len(reviewers) > 0 {
		names := make([]string, 0, len(reviewers))
		for i := range reviewers {
			names = append(names, reviewers[i].Display())
		}
		fmt.Fprintf(&b, "  Reviewers: %s\n", strings.Join(names, ", "))
	}
	if ccs := ch.Reviewers[gerrit.StateCC]; len(ccs) > 0 {
		names := make([]string, 0, len(ccs))
		for i := range ccs {
			names = append(names, ccs[i].Display())
		}
		fmt.Fprintf(&b, "  CC:        %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "  URL:      %s\n", url)
	if rev, ok := ch.CurrentRevisionInfo(); ok && rev.Commit != nil && rev.Commit.Message != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(rev.Commit.Message, "\n"), "\n") {
			b.WriteString("    " + line + "\n")
		}
	}
	return b.String()
}
