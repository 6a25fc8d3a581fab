package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/gitx"
	"github.com/sprite-ai/gert/internal/output"
	"github.com/sprite-ai/gert/internal/push"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push HEAD for review",
	Long: `Push the current HEAD to Gerrit for review. Installs the commit-msg
hook and amends once if HEAD lacks a Change-Id footer.

Examples:
  gert push
  gert push -b release-1.4 -t my-topic
  gert push -r alice@example.com --cc bob@example.com --wip
  gert push --dry-run`,
	Args: cobra.NoArgs,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringP("branch", "b", "", "target branch (defaults to the tracking branch)")
	pushCmd.Flags().StringP("topic", "t", "", "topic to set on the pushed change")
	pushCmd.Flags().StringArrayP("reviewer", "r", nil, "reviewer email (repeatable)")
	pushCmd.Flags().StringArray("cc", nil, "CC email (repeatable)")
	pushCmd.Flags().Bool("wip", false, "push as work-in-progress")
	pushCmd.Flags().Bool("draft", false, "alias for --wip")
	pushCmd.Flags().Bool("ready", false, "mark the change ready for review")
	pushCmd.Flags().Bool("private", false, "push as a private change")
	pushCmd.Flags().StringArray("hashtag", nil, "hashtag to attach (repeatable)")
	pushCmd.Flags().Bool("dry-run", false, "validate and show what would be pushed")
}

func runPush(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)

	_, creds, err := newClient(cmd)
	if err != nil {
		return err
	}
	repo, err := gitx.Open()
	if err != nil {
		return err
	}
	remote, err := repo.FindMatchingRemote(creds.Host)
	if err != nil {
		return err
	}
	if remote == "" {
		return fmt.Errorf("no git remote matches %s; add one or push from a checkout of a %s project", creds.Host, creds.Host)
	}

	var opts push.Options
	opts.Branch, _ = cmd.Flags().GetString("branch")
	opts.Topic, _ = cmd.Flags().GetString("topic")
	opts.Reviewers, _ = cmd.Flags().GetStringArray("reviewer")
	opts.CCs, _ = cmd.Flags().GetStringArray("cc")
	opts.WIP, _ = cmd.Flags().GetBool("wip")
	if draft, _ := cmd.Flags().GetBool("draft"); draft {
		opts.WIP = true
	}
	opts.Ready, _ = cmd.Flags().GetBool("ready")
	opts.Private, _ = cmd.Flags().GetBool("private")
	opts.Hashtags, _ = cmd.Flags().GetStringArray("hashtag")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")

	p := &push.Pipeline{
		Repo:   repo,
		Host:   creds.Host,
		Remote: remote,
		Logf:   debugfFor(cmd),
	}
	res, err := p.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatXML:
		e := output.NewElem("push").
			Attr("refspec", res.RefSpec).
			Attr("dry_run", fmt.Sprintf("%t", opts.DryRun))
		if res.UpToDate {
			e.Attr("up_to_date", "true")
		}
		if res.URL != "" {
			e.ChildText("url", res.URL)
		}
		fmt.Fprintln(stdout(), e.Render())
	case output.FormatJSON:
		env := output.Envelope{"refspec": res.RefSpec, "dry_run": opts.DryRun}
		if res.UpToDate {
			env["up_to_date"] = true
		}
		if res.URL != "" {
			env["url"] = res.URL
		}
		return output.JSON(stdout(), output.SuccessEnvelope(env))
	default:
		switch {
		case res.UpToDate:
			fmt.Fprintln(stdout(), "No new changes: the remote already has this commit.")
		case opts.DryRun:
			fmt.Fprintf(stdout(), "Would push HEAD:%s to %s\n", res.RefSpec, remote)
		case res.URL != "":
			fmt.Fprintf(stdout(), "Pushed for review: %s\n", res.URL)
		default:
			fmt.Fprintf(stdout(), "Pushed HEAD:%s to %s\n", res.RefSpec, remote)
		}
	}
	return nil
}
