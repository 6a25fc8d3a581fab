package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/checkout"
	"github.com/sprite-ai/gert/internal/gitx"
	"github.com/sprite-ai/gert/internal/output"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <change-or-url[/patchset]>",
	Short: "Check out a change into the local repository",
	Long: `Fetch a change's patchset and check it out on a review/<number>
branch (or detached with --detach).

Examples:
  gert checkout 12345
  gert checkout 12345/3
  gert checkout https://gerrit.example.com/c/proj/+/12345/3
  gert checkout 12345 --detach`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckout,
}

func init() {
	checkoutCmd.Flags().Bool("detach", false, "check out FETCH_HEAD without a branch")
	checkoutCmd.Flags().String("remote", "", "git remote to fetch from")
}

func runCheckout(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)

	target, err := checkout.ParseTarget(args[0])
	if err != nil {
		return err
	}

	client, creds, err := newClient(cmd)
	if err != nil {
		return err
	}
	repo, err := gitx.Open()
	if err != nil {
		return err
	}

	remote, _ := cmd.Flags().GetString("remote")
	detach, _ := cmd.Flags().GetBool("detach")
	p := &checkout.Pipeline{
		Client: client,
		Repo:   repo,
		Host:   creds.Host,
		Remote: remote,
		Detach: detach,
		Warnf: func(f string, a ...any) {
			fmt.Fprintf(os.Stderr, "Warning: "+f+"\n", a...)
		},
	}
	res, err := p.Run(cmd.Context(), target)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatXML:
		e := output.NewElem("checkout").
			Attr("change", itoa(res.Change.Number)).
			Attr("patchset", itoa(res.Revision.Number)).
			Attr("remote", res.Remote)
		if res.Branch != "" {
			e.ChildText("branch", res.Branch)
		} else {
			e.Attr("detached", "true")
		}
		fmt.Fprintln(stdout(), e.Render())
	case output.FormatJSON:
		env := output.Envelope{
			"change":   res.Change.Number,
			"patchset": res.Revision.Number,
			"remote":   res.Remote,
			"detached": res.Branch == "",
		}
		if res.Branch != "" {
			env["branch"] = res.Branch
		}
		return output.JSON(stdout(), output.SuccessEnvelope(env))
	default:
		if res.Branch != "" {
			fmt.Fprintf(stdout(), "Checked out change %d patchset %d on branch %s\n",
				res.Change.Number, res.Revision.Number, res.Branch)
		} else {
			fmt.Fprintf(stdout(), "Checked out change %d patchset %d (detached HEAD)\n",
				res.Change.Number, res.Revision.Number)
		}
	}
	return nil
}
