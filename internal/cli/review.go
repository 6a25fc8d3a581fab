package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/gitx"
	"github.com/sprite-ai/gert/internal/output"
	"github.com/sprite-ai/gert/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review <change>",
	Short: "Run an AI-assisted review of a change",
	Long: `Check the change out into an ephemeral worktree, run an AI tool over
it, and print draft inline comments plus an overall review. With
--comment the drafts are posted back to Gerrit after confirmation.

Examples:
  gert review 12345
  gert review 12345 --comment
  gert review 12345 --comment -y --tool llm
  gert review 12345 --prompt "focus on concurrency"`,
	Args: cobra.ExactArgs(1),
	RunE: runAIReview,
}

func init() {
	reviewCmd.Flags().Bool("comment", false, "post the review back to Gerrit")
	reviewCmd.Flags().BoolP("yes", "y", false, "skip the posting confirmation")
	reviewCmd.Flags().String("prompt", "", "extra reviewer instructions")
	reviewCmd.Flags().String("tool", "", "AI tool to run (default: config, then auto-detect)")
	reviewCmd.Flags().String("system-prompt", "", "replace the built-in system prompt")
}

func runAIReview(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, creds, err := newClient(cmd)
	if err != nil {
		return err
	}
	repo, err := gitx.Open()
	if err != nil {
		return err
	}
	id, err := changeArg(args[0])
	if err != nil {
		return err
	}

	tool, _ := cmd.Flags().GetString("tool")
	if tool == "" && !creds.AIAutoDetect {
		tool = creds.AITool
	}
	post, _ := cmd.Flags().GetBool("comment")
	yes, _ := cmd.Flags().GetBool("yes")
	prompt, _ := cmd.Flags().GetString("prompt")
	systemPrompt, _ := cmd.Flags().GetString("system-prompt")

	o := &review.Orchestrator{
		Client:       client,
		Repo:         repo,
		Host:         creds.Host,
		Tool:         tool,
		UserPrompt:   prompt,
		SystemPrompt: systemPrompt,
		Post:         post,
		AutoYes:      yes,
		Out:          stdout(),
		Warnf: func(f string, a ...any) {
			fmt.Fprintf(os.Stderr, "Warning: "+f+"\n", a...)
		},
		Confirm: confirmOnTerminal,
	}

	res, err := o.Run(cmd.Context(), id)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatXML:
		e := output.NewElem("review").
			Attr("tool", res.Tool).
			Attr("posted", fmt.Sprintf("%t", res.Posted))
		for _, d := range res.Drafts {
			de := e.Child("draft")
			de.ChildText("file", d.File)
			if d.Range != nil {
				de.Child("range").
					Attr("start_line", itoa(d.Range.StartLine)).
					Attr("end_line", itoa(d.Range.EndLine))
			} else {
				de.ChildText("line", itoa(d.Line))
			}
			de.ChildCDATA("message", d.Message)
		}
		e.ChildCDATA("overall", res.Overall)
		fmt.Fprintln(stdout(), e.Render())
	case output.FormatJSON:
		drafts := make([]output.Envelope, 0, len(res.Drafts))
		for _, d := range res.Drafts {
			entry := output.Envelope{"file": d.File, "message": d.Message}
			if d.Range != nil {
				entry["range"] = output.Envelope{
					"start_line": d.Range.StartLine,
					"end_line":   d.Range.EndLine,
				}
			} else {
				entry["line"] = d.Line
			}
			drafts = append(drafts, entry)
		}
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{
			"tool":    res.Tool,
			"posted":  res.Posted,
			"drafts":  drafts,
			"overall": res.Overall,
		}))
	}
	// Text output was already streamed by the orchestrator.
	return nil
}

func confirmOnTerminal(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
