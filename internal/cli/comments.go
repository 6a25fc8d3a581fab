package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/output"
)

var commentsCmd = &cobra.Command{
	Use:   "comments <change>",
	Short: "List inline comments on a change",
	Args:  cobra.ExactArgs(1),
	RunE:  runComments,
}

var commentCmd = &cobra.Command{
	Use:   "comment <change>",
	Short: "Post a review comment",
	Long: `Post a review comment. With -m alone it becomes the review message;
with --file and --line it becomes an inline comment. --batch reads a JSON
array of inline comment drafts from stdin:

  [{"path":"a.go","line":3,"message":"tighten this"},
   {"path":"b.go","range":{"start_line":1,"end_line":4},"message":"..."}]`,
	Args: cobra.ExactArgs(1),
	RunE: runComment,
}

func init() {
	commentCmd.Flags().StringP("message", "m", "", "comment text")
	commentCmd.Flags().String("file", "", "file path for an inline comment")
	commentCmd.Flags().Int("line", 0, "line number for an inline comment")
	commentCmd.Flags().Bool("unresolved", false, "mark the inline comment unresolved")
	commentCmd.Flags().Bool("batch", false, "read a JSON array of inline comments from stdin")
}

func runComments(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := changeArg(args[0])
	if err != nil {
		return err
	}

	comments, err := client.GetComments(cmd.Context(), id)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatXML:
		root := output.NewElem("comments").Attr("count", itoa(len(comments)))
		for i := range comments {
			root.Append(commentElem(&comments[i]))
		}
		fmt.Fprintln(stdout(), root.Render())
	case output.FormatJSON:
		list := make([]output.Envelope, 0, len(comments))
		for i := range comments {
			list = append(list, commentFields(&comments[i]))
		}
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"comments": list}))
	default:
		if len(comments) == 0 {
			fmt.Fprintln(stdout(), "No comments.")
			return nil
		}
		for i := range comments {
			c := &comments[i]
			loc := c.Path
			if c.Line > 0 {
				loc = fmt.Sprintf("%s:%d", c.Path, c.Line)
			} else if c.Range != nil {
				loc = fmt.Sprintf("%s:%d-%d", c.Path, c.Range.StartLine, c.Range.EndLine)
			}
			flag := ""
			if c.Unresolved != nil && *c.Unresolved {
				flag = " [unresolved]"
			}
			fmt.Fprintf(stdout(), "%s%s (%s)\n  %s\n", loc, flag, c.Author.Display(),
				strings.ReplaceAll(strings.TrimSpace(c.Message), "\n", "\n  "))
		}
	}
	return nil
}

func commentElem(c *gerrit.Comment) *output.Elem {
	e := output.NewElem("comment").Attr("id", c.ID)
	e.ChildText("path", c.Path)
	if c.Line > 0 {
		e.ChildText("line", itoa(c.Line))
	}
	if c.Range != nil {
		e.Child("range").
			Attr("start_line", itoa(c.Range.StartLine)).
			Attr("end_line", itoa(c.Range.EndLine))
	}
	e.ChildCDATA("message", c.Message)
	if c.Author != nil {
		e.Append(accountElem("author", c.Author))
	}
	if c.Updated != "" {
		e.ChildText("updated", c.Updated)
	}
	if c.Unresolved != nil {
		e.ChildText("unresolved", fmt.Sprintf("%t", *c.Unresolved))
	}
	return e
}

func commentFields(c *gerrit.Comment) output.Envelope {
	env := output.Envelope{
		"id":      c.ID,
		"path":    c.Path,
		"message": c.Message,
	}
	if c.Line > 0 {
		env["line"] = c.Line
	}
	if c.Range != nil {
		env["range"] = output.Envelope{
			"start_line": c.Range.StartLine,
			"end_line":   c.Range.EndLine,
		}
	}
	if a := accountFields(c.Author); a != nil {
		env["author"] = a
	}
	if c.Updated != "" {
		env["updated"] = c.Updated
	}
	if c.Unresolved != nil {
		env["unresolved"] = *c.Unresolved
	}
	return env
}

func runComment(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := changeArg(args[0])
	if err != nil {
		return err
	}

	var in gerrit.ReviewInput
	if batch, _ := cmd.Flags().GetBool("batch"); batch {
		in, err = readBatchComments(cmd.InOrStdin())
		if err != nil {
			return err
		}
	} else {
		in, err = singleComment(cmd)
		if err != nil {
			return err
		}
	}

	if err := client.PostReview(cmd.Context(), id, in); err != nil {
		return err
	}

	posted := len(in.Comments)
	switch format {
	case output.FormatXML:
		fmt.Fprintln(stdout(), output.NewElem("comment").Attr("posted", "true").Render())
	case output.FormatJSON:
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"posted": true}))
	default:
		if posted > 0 {
			fmt.Fprintf(stdout(), "Posted comments on %d file(s).\n", posted)
		} else {
			fmt.Fprintln(stdout(), "Comment posted.")
		}
	}
	return nil
}

func singleComment(cmd *cobra.Command) (gerrit.ReviewInput, error) {
	message, _ := cmd.Flags().GetString("message")
	if strings.TrimSpace(message) == "" {
		return gerrit.ReviewInput{}, fmt.Errorf("a comment requires -m (or --batch)")
	}

	file, _ := cmd.Flags().GetString("file")
	line, _ := cmd.Flags().GetInt("line")
	if file == "" {
		if line > 0 {
			return gerrit.ReviewInput{}, fmt.Errorf("--line requires --file")
		}
		return gerrit.ReviewInput{Message: message}, nil
	}
	if line <= 0 {
		return gerrit.ReviewInput{}, fmt.Errorf("an inline comment requires a positive --line")
	}

	input := gerrit.CommentInput{Line: line, Message: message}
	if unresolved, _ := cmd.Flags().GetBool("unresolved"); unresolved {
		t := true
		input.Unresolved = &t
	}
	return gerrit.ReviewInput{
		Comments: map[string][]gerrit.CommentInput{file: {input}},
	}, nil
}

// readBatchComments parses a JSON array of drafts and enforces the posting
// contract: a path, a message, and exactly one of line or range.
func readBatchComments(r io.Reader) (gerrit.ReviewInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return gerrit.ReviewInput{}, fmt.Errorf("reading batch input: %w", err)
	}
	var drafts []gerrit.CommentInput
	if err := json.Unmarshal(data, &drafts); err != nil {
		return gerrit.ReviewInput{}, fmt.Errorf("batch input is not a JSON comment array: %w", err)
	}
	if len(drafts) == 0 {
		return gerrit.ReviewInput{}, fmt.Errorf("batch input contains no comments")
	}

	byPath := map[string][]gerrit.CommentInput{}
	for i, d := range drafts {
		if d.Path == "" {
			return gerrit.ReviewInput{}, fmt.Errorf("batch comment %d: missing path", i)
		}
		if strings.TrimSpace(d.Message) == "" {
			return gerrit.ReviewInput{}, fmt.Errorf("batch comment %d: missing message", i)
		}
		hasLine := d.Line > 0
		hasRange := d.Range != nil
		if hasLine == hasRange {
			return gerrit.ReviewInput{}, fmt.Errorf("batch comment %d: exactly one of line or range is required", i)
		}
		path := d.Path
		d.Path = ""
		byPath[path] = append(byPath[path], d)
	}
	return gerrit.ReviewInput{Comments: byPath}, nil
}
