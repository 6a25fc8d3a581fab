package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/diffview"
	"github.com/sprite-ai/gert/internal/output"
)

var diffCmd = &cobra.Command{
	Use:   "diff <change>",
	Short: "Show the diff of the current patchset",
	Long: `Fetch and render the unified diff of a change's current patchset.

Examples:
  gert diff 12345
  gert diff 12345 --file 'internal/**/*.go'
  gert diff 12345 --format stat
  gert diff 12345 --files-only`,
	Args: cobra.ExactArgs(1),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().String("file", "", "only show files matching this path or glob")
	diffCmd.Flags().Bool("files-only", false, "list changed file names and exit")
	diffCmd.Flags().StringP("format", "f", "text", "diff rendering: text, raw, stat, files")
}

func runDiff(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := changeArg(args[0])
	if err != nil {
		return err
	}

	raw, err := client.GetPatch(cmd.Context(), id, "current")
	if err != nil {
		return err
	}
	ds, err := diffview.Parse(raw)
	if err != nil {
		return err
	}

	pattern, _ := cmd.Flags().GetString("file")
	if ds, err = ds.Filter(pattern); err != nil {
		return err
	}

	mode, _ := cmd.Flags().GetString("format")
	if filesOnly, _ := cmd.Flags().GetBool("files-only"); filesOnly {
		mode = "files"
	}

	switch format {
	case output.FormatXML:
		return emitDiffXML(ds, mode)
	case output.FormatJSON:
		return emitDiffJSON(ds, mode)
	}

	switch mode {
	case "raw":
		fmt.Fprint(stdout(), ds.Raw)
	case "stat":
		fmt.Fprint(stdout(), diffview.RenderStat(ds))
	case "files":
		for _, name := range ds.FileNames() {
			fmt.Fprintln(stdout(), name)
		}
	case "text":
		fmt.Fprint(stdout(), diffview.RenderText(ds, stdoutIsTTY()))
	default:
		return fmt.Errorf("unknown diff format %q (want text, raw, stat, or files)", mode)
	}
	return nil
}

func emitDiffXML(ds *diffview.DiffSet, mode string) error {
	files, added, deleted := ds.Stats()
	root := output.NewElem("diff").
		Attr("files", itoa(files)).
		Attr("insertions", itoa(added)).
		Attr("deletions", itoa(deleted))
	for _, f := range ds.Files {
		fe := root.Child("file").
			Attr("added", itoa(f.Added)).
			Attr("deleted", itoa(f.Deleted))
		fe.ChildText("name", f.Name())
		if f.IsBinary {
			fe.Attr("binary", "true")
		}
	}
	if mode == "raw" || mode == "text" {
		root.ChildCDATA("patch", ds.Raw)
	}
	fmt.Fprintln(stdout(), root.Render())
	return nil
}

func emitDiffJSON(ds *diffview.DiffSet, mode string) error {
	files, added, deleted := ds.Stats()
	list := make([]output.Envelope, 0, len(ds.Files))
	for _, f := range ds.Files {
		entry := output.Envelope{
			"name":    f.Name(),
			"added":   f.Added,
			"deleted": f.Deleted,
		}
		if f.IsBinary {
			entry["binary"] = true
		}
		list = append(list, entry)
	}
	env := output.Envelope{
		"files":      list,
		"file_count": files,
		"insertions": added,
		"deletions":  deleted,
	}
	if mode == "raw" || mode == "text" {
		env["patch"] = ds.Raw
	}
	return output.JSON(stdout(), output.SuccessEnvelope(env))
}
