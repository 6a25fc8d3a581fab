package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/output"
)

var voteCmd = &cobra.Command{
	Use:   "vote <change>",
	Short: "Vote on a change's labels",
	Long: `Cast label votes on a change.

Custom labels are given as name=value; the = form also keeps negative
votes out of flag parsing.

Examples:
  gert vote 12345 --code-review 2
  gert vote 12345 --verified 1 -m "build passed"
  gert vote 12345 --label Priority=1 --label QA-Review=-1`,
	Args: cobra.ExactArgs(1),
	RunE: runVote,
}

func init() {
	voteCmd.Flags().String("code-review", "", "Code-Review vote (-2..+2)")
	voteCmd.Flags().String("verified", "", "Verified vote (-1..+1)")
	voteCmd.Flags().StringSlice("label", nil, "custom label vote as name=value (repeatable)")
	voteCmd.Flags().StringP("message", "m", "", "review message to attach")
}

// parseVoteLabels turns the flag values into the labels map, validating
// that every value is an integer and custom labels are name=value.
func parseVoteLabels(codeReview, verified string, custom []string) (map[string]int, error) {
	labels := map[string]int{}

	parse := func(name, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s vote %q is not an integer", name, raw)
		}
		labels[name] = v
		return nil
	}

	if codeReview != "" {
		if err := parse("Code-Review", codeReview); err != nil {
			return nil, err
		}
	}
	if verified != "" {
		if err := parse("Verified", verified); err != nil {
			return nil, err
		}
	}
	for _, pair := range custom {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--label %q is not in name=value form", pair)
		}
		if err := parse(name, raw); err != nil {
			return nil, err
		}
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("vote requires at least one label (--code-review, --verified, or --label)")
	}
	return labels, nil
}

func runVote(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)

	codeReview, _ := cmd.Flags().GetString("code-review")
	verified, _ := cmd.Flags().GetString("verified")
	custom, _ := cmd.Flags().GetStringSlice("label")
	labels, err := parseVoteLabels(codeReview, verified, custom)
	if err != nil {
		return err
	}

	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := changeArg(args[0])
	if err != nil {
		return err
	}

	message, _ := cmd.Flags().GetString("message")
	in := gerrit.ReviewInput{Labels: labels, Message: message}
	if err := client.PostReview(cmd.Context(), id, in); err != nil {
		return err
	}

	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	switch format {
	case output.FormatXML:
		root := output.NewElem("vote").Attr("posted", "true")
		for _, name := range names {
			root.Child("label").Attr("name", name).Attr("value", itoa(labels[name]))
		}
		fmt.Fprintln(stdout(), root.Render())
	case output.FormatJSON:
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"labels": labels}))
	default:
		for _, name := range names {
			fmt.Fprintf(stdout(), "Voted %s%+d\n", labelAbbrev(name), labels[name])
		}
	}
	return nil
}
