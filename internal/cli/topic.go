package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/output"
)

var topicCmd = &cobra.Command{
	Use:   "topic [change] [topic]",
	Short: "Get, set, or delete a change's topic",
	Long: `With one argument, print the change's topic. With two, set it.
--delete clears it.

Examples:
  gert topic 12345
  gert topic 12345 my-feature
  gert topic 12345 --delete`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTopic,
}

func init() {
	topicCmd.Flags().Bool("delete", false, "delete the topic")
}

func runTopic(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := changeArg(args[0])
	if err != nil {
		return err
	}

	del, _ := cmd.Flags().GetBool("delete")
	switch {
	case del:
		if len(args) == 2 {
			return fmt.Errorf("--delete does not take a topic argument")
		}
		if err := client.DeleteTopic(cmd.Context(), id); err != nil {
			return err
		}
		return emitTopic(format, "", "deleted")
	case len(args) == 2:
		if err := client.SetTopic(cmd.Context(), id, args[1]); err != nil {
			return err
		}
		return emitTopic(format, args[1], "set")
	default:
		topic, err := client.GetTopic(cmd.Context(), id)
		if err != nil {
			return err
		}
		return emitTopic(format, topic, "")
	}
}

func emitTopic(f output.Format, topic, action string) error {
	switch f {
	case output.FormatXML:
		e := output.NewElem("topic")
		if action != "" {
			e.Attr("action", action)
		}
		if topic != "" {
			e.Text(topic)
		}
		fmt.Fprintln(stdout(), e.Render())
	case output.FormatJSON:
		env := output.Envelope{"topic": topic}
		if action != "" {
			env["action"] = action
		}
		return output.JSON(stdout(), output.SuccessEnvelope(env))
	default:
		switch {
		case action == "deleted":
			fmt.Fprintln(stdout(), "Topic deleted.")
		case action == "set":
			fmt.Fprintf(stdout(), "Topic set to %q.\n", topic)
		case topic == "":
			fmt.Fprintln(stdout(), "No topic.")
		default:
			fmt.Fprintln(stdout(), topic)
		}
	}
	return nil
}
