package cli

import (
	"testing"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, want := range []string{
		"setup", "status", "mine", "incoming", "search", "show", "diff",
		"comments", "comment", "add-reviewer", "remove-reviewer", "vote",
		"submit", "abandon", "restore", "rebase", "topic", "projects",
		"groups", "groups-show", "groups-members", "extract-url",
		"build-status", "push", "checkout", "review", "open", "version",
	} {
		if !names[want] {
			t.Errorf("root command missing subcommand %q", want)
		}
	}
}

func TestVersionOutput(t *testing.T) {
	// version vars are set via ldflags; in tests they have their defaults
	if version != "dev" {
		t.Errorf("expected default version %q, got %q", "dev", version)
	}
}
