// Package review implements the AI-assisted review workflow: tool
// discovery, an ephemeral worktree for the change, two prompt passes,
// structured-output validation and repair, and confirm-then-post.
package review

import (
	"fmt"
	"os/exec"
	"strings"
)

// preferredTools is the probe order when no tool is configured. The list
// is a convention shared with the external CLIs, not a contract.
var preferredTools = []string{"claude", "llm", "opencode", "gemini"}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// DiscoverTool picks the AI CLI to drive. An explicit preference (flag or
// config) must resolve on PATH; otherwise the preference list is probed
// in order.
func DiscoverTool(preference string) (string, error) {
	if preference != "" {
		if _, err := lookPath(preference); err != nil {
			return "", &StrategyError{Stage: "tool discovery", Message: fmt.Sprintf("configured AI tool %q not found on PATH", preference)}
		}
		return preference, nil
	}
	for _, tool := range preferredTools {
		if _, err := lookPath(tool); err == nil {
			return tool, nil
		}
	}
	return "", &StrategyError{
		Stage:   "tool discovery",
		Message: "no AI review tool found on PATH (looked for " + strings.Join(preferredTools, ", ") + ")",
	}
}

// StrategyError aborts the current review stage. Worktree cleanup still
// runs when it is returned.
type StrategyError struct {
	Stage   string
	Message string
	Err     error
}

func (e *StrategyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("review %s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("review %s: %s", e.Stage, e.Message)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// PostingError is a failure while posting results back to Gerrit.
// Partial inline postings are not rolled back.
type PostingError struct {
	Err error
}

func (e *PostingError) Error() string { return "posting review: " + e.Err.Error() }
func (e *PostingError) Unwrap() error { return e.Err }
