package gitx

import (
	"errors"
	"fmt"
)

// ErrNotGitRepo reports that the working directory is not inside a git
// repository.
var ErrNotGitRepo = errors.New("not in a git repository")

// VcsError wraps a failed git invocation. The underlying git stderr is
// surfaced verbatim; this tool never rewrites git's own errors.
type VcsError struct {
	Op     string
	Output string
	Err    error
}

func (e *VcsError) Error() string {
	out := e.Output
	if out != "" {
		out = ": " + out
	}
	return fmt.Sprintf("git %s failed%s", e.Op, out)
}

func (e *VcsError) Unwrap() error { return e.Err }

// InvalidInputError reports a value that failed pre-spawn validation and
// was therefore never handed to git. The echoed value is truncated so a
// hostile input cannot flood the terminal.
type InvalidInputError struct {
	What  string
	Value string
}

func (e *InvalidInputError) Error() string {
	v := e.Value
	if len(v) > 64 {
		v = v[:64] + "…"
	}
	return fmt.Sprintf("invalid %s: %q", e.What, v)
}
