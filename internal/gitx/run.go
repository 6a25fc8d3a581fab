package gitx

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Subprocess timeouts per operation class. Fetches cross the network;
// probes are local and must stay snappy.
const (
	FetchTimeout    = 60 * time.Second
	CheckoutTimeout = 30 * time.Second
	ProbeTimeout    = 10 * time.Second
)

// Debugf is installed by the CLI layer to trace git invocations.
var Debugf = func(format string, args ...any) {}

// runGit executes git with an argv array (never a shell) under a deadline
// and returns combined stdout+stderr.
func runGit(ctx context.Context, dir string, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	Debugf("git %s", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		return text, &VcsError{Op: args[0], Output: text, Err: err}
	}
	return text, nil
}
