// Package push implements `gert push`: Change-Id enforcement, refspec
// assembly, and classification of the server's response.
package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sprite-ai/gert/internal/gitx"
	"github.com/sprite-ai/gert/internal/ident"
)

// Error is a push pipeline failure with a user-actionable message.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// Options are the recognized push options, encoded after '%' in the
// refspec.
type Options struct {
	Branch    string
	Topic     string
	Reviewers []string
	CCs       []string
	WIP       bool
	Ready     bool
	Private   bool
	Hashtags  []string
	DryRun    bool
}

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateAddresses rejects malformed reviewer/CC addresses before any
// network or VCS action runs.
func ValidateAddresses(opts Options) error {
	for _, addr := range append(append([]string{}, opts.Reviewers...), opts.CCs...) {
		if !emailRE.MatchString(addr) {
			return &Error{Message: fmt.Sprintf("invalid email address %q", addr)}
		}
	}
	return nil
}

// BuildRefSpec assembles "refs/for/<branch>" plus the option suffix.
// Topic and hashtags are URL-encoded; reviewers and CCs are emails and
// pass through as-is.
func BuildRefSpec(branch string, opts Options) string {
	var parts []string
	if opts.Topic != "" {
		parts = append(parts, "topic="+url.QueryEscape(opts.Topic))
	}
	if opts.WIP {
		parts = append(parts, "wip")
	}
	if opts.Ready {
		parts = append(parts, "ready")
	}
	if opts.Private {
		parts = append(parts, "private")
	}
	for _, r := range opts.Reviewers {
		parts = append(parts, "r="+r)
	}
	for _, cc := range opts.CCs {
		parts = append(parts, "cc="+cc)
	}
	for _, tag := range opts.Hashtags {
		parts = append(parts, "hashtag="+url.QueryEscape(tag))
	}

	spec := "refs/for/" + branch
	if len(parts) > 0 {
		spec += "%" + strings.Join(parts, ",")
	}
	return spec
}

var changeURLRE = regexp.MustCompile(`(?m)^\s*remote:\s+(https?://\S+/c/\S+/\+/\d+)`)

// Result is a classified push outcome.
type Result struct {
	RefSpec  string
	URL      string
	UpToDate bool
	Output   string
}

// ClassifyOutput interprets git push output. pushErr is the error from
// the push invocation, nil on exit code 0.
func ClassifyOutput(refspec, out string, pushErr error) (*Result, error) {
	if pushErr == nil {
		res := &Result{RefSpec: refspec, Output: out}
		if m := changeURLRE.FindStringSubmatch(out); m != nil {
			res.URL = m[1]
		}
		return res, nil
	}

	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "no new changes"):
		return &Result{RefSpec: refspec, Output: out, UpToDate: true}, nil
	case strings.Contains(lower, "authentication failed") || strings.Contains(lower, "could not read username"):
		return nil, &Error{Message: "push rejected: authentication failed; check your credentials and re-run 'gert setup'", Err: pushErr}
	case strings.Contains(lower, "prohibited by gerrit"):
		return nil, &Error{Message: "push prohibited by Gerrit: you may lack push permission for this ref, or the target branch does not accept reviews", Err: pushErr}
	default:
		return nil, &Error{Message: "git push failed:\n" + out, Err: pushErr}
	}
}

// Repo is the slice of gitx the pipeline needs; *gitx.Repo satisfies it.
type Repo interface {
	HeadCommitMessage() (string, error)
	TrackingBranch() (string, error)
	GitDir(ctx context.Context) (string, error)
	AmendKeepingMessage(ctx context.Context) error
	RemoteBranchExists(ctx context.Context, remote, branch string) bool
	Push(ctx context.Context, remote, refspec string, dryRun bool) (string, error)
}

// Pipeline carries the collaborators of one push invocation.
type Pipeline struct {
	Repo   Repo
	Host   string // normalized Gerrit host, for the hook download
	Remote string
	HTTP   *http.Client
	Logf   func(format string, args ...any)
}

// EnsureChangeID makes sure HEAD carries a Change-Id footer. When the
// commit-msg hook is missing it is provisioned from the server and HEAD
// is amended once so the hook runs. When the hook is already installed
// the commit simply predates it; rewriting HEAD behind the user's back
// is not safe, so the pipeline fails with an amend instruction instead.
func (p *Pipeline) EnsureChangeID(ctx context.Context) error {
	msg, err := p.Repo.HeadCommitMessage()
	if err != nil {
		return err
	}
	if ident.FromCommitMessage(msg) != "" {
		return nil
	}

	gitDir, err := p.Repo.GitDir(ctx)
	if err != nil {
		return err
	}
	if gitx.HookInstalled(gitDir) {
		return &Error{Message: "HEAD has no Change-Id but the commit-msg hook is already installed; run 'git commit --amend' so the hook can add one, then retry"}
	}

	content, err := p.downloadHook(ctx)
	if err != nil {
		return err
	}
	if err := gitx.InstallCommitMsgHook(gitDir, content); err != nil {
		return &Error{Message: err.Error(), Err: err}
	}
	p.Logf("installed commit-msg hook from %s", p.Host)

	// Re-commit with the message unchanged so the fresh hook adds the
	// footer.
	if err := p.Repo.AmendKeepingMessage(ctx); err != nil {
		return err
	}
	msg, err = p.Repo.HeadCommitMessage()
	if err != nil {
		return err
	}
	if ident.FromCommitMessage(msg) == "" {
		return &Error{Message: "HEAD still has no Change-Id after installing the commit-msg hook; run 'git commit --amend' manually and retry"}
	}
	return nil
}

func (p *Pipeline) downloadHook(ctx context.Context) ([]byte, error) {
	hookURL := p.Host + "/tools/hooks/commit-msg"
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hookURL, nil)
	if err != nil {
		return nil, &Error{Message: "building hook download request: " + err.Error(), Err: err}
	}
	client := p.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Message: "downloading commit-msg hook from " + hookURL + ": " + err.Error(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Message: fmt.Sprintf("downloading commit-msg hook: %s returned HTTP %d", hookURL, resp.StatusCode)}
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "reading commit-msg hook: " + err.Error(), Err: err}
	}
	if !strings.HasPrefix(string(content), "#!") {
		return nil, &Error{Message: "server returned something that is not a commit-msg script"}
	}
	return content, nil
}

// TargetBranch picks the review target: explicit flag, tracking branch,
// then main/master by remote probe.
func (p *Pipeline) TargetBranch(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if tracking, err := p.Repo.TrackingBranch(); err == nil && tracking != "" {
		if _, branch, ok := strings.Cut(tracking, "/"); ok {
			return branch, nil
		}
	}
	if p.Repo.RemoteBranchExists(ctx, p.Remote, "main") {
		return "main", nil
	}
	return "master", nil
}

// Run executes the full pipeline and classifies the outcome.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := ValidateAddresses(opts); err != nil {
		return nil, err
	}
	if err := p.EnsureChangeID(ctx); err != nil {
		return nil, err
	}
	branch, err := p.TargetBranch(ctx, opts.Branch)
	if err != nil {
		return nil, err
	}
	if err := gitx.ValidateRefName("branch", branch); err != nil {
		return nil, err
	}

	refspec := BuildRefSpec(branch, opts)
	out, pushErr := p.Repo.Push(ctx, p.Remote, refspec, opts.DryRun)
	return ClassifyOutput(refspec, out, pushErr)
}
