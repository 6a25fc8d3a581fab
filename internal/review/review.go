package review

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/gitx"
)

// toolTimeout bounds one AI tool invocation.
const toolTimeout = 10 * time.Minute

// Client is the slice of the REST adapter the orchestrator needs.
type Client interface {
	GetChange(ctx context.Context, id string, opts ...string) (*gerrit.Change, error)
	GetComments(ctx context.Context, id string) ([]gerrit.Comment, error)
	GetMessages(ctx context.Context, id string) ([]gerrit.Message, error)
	PostReview(ctx context.Context, id string, in gerrit.ReviewInput) error
}

// Repo is the slice of gitx the orchestrator needs; *gitx.Repo satisfies
// both it and WorktreeRepo.
type Repo interface {
	WorktreeRepo
	FindMatchingRemote(host string) (string, error)
	ChangedFiles(ctx context.Context, dir, rev string) ([]string, error)
}

// Orchestrator drives one AI review.
type Orchestrator struct {
	Client Client
	Repo   Repo
	Host   string

	Tool         string // explicit tool, "" to probe
	UserPrompt   string
	SystemPrompt string // overrides both built-in system prompts when set

	Post    bool // --comment: post results back to Gerrit
	AutoYes bool // --yes: skip confirmation

	Out     io.Writer
	Warnf   func(format string, args ...any)
	Confirm func(question string) bool

	// runTool is swapped in tests.
	runTool func(ctx context.Context, tool, dir, prompt string) (string, error)
}

// Result summarizes a finished review.
type Result struct {
	Tool    string
	Drafts  []Draft
	Overall string
	Posted  bool
}

// Run executes the full workflow. The worktree is released on every exit
// path, including panics.
func (o *Orchestrator) Run(ctx context.Context, id string) (*Result, error) {
	tool, err := DiscoverTool(o.Tool)
	if err != nil {
		return nil, err
	}

	change, err := o.Client.GetChange(ctx, id)
	if err != nil {
		return nil, err
	}
	rev, ok := change.CurrentRevisionInfo()
	if !ok {
		return nil, &StrategyError{Stage: "setup", Message: "change has no current revision"}
	}
	if err := gitx.ValidateChangeRef(rev.Ref); err != nil {
		return nil, err
	}

	remote, err := o.Repo.FindMatchingRemote(o.Host)
	if err != nil {
		return nil, err
	}
	if remote == "" {
		remote = "origin"
	}

	wt, err := AcquireWorktree(ctx, o.Repo, remote, rev.Ref, strconv.Itoa(change.Number))
	if err != nil {
		return nil, err
	}
	defer wt.Release(ctx)

	meta, err := o.collectMetadata(ctx, id, change, wt)
	if err != nil {
		return nil, err
	}

	drafts, err := o.inlinePass(ctx, tool, wt, meta)
	if err != nil {
		return nil, err
	}
	overall, err := o.overallPass(ctx, tool, wt, meta)
	if err != nil {
		return nil, err
	}

	res := &Result{Tool: tool, Drafts: drafts, Overall: overall}
	o.printDrafts(res)

	if o.Post {
		if o.AutoYes || o.Confirm("Post this review to Gerrit?") {
			if err := o.post(ctx, id, res); err != nil {
				return res, err
			}
			res.Posted = true
		} else {
			fmt.Fprintln(o.Out, "Not posted.")
		}
	}
	return res, nil
}

func (o *Orchestrator) collectMetadata(ctx context.Context, id string, change *gerrit.Change, wt *Worktree) (Metadata, error) {
	comments, err := o.Client.GetComments(ctx, id)
	if err != nil {
		return Metadata{}, err
	}
	SortCommentsOldestFirst(comments)

	messages, err := o.Client.GetMessages(ctx, id)
	if err != nil {
		return Metadata{}, err
	}

	files, err := o.Repo.ChangedFiles(ctx, wt.Path, "HEAD")
	if err != nil {
		return Metadata{}, err
	}

	return Metadata{
		Change:       change,
		Comments:     comments,
		Messages:     FilterMessages(messages),
		ChangedFiles: files,
	}, nil
}

func (o *Orchestrator) inlinePass(ctx context.Context, tool string, wt *Worktree, meta Metadata) ([]Draft, error) {
	prompt := BuildInlinePrompt(o.UserPrompt, meta)
	if o.SystemPrompt != "" {
		prompt = BuildPrompt(o.UserPrompt, o.SystemPrompt, meta)
	}

	stdout, err := o.invoke(ctx, tool, wt.Path, prompt)
	if err != nil {
		return nil, &StrategyError{Stage: "inline comments", Message: "AI tool failed", Err: err}
	}
	payload := ExtractResponse(stdout)
	if payload == "" {
		return nil, &StrategyError{Stage: "inline comments", Message: "AI tool produced no output"}
	}
	drafts, err := ParseDrafts(payload)
	if err != nil {
		return nil, err
	}
	return ValidateDrafts(drafts, meta.ChangedFiles, o.Warnf), nil
}

func (o *Orchestrator) overallPass(ctx context.Context, tool string, wt *Worktree, meta Metadata) (string, error) {
	prompt := BuildOverallPrompt(o.UserPrompt, meta)
	if o.SystemPrompt != "" {
		prompt = BuildPrompt(o.UserPrompt, o.SystemPrompt, meta)
	}

	stdout, err := o.invoke(ctx, tool, wt.Path, prompt)
	if err != nil {
		return "", &StrategyError{Stage: "overall review", Message: "AI tool failed", Err: err}
	}
	overall := strings.TrimSpace(ExtractResponse(stdout))
	if overall == "" {
		return "", &StrategyError{Stage: "overall review", Message: "AI tool produced no output"}
	}
	return overall, nil
}

func (o *Orchestrator) invoke(ctx context.Context, tool, dir, prompt string) (string, error) {
	if o.runTool != nil {
		return o.runTool(ctx, tool, dir, prompt)
	}
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, tool)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("%s: %s", err, detail)
		}
		return "", err
	}
	return stdout.String(), nil
}

func (o *Orchestrator) printDrafts(res *Result) {
	if len(res.Drafts) == 0 {
		fmt.Fprintln(o.Out, "No inline comments.")
	}
	for _, d := range res.Drafts {
		switch {
		case d.Range != nil:
			fmt.Fprintf(o.Out, "%s:%d-%d\n  %s\n", d.File, d.Range.StartLine, d.Range.EndLine, d.Message)
		default:
			fmt.Fprintf(o.Out, "%s:%d\n  %s\n", d.File, d.Line, d.Message)
		}
	}
	fmt.Fprintf(o.Out, "\n%s\n", res.Overall)
}

// post sends inline comments as one batch, then the overall narrative as
// a plain review message. Inline postings are not rolled back when the
// second call fails.
func (o *Orchestrator) post(ctx context.Context, id string, res *Result) error {
	if len(res.Drafts) > 0 {
		in := gerrit.ReviewInput{Comments: CommentsByPath(res.Drafts)}
		if err := o.Client.PostReview(ctx, id, in); err != nil {
			return &PostingError{Err: err}
		}
	}
	overall := res.Overall
	if !strings.HasPrefix(overall, Marker) {
		overall = Marker + overall
	}
	if err := o.Client.PostReview(ctx, id, gerrit.ReviewInput{Message: overall}); err != nil {
		return &PostingError{Err: err}
	}
	return nil
}
