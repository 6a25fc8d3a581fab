package review

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/gert/internal/gerrit"
)

func TestDiscoverTool(t *testing.T) {
	orig := lookPath
	defer func() { lookPath = orig }()

	available := map[string]bool{"llm": true, "gemini": true}
	lookPath = func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}

	tool, err := DiscoverTool("")
	require.NoError(t, err)
	assert.Equal(t, "llm", tool, "probe order must follow the preference list")

	tool, err = DiscoverTool("gemini")
	require.NoError(t, err)
	assert.Equal(t, "gemini", tool)

	_, err = DiscoverTool("claude")
	var serr *StrategyError
	assert.ErrorAs(t, err, &serr)

	available = map[string]bool{}
	_, err = DiscoverTool("")
	assert.ErrorAs(t, err, &serr)
}

func TestExtractResponse(t *testing.T) {
	assert.Equal(t, `[{"file":"a.go"}]`,
		ExtractResponse("preamble <response>[{\"file\":\"a.go\"}]</response> trailing"))
	assert.Equal(t, "whole output", ExtractResponse("  whole output \n"))
	// Outermost pair wins when tags nest or repeat.
	assert.Equal(t, "a </response><response> b",
		ExtractResponse("<response>a </response><response> b</response>"))
}

func TestParseDrafts(t *testing.T) {
	drafts, err := ParseDrafts(`[{"file":"a.go","line":3,"message":"m","confidence":0.9}]`)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "a.go", drafts[0].File)
	assert.Equal(t, 3, drafts[0].Line)

	_, err = ParseDrafts("not json")
	var serr *StrategyError
	assert.ErrorAs(t, err, &serr)
}

func discard(string, ...any) {}

func TestValidateDrafts(t *testing.T) {
	changed := []string{"internal/server/handler.go", "cmd/app/main.go"}
	drafts := []Draft{
		{File: "internal/server/handler.go", Line: 10, Message: Marker + "keep"},
		{File: "handler.go", Line: 5, Message: "needs marker and repair"},
		{File: `cmd\app\main.go`, Line: 1, Message: Marker + "backslashes"},
		{File: "internal/server/handler.go", Message: Marker + "no location"},
		{File: "internal/server/handler.go", Line: 2, Range: &gerrit.CommentRange{StartLine: 1, EndLine: 2}, Message: Marker + "both"},
		{File: "unknown.go", Line: 1, Message: Marker + "not in change"},
		{File: "", Line: 1, Message: Marker + "no file"},
	}

	valid := ValidateDrafts(drafts, changed, discard)
	require.Len(t, valid, 3)
	assert.Equal(t, "internal/server/handler.go", valid[0].File)
	assert.Equal(t, "internal/server/handler.go", valid[1].File, "suffix repair")
	assert.Equal(t, Marker+"needs marker and repair", valid[1].Message)
	assert.Equal(t, "cmd/app/main.go", valid[2].File, "backslash normalization")
}

func TestRepairPathAmbiguous(t *testing.T) {
	changed := []string{"a/util.go", "b/util.go"}
	_, ok := RepairPath("util.go", changed, discard)
	assert.False(t, ok)

	// Boundary required: "til.go" is not a path suffix of util.go.
	_, ok = RepairPath("til.go", []string{"a/util.go"}, discard)
	assert.False(t, ok)

	got, ok := RepairPath("util.go", []string{"a/util.go"}, discard)
	require.True(t, ok)
	assert.Equal(t, "a/util.go", got)
}

type fakeReviewClient struct {
	change   *gerrit.Change
	comments []gerrit.Comment
	messages []gerrit.Message
	posted   []gerrit.ReviewInput
}

func (f *fakeReviewClient) GetChange(_ context.Context, _ string, _ ...string) (*gerrit.Change, error) {
	return f.change, nil
}
func (f *fakeReviewClient) GetComments(context.Context, string) ([]gerrit.Comment, error) {
	return f.comments, nil
}
func (f *fakeReviewClient) GetMessages(context.Context, string) ([]gerrit.Message, error) {
	return f.messages, nil
}
func (f *fakeReviewClient) PostReview(_ context.Context, _ string, in gerrit.ReviewInput) error {
	f.posted = append(f.posted, in)
	return nil
}

type fakeReviewRepo struct {
	worktrees map[string]bool
	files     []string
}

func (f *fakeReviewRepo) FetchRef(context.Context, string, string) error { return nil }
func (f *fakeReviewRepo) AddWorktree(_ context.Context, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	f.worktrees[path] = true
	return nil
}
func (f *fakeReviewRepo) RemoveWorktree(_ context.Context, path string) error {
	delete(f.worktrees, path)
	return nil
}
func (f *fakeReviewRepo) FindMatchingRemote(string) (string, error) { return "origin", nil }
func (f *fakeReviewRepo) ChangedFiles(context.Context, string, string) ([]string, error) {
	return f.files, nil
}

func reviewChange() *gerrit.Change {
	return &gerrit.Change{
		ID:              "proj~main~Iaaa",
		Number:          7,
		Project:         "proj",
		Branch:          "main",
		Status:          gerrit.StatusNew,
		Subject:         "do things",
		Owner:           &gerrit.Account{Name: "Ann"},
		CurrentRevision: "abc",
		Revisions:       map[string]gerrit.Revision{"abc": {Number: 2, Ref: "refs/changes/07/7/2"}},
	}
}

func newTestOrchestrator(client *fakeReviewClient, repo *fakeReviewRepo, out *bytes.Buffer) *Orchestrator {
	return &Orchestrator{
		Client:  client,
		Repo:    repo,
		Host:    "https://g.example",
		Tool:    "claude",
		Out:     out,
		Warnf:   discard,
		Confirm: func(string) bool { return false },
	}
}

func TestOrchestratorRunPostsWhenConfirmed(t *testing.T) {
	t.Chdir(t.TempDir())

	orig := lookPath
	lookPath = func(string) (string, error) { return "/usr/bin/claude", nil }
	defer func() { lookPath = orig }()

	client := &fakeReviewClient{change: reviewChange()}
	repo := &fakeReviewRepo{worktrees: map[string]bool{}, files: []string{"pkg/a.go"}}
	var out bytes.Buffer
	o := newTestOrchestrator(client, repo, &out)
	o.Post = true
	o.AutoYes = true

	calls := 0
	o.runTool = func(_ context.Context, tool, dir, prompt string) (string, error) {
		calls++
		assert.Contains(t, prompt, "Project: proj")
		assert.Contains(t, prompt, "pkg/a.go")
		if calls == 1 {
			return `<response>[{"file":"pkg/a.go","line":3,"message":"tighten this"}]</response>`, nil
		}
		return "Looks solid overall.", nil
	}

	res, err := o.Run(context.Background(), "7")
	require.NoError(t, err)
	assert.True(t, res.Posted)
	require.Len(t, client.posted, 2)
	assert.Equal(t, Marker+"tighten this", client.posted[0].Comments["pkg/a.go"][0].Message)
	assert.Equal(t, Marker+"Looks solid overall.", client.posted[1].Message)
	assert.Empty(t, repo.worktrees, "worktree must be released")
}

func TestOrchestratorToolFailureStillCleansUp(t *testing.T) {
	t.Chdir(t.TempDir())

	orig := lookPath
	lookPath = func(string) (string, error) { return "/usr/bin/claude", nil }
	defer func() { lookPath = orig }()

	client := &fakeReviewClient{change: reviewChange()}
	repo := &fakeReviewRepo{worktrees: map[string]bool{}, files: []string{"pkg/a.go"}}
	var out bytes.Buffer
	o := newTestOrchestrator(client, repo, &out)
	o.runTool = func(context.Context, string, string, string) (string, error) {
		return "", errors.New("exit status 1")
	}

	_, err := o.Run(context.Background(), "7")
	var serr *StrategyError
	require.ErrorAs(t, err, &serr)
	assert.Empty(t, repo.worktrees)
}

func TestOrchestratorInterruptReleasesWorktree(t *testing.T) {
	t.Chdir(t.TempDir())

	orig := lookPath
	lookPath = func(string) (string, error) { return "/usr/bin/claude", nil }
	defer func() { lookPath = orig }()

	client := &fakeReviewClient{change: reviewChange()}
	repo := &fakeReviewRepo{worktrees: map[string]bool{}, files: []string{"pkg/a.go"}}
	var out bytes.Buffer
	o := newTestOrchestrator(client, repo, &out)

	// A Ctrl-C while the tool is running cancels the command context.
	ctx, cancel := context.WithCancel(context.Background())
	o.runTool = func(ctx context.Context, _, _, _ string) (string, error) {
		cancel()
		return "", ctx.Err()
	}

	_, err := o.Run(ctx, "7")
	require.Error(t, err)
	assert.Empty(t, repo.worktrees, "worktree must be released after cancellation")
}

func TestOrchestratorDeclinedConfirmationDoesNotPost(t *testing.T) {
	t.Chdir(t.TempDir())

	orig := lookPath
	lookPath = func(string) (string, error) { return "/usr/bin/claude", nil }
	defer func() { lookPath = orig }()

	client := &fakeReviewClient{change: reviewChange()}
	repo := &fakeReviewRepo{worktrees: map[string]bool{}, files: []string{"pkg/a.go"}}
	var out bytes.Buffer
	o := newTestOrchestrator(client, repo, &out)
	o.Post = true
	o.runTool = func(context.Context, string, string, string) (string, error) {
		return "<response>[]</response>ok", nil
	}

	res, err := o.Run(context.Background(), "7")
	require.NoError(t, err)
	assert.False(t, res.Posted)
	assert.Empty(t, client.posted)
}

func TestFilterMessages(t *testing.T) {
	msgs := []gerrit.Message{
		{Message: "human words"},
		{Message: "robot words", Tag: "autogenerated:gerrit:merged"},
	}
	out := FilterMessages(msgs)
	require.Len(t, out, 1)
	assert.Equal(t, "human words", out[0].Message)
}

func TestSortCommentsOldestFirst(t *testing.T) {
	comments := []gerrit.Comment{
		{ID: "b", Updated: "2026-02-01 10:00:00.000000000"},
		{ID: "a", Updated: "2026-01-01 10:00:00.000000000"},
	}
	SortCommentsOldestFirst(comments)
	assert.Equal(t, "a", comments[0].ID)
}
