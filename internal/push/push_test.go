package push

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/gert/internal/gitx"
)

func TestBuildRefSpec(t *testing.T) {
	tests := []struct {
		name   string
		branch string
		opts   Options
		want   string
	}{
		{"bare", "main", Options{}, "refs/for/main"},
		{
			"topic wip reviewer",
			"main",
			Options{Topic: "feat", WIP: true, Reviewers: []string{"alice@ex.com"}},
			"refs/for/main%topic=feat,wip,r=alice@ex.com",
		},
		{
			"topic url-encoded",
			"main",
			Options{Topic: "feat x"},
			"refs/for/main%topic=feat+x",
		},
		{
			"everything",
			"release/1.0",
			Options{
				Topic:     "t",
				Ready:     true,
				Private:   true,
				Reviewers: []string{"a@ex.com", "b@ex.com"},
				CCs:       []string{"c@ex.com"},
				Hashtags:  []string{"perf", "hot fix"},
			},
			"refs/for/release/1.0%topic=t,ready,private,r=a@ex.com,r=b@ex.com,cc=c@ex.com,hashtag=perf,hashtag=hot+fix",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildRefSpec(tt.branch, tt.opts))
		})
	}
}

func TestValidateAddresses(t *testing.T) {
	assert.NoError(t, ValidateAddresses(Options{Reviewers: []string{"alice@ex.com"}}))
	assert.Error(t, ValidateAddresses(Options{Reviewers: []string{"not-an-email"}}))
	assert.Error(t, ValidateAddresses(Options{CCs: []string{"x@nodot"}}))
	assert.Error(t, ValidateAddresses(Options{CCs: []string{"two words@ex.com"}}))
}

func TestClassifyOutput(t *testing.T) {
	okOut := "remote: \nremote:   https://gerrit.example.com/c/proj/+/12345 fix the thing\nremote: \n"
	res, err := ClassifyOutput("refs/for/main", okOut, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://gerrit.example.com/c/proj/+/12345", res.URL)
	assert.False(t, res.UpToDate)

	res, err = ClassifyOutput("refs/for/main", "remote: ! [remote rejected] no new changes", errors.New("exit 1"))
	require.NoError(t, err)
	assert.True(t, res.UpToDate)

	_, err = ClassifyOutput("refs/for/main", "fatal: Authentication failed for ...", errors.New("exit 128"))
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "authentication")

	_, err = ClassifyOutput("refs/for/main", "! [remote rejected] prohibited by Gerrit: not permitted", errors.New("exit 1"))
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "prohibited")

	_, err = ClassifyOutput("refs/for/main", "something unexpected", errors.New("exit 1"))
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "something unexpected")
}

type fakeRepo struct {
	headMsg     string
	tracking    string
	gitDir      string
	amended     bool
	afterAmend  string
	mainExists  bool
	pushedSpec  string
	pushedDry   bool
	pushOut     string
	pushErr     error
}

func (f *fakeRepo) HeadCommitMessage() (string, error) {
	if f.amended && f.afterAmend != "" {
		return f.afterAmend, nil
	}
	return f.headMsg, nil
}
func (f *fakeRepo) TrackingBranch() (string, error)                { return f.tracking, nil }
func (f *fakeRepo) GitDir(context.Context) (string, error)         { return f.gitDir, nil }
func (f *fakeRepo) AmendKeepingMessage(context.Context) error      { f.amended = true; return nil }
func (f *fakeRepo) RemoteBranchExists(_ context.Context, _, b string) bool {
	return b == "main" && f.mainExists
}
func (f *fakeRepo) Push(_ context.Context, _, refspec string, dry bool) (string, error) {
	f.pushedSpec = refspec
	f.pushedDry = dry
	return f.pushOut, f.pushErr
}

const changeID = "Change-Id: I7e6bd99cb1045f5b1a1f4b96c8a1a8e4fe19f4aa"

func TestRunAssemblesScenarioRefspec(t *testing.T) {
	repo := &fakeRepo{
		headMsg:  "fix\n\n" + changeID + "\n",
		tracking: "origin/main",
		gitDir:   t.TempDir(),
		pushOut:  "remote:   https://g.example/c/p/+/1 fix",
	}
	p := &Pipeline{Repo: repo, Remote: "origin", Logf: func(string, ...any) {}}

	res, err := p.Run(context.Background(), Options{
		Reviewers: []string{"alice@ex.com"},
		Topic:     "feat",
		WIP:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "refs/for/main%topic=feat,wip,r=alice@ex.com", repo.pushedSpec)
	assert.Equal(t, "https://g.example/c/p/+/1", res.URL)
}

func TestRunValidatesEmailsBeforeAnyAction(t *testing.T) {
	repo := &fakeRepo{}
	p := &Pipeline{Repo: repo, Remote: "origin", Logf: func(string, ...any) {}}

	_, err := p.Run(context.Background(), Options{Reviewers: []string{"bogus"}})
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, repo.pushedSpec)
	assert.False(t, repo.amended)
}

func TestEnsureChangeIDProvisionsHook(t *testing.T) {
	hook := "#!/bin/sh\n# add change id\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tools/hooks/commit-msg", r.URL.Path)
		w.Write([]byte(hook))
	}))
	defer srv.Close()

	repo := &fakeRepo{
		headMsg:    "fix without footer\n",
		afterAmend: "fix without footer\n\n" + changeID + "\n",
		gitDir:     t.TempDir(),
	}
	p := &Pipeline{Repo: repo, Host: srv.URL, Remote: "origin", HTTP: srv.Client(), Logf: func(string, ...any) {}}

	require.NoError(t, p.EnsureChangeID(context.Background()))
	assert.True(t, repo.amended)
}

func TestEnsureChangeIDDoesNotAmendWhenHookAlreadyInstalled(t *testing.T) {
	gitDir := t.TempDir()
	require.NoError(t, gitx.InstallCommitMsgHook(gitDir, []byte("#!/bin/sh\n")))

	repo := &fakeRepo{headMsg: "no footer\n", gitDir: gitDir}
	p := &Pipeline{Repo: repo, Remote: "origin", Logf: func(string, ...any) {}}

	err := p.EnsureChangeID(context.Background())
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "--amend")
	assert.False(t, repo.amended, "HEAD must not be rewritten")
}

func TestEnsureChangeIDFailsWhenHookDoesNotHelp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#!/bin/sh\n"))
	}))
	defer srv.Close()

	repo := &fakeRepo{headMsg: "still no footer\n", gitDir: t.TempDir()}
	p := &Pipeline{Repo: repo, Host: srv.URL, Remote: "origin", HTTP: srv.Client(), Logf: func(string, ...any) {}}

	err := p.EnsureChangeID(context.Background())
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "--amend")
}

func TestEnsureChangeIDRejectsNonScriptHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login page</html>"))
	}))
	defer srv.Close()

	repo := &fakeRepo{headMsg: "no footer\n", gitDir: t.TempDir()}
	p := &Pipeline{Repo: repo, Host: srv.URL, Remote: "origin", HTTP: srv.Client(), Logf: func(string, ...any) {}}

	err := p.EnsureChangeID(context.Background())
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "not a commit-msg script")
}

func TestTargetBranch(t *testing.T) {
	repo := &fakeRepo{tracking: "origin/release/1.0"}
	p := &Pipeline{Repo: repo, Remote: "origin", Logf: func(string, ...any) {}}

	b, err := p.TargetBranch(context.Background(), "override")
	require.NoError(t, err)
	assert.Equal(t, "override", b)

	b, err = p.TargetBranch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "release/1.0", b)

	repo.tracking = ""
	repo.mainExists = true
	b, err = p.TargetBranch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "main", b)

	repo.mainExists = false
	b, err = p.TargetBranch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "master", b)
}
