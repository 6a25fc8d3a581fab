// Package gitx integrates with the local git repository. Read-side
// plumbing goes through go-git; anything that mutates the tree or touches
// the network spawns the real git binary so semantics match the user's
// installation exactly.
package gitx

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repo is an open git repository rooted at the current working directory
// (or any parent containing .git).
type Repo struct {
	repo *gogit.Repository
	root string
}

// Open detects the enclosing repository. Returns ErrNotGitRepo when the
// working directory is not inside one.
func Open() (*Repo, error) {
	return OpenAt(".")
}

// OpenAt detects the repository enclosing dir.
func OpenAt(dir string) (*Repo, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, ErrNotGitRepo
	}
	root := dir
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	return &Repo{repo: repo, root: root}, nil
}

// Root returns the worktree root path.
func (r *Repo) Root() string { return r.root }

// GitDir returns the absolute common git directory (where hooks live,
// also for linked worktrees).
func (r *Repo) GitDir(ctx context.Context) (string, error) {
	out, err := runGit(ctx, r.root, ProbeTimeout, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(r.root, out)
	}
	return filepath.Clean(out), nil
}

// HeadCommitMessage returns the full message of HEAD.
func (r *Repo) HeadCommitMessage() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("reading HEAD commit: %w", err)
	}
	return commit.Message, nil
}

// CurrentBranch returns the short branch name, or "" on detached HEAD.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// TrackingBranch returns "remote/branch" for the current branch's
// upstream, or "" when none is configured.
func (r *Repo) TrackingBranch() (string, error) {
	branch, err := r.CurrentBranch()
	if err != nil || branch == "" {
		return "", err
	}
	cfg, err := r.repo.Config()
	if err != nil {
		return "", fmt.Errorf("reading git config: %w", err)
	}
	b, ok := cfg.Branches[branch]
	if !ok || b.Remote == "" || b.Merge == "" {
		return "", nil
	}
	return b.Remote + "/" + b.Merge.Short(), nil
}

// BranchExists reports whether a local branch exists.
func (r *Repo) BranchExists(branch string) bool {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), false)
	return err == nil
}

// Remotes returns remote name → URL.
func (r *Repo) Remotes() (map[string]string, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("listing remotes: %w", err)
	}
	out := make(map[string]string, len(remotes))
	for _, rem := range remotes {
		cfg := rem.Config()
		if len(cfg.URLs) > 0 {
			out[cfg.Name] = cfg.URLs[0]
		}
	}
	return out, nil
}

// FindMatchingRemote returns the name of the first remote whose hostname
// matches the given Gerrit host, or "" when none does. "origin" wins ties.
func (r *Repo) FindMatchingRemote(host string) (string, error) {
	want := HostFromGitURL(host)
	if want == "" {
		return "", nil
	}
	remotes, err := r.Remotes()
	if err != nil {
		return "", err
	}
	if u, ok := remotes["origin"]; ok && HostFromGitURL(u) == want {
		return "origin", nil
	}
	for name, u := range remotes {
		if HostFromGitURL(u) == want {
			return name, nil
		}
	}
	return "", nil
}

// HostFromGitURL extracts the hostname from a git remote URL in either
// URL form (https://host/path, ssh://user@host/path) or scp-like form
// (git@host:path).
func HostFromGitURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		return u.Hostname()
	}
	// scp-like: [user@]host:path
	if i := strings.Index(s, ":"); i > 0 {
		hostPart := s[:i]
		if j := strings.Index(hostPart, "@"); j >= 0 {
			hostPart = hostPart[j+1:]
		}
		return hostPart
	}
	return s
}

// RemoteBranchExists asks the remote whether a branch exists.
func (r *Repo) RemoteBranchExists(ctx context.Context, remote, branch string) bool {
	if ValidateRefName("remote", remote) != nil || ValidateRefName("branch", branch) != nil {
		return false
	}
	out, err := runGit(ctx, r.root, ProbeTimeout, "ls-remote", "--heads", remote, branch)
	return err == nil && strings.TrimSpace(out) != ""
}

// FetchRef fetches a validated Gerrit change ref from a remote.
func (r *Repo) FetchRef(ctx context.Context, remote, ref string) error {
	if err := ValidateRefName("remote", remote); err != nil {
		return err
	}
	if err := ValidateChangeRef(ref); err != nil {
		return err
	}
	_, err := runGit(ctx, r.root, FetchTimeout, "fetch", remote, ref)
	return err
}

// CheckoutFetchHead detaches HEAD at the last fetched ref.
func (r *Repo) CheckoutFetchHead(ctx context.Context) error {
	_, err := runGit(ctx, r.root, CheckoutTimeout, "checkout", "FETCH_HEAD")
	return err
}

// SwitchBranch checks out an existing local branch.
func (r *Repo) SwitchBranch(ctx context.Context, branch string) error {
	if err := ValidateRefName("branch", branch); err != nil {
		return err
	}
	_, err := runGit(ctx, r.root, CheckoutTimeout, "checkout", branch)
	return err
}

// CreateBranchFromFetchHead creates and checks out a branch at FETCH_HEAD.
func (r *Repo) CreateBranchFromFetchHead(ctx context.Context, branch string) error {
	if err := ValidateRefName("branch", branch); err != nil {
		return err
	}
	_, err := runGit(ctx, r.root, CheckoutTimeout, "checkout", "-b", branch, "FETCH_HEAD")
	return err
}

// ResetHardToFetchHead moves the current branch to the fetched ref.
func (r *Repo) ResetHardToFetchHead(ctx context.Context) error {
	_, err := runGit(ctx, r.root, CheckoutTimeout, "reset", "--hard", "FETCH_HEAD")
	return err
}

// SetUpstream points branch at the given remote-tracking ref.
func (r *Repo) SetUpstream(ctx context.Context, branch, upstream string) error {
	if err := ValidateRefName("branch", branch); err != nil {
		return err
	}
	if err := ValidateRefName("upstream", upstream); err != nil {
		return err
	}
	_, err := runGit(ctx, r.root, ProbeTimeout, "branch", "--set-upstream-to="+upstream, branch)
	return err
}

// AmendKeepingMessage re-commits HEAD with its message unchanged, which
// gives the commit-msg hook a chance to add a Change-Id footer.
func (r *Repo) AmendKeepingMessage(ctx context.Context) error {
	_, err := runGit(ctx, r.root, CheckoutTimeout, "commit", "--amend", "--no-edit")
	return err
}

// Push pushes HEAD to the given refspec and returns combined output even
// on failure, so callers can classify the server's response.
func (r *Repo) Push(ctx context.Context, remote, refspec string, dryRun bool) (string, error) {
	if err := ValidateRefName("remote", remote); err != nil {
		return "", err
	}
	args := []string{"push"}
	if dryRun {
		args = append(args, "--dry-run")
	}
	args = append(args, remote, "HEAD:"+refspec)
	return runGit(ctx, r.root, FetchTimeout, args...)
}

// AddWorktree creates a detached worktree at path pointing at FETCH_HEAD.
func (r *Repo) AddWorktree(ctx context.Context, path string) error {
	_, err := runGit(ctx, r.root, CheckoutTimeout, "worktree", "add", "--detach", path, "FETCH_HEAD")
	return err
}

// RemoveWorktree force-removes a worktree created by AddWorktree.
func (r *Repo) RemoveWorktree(ctx context.Context, path string) error {
	_, err := runGit(ctx, r.root, CheckoutTimeout, "worktree", "remove", "--force", path)
	return err
}

// ChangedFiles lists the paths touched by the commit at rev, relative to
// its first parent.
func (r *Repo) ChangedFiles(ctx context.Context, dir, rev string) ([]string, error) {
	if dir == "" {
		dir = r.root
	}
	out, err := runGit(ctx, dir, ProbeTimeout, "diff-tree", "--no-commit-id", "--name-only", "-r", rev)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}
