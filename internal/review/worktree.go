package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Worktree is the scoped ephemeral checkout a review runs in. Paths embed
// pid and a monotonic timestamp so concurrent invocations never collide.
type Worktree struct {
	Path        string
	ChangeID    string
	OriginalCwd string
	Timestamp   time.Time
	PID         int

	repo     WorktreeRepo
	released bool
}

// WorktreeRepo is the slice of gitx the worktree lifecycle needs.
type WorktreeRepo interface {
	FetchRef(ctx context.Context, remote, ref string) error
	AddWorktree(ctx context.Context, path string) error
	RemoveWorktree(ctx context.Context, path string) error
}

// AcquireWorktree fetches ref from remote and checks it out into a fresh
// worktree, then moves the process there. Callers must arrange for
// Release to run on every exit path, normally via defer.
func AcquireWorktree(ctx context.Context, repo WorktreeRepo, remote, ref, changeID string) (*Worktree, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("reading working directory: %w", err)
	}

	now := time.Now()
	path := filepath.Join(os.TempDir(),
		fmt.Sprintf("gert-review-%s-%d-%d", changeID, os.Getpid(), now.UnixNano()))

	if err := repo.FetchRef(ctx, remote, ref); err != nil {
		return nil, err
	}
	if err := repo.AddWorktree(ctx, path); err != nil {
		return nil, err
	}
	if err := os.Chdir(path); err != nil {
		_ = repo.RemoveWorktree(ctx, path)
		return nil, fmt.Errorf("entering worktree: %w", err)
	}

	return &Worktree{
		Path:        path,
		ChangeID:    changeID,
		OriginalCwd: cwd,
		Timestamp:   now,
		PID:         os.Getpid(),
		repo:        repo,
	}, nil
}

// Release restores the original working directory and removes the
// worktree. It is idempotent, and it detaches from the caller's
// cancellation: an interrupt mid-review must not also abort cleanup.
func (w *Worktree) Release(ctx context.Context) {
	if w == nil || w.released {
		return
	}
	w.released = true
	ctx = context.WithoutCancel(ctx)
	_ = os.Chdir(w.OriginalCwd)
	if err := w.repo.RemoveWorktree(ctx, w.Path); err != nil {
		// Fall back to a plain removal; a stale worktree registration
		// is only cosmetic.
		_ = os.RemoveAll(w.Path)
	}
}
