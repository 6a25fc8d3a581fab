// Package checkout implements `gert checkout`: fetch a change's patchset
// and put the working tree on it, either on a review/<n> branch or
// detached.
package checkout

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/gitx"
	"github.com/sprite-ai/gert/internal/ident"
)

// Target is the parsed command-line argument.
type Target struct {
	ID       string // change identifier handed to the REST adapter
	Patchset int    // 0 means current
}

var shorthandRE = regexp.MustCompile(`^(\d+)/(\d+)$`)

// ParseTarget accepts a review URL, the NNN/M shorthand, or a plain
// change number / Change-Id.
func ParseTarget(raw string) (Target, error) {
	if p, ok := ident.ParseURL(raw); ok {
		return Target{ID: p.ChangeNumber, Patchset: p.Patchset}, nil
	}
	if m := shorthandRE.FindStringSubmatch(raw); m != nil {
		ps, err := strconv.Atoi(m[2])
		if err != nil || ps <= 0 {
			return Target{}, fmt.Errorf("invalid patchset in %q", raw)
		}
		num := ident.Classify(m[1])
		if num.Kind != ident.Number {
			return Target{}, fmt.Errorf("invalid change number in %q", raw)
		}
		return Target{ID: num.Value, Patchset: ps}, nil
	}
	ref := ident.Classify(raw)
	if ref.Kind == ident.Invalid {
		return Target{}, fmt.Errorf("unrecognized change %q", raw)
	}
	return Target{ID: ref.Value}, nil
}

// Client is the slice of the REST adapter the pipeline needs.
type Client interface {
	GetChange(ctx context.Context, id string, opts ...string) (*gerrit.Change, error)
	GetRevision(ctx context.Context, id, rev string) (*gerrit.Revision, error)
}

// Repo is the slice of gitx the pipeline needs; *gitx.Repo satisfies it.
type Repo interface {
	CurrentBranch() (string, error)
	BranchExists(branch string) bool
	FindMatchingRemote(host string) (string, error)
	FetchRef(ctx context.Context, remote, ref string) error
	CheckoutFetchHead(ctx context.Context) error
	SwitchBranch(ctx context.Context, branch string) error
	CreateBranchFromFetchHead(ctx context.Context, branch string) error
	ResetHardToFetchHead(ctx context.Context) error
	SetUpstream(ctx context.Context, branch, upstream string) error
}

// Pipeline carries one checkout invocation.
type Pipeline struct {
	Client Client
	Repo   Repo
	Host   string // normalized Gerrit host
	Remote string // explicit --remote, "" to auto-detect
	Detach bool
	Warnf  func(format string, args ...any)
}

// Result describes where the working tree ended up.
type Result struct {
	Change   *gerrit.Change
	Revision *gerrit.Revision
	Remote   string
	Branch   string // "" when detached
}

// Run resolves, fetches, and checks out the target.
func (p *Pipeline) Run(ctx context.Context, target Target) (*Result, error) {
	change, err := p.Client.GetChange(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	revision, err := p.revision(ctx, target, change)
	if err != nil {
		return nil, err
	}
	if err := gitx.ValidateChangeRef(revision.Ref); err != nil {
		return nil, err
	}

	remote, err := p.remote()
	if err != nil {
		return nil, err
	}
	if err := gitx.ValidateRefName("remote", remote); err != nil {
		return nil, err
	}

	if err := p.Repo.FetchRef(ctx, remote, revision.Ref); err != nil {
		return nil, err
	}

	if p.Detach {
		if err := p.Repo.CheckoutFetchHead(ctx); err != nil {
			return nil, err
		}
		return &Result{Change: change, Revision: revision, Remote: remote}, nil
	}

	branch := fmt.Sprintf("review/%d", change.Number)
	if err := gitx.ValidateRefName("branch", branch); err != nil {
		return nil, err
	}

	if p.Repo.BranchExists(branch) {
		current, err := p.Repo.CurrentBranch()
		if err != nil {
			return nil, err
		}
		if current != branch {
			if err := p.Repo.SwitchBranch(ctx, branch); err != nil {
				return nil, err
			}
		}
		if err := p.Repo.ResetHardToFetchHead(ctx); err != nil {
			return nil, err
		}
	} else {
		if err := p.Repo.CreateBranchFromFetchHead(ctx, branch); err != nil {
			return nil, err
		}
	}

	// Tracking the upstream branch is a convenience, not a requirement.
	if err := p.Repo.SetUpstream(ctx, branch, remote+"/"+change.Branch); err != nil {
		p.Warnf("could not set upstream to %s/%s: %v", remote, change.Branch, err)
	}

	return &Result{Change: change, Revision: revision, Remote: remote, Branch: branch}, nil
}

func (p *Pipeline) revision(ctx context.Context, target Target, change *gerrit.Change) (*gerrit.Revision, error) {
	if target.Patchset > 0 {
		return p.Client.GetRevision(ctx, target.ID, strconv.Itoa(target.Patchset))
	}
	if rev, ok := change.CurrentRevisionInfo(); ok {
		return &rev, nil
	}
	return p.Client.GetRevision(ctx, target.ID, "current")
}

func (p *Pipeline) remote() (string, error) {
	if p.Remote != "" {
		return p.Remote, nil
	}
	if remote, err := p.Repo.FindMatchingRemote(p.Host); err != nil {
		return "", err
	} else if remote != "" {
		return remote, nil
	}
	return "origin", nil
}
