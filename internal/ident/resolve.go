package ident

import (
	"errors"
	"fmt"
)

// ErrNoChangeID reports that no change identifier could be determined from
// either the command line or the working tree.
var ErrNoChangeID = errors.New("no change identifier: pass a change number, Change-Id, or URL, or run inside a checkout whose HEAD carries a Change-Id footer")

// HeadReader is the one working-tree read the resolver needs.
type HeadReader interface {
	HeadCommitMessage() (string, error)
}

// Resolved is the outcome of change resolution: a valid Ref plus the
// patchset when the input URL named one.
type Resolved struct {
	Ref      Ref
	Patchset int
}

// Resolve turns optional raw user input into a canonical change reference.
// Order: review URL, explicit number/Change-Id, then the Change-Id footer of
// HEAD when a repository is available. head may be nil outside a repository.
func Resolve(raw string, head HeadReader) (Resolved, error) {
	if raw != "" {
		if p, ok := ParseURL(raw); ok {
			return Resolved{Ref: Ref{Kind: Number, Value: p.ChangeNumber}, Patchset: p.Patchset}, nil
		}
		ref := Classify(raw)
		if ref.Kind == Invalid {
			return Resolved{}, fmt.Errorf("unrecognized change identifier %q", truncate(raw, 64))
		}
		return Resolved{Ref: ref}, nil
	}

	if head == nil {
		return Resolved{}, ErrNoChangeID
	}
	msg, err := head.HeadCommitMessage()
	if err != nil {
		return Resolved{}, ErrNoChangeID
	}
	if id := FromCommitMessage(msg); id != "" {
		return Resolved{Ref: Ref{Kind: ChangeID, Value: id}}, nil
	}
	return Resolved{}, ErrNoChangeID
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
