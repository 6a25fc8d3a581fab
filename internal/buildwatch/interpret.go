// Package buildwatch interprets a change's message stream as a CI state
// machine and drives the polling loop behind `gert build-status`.
package buildwatch

import (
	"regexp"

	"github.com/sprite-ai/gert/internal/gerrit"
)

// State is the observable build state of a change.
type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateSuccess  State = "success"
	StateFailure  State = "failure"
	StateNotFound State = "not_found"
)

// Terminal reports whether the state can no longer change without a new
// build being started.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure || s == StateNotFound
}

var (
	buildStartedRE  = regexp.MustCompile(`(?i)Build\s+Started`)
	verifiedPlusRE  = regexp.MustCompile(`Verified\s*\+\s*1`)
	verifiedMinusRE = regexp.MustCompile(`Verified\s*-\s*1`)
)

// Interpret folds a message stream into a State.
//
// The last Build-Started message anchors the current build. The first
// later Verified±1 decides the outcome. Revision numbers are compared
// only when both messages carry one; either side missing is tolerated.
// Dates are ISO-8601 and ordered lexicographically.
func Interpret(msgs []gerrit.Message) State {
	if len(msgs) == 0 {
		return StatePending
	}

	var started *gerrit.Message
	for i := range msgs {
		if buildStartedRE.MatchString(msgs[i].Message) {
			started = &msgs[i]
		}
	}
	if started == nil {
		return StatePending
	}

	for i := range msgs {
		m := &msgs[i]
		if m.Date <= started.Date {
			continue
		}
		if started.RevisionNumber != nil && m.RevisionNumber != nil &&
			*started.RevisionNumber != *m.RevisionNumber {
			continue
		}
		switch {
		case verifiedPlusRE.MatchString(m.Message):
			return StateSuccess
		case verifiedMinusRE.MatchString(m.Message):
			return StateFailure
		}
	}
	return StateRunning
}
