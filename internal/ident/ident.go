// Package ident classifies and normalizes Gerrit change identifiers.
package ident

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind discriminates the accepted identifier forms.
type Kind int

const (
	// Invalid marks input that is neither a change number nor a Change-Id.
	Invalid Kind = iota
	// Number is a positive decimal change number.
	Number
	// ChangeID is an "I" followed by 40 lowercase hex digits.
	ChangeID
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case ChangeID:
		return "change-id"
	default:
		return "invalid"
	}
}

// Ref is a classified change identifier. For Number refs, Value carries the
// canonical decimal form with no leading zeros.
type Ref struct {
	Kind  Kind
	Value string
}

var (
	numberRE   = regexp.MustCompile(`^\d+$`)
	changeIDRE = regexp.MustCompile(`^I[0-9a-f]{40}$`)
	footerRE   = regexp.MustCompile(`(?im)^change-id:\s*(I[0-9a-f]{40})\s*$`)
)

// Classify canonicalizes raw input into a Ref. Classification is pure:
// whitespace is trimmed, numbers must be positive, Change-Ids are matched
// case-sensitively. Everything else is Invalid.
func Classify(raw string) Ref {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ref{Kind: Invalid}
	}
	if numberRE.MatchString(s) {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil || n == 0 {
			return Ref{Kind: Invalid}
		}
		return Ref{Kind: Number, Value: strconv.FormatUint(n, 10)}
	}
	if changeIDRE.MatchString(s) {
		return Ref{Kind: ChangeID, Value: s}
	}
	return Ref{Kind: Invalid}
}

// FromCommitMessage extracts the first Change-Id footer from a commit
// message. The footer must start a line; inline mentions are ignored.
// CRLF line endings are tolerated. Returns "" when no footer is present.
func FromCommitMessage(message string) string {
	m := footerRE.FindStringSubmatch(strings.ReplaceAll(message, "\r\n", "\n"))
	if m == nil {
		return ""
	}
	return m[1]
}

// NormalizeHost ensures the host has a scheme and no trailing slash.
// An embedded path (sub-path hosted Gerrit) is preserved.
func NormalizeHost(host string) string {
	h := strings.TrimSpace(host)
	if h == "" {
		return ""
	}
	if !strings.HasPrefix(h, "http://") && !strings.HasPrefix(h, "https://") {
		h = "https://" + h
	}
	return strings.TrimSuffix(h, "/")
}
