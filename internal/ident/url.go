package ident

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Gerrit serves both path-routed (/c/project/+/123) and hash-routed
// (/#/c/project/+/123) change URLs, plus a project-less short form.
var urlRE = regexp.MustCompile(`^https?://[^\s]+?/(?:#/)?c/(?:[^\s+]+/)?\+/(\d+)(?:/(\d+))?/?$`)

// ParsedURL is the result of extracting a change reference from a review URL.
type ParsedURL struct {
	ChangeNumber string
	Patchset     int // 0 when the URL names no patchset
}

// ParseURL extracts the change number (and optional patchset) from a Gerrit
// change URL. The second return is false when the input is not a recognized
// review URL; callers typically fall back to Classify on the raw input.
func ParseURL(raw string) (ParsedURL, bool) {
	s := strings.TrimSpace(raw)
	m := urlRE.FindStringSubmatch(s)
	if m == nil {
		return ParsedURL{}, false
	}
	p := ParsedURL{ChangeNumber: strings.TrimLeft(m[1], "0")}
	if p.ChangeNumber == "" {
		return ParsedURL{}, false
	}
	if m[2] != "" {
		ps, err := strconv.Atoi(m[2])
		if err != nil || ps <= 0 {
			return ParsedURL{}, false
		}
		p.Patchset = ps
	}
	return p, true
}

// ChangeURL composes the canonical URL for a change on the given host.
// Patchset 0 means "no patchset component".
func ChangeURL(host, project string, number int, patchset int) string {
	base := NormalizeHost(host)
	proj := strings.Trim(project, "/")
	var u string
	if proj == "" {
		u = fmt.Sprintf("%s/c/+/%d", base, number)
	} else {
		u = fmt.Sprintf("%s/c/%s/+/%d", base, proj, number)
	}
	if patchset > 0 {
		u += "/" + strconv.Itoa(patchset)
	}
	return u
}
