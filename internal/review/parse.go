package review

import (
	"encoding/json"
	"strings"

	"github.com/sprite-ai/gert/internal/gerrit"
)

// Marker prefixes every message this tool posts, so AI comments are
// recognizable and filterable on the server.
const Marker = "🤖 "

// Draft is one inline comment as emitted by the AI tool. Exactly one of
// Line or Range must be set after validation.
type Draft struct {
	File    string               `json:"file"`
	Line    int                  `json:"line,omitempty"`
	Range   *gerrit.CommentRange `json:"range,omitempty"`
	Message string               `json:"message"`
}

// ExtractResponse pulls the payload out of the outermost
// <response>…</response> pair. Tools that skip the tags get the whole
// stdout back; the extractor is deliberately lenient.
func ExtractResponse(stdout string) string {
	start := strings.Index(stdout, "<response>")
	end := strings.LastIndex(stdout, "</response>")
	if start < 0 || end < 0 || end <= start {
		return strings.TrimSpace(stdout)
	}
	return strings.TrimSpace(stdout[start+len("<response>") : end])
}

// ParseDrafts decodes the inline-comment JSON array.
func ParseDrafts(payload string) ([]Draft, error) {
	var drafts []Draft
	if err := json.Unmarshal([]byte(payload), &drafts); err != nil {
		return nil, &StrategyError{Stage: "inline comments", Message: "AI response is not a JSON array of comments", Err: err}
	}
	return drafts, nil
}

// ValidateDrafts enforces the posting contract and repairs file paths
// against the changed-files list. Invalid drafts are dropped with a
// warning rather than failing the run.
func ValidateDrafts(drafts []Draft, changedFiles []string, warnf func(format string, args ...any)) []Draft {
	var valid []Draft
	for _, d := range drafts {
		if d.File == "" {
			warnf("dropping comment without a file: %.60q", d.Message)
			continue
		}
		hasLine := d.Line > 0
		hasRange := d.Range != nil && d.Range.StartLine > 0 && d.Range.EndLine >= d.Range.StartLine
		if hasLine == hasRange {
			warnf("dropping comment on %s: need exactly one of line or range", d.File)
			continue
		}
		if !strings.HasPrefix(d.Message, Marker) {
			d.Message = Marker + d.Message
		}

		file, ok := RepairPath(d.File, changedFiles, warnf)
		if !ok {
			continue
		}
		d.File = file
		valid = append(valid, d)
	}
	return valid
}

// RepairPath maps the AI's file path onto the changed-files list. An
// exact entry passes through; otherwise the path is matched as a
// normalized suffix with a '/' boundary. A unique match is corrected, a
// zero or ambiguous match drops the comment.
func RepairPath(file string, changedFiles []string, warnf func(format string, args ...any)) (string, bool) {
	normalized := strings.ReplaceAll(file, `\`, "/")
	for _, f := range changedFiles {
		if f == normalized {
			return f, true
		}
	}

	var matches []string
	for _, f := range changedFiles {
		if f == normalized || strings.HasSuffix(f, "/"+normalized) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 1:
		warnf("corrected comment path %q to %q", file, matches[0])
		return matches[0], true
	case 0:
		warnf("dropping comment: %q is not among the changed files", file)
		return "", false
	default:
		warnf("dropping comment: %q matches %d changed files", file, len(matches))
		return "", false
	}
}

// CommentsByPath groups validated drafts into the batch posting shape.
func CommentsByPath(drafts []Draft) map[string][]gerrit.CommentInput {
	byPath := map[string][]gerrit.CommentInput{}
	for _, d := range drafts {
		byPath[d.File] = append(byPath[d.File], gerrit.CommentInput{
			Line:    d.Line,
			Range:   d.Range,
			Message: d.Message,
		})
	}
	return byPath
}
