package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sprite-ai/gert/internal/gerrit"
)

// DefaultUserPrompt is used when the caller supplies none.
const DefaultUserPrompt = "Review this change for correctness, clarity, and maintainability. Point out bugs, risky edge cases, and places where the code contradicts its own conventions. Be specific and brief."

const inlineSystemPrompt = `You are reviewing a Gerrit change inside a git worktree checked out at the patchset under review.
Respond with ONLY a JSON array wrapped in <response></response> tags. Each element:
  {"file": "<path as listed in CHANGED FILES>", "line": <int>, "message": "<comment>"}
or with "range": {"start_line": <int>, "end_line": <int>} instead of "line".
Use paths exactly as listed. An empty array [] means no inline comments.`

const overallSystemPrompt = `You are reviewing a Gerrit change inside a git worktree checked out at the patchset under review.
Write a short overall review: what the change does, what is good, and what needs attention. Plain text, no JSON, no tags.`

// Metadata is the change context embedded in both prompts.
type Metadata struct {
	Change       *gerrit.Change
	Comments     []gerrit.Comment // sorted oldest first
	Messages     []gerrit.Message // review messages, autogenerated noise removed
	ChangedFiles []string
}

// FilterMessages drops autogenerated message noise (tagged entries) and
// keeps human review messages in server order.
func FilterMessages(msgs []gerrit.Message) []gerrit.Message {
	var out []gerrit.Message
	for _, m := range msgs {
		if strings.HasPrefix(m.Tag, "autogenerated:") {
			continue
		}
		out = append(out, m)
	}
	return out
}

// SortCommentsOldestFirst orders comments by their update time.
func SortCommentsOldestFirst(comments []gerrit.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Updated < comments[j].Updated
	})
}

// BuildPrompt assembles one prompt: user intent, system contract, then
// the structured change context.
func BuildPrompt(userPrompt, systemPrompt string, meta Metadata) string {
	if userPrompt == "" {
		userPrompt = DefaultUserPrompt
	}

	var b strings.Builder
	b.WriteString(userPrompt)
	b.WriteString("\n\n=== INSTRUCTIONS ===\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n=== CHANGE ===\n")
	ch := meta.Change
	fmt.Fprintf(&b, "Project: %s\nBranch: %s\nStatus: %s\nSubject: %s\nAuthor: %s\n",
		ch.Project, ch.Branch, ch.Status, ch.Subject, ch.Owner.Display())
	if ch.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", ch.Topic)
	}

	if len(meta.Comments) > 0 {
		b.WriteString("\n=== EXISTING INLINE COMMENTS (oldest first) ===\n")
		for _, c := range meta.Comments {
			loc := c.Path
			if c.Line > 0 {
				loc = fmt.Sprintf("%s:%d", c.Path, c.Line)
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", c.Author.Display(), loc, c.Message)
		}
	}

	if len(meta.Messages) > 0 {
		b.WriteString("\n=== REVIEW MESSAGES ===\n")
		for _, m := range meta.Messages {
			fmt.Fprintf(&b, "- [%s] %s\n", m.Author.Display(), strings.TrimSpace(m.Message))
		}
	}

	b.WriteString("\n=== CHANGED FILES ===\n")
	for _, f := range meta.ChangedFiles {
		b.WriteString(f)
		b.WriteByte('\n')
	}

	b.WriteString("\nYou may inspect the checkout with read-only git commands (git log, git show, git diff HEAD~1) and by reading files.\n")
	return b.String()
}

// BuildInlinePrompt is the first pass: structured inline comments.
func BuildInlinePrompt(userPrompt string, meta Metadata) string {
	return BuildPrompt(userPrompt, inlineSystemPrompt, meta)
}

// BuildOverallPrompt is the second pass: the narrative review.
func BuildOverallPrompt(userPrompt string, meta Metadata) string {
	return BuildPrompt(userPrompt, overallSystemPrompt, meta)
}
