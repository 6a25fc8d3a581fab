package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/gert/internal/gerrit"
	"github.com/sprite-ai/gert/internal/output"
)

var (
	mergedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	abandonedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Faint(true)
	openStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	projectStyle   = lipgloss.NewStyle().Bold(true)
	voteUpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	voteDownStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func statusGlyph(status string, color bool) string {
	glyph, style := "○", openStyle
	switch status {
	case gerrit.StatusMerged:
		glyph, style = "●", mergedStyle
	case gerrit.StatusAbandoned:
		glyph, style = "✕", abandonedStyle
	}
	if color {
		return style.Render(glyph)
	}
	return glyph
}

// voteSummary flattens labels into "CR+2 V-1" style fragments, sorted by
// label name for stable output.
func voteSummary(labels map[string]gerrit.Label, color bool) string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		l := labels[name]
		if l.Value == 0 {
			continue
		}
		abbr := labelAbbrev(name)
		frag := fmt.Sprintf("%s%+d", abbr, l.Value)
		if color {
			if l.Value > 0 {
				frag = voteUpStyle.Render(frag)
			} else {
				frag = voteDownStyle.Render(frag)
			}
		}
		parts = append(parts, frag)
	}
	return strings.Join(parts, " ")
}

func labelAbbrev(name string) string {
	switch name {
	case "Code-Review":
		return "CR"
	case "Verified":
		return "V"
	}
	return name
}

func changeLine(ch *gerrit.Change, color bool) string {
	line := fmt.Sprintf("%s %-7d %s", statusGlyph(ch.Status, color), ch.Number, ch.Subject)
	if votes := voteSummary(ch.Labels, color); votes != "" {
		line += "  [" + votes + "]"
	}
	if ch.Owner != nil {
		line += "  (" + ch.Owner.Display() + ")"
	}
	return line
}

// renderChangeList prints changes grouped by project (alphabetical), each
// group sorted by updated descending.
func renderChangeList(changes []gerrit.Change, color bool) string {
	byProject := map[string][]gerrit.Change{}
	for _, ch := range changes {
		byProject[ch.Project] = append(byProject[ch.Project], ch)
	}
	projects := make([]string, 0, len(byProject))
	for p := range byProject {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	var b strings.Builder
	for _, p := range projects {
		group := byProject[p]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Updated > group[j].Updated
		})
		header := p
		if color {
			header = projectStyle.Render(p)
		}
		b.WriteString(header)
		b.WriteByte('\n')
		for i := range group {
			b.WriteString("  " + changeLine(&group[i], color))
			b.WriteByte('\n')
		}
	}
	if len(changes) == 0 {
		b.WriteString("No changes.\n")
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func accountFields(a *gerrit.Account) output.Envelope {
	if a == nil {
		return nil
	}
	env := output.Envelope{}
	if a.AccountID != 0 {
		env["account_id"] = a.AccountID
	}
	if a.Name != "" {
		env["name"] = a.Name
	}
	if a.Email != "" {
		env["email"] = a.Email
	}
	if a.Username != "" {
		env["username"] = a.Username
	}
	return env
}

func changeFields(ch *gerrit.Change) output.Envelope {
	env := output.Envelope{
		"number":  ch.Number,
		"subject": ch.Subject,
		"status":  ch.Status,
		"project": ch.Project,
		"branch":  ch.Branch,
	}
	if ch.ChangeID != "" {
		env["change_id"] = ch.ChangeID
	}
	if ch.Topic != "" {
		env["topic"] = ch.Topic
	}
	if ch.Updated != "" {
		env["updated"] = ch.Updated
	}
	if owner := accountFields(ch.Owner); owner != nil {
		env["owner"] = owner
	}
	if ch.Insertions != 0 || ch.Deletions != 0 {
		env["insertions"] = ch.Insertions
		env["deletions"] = ch.Deletions
	}
	if len(ch.Labels) > 0 {
		labels := output.Envelope{}
		for name, l := range ch.Labels {
			labels[name] = l.Value
		}
		env["labels"] = labels
	}
	if reviewers := ch.Reviewers[gerrit.StateReviewer]; len(reviewers) > 0 {
		list := make([]output.Envelope, 0, len(reviewers))
		for i := range reviewers {
			list = append(list, accountFields(&reviewers[i]))
		}
		env["reviewers"] = list
	}
	if ccs := ch.Reviewers[gerrit.StateCC]; len(ccs) > 0 {
		list := make([]output.Envelope, 0, len(ccs))
		for i := range ccs {
			list = append(list, accountFields(&ccs[i]))
		}
		env["cc"] = list
	}
	return env
}

func accountElem(name string, a *gerrit.Account) *output.Elem {
	e := output.NewElem(name)
	if a == nil {
		return e
	}
	if a.Name != "" {
		e.ChildText("name", a.Name)
	}
	if a.Email != "" {
		e.ChildText("email", a.Email)
	}
	if a.Username != "" {
		e.ChildText("username", a.Username)
	}
	return e
}

func changeElem(ch *gerrit.Change) *output.Elem {
	e := output.NewElem("change").
		Attr("number", itoa(ch.Number)).
		Attr("status", ch.Status)
	e.ChildText("project", ch.Project)
	e.ChildText("branch", ch.Branch)
	e.ChildCDATA("subject", ch.Subject)
	if ch.ChangeID != "" {
		e.ChildText("change_id", ch.ChangeID)
	}
	if ch.Topic != "" {
		e.ChildText("topic", ch.Topic)
	}
	if ch.Updated != "" {
		e.ChildText("updated", ch.Updated)
	}
	if ch.Owner != nil {
		e.Append(accountElem("owner", ch.Owner))
	}
	if len(ch.Labels) > 0 {
		names := make([]string, 0, len(ch.Labels))
		for name := range ch.Labels {
			names = append(names, name)
		}
		sort.Strings(names)
		labels := e.Child("labels")
		for _, name := range names {
			labels.Child("label").
				Attr("name", name).
				Attr("value", itoa(ch.Labels[name].Value))
		}
	}
	for _, state := range []string{gerrit.StateReviewer, gerrit.StateCC} {
		accounts := ch.Reviewers[state]
		if len(accounts) == 0 {
			continue
		}
		group := e.Child("reviewers").Attr("state", state)
		for i := range accounts {
			group.Append(accountElem("reviewer", &accounts[i]))
		}
	}
	return e
}

// changeListDoc wraps a change list in an XML document.
func changeListDoc(changes []gerrit.Change) string {
	root := output.NewElem("changes").Attr("count", itoa(len(changes)))
	for i := range changes {
		root.Append(changeElem(&changes[i]))
	}
	return root.Render()
}

// emitChangeList renders a change list in the active format.
func emitChangeList(f output.Format, changes []gerrit.Change) error {
	switch f {
	case output.FormatXML:
		fmt.Println(changeListDoc(changes))
	case output.FormatJSON:
		list := make([]output.Envelope, 0, len(changes))
		for i := range changes {
			list = append(list, changeFields(&changes[i]))
		}
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"changes": list}))
	default:
		fmt.Print(renderChangeList(changes, stdoutIsTTY()))
	}
	return nil
}
