package diffview

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	addStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	delStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	binaryStyle  = lipgloss.NewStyle().Faint(true)
	chromaStyle  = "dracula"
	chromaFormat = "terminal256"
)

// RenderStat prints the diffstat block.
func RenderStat(ds *DiffSet) string {
	var b strings.Builder
	files, added, deleted := ds.Stats()
	fmt.Fprintf(&b, "%d file(s) changed, %d insertions(+), %d deletions(-)\n", files, added, deleted)
	for _, f := range ds.Files {
		status := "M"
		switch {
		case f.IsNew:
			status = "A"
		case f.IsDeleted:
			status = "D"
		case f.IsRenamed:
			status = "R"
		}
		fmt.Fprintf(&b, "  %s %-50s +%-4d -%d\n", status, f.Name(), f.Added, f.Deleted)
	}
	return b.String()
}

// RenderText prints the full diff. With color enabled, added and removed
// lines are tinted and context lines are syntax-highlighted by filename.
func RenderText(ds *DiffSet, color bool) string {
	var b strings.Builder
	for _, f := range ds.Files {
		header := fmt.Sprintf("=== %s (+%d -%d) ===", f.Name(), f.Added, f.Deleted)
		if color {
			header = headerStyle.Render(header)
		}
		b.WriteString(header)
		b.WriteByte('\n')

		if f.IsBinary {
			line := "    (binary file)"
			if color {
				line = binaryStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}

		for _, frag := range f.Fragments {
			hunk := fmt.Sprintf("@@ -%d,%d +%d,%d @@", frag.OldPosition, frag.OldLines, frag.NewPosition, frag.NewLines)
			if color {
				hunk = hunkStyle.Render(hunk)
			}
			b.WriteString(hunk)
			b.WriteByte('\n')

			for _, line := range frag.Lines {
				text := strings.TrimSuffix(line.Line, "\n")
				switch line.Op {
				case gitdiff.OpAdd:
					if color {
						b.WriteString(addStyle.Render("+" + text))
					} else {
						b.WriteString("+" + text)
					}
				case gitdiff.OpDelete:
					if color {
						b.WriteString(delStyle.Render("-" + text))
					} else {
						b.WriteString("-" + text)
					}
				default:
					if color {
						b.WriteString(" " + highlightLine(f.Path(), text))
					} else {
						b.WriteString(" " + text)
					}
				}
				b.WriteByte('\n')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// highlightLine syntax-highlights one source line for terminal output.
// Unknown file types and tokenizer errors fall back to plain text.
func highlightLine(filename, line string) string {
	lexer := lexers.Match(filename)
	if lexer == nil {
		return line
	}
	style := styles.Get(chromaStyle)
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get(chromaFormat)
	if formatter == nil {
		return line
	}

	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return line
	}
	return strings.TrimSuffix(b.String(), "\n")
}
