// Package diffview parses the unified diff Gerrit serves for a revision
// and renders it for the diff command.
package diffview

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/bmatcuk/doublestar/v4"
)

// File is a single file in a patch with its parsed fragments.
type File struct {
	OldName   string
	NewName   string
	IsNew     bool
	IsDeleted bool
	IsRenamed bool
	IsBinary  bool
	Added     int
	Deleted   int
	Fragments []*gitdiff.TextFragment
}

// Name returns the display name for the file.
func (f *File) Name() string {
	if f.IsRenamed {
		return fmt.Sprintf("%s → %s", f.OldName, f.NewName)
	}
	if f.IsDeleted {
		return f.OldName
	}
	if f.NewName != "" {
		return f.NewName
	}
	return f.OldName
}

// Path returns the post-image path used for filtering.
func (f *File) Path() string {
	if f.IsDeleted {
		return f.OldName
	}
	if f.NewName != "" {
		return f.NewName
	}
	return f.OldName
}

// DiffSet holds the parsed patch for all files.
type DiffSet struct {
	Files []*File
	Raw   string
}

// Parse reads a unified diff into a DiffSet.
func Parse(raw string) (*DiffSet, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	ds := &DiffSet{Raw: raw}
	for _, f := range parsed {
		df := &File{
			OldName:   f.OldName,
			NewName:   f.NewName,
			IsNew:     f.IsNew,
			IsDeleted: f.IsDelete,
			IsRenamed: f.IsRename,
			IsBinary:  f.IsBinary,
		}
		for _, frag := range f.TextFragments {
			df.Fragments = append(df.Fragments, frag)
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					df.Added++
				case gitdiff.OpDelete:
					df.Deleted++
				}
			}
		}
		ds.Files = append(ds.Files, df)
	}
	return ds, nil
}

// Stats returns aggregate statistics.
func (ds *DiffSet) Stats() (files, added, deleted int) {
	files = len(ds.Files)
	for _, f := range ds.Files {
		added += f.Added
		deleted += f.Deleted
	}
	return
}

// Filter keeps files whose path matches the pattern: an exact path or a
// doublestar glob ("internal/**/*.go").
func (ds *DiffSet) Filter(pattern string) (*DiffSet, error) {
	if pattern == "" {
		return ds, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", pattern)
	}

	out := &DiffSet{Raw: ds.Raw}
	for _, f := range ds.Files {
		if f.Path() == pattern {
			out.Files = append(out.Files, f)
			continue
		}
		if ok, _ := doublestar.Match(pattern, f.Path()); ok {
			out.Files = append(out.Files, f)
		}
	}
	return out, nil
}

// FileNames lists the display names, for --files-only output.
func (ds *DiffSet) FileNames() []string {
	names := make([]string, 0, len(ds.Files))
	for _, f := range ds.Files {
		names = append(names, f.Name())
	}
	return names
}
