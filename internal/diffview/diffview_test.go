package diffview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/internal/server/handler.go b/internal/server/handler.go
index 1111111..2222222 100644
--- a/internal/server/handler.go
+++ b/internal/server/handler.go
@@ -1,4 +1,5 @@
 package server

+import "fmt"

-func old() {}
+func handle() { fmt.Println("hi") }
diff --git a/docs/notes.md b/docs/notes.md
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/docs/notes.md
@@ -0,0 +1,2 @@
+# Notes
+hello
`

func TestParse(t *testing.T) {
	ds, err := Parse(sampleDiff)
	require.NoError(t, err)
	require.Len(t, ds.Files, 2)

	h := ds.Files[0]
	assert.Equal(t, "internal/server/handler.go", h.Name())
	assert.Equal(t, 2, h.Added)
	assert.Equal(t, 1, h.Deleted)

	n := ds.Files[1]
	assert.True(t, n.IsNew)
	assert.Equal(t, "docs/notes.md", n.Name())
	assert.Equal(t, 2, n.Added)

	files, added, deleted := ds.Stats()
	assert.Equal(t, 2, files)
	assert.Equal(t, 4, added)
	assert.Equal(t, 1, deleted)
}

func TestParseBadInput(t *testing.T) {
	// Text with no recognizable file header yields zero files, not an
	// error; callers render an empty diff.
	ds, err := Parse("--- mangled\n+++ nope\n@@ garbage @@\n")
	require.NoError(t, err)
	assert.Empty(t, ds.Files)
}

func TestFilter(t *testing.T) {
	ds, err := Parse(sampleDiff)
	require.NoError(t, err)

	tests := []struct {
		pattern string
		want    []string
	}{
		{"internal/server/handler.go", []string{"internal/server/handler.go"}},
		{"internal/**/*.go", []string{"internal/server/handler.go"}},
		{"**/*.md", []string{"docs/notes.md"}},
		{"**", []string{"internal/server/handler.go", "docs/notes.md"}},
		{"cmd/**", []string{}},
		{"", []string{"internal/server/handler.go", "docs/notes.md"}},
	}
	for _, tt := range tests {
		got, err := ds.Filter(tt.pattern)
		require.NoError(t, err, tt.pattern)
		assert.Equal(t, tt.want, got.FileNames(), tt.pattern)
	}

	_, err = ds.Filter("internal/[")
	assert.Error(t, err)
}

func TestRenderText(t *testing.T) {
	ds, err := Parse(sampleDiff)
	require.NoError(t, err)

	out := RenderText(ds, false)
	assert.Contains(t, out, "=== internal/server/handler.go (+2 -1) ===")
	assert.Contains(t, out, "@@ -1,4 +1,5 @@")
	assert.Contains(t, out, "+import \"fmt\"")
	assert.Contains(t, out, "-func old() {}")
	assert.Contains(t, out, " package server")
}

func TestRenderStat(t *testing.T) {
	ds, err := Parse(sampleDiff)
	require.NoError(t, err)

	out := RenderStat(ds)
	assert.True(t, strings.HasPrefix(out, "2 file(s) changed, 4 insertions(+), 1 deletions(-)\n"))
	assert.Contains(t, out, "M internal/server/handler.go")
	assert.Contains(t, out, "A docs/notes.md")
}

func TestHighlightLineFallback(t *testing.T) {
	// Unknown extensions come back untouched.
	assert.Equal(t, "plain text", highlightLine("LICENSE.xyzzy", "plain text"))
}
