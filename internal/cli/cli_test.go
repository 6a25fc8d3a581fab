package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/gert/internal/gerrit"
)

func TestNormalizeNotify(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"none", "NONE", false},
		{"OWNER", "OWNER", false},
		{"owner-reviewers", "OWNER_REVIEWERS", false},
		{"owner_reviewers", "OWNER_REVIEWERS", false},
		{" all ", "ALL", false},
		{"everyone", "", true},
	}
	for _, tt := range tests {
		got, err := normalizeNotify(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseVoteLabels(t *testing.T) {
	labels, err := parseVoteLabels("2", "", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Code-Review": 2}, labels)

	labels, err = parseVoteLabels("-1", "1", []string{"Priority=1", "QA-Review=-1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Code-Review": -1, "Verified": 1, "Priority": 1, "QA-Review": -1}, labels)

	_, err = parseVoteLabels("", "", nil)
	assert.Error(t, err, "at least one label is required")

	_, err = parseVoteLabels("two", "", nil)
	assert.Error(t, err, "non-integer vote")

	_, err = parseVoteLabels("", "", []string{"Priority"})
	assert.Error(t, err, "missing =")

	_, err = parseVoteLabels("", "", []string{"=1"})
	assert.Error(t, err, "empty name")

	_, err = parseVoteLabels("", "", []string{"Priority=high"})
	assert.Error(t, err, "non-integer value")
}

func TestVoteLabelFlagParsesDocumentedInvocation(t *testing.T) {
	// The help text's own example, including a negative vote, must survive
	// flag parsing with the change number left as the positional argument.
	require.NoError(t, voteCmd.ParseFlags(
		[]string{"12345", "--label", "Priority=1", "--label", "QA-Review=-1"}))

	custom, err := voteCmd.Flags().GetStringSlice("label")
	require.NoError(t, err)
	assert.Equal(t, []string{"12345"}, voteCmd.Flags().Args())

	labels, err := parseVoteLabels("", "", custom)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Priority": 1, "QA-Review": -1}, labels)
}

func TestCompileURLFilterGuards(t *testing.T) {
	// Substring matching is case-insensitive and never rejected.
	match, err := compileURLFilter("JENKINS", false)
	require.NoError(t, err)
	assert.True(t, match("https://ci.example.com/jenkins/build/7"))
	assert.False(t, match("https://ci.example.com/other"))

	_, err = compileURLFilter("(a+)+", true)
	assert.Error(t, err, "nested quantified group")

	_, err = compileURLFilter("[ab]++", true)
	assert.Error(t, err, "stacked quantifiers")

	_, err = compileURLFilter(strings.Repeat("a", 501), true)
	assert.Error(t, err, "over-long pattern")

	match, err = compileURLFilter(`build/[0-9]+`, true)
	require.NoError(t, err)
	assert.True(t, match("https://ci.example.com/build/42"))
}

func TestExtractURLsOrderAndDedup(t *testing.T) {
	sources := []datedText{
		{date: "2026-02-01 10:00:00", text: "later https://b.example/x."},
		{date: "2026-01-01 10:00:00", text: "first https://a.example/y and https://b.example/x"},
	}
	match := func(string) bool { return true }
	urls := extractURLs(sources, match)
	assert.Equal(t, []string{"https://a.example/y", "https://b.example/x"}, urls,
		"oldest first, duplicates collapsed, trailing punctuation stripped")
}

func TestSubmitBlockers(t *testing.T) {
	ch := &gerrit.Change{
		Status:         gerrit.StatusNew,
		WorkInProgress: true,
		Labels:         map[string]gerrit.Label{"Code-Review": {Value: 1}},
	}
	reasons := submitBlockers(ch)
	assert.Equal(t, []string{
		"change is marked work-in-progress",
		"missing Code-Review+2",
		"missing Verified+1",
	}, reasons)

	ch = &gerrit.Change{
		Status: gerrit.StatusMerged,
		Labels: map[string]gerrit.Label{
			"Code-Review": {Value: 2},
			"Verified":    {Value: 1},
		},
	}
	reasons = submitBlockers(ch)
	assert.Equal(t, []string{"status is MERGED, not NEW"}, reasons)
}

func TestRenderChangeListGroupsByProject(t *testing.T) {
	changes := []gerrit.Change{
		{Number: 2, Project: "p-b", Subject: "second", Status: gerrit.StatusNew, Updated: "2026-01-02"},
		{Number: 1, Project: "p-a", Subject: "first", Status: gerrit.StatusNew, Updated: "2026-01-01"},
		{Number: 3, Project: "p-a", Subject: "third", Status: gerrit.StatusNew, Updated: "2026-01-03"},
	}
	out := renderChangeList(changes, false)

	idxA := strings.Index(out, "p-a")
	idxB := strings.Index(out, "p-b")
	require.True(t, idxA >= 0 && idxB >= 0)
	assert.Less(t, idxA, idxB, "projects alphabetical")

	// Within p-a, newest updated first.
	assert.Less(t, strings.Index(out, "third"), strings.Index(out, "first"))
}

func TestReadBatchComments(t *testing.T) {
	in, err := readBatchComments(strings.NewReader(
		`[{"path":"a.go","line":3,"message":"m"},
		  {"path":"a.go","range":{"start_line":1,"end_line":2},"message":"n"}]`))
	require.NoError(t, err)
	require.Len(t, in.Comments["a.go"], 2)
	assert.Empty(t, in.Comments["a.go"][0].Path, "path moves to the map key")

	_, err = readBatchComments(strings.NewReader(`[{"path":"a.go","message":"m"}]`))
	assert.Error(t, err, "neither line nor range")

	_, err = readBatchComments(strings.NewReader(
		`[{"path":"a.go","line":1,"range":{"start_line":1,"end_line":2},"message":"m"}]`))
	assert.Error(t, err, "both line and range")

	_, err = readBatchComments(strings.NewReader(`[]`))
	assert.Error(t, err, "empty batch")

	_, err = readBatchComments(strings.NewReader(`{"path":"a.go"}`))
	assert.Error(t, err, "not an array")
}

func TestVoteSummaryStable(t *testing.T) {
	labels := map[string]gerrit.Label{
		"Verified":    {Value: -1},
		"Code-Review": {Value: 2},
		"Style":       {Value: 0},
	}
	assert.Equal(t, "CR+2 V-1", voteSummary(labels, false), "sorted, zero votes omitted")
}

func TestFlagArgs(t *testing.T) {
	assert.Nil(t, flagArgs(""))
	assert.Equal(t, []string{"12345"}, flagArgs("12345"))
}
