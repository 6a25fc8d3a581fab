package gitx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRefName(t *testing.T) {
	good := []string{"origin", "review/12345", "feature-x", "a.b_c", "users/dev/wip"}
	for _, name := range good {
		assert.NoError(t, ValidateRefName("branch", name), name)
	}

	bad := []string{"", "a b", "x;rm -rf /", "ref\nname", "--upload-pack=evil", "$(id)"}
	for _, name := range bad {
		err := ValidateRefName("branch", name)
		var invalid *InvalidInputError
		assert.ErrorAs(t, err, &invalid, name)
	}
}

func TestValidateRefNameTruncatesEcho(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = ';'
	}
	err := ValidateRefName("branch", string(long))
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 120)
}

func TestValidateChangeRef(t *testing.T) {
	assert.NoError(t, ValidateChangeRef("refs/changes/45/12345/3"))
	assert.NoError(t, ValidateChangeRef("refs/changes/01/1/1"))

	for _, ref := range []string{
		"refs/changes/5/12345/3",
		"refs/heads/main",
		"refs/changes/45/12345",
		"refs/changes/45/12345/3; rm",
		"FETCH_HEAD",
	} {
		assert.Error(t, ValidateChangeRef(ref), ref)
	}
}

func TestHostFromGitURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://gerrit.example.com/proj", "gerrit.example.com"},
		{"http://gerrit.example.com:8080/proj", "gerrit.example.com"},
		{"ssh://dev@gerrit.example.com:29418/proj", "gerrit.example.com"},
		{"git@gerrit.example.com:proj/repo.git", "gerrit.example.com"},
		{"gerrit.example.com", "gerrit.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HostFromGitURL(tt.in), tt.in)
	}
}

func TestInstallCommitMsgHook(t *testing.T) {
	gitDir := t.TempDir()
	content := []byte("#!/bin/sh\nexec true\n")

	require.NoError(t, InstallCommitMsgHook(gitDir, content))
	assert.True(t, HookInstalled(gitDir))

	path := CommitMsgHookPath(gitDir)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	// Idempotent on identical content.
	require.NoError(t, InstallCommitMsgHook(gitDir, content))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestInstallCommitMsgHookRejectsNonScript(t *testing.T) {
	gitDir := t.TempDir()
	err := InstallCommitMsgHook(gitDir, []byte("<html>404</html>"))
	require.Error(t, err)
	assert.False(t, HookInstalled(gitDir))
	_, statErr := os.Stat(filepath.Join(gitDir, "hooks", "commit-msg"))
	assert.True(t, os.IsNotExist(statErr))
}
