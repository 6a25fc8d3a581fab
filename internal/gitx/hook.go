package gitx

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// CommitMsgHookPath returns <gitDir>/hooks/commit-msg.
func CommitMsgHookPath(gitDir string) string {
	return filepath.Join(gitDir, "hooks", "commit-msg")
}

// HookInstalled reports whether a commit-msg hook is already present.
func HookInstalled(gitDir string) bool {
	info, err := os.Stat(CommitMsgHookPath(gitDir))
	return err == nil && !info.IsDir()
}

// InstallCommitMsgHook writes the commit-msg hook, creating the hooks
// directory if needed. Installation is idempotent: identical content is
// left untouched. The content must be a script (start with "#!").
func InstallCommitMsgHook(gitDir string, content []byte) error {
	if !bytes.HasPrefix(content, []byte("#!")) {
		return fmt.Errorf("refusing to install commit-msg hook: content is not a script")
	}

	path := CommitMsgHookPath(gitDir)
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating hooks directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o755); err != nil {
		return fmt.Errorf("writing commit-msg hook: %w", err)
	}
	return nil
}
