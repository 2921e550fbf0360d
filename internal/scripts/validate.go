package scripts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateScriptPath canonicalizes scriptPath and proves it names a regular,
// non-setid file inside baseDir after all symlinks are resolved. It returns
// the canonical absolute path on success. The check is pure: it reads the
// filesystem and nothing else, so callers may repeat it freely.
func ValidateScriptPath(scriptPath, baseDir string) (string, error) {
	base, err := canonicalDir(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve skill directory %s: %w", baseDir, err)
	}

	abs, err := filepath.Abs(scriptPath)
	if err != nil {
		return "", fmt.Errorf("resolve script path %s: %w", scriptPath, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve script path %s: %w", scriptPath, err)
	}

	if !within(base, canonical) {
		return "", &PathSecurityError{ScriptPath: canonical, BaseDir: base}
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return "", fmt.Errorf("stat script %s: %w", canonical, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("script %s is not a regular file (%s)", canonical, info.Mode())
	}
	if info.Mode()&(os.ModeSetuid|os.ModeSetgid) != 0 {
		return "", &ScriptPermissionError{Path: canonical, Mode: info.Mode()}
	}
	return canonical, nil
}

// canonicalDir resolves dir to an absolute, symlink-free directory path.
func canonicalDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("directory is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", resolved)
	}
	return resolved, nil
}

// within reports whether path sits at or under base. Both must already be
// canonical; the test is purely lexical.
func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	rel = filepath.Clean(rel)
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
