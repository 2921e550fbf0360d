package scripts

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	scriptsDirName = "scripts"
	// maxScanDepth bounds recursion below scripts/, counted in path
	// components: scripts/a/b.py is depth 2.
	maxScanDepth = 5
)

// excludedDirNames are directory names never descended into: build caches,
// dependency trees, and virtual environments.
var excludedDirNames = map[string]struct{}{
	"__pycache__":  {},
	"node_modules": {},
	".git":         {},
	"venv":         {},
	".venv":        {},
	"env":          {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"target":       {},
}

// Detect discovers executable helper scripts in a skill directory: the
// scripts/ subtree to a bounded depth, then the skill root without
// recursion. Hidden entries, symlinks, unsupported extensions, and excluded
// directories are skipped. Descriptor names are unique; on collision the
// first discovery wins. Detection never fails: unreadable entries are
// logged and skipped, and a missing directory yields an empty result.
func Detect(baseDir string) []*ScriptDescriptor {
	base, err := canonicalDir(baseDir)
	if err != nil {
		slog.Debug("Detect: skill directory unavailable", "dir", baseDir, "error", err)
		return nil
	}

	seen := make(map[string]struct{})
	var found []*ScriptDescriptor
	add := func(absPath string) {
		ext := filepath.Ext(absPath)
		lang, ok := LanguageForExtension(ext)
		if !ok {
			return
		}
		name := strings.TrimSuffix(filepath.Base(absPath), ext)
		if _, dup := seen[name]; dup {
			return
		}
		rel, err := filepath.Rel(base, absPath)
		if err != nil {
			return
		}
		seen[name] = struct{}{}
		found = append(found, &ScriptDescriptor{
			Name:         name,
			RelativePath: filepath.ToSlash(rel),
			Language:     lang,
			absPath:      absPath,
		})
	}

	scanScriptsTree(filepath.Join(base, scriptsDirName), add)
	scanRootFiles(base, add)
	return found
}

func scanScriptsTree(root string, add func(string)) {
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return filepath.SkipAll
			}
			slog.Warn("Detect: unreadable entry skipped", "path", path, "error", err)
			return nil
		}
		if entry.IsDir() {
			if path == root {
				return nil
			}
			name := entry.Name()
			if _, excluded := excludedDirNames[name]; excluded || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if scanDepth(root, path) >= maxScanDepth {
				return filepath.SkipDir
			}
			return nil
		}
		// Symlinks and special files are never executed, so they are not
		// detected either.
		if !entry.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		add(path)
		return nil
	})
}

// scanRootFiles picks up loose scripts next to SKILL.md. No recursion.
func scanRootFiles(base string, add func(string)) {
	entries, err := os.ReadDir(base)
	if err != nil {
		slog.Warn("Detect: skill root unreadable", "dir", base, "error", err)
		return
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		add(filepath.Join(base, entry.Name()))
	}
}

func scanDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}
