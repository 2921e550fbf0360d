// Package skills loads skill directories: a SKILL.md manifest plus the
// helper scripts detected next to it.
package skills

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/skillrun/skillrun/internal/scripts"
)

const (
	skillFileName   = "SKILL.md"
	maxSkillMDBytes = 2 << 20 // 2 MiB
)

// Skill is one loaded skill directory.
type Skill struct {
	// Name comes from frontmatter, falling back to the directory name.
	Name        string
	Version     string
	Description string
	// Dir is the skill's base directory, the containment boundary for all
	// of its scripts.
	Dir string
	// AllowedTools mirrors the frontmatter allow-list. Nil means the skill
	// declared no restriction; a non-nil list, even an empty one, restricts.
	AllowedTools []string
	// Body is the markdown instructions below the frontmatter.
	Body string

	detectOnce sync.Once
	detected   []*scripts.ScriptDescriptor
}

// Load reads and parses the SKILL.md of the skill directory at dir.
func Load(dir string) (*Skill, error) {
	path := filepath.Join(dir, skillFileName)

	// SKILL.md itself must be a plain file; a symlinked manifest could
	// describe a directory it does not live in.
	if lst, err := os.Lstat(path); err == nil {
		if lst.Mode()&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("%s must not be a symlink", skillFileName)
		}
		if !lst.Mode().IsRegular() {
			return nil, fmt.Errorf("%s must be a regular file", skillFileName)
		}
	}

	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}
	head, body, has, err := splitFrontmatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if !has {
		return nil, fmt.Errorf("%s has no YAML frontmatter", path)
	}

	var meta frontmatter
	if err := yaml.Unmarshal([]byte(head), &meta); err != nil {
		return nil, fmt.Errorf("invalid frontmatter in %s: %w", path, err)
	}

	name := strings.TrimSpace(meta.Name)
	if name == "" {
		name = filepath.Base(dir)
	}
	sk := &Skill{
		Name:        name,
		Version:     strings.TrimSpace(meta.Version),
		Description: strings.TrimSpace(meta.Description),
		Dir:         dir,
		Body:        strings.TrimLeft(body, "\r\n"),
	}
	if meta.AllowedTools != nil {
		sk.AllowedTools = []string(*meta.AllowedTools)
	}
	return sk, nil
}

// List loads every skill directory directly under root. Directories missing
// a SKILL.md are not skills; unloadable ones are logged and skipped.
func List(root string) ([]*Skill, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read skills root %s: %w", root, err)
	}
	var out []*Skill
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, skillFileName)); err != nil {
			continue
		}
		sk, err := Load(dir)
		if err != nil {
			slog.Warn("Skills: skipping unloadable skill", "dir", dir, "error", err)
			continue
		}
		out = append(out, sk)
	}
	return out, nil
}

// AllowsScriptExecution reports whether the skill's allow-list grants the
// script execution capability. A skill without an allow-list grants it.
func (s *Skill) AllowsScriptExecution() bool {
	if s.AllowedTools == nil {
		return true
	}
	for _, tool := range s.AllowedTools {
		if tool == scripts.ScriptExecutionCapability {
			return true
		}
	}
	return false
}

// Scripts returns the skill's helper scripts. Detection runs once per
// loaded skill; the descriptor list lives as long as the Skill does and is
// refreshed only by reloading the skill.
func (s *Skill) Scripts() []*scripts.ScriptDescriptor {
	s.detectOnce.Do(func() {
		s.detected = scripts.Detect(s.Dir)
	})
	return s.detected
}

// FindScript returns the detected script with the given name.
func (s *Skill) FindScript(name string) (*scripts.ScriptDescriptor, bool) {
	for _, d := range s.Scripts() {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// RunRequest builds the execution request tying the script to this skill's
// directory, identity, and tool allow-list.
func (s *Skill) RunRequest(d *scripts.ScriptDescriptor, args any, timeoutSeconds int) scripts.ExecutionRequest {
	return scripts.ExecutionRequest{
		Script:         d,
		SkillDir:       s.Dir,
		SkillName:      s.Name,
		SkillVersion:   s.Version,
		AllowedTools:   s.AllowedTools,
		Arguments:      args,
		TimeoutSeconds: timeoutSeconds,
	}
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, int64(maxSkillMDBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > maxSkillMDBytes {
		return nil, errors.New(skillFileName + " too large (max 2 MiB)")
	}
	return data, nil
}
