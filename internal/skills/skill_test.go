package skills

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/skillrun/skillrun/internal/scripts"
)

func writeSkill(t *testing.T, root, dirName, skillMD string) string {
	t.Helper()
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, skillFileName), []byte(skillMD), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

const pdfSkillMD = `---
name: pdf-tools
version: 1.2.0
description: Extracts text and tables from PDF files.
allowed-tools:
  - Read
  - Bash
---

# PDF tools

Use the extract script for text extraction.
`

func TestLoadSkill(t *testing.T) {
	dir := writeSkill(t, t.TempDir(), "pdf", pdfSkillMD)

	sk, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sk.Name != "pdf-tools" || sk.Version != "1.2.0" {
		t.Fatalf("skill = %+v", sk)
	}
	if sk.Description != "Extracts text and tables from PDF files." {
		t.Fatalf("description = %q", sk.Description)
	}
	if len(sk.AllowedTools) != 2 || sk.AllowedTools[1] != "Bash" {
		t.Fatalf("allowed tools = %v", sk.AllowedTools)
	}
	if !strings.HasPrefix(sk.Body, "# PDF tools") {
		t.Fatalf("body = %q", sk.Body)
	}
	if sk.Dir != dir {
		t.Fatalf("dir = %q", sk.Dir)
	}
}

func TestLoadSkillNameFallsBackToDirectory(t *testing.T) {
	dir := writeSkill(t, t.TempDir(), "unzip-helper", "---\ndescription: Unzips archives.\n---\nBody.\n")

	sk, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sk.Name != "unzip-helper" {
		t.Fatalf("name = %q, want directory basename", sk.Name)
	}
	if sk.AllowedTools != nil {
		t.Fatalf("absent allowed-tools must stay nil, got %v", sk.AllowedTools)
	}
}

func TestLoadSkillAllowedToolsAsString(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want []string
	}{
		{"comma separated", `allowed-tools: "Read, Bash, Grep"`, []string{"Read", "Bash", "Grep"}},
		{"space separated", `allowed-tools: Read Bash`, []string{"Read", "Bash"}},
		{"empty list", "allowed-tools: []", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeSkill(t, t.TempDir(), "s", "---\nname: s\n"+tc.yaml+"\n---\n")
			sk, err := Load(dir)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if sk.AllowedTools == nil {
				t.Fatal("declared allowed-tools must not load as nil")
			}
			if len(sk.AllowedTools) != len(tc.want) {
				t.Fatalf("allowed tools = %v, want %v", sk.AllowedTools, tc.want)
			}
			for i := range tc.want {
				if sk.AllowedTools[i] != tc.want[i] {
					t.Fatalf("allowed tools = %v, want %v", sk.AllowedTools, tc.want)
				}
			}
		})
	}
}

func TestLoadSkillErrors(t *testing.T) {
	root := t.TempDir()

	t.Run("missing SKILL.md", func(t *testing.T) {
		dir := filepath.Join(root, "empty")
		os.MkdirAll(dir, 0o755)
		if _, err := Load(dir); err == nil {
			t.Fatal("want error for missing SKILL.md")
		}
	})

	t.Run("no frontmatter", func(t *testing.T) {
		dir := writeSkill(t, root, "plain", "# Just markdown\n")
		if _, err := Load(dir); err == nil {
			t.Fatal("want error for missing frontmatter")
		}
	})

	t.Run("unterminated frontmatter", func(t *testing.T) {
		dir := writeSkill(t, root, "open", "---\nname: x\n")
		if _, err := Load(dir); err == nil {
			t.Fatal("want error for unterminated frontmatter")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		dir := writeSkill(t, root, "badyaml", "---\nname: [\n---\n")
		if _, err := Load(dir); err == nil {
			t.Fatal("want error for invalid yaml")
		}
	})

	t.Run("allowed-tools wrong shape", func(t *testing.T) {
		dir := writeSkill(t, root, "badtools", "---\nallowed-tools:\n  key: value\n---\n")
		if _, err := Load(dir); err == nil {
			t.Fatal("want error for mapping allowed-tools")
		}
	})
}

func TestLoadSkillRejectsSymlinkedManifest(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on windows")
	}
	root := t.TempDir()
	real := writeSkill(t, root, "real", pdfSkillMD)

	dir := filepath.Join(root, "fake")
	os.MkdirAll(dir, 0o755)
	if err := os.Symlink(filepath.Join(real, skillFileName), filepath.Join(dir, skillFileName)); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("symlinked SKILL.md must be rejected")
	}
}

func TestListSkipsNonSkills(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "good", pdfSkillMD)
	writeSkill(t, root, "broken", "---\nname: [\n---\n")
	os.MkdirAll(filepath.Join(root, "no-manifest"), 0o755)
	os.MkdirAll(filepath.Join(root, ".hidden"), 0o755)
	writeFile(t, root, "loose.txt", "not a directory\n")

	loaded, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "pdf-tools" {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestListMissingRoot(t *testing.T) {
	if _, err := List(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("missing root must error")
	}
}

func TestSkillScriptsCached(t *testing.T) {
	root := t.TempDir()
	dir := writeSkill(t, root, "pdf", pdfSkillMD)
	writeFile(t, dir, "extract.py", "# Extracts text.\nprint(1)\n")

	sk, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	first := sk.Scripts()
	if len(first) != 1 || first[0].Name != "extract" {
		t.Fatalf("scripts = %+v", first)
	}

	// New files after the first listing stay invisible until a reload.
	writeFile(t, dir, "later.py", "print(2)\n")
	if second := sk.Scripts(); len(second) != 1 {
		t.Fatalf("script list not cached: %d entries", len(second))
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Scripts(); len(got) != 2 {
		t.Fatalf("reloaded skill sees %d scripts, want 2", len(got))
	}
}

func TestFindScript(t *testing.T) {
	dir := writeSkill(t, t.TempDir(), "pdf", pdfSkillMD)
	writeFile(t, dir, "extract.py", "print(1)\n")

	sk, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := sk.FindScript("extract"); !ok {
		t.Fatal("extract not found")
	}
	if _, ok := sk.FindScript("ghost"); ok {
		t.Fatal("ghost should not be found")
	}
}

func TestAllowsScriptExecution(t *testing.T) {
	unrestricted := &Skill{Name: "a"}
	if !unrestricted.AllowsScriptExecution() {
		t.Fatal("nil allow-list grants execution")
	}
	granted := &Skill{Name: "b", AllowedTools: []string{"Read", scripts.ScriptExecutionCapability}}
	if !granted.AllowsScriptExecution() {
		t.Fatal("allow-list with the capability grants execution")
	}
	denied := &Skill{Name: "c", AllowedTools: []string{"Read"}}
	if denied.AllowsScriptExecution() {
		t.Fatal("allow-list without the capability denies execution")
	}
	empty := &Skill{Name: "d", AllowedTools: []string{}}
	if empty.AllowsScriptExecution() {
		t.Fatal("empty allow-list denies execution")
	}
}

func TestRunRequestCarriesSkillContext(t *testing.T) {
	dir := writeSkill(t, t.TempDir(), "pdf", pdfSkillMD)
	writeFile(t, dir, "extract.py", "print(1)\n")

	sk, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, _ := sk.FindScript("extract")
	req := sk.RunRequest(d, map[string]string{"file_path": "a.pdf"}, 60)

	if req.Script != d || req.SkillDir != sk.Dir {
		t.Fatalf("request = %+v", req)
	}
	if req.SkillName != "pdf-tools" || req.SkillVersion != "1.2.0" {
		t.Fatalf("request identity = %q %q", req.SkillName, req.SkillVersion)
	}
	if req.TimeoutSeconds != 60 {
		t.Fatalf("timeout = %d", req.TimeoutSeconds)
	}
	if len(req.AllowedTools) != 2 {
		t.Fatalf("allowed tools = %v", req.AllowedTools)
	}
}

func TestLoadSkillTooLarge(t *testing.T) {
	root := t.TempDir()
	big := "---\nname: big\n---\n" + strings.Repeat("x", maxSkillMDBytes)
	dir := writeSkill(t, root, "big", big)
	if _, err := Load(dir); err == nil {
		t.Fatal("oversized SKILL.md must be rejected")
	}
}

func TestSplitFrontmatterCRLF(t *testing.T) {
	head, body, has, err := splitFrontmatter("---\r\nname: x\r\n---\r\nBody text\r\n")
	if err != nil || !has {
		t.Fatalf("splitFrontmatter: %v, has=%v", err, has)
	}
	if !strings.Contains(head, "name: x") {
		t.Fatalf("head = %q", head)
	}
	if !strings.Contains(body, "Body text") {
		t.Fatalf("body = %q", body)
	}
}
