package tools

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/skillrun/skillrun/internal/audit"
	"github.com/skillrun/skillrun/internal/scripts"
	"github.com/skillrun/skillrun/internal/skills"
)

func testSkill(t *testing.T, skillMD string, files map[string]string) *skills.Skill {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(skillMD), 0o644); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	sk, err := skills.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return sk
}

const toolSkillMD = `---
name: pdf-tools
version: 0.3.0
description: PDF helpers.
---
Instructions.
`

func TestFromSkillBuildsOneToolPerScript(t *testing.T) {
	sk := testSkill(t, toolSkillMD, map[string]string{
		"scripts/extract.py": "# Extracts text from a PDF.\nprint(1)\n",
		"convert.sh":         "#!/bin/sh\necho hi\n",
	})
	ex := scripts.NewExecutor(audit.NewTrail(""))

	built := FromSkill(sk, ex)
	if len(built) != 2 {
		t.Fatalf("built %d tools, want 2", len(built))
	}

	reg := NewRegistry()
	for _, tool := range built {
		reg.Register(tool)
	}
	tool, ok := reg.Get("pdf-tools_extract")
	if !ok {
		names := make([]string, 0, len(built))
		for _, b := range built {
			names = append(names, b.Name())
		}
		t.Fatalf("extract tool not registered; have %v", names)
	}
	if tool.Description() != "Extracts text from a PDF." {
		t.Fatalf("description = %q", tool.Description())
	}
}

func TestScriptToolDescriptionFallback(t *testing.T) {
	sk := testSkill(t, toolSkillMD, map[string]string{"plain.sh": "echo hi\n"})
	ex := scripts.NewExecutor(audit.NewTrail(""))

	built := FromSkill(sk, ex)
	if len(built) != 1 {
		t.Fatalf("built %d tools", len(built))
	}
	if desc := built[0].Description(); !strings.Contains(desc, "plain") || !strings.Contains(desc, "pdf-tools") {
		t.Fatalf("fallback description = %q", desc)
	}
}

func TestScriptToolParametersSchema(t *testing.T) {
	sk := testSkill(t, toolSkillMD, map[string]string{"a.sh": "echo hi\n"})
	built := FromSkill(sk, scripts.NewExecutor(audit.NewTrail("")))

	params := built[0].Parameters()
	if params["type"] != "object" {
		t.Fatalf("schema type = %v", params["type"])
	}
	props, ok := params["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema properties = %v", params["properties"])
	}
	for _, key := range []string{"arguments", "timeout_seconds"} {
		if _, ok := props[key]; !ok {
			t.Fatalf("schema missing %q", key)
		}
	}
}

func TestScriptToolExecute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("drives a POSIX shell script")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell on PATH")
	}
	sk := testSkill(t, toolSkillMD, map[string]string{
		"echoargs.sh": "#!/bin/sh\ncat\n",
	})
	ex := scripts.NewExecutor(audit.NewTrail(""))
	built := FromSkill(sk, ex)

	out, err := built[0].Execute(context.Background(), map[string]any{
		"arguments": map[string]any{"file_path": "invoice.pdf"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var res scripts.ExecutionResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("tool output is not a JSON result: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit = %d, stderr %q", res.ExitCode, res.Stderr)
	}
	if !strings.Contains(res.Stdout, `"file_path":"invoice.pdf"`) {
		t.Fatalf("stdout = %q", res.Stdout)
	}
}

func TestScriptToolExecuteRefused(t *testing.T) {
	restricted := `---
name: locked
allowed-tools:
  - Read
---
`
	sk := testSkill(t, restricted, map[string]string{"x.sh": "#!/bin/sh\necho hi\n"})
	built := FromSkill(sk, scripts.NewExecutor(audit.NewTrail("")))

	if _, err := built[0].Execute(context.Background(), nil); err == nil {
		t.Fatal("restricted skill must refuse tool execution")
	}
}

func TestSanitizeToolName(t *testing.T) {
	cases := map[string]string{
		"pdf-tools_extract": "pdf-tools_extract",
		"my skill_run!":     "my_skill_run_",
		"π-tools_x":         "_-tools_x",
	}
	for in, want := range cases {
		if got := sanitizeToolName(in); got != want {
			t.Fatalf("sanitizeToolName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	sk := testSkill(t, toolSkillMD, map[string]string{"a.sh": "echo hi\n", "b.sh": "echo ho\n"})
	for _, tool := range FromSkill(sk, scripts.NewExecutor(audit.NewTrail(""))) {
		reg.Register(tool)
	}

	if len(reg.List()) != 2 {
		t.Fatalf("registry holds %d tools", len(reg.List()))
	}
	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("definitions = %d", len(defs))
	}
	if defs[0]["type"] != "function" {
		t.Fatalf("definition = %v", defs[0])
	}

	if _, err := reg.Execute(context.Background(), "missing", nil); err == nil {
		t.Fatal("unknown tool must error")
	}
}

func TestParamHelpers(t *testing.T) {
	params := map[string]any{"n": float64(7), "i": 3, "s": "x", "wrong": true}
	if GetInt(params, "n", 0) != 7 || GetInt(params, "i", 0) != 3 {
		t.Fatal("GetInt numeric conversion failed")
	}
	if GetInt(params, "missing", 42) != 42 || GetInt(params, "wrong", 42) != 42 {
		t.Fatal("GetInt default failed")
	}
	if GetString(params, "s", "") != "x" || GetString(params, "missing", "d") != "d" {
		t.Fatal("GetString failed")
	}
}
