package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skillrun/skillrun/internal/scripts"
	"github.com/skillrun/skillrun/internal/skills"
)

// ScriptTool exposes one detected script of one skill as a callable tool.
// Tool calls go through the full execution pipeline: allow-list check, path
// validation, resource limits, and auditing.
type ScriptTool struct {
	skill    *skills.Skill
	script   *scripts.ScriptDescriptor
	executor *scripts.Executor
}

var _ Tool = (*ScriptTool)(nil)

// NewScriptTool wraps a detected script. The descriptor must come from the
// same skill directory.
func NewScriptTool(sk *skills.Skill, d *scripts.ScriptDescriptor, ex *scripts.Executor) *ScriptTool {
	return &ScriptTool{skill: sk, script: d, executor: ex}
}

// FromSkill builds one tool per detected script of the skill.
func FromSkill(sk *skills.Skill, ex *scripts.Executor) []Tool {
	detected := sk.Scripts()
	out := make([]Tool, 0, len(detected))
	for _, d := range detected {
		out = append(out, NewScriptTool(sk, d, ex))
	}
	return out
}

func (t *ScriptTool) Name() string {
	return sanitizeToolName(t.skill.Name + "_" + t.script.Name)
}

func (t *ScriptTool) Description() string {
	if desc := t.script.Description(); desc != "" {
		return desc
	}
	return fmt.Sprintf("Runs the %s script of the %s skill.", t.script.Name, t.skill.Name)
}

func (t *ScriptTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"arguments": map[string]any{
				"type":        "object",
				"description": "JSON value passed to the script on stdin.",
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "Execution timeout in seconds (default 30, max 600).",
			},
		},
	}
}

// Execute runs the script and returns the full execution result as JSON.
// Script failures come back inside the result; an error return means the
// invocation was refused.
func (t *ScriptTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	timeout := GetInt(params, "timeout_seconds", 0)
	req := t.skill.RunRequest(t.script, params["arguments"], timeout)
	res, err := t.executor.Execute(ctx, req)
	if err != nil {
		return "", err
	}
	payload, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode execution result: %w", err)
	}
	return string(payload), nil
}

// sanitizeToolName keeps names within the conventional function-call
// charset.
func sanitizeToolName(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
