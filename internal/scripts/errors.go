package scripts

import (
	"fmt"
	"os"
	"strings"
)

// ToolRestrictionError reports that a skill's tool allow-list does not grant
// the script execution capability.
type ToolRestrictionError struct {
	Skill   string
	Allowed []string
}

func (e *ToolRestrictionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return fmt.Sprintf("skill %q does not permit the %s tool (allowed tools: %s)", e.Skill, ScriptExecutionCapability, allowed)
}

// PathSecurityError reports a script path that resolves outside its skill
// directory after symlink resolution.
type PathSecurityError struct {
	ScriptPath string
	BaseDir    string
}

func (e *PathSecurityError) Error() string {
	return fmt.Sprintf("script path %q resolves outside the skill directory %q", e.ScriptPath, e.BaseDir)
}

// ScriptPermissionError reports a script file carrying setuid or setgid bits.
type ScriptPermissionError struct {
	Path string
	Mode os.FileMode
}

func (e *ScriptPermissionError) Error() string {
	return fmt.Sprintf("script %q has elevated permission bits (%s); refusing to execute", e.Path, e.Mode)
}

// InterpreterNotFoundError reports that no installed interpreter satisfies a
// script's language or shebang directive.
type InterpreterNotFoundError struct {
	Interpreter string
	Candidates  []string
	Platform    string
}

func (e *InterpreterNotFoundError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no %s interpreter available on %s", e.Interpreter, e.Platform)
	}
	return fmt.Sprintf("no %s interpreter available on %s (tried: %s)", e.Interpreter, e.Platform, strings.Join(e.Candidates, ", "))
}

// ArgumentSerializationError reports arguments that cannot be encoded as JSON.
type ArgumentSerializationError struct {
	Err error
}

func (e *ArgumentSerializationError) Error() string {
	return fmt.Sprintf("script arguments are not JSON-serializable: %v", e.Err)
}

func (e *ArgumentSerializationError) Unwrap() error { return e.Err }

// ArgumentSizeError reports an encoded argument payload over the size limit.
type ArgumentSizeError struct {
	Size  int
	Limit int
}

func (e *ArgumentSizeError) Error() string {
	return fmt.Sprintf("encoded script arguments are %d bytes, over the %d byte limit", e.Size, e.Limit)
}
