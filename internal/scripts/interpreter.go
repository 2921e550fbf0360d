package scripts

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// maxShebangBytes bounds how much of a file the shebang parser reads.
const maxShebangBytes = 256

// Interpreter is a resolved interpreter invocation: the absolute executable
// path plus the arguments that precede the script path on the command line.
type Interpreter struct {
	Path string
	Args []string
}

// Command returns the full argument vector for running scriptPath.
func (i Interpreter) Command(scriptPath string) []string {
	argv := make([]string, 0, len(i.Args)+2)
	argv = append(argv, i.Path)
	argv = append(argv, i.Args...)
	return append(argv, scriptPath)
}

// InterpreterCache memoizes successful PATH lookups keyed by interpreter
// base name. Safe for concurrent use. A nil cache means every resolution
// hits the PATH.
type InterpreterCache struct {
	mu    sync.RWMutex
	paths map[string]string
}

func NewInterpreterCache() *InterpreterCache {
	return &InterpreterCache{paths: make(map[string]string)}
}

func (c *InterpreterCache) get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	path, ok := c.paths[name]
	return path, ok
}

func (c *InterpreterCache) put(name, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[name] = path
}

// Reset drops all cached lookups, forcing fresh PATH resolution.
func (c *InterpreterCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = make(map[string]string)
}

// Resolver maps a script's language, or its shebang when the language is
// unknown, to an installed interpreter.
type Resolver struct {
	// Cache, when non-nil, memoizes successful lookups across resolutions.
	Cache *InterpreterCache

	// lookPath is swappable in tests. Defaults to exec.LookPath.
	lookPath func(string) (string, error)
}

func NewResolver() *Resolver {
	return &Resolver{Cache: NewInterpreterCache(), lookPath: exec.LookPath}
}

// Resolve finds an installed interpreter for the script at path. The
// language decides the interpreter family; when it is empty the file's
// leading #! directive decides instead. Candidate executables are probed in
// platform order and the first hit wins.
func (r *Resolver) Resolve(path string, lang Language) (Interpreter, error) {
	name := interpreterName(lang)
	if name == "" {
		name = shebangInterpreter(path)
	}
	if name == "" {
		return Interpreter{}, &InterpreterNotFoundError{Interpreter: "unknown", Platform: runtime.GOOS}
	}

	if r.Cache != nil {
		if found, ok := r.Cache.get(name); ok {
			return Interpreter{Path: found, Args: leadingArgs(name)}, nil
		}
	}

	look := r.lookPath
	if look == nil {
		look = exec.LookPath
	}
	candidates := candidateNames(name)
	for _, candidate := range candidates {
		found, err := look(candidate)
		if err != nil {
			continue
		}
		if r.Cache != nil {
			r.Cache.put(name, found)
		}
		return Interpreter{Path: found, Args: leadingArgs(name)}, nil
	}
	return Interpreter{}, &InterpreterNotFoundError{Interpreter: name, Candidates: candidates, Platform: runtime.GOOS}
}

// interpreterName returns the canonical interpreter base name for a
// language, or "" when the language carries no interpreter hint.
func interpreterName(lang Language) string {
	switch lang {
	case LanguagePython:
		return "python"
	case LanguageShell:
		return "bash"
	case LanguageJavaScript:
		return "node"
	case LanguageRuby:
		return "ruby"
	case LanguagePerl:
		return "perl"
	case LanguageBatch:
		return "cmd"
	case LanguagePowerShell:
		return "powershell"
	}
	return ""
}

// candidateNames expands an interpreter base name into the ordered
// executable names probed on this platform.
func candidateNames(name string) []string {
	switch name {
	case "python", "python3", "python2":
		if runtime.GOOS == "windows" {
			return []string{"py", "python", "python3"}
		}
		return []string{"python3", "python"}
	case "bash", "sh":
		return []string{"bash", "sh"}
	case "node", "nodejs":
		return []string{"node"}
	case "powershell", "pwsh":
		if runtime.GOOS == "windows" {
			return []string{"powershell", "pwsh"}
		}
		return []string{"pwsh"}
	default:
		return []string{name}
	}
}

// leadingArgs returns interpreter arguments inserted before the script path:
// unbuffered output for python, non-interactive invocation for cmd and
// powershell.
func leadingArgs(name string) []string {
	switch name {
	case "python", "python3", "python2", "py":
		return []string{"-u"}
	case "cmd":
		return []string{"/C"}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-File"}
	}
	return nil
}

// shebangInterpreter extracts the interpreter base name from a #! first
// line, reading at most maxShebangBytes. An env wrapper is skipped along
// with its flags. Returns "" when no usable directive exists.
func shebangInterpreter(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, maxShebangBytes)
	n, _ := io.ReadFull(f, buf)
	head := string(buf[:n])
	if !strings.HasPrefix(head, "#!") {
		return ""
	}
	line := head[2:]
	if idx := strings.IndexAny(line, "\r\n"); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	name := filepath.Base(fields[0])
	if name != "env" {
		return name
	}
	for _, tok := range fields[1:] {
		if strings.HasPrefix(tok, "-") {
			continue
		}
		return filepath.Base(tok)
	}
	return ""
}
