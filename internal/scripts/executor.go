package scripts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillrun/skillrun/internal/audit"
)

// Version is the runtime version exposed to scripts via SKILLRUN_VERSION.
// Injected at build time via -ldflags "-X github.com/skillrun/skillrun/internal/scripts.Version=x.y.z".
var Version = "dev"

// ScriptExecutionCapability is the allow-list entry that grants a skill the
// right to run its scripts.
const ScriptExecutionCapability = "Bash"

// Environment variables set for every executed script.
const (
	EnvSkillName    = "SKILLRUN_SKILL_NAME"
	EnvSkillDir     = "SKILLRUN_SKILL_DIR"
	EnvSkillVersion = "SKILLRUN_SKILL_VERSION"
	EnvVersion      = "SKILLRUN_VERSION"
)

const (
	defaultTimeoutSeconds = 30
	maxTimeoutSeconds     = 600

	// maxOutputBytes caps each captured stream; excess is discarded while
	// the script keeps a writable pipe.
	maxOutputBytes = 10 * 1024 * 1024
	// maxArgumentBytes caps the encoded argument payload.
	maxArgumentBytes = 10 * 1024 * 1024

	// killGracePeriod bounds the wait after a kill, so orphaned grandchildren
	// holding the output pipes cannot stall the caller.
	killGracePeriod = 5 * time.Second

	// timeoutExitCode mirrors the conventional exit code of timeout(1).
	timeoutExitCode = 124
	// signalExitCode marks signal termination; the Signal field carries the name.
	signalExitCode = -1
)

// ExecutionRequest describes one script invocation.
type ExecutionRequest struct {
	// Script must come from Detect on the same skill directory.
	Script *ScriptDescriptor
	// SkillDir is the skill's base directory; it becomes the working
	// directory and the containment boundary.
	SkillDir string
	// SkillName and SkillVersion are passed through to the script
	// environment and the audit record.
	SkillName    string
	SkillVersion string
	// AllowedTools is the skill's declared tool allow-list. Nil means
	// unrestricted; a non-nil list, even an empty one, restricts execution
	// to skills listing the script execution capability.
	AllowedTools []string
	// Arguments is an arbitrary JSON-marshalable value delivered on stdin.
	Arguments any
	// TimeoutSeconds defaults to 30 and is clamped to at most 600.
	TimeoutSeconds int
}

// ExecutionResult reports one completed script run. Script-level failures
// land here as data: a non-zero exit, a signal, or a timeout is a valid
// result, not an error.
type ExecutionResult struct {
	ID              string    `json:"id"`
	ScriptPath      string    `json:"scriptPath"`
	Interpreter     string    `json:"interpreter"`
	ExitCode        int       `json:"exitCode"`
	Signal          string    `json:"signal,omitempty"`
	TimedOut        bool      `json:"timedOut"`
	Stdout          string    `json:"stdout,omitempty"`
	Stderr          string    `json:"stderr,omitempty"`
	StdoutTruncated bool      `json:"stdoutTruncated"`
	StderrTruncated bool      `json:"stderrTruncated"`
	StartedAt       time.Time `json:"startedAt"`
	DurationMillis  int64     `json:"durationMillis"`
}

// Executor runs detected scripts through the validation gate sequence. The
// zero value is usable; Trail and Resolver are optional.
type Executor struct {
	// Resolver locates interpreters. Nil falls back to a fresh resolver per
	// call, losing lookup caching.
	Resolver *Resolver
	// Trail receives one audit record per invocation, including rejected
	// ones. A nil trail still logs every record.
	Trail *audit.Trail
}

// NewExecutor returns an executor with a caching resolver and the given
// audit trail.
func NewExecutor(trail *audit.Trail) *Executor {
	return &Executor{Resolver: NewResolver(), Trail: trail}
}

// Execute runs one script and blocks until it finishes or the timeout
// fires. An error return means the invocation was refused before the
// process started: tool restriction, path or permission validation,
// interpreter resolution, argument encoding, or the spawn itself. Every
// call, refused or not, produces exactly one audit record.
func (e *Executor) Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error) {
	if req.Script == nil {
		return nil, errors.New("script descriptor is required")
	}
	id := uuid.NewString()

	if err := checkToolRestriction(req); err != nil {
		e.reject(id, req, err)
		return nil, err
	}

	base, err := canonicalDir(req.SkillDir)
	if err != nil {
		err = fmt.Errorf("resolve skill directory %s: %w", req.SkillDir, err)
		e.reject(id, req, err)
		return nil, err
	}
	scriptPath, err := ValidateScriptPath(filepath.Join(base, filepath.FromSlash(req.Script.RelativePath)), base)
	if err != nil {
		e.reject(id, req, err)
		return nil, err
	}

	resolver := e.Resolver
	if resolver == nil {
		resolver = NewResolver()
	}
	interp, err := resolver.Resolve(scriptPath, req.Script.Language)
	if err != nil {
		e.reject(id, req, err)
		return nil, err
	}

	encoded, err := encodeArguments(req.Arguments)
	if err != nil {
		e.reject(id, req, err)
		return nil, err
	}

	timeout := normalizeTimeout(req.TimeoutSeconds)
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	argv := append(slices.Clone(interp.Args), scriptPath)
	cmd := exec.CommandContext(runCtx, interp.Path, argv...)
	cmd.Dir = base
	cmd.Env = append(os.Environ(),
		EnvSkillName+"="+req.SkillName,
		EnvSkillDir+"="+base,
		EnvSkillVersion+"="+req.SkillVersion,
		EnvVersion+"="+Version,
	)
	cmd.Stdin = bytes.NewReader(encoded)
	stdout := newLimitedBuffer(maxOutputBytes)
	stderr := newLimitedBuffer(maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setupProcessControl(cmd)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := &ExecutionResult{
		ID:              id,
		ScriptPath:      scriptPath,
		Interpreter:     interp.Path,
		Stdout:          renderStream(stdout, "stdout"),
		Stderr:          renderStream(stderr, "stderr"),
		StdoutTruncated: stdout.Truncated(),
		StderrTruncated: stderr.Truncated(),
		StartedAt:       start.UTC(),
		DurationMillis:  elapsed.Milliseconds(),
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		// The timeout kill arrives as SIGKILL; report it as a timeout, not
		// a signal termination.
		res.TimedOut = true
		res.ExitCode = timeoutExitCode
		res.Stderr = appendLine(res.Stderr, fmt.Sprintf("[script timed out after %ds]", timeout))
	case runErr == nil:
		res.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			err := fmt.Errorf("spawn %s: %w", interp.Path, runErr)
			e.reject(id, req, err)
			return nil, err
		}
		if sig, ok := terminationSignal(exitErr.ProcessState); ok {
			res.Signal = sig
			res.ExitCode = signalExitCode
		} else {
			res.ExitCode = exitErr.ExitCode()
		}
	}

	e.Trail.Record(executionRecord(id, req, res, encoded))
	return res, nil
}

func checkToolRestriction(req ExecutionRequest) error {
	if req.AllowedTools == nil {
		return nil
	}
	if slices.Contains(req.AllowedTools, ScriptExecutionCapability) {
		return nil
	}
	return &ToolRestrictionError{Skill: req.SkillName, Allowed: slices.Clone(req.AllowedTools)}
}

func encodeArguments(args any) ([]byte, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, &ArgumentSerializationError{Err: err}
	}
	if len(encoded) > maxArgumentBytes {
		return nil, &ArgumentSizeError{Size: len(encoded), Limit: maxArgumentBytes}
	}
	return encoded, nil
}

func normalizeTimeout(seconds int) int {
	if seconds <= 0 {
		return defaultTimeoutSeconds
	}
	if seconds > maxTimeoutSeconds {
		return maxTimeoutSeconds
	}
	return seconds
}

// renderStream converts captured bytes to a lossy UTF-8 string, appending a
// truncation marker when the cap was hit.
func renderStream(buf *limitedBuffer, name string) string {
	out := strings.ToValidUTF8(buf.String(), "�")
	if buf.Truncated() {
		out = appendLine(out, fmt.Sprintf("[%s truncated at %d bytes]", name, maxOutputBytes))
	}
	return out
}

func appendLine(s, line string) string {
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s + line
}

func (e *Executor) reject(id string, req ExecutionRequest, cause error) {
	e.Trail.Record(audit.Record{
		ID:             id,
		Time:           time.Now().UTC(),
		Skill:          req.SkillName,
		SkillVersion:   req.SkillVersion,
		Script:         req.Script.RelativePath,
		Language:       string(req.Script.Language),
		Classification: audit.ClassificationRejected,
		Error:          cause.Error(),
	})
}

func executionRecord(id string, req ExecutionRequest, res *ExecutionResult, encodedArgs []byte) audit.Record {
	digest, size := audit.Digest(encodedArgs)
	return audit.Record{
		ID:             id,
		Time:           res.StartedAt,
		Skill:          req.SkillName,
		SkillVersion:   req.SkillVersion,
		Script:         req.Script.RelativePath,
		Language:       string(req.Script.Language),
		Interpreter:    res.Interpreter,
		Classification: classify(res),
		ExitCode:       res.ExitCode,
		Signal:         res.Signal,
		DurationMs:     res.DurationMillis,
		StdoutBytes:    len(res.Stdout),
		StderrBytes:    len(res.Stderr),
		Truncated:      res.StdoutTruncated || res.StderrTruncated,
		ArgsDigest:     digest,
		ArgsBytes:      size,
	}
}

func classify(res *ExecutionResult) audit.Classification {
	switch {
	case res.TimedOut:
		return audit.ClassificationTimeout
	case res.Signal != "":
		return audit.ClassificationSignal
	case res.ExitCode != 0:
		return audit.ClassificationError
	default:
		return audit.ClassificationSuccess
	}
}

// limitedBuffer caps captured output at max bytes. Writes past the cap are
// discarded but still reported as written, so the child never sees a pipe
// error from its own verbosity.
type limitedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

var _ io.Writer = (*limitedBuffer)(nil)

func newLimitedBuffer(max int) *limitedBuffer {
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.max - b.buf.Len()
	if room <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string { return b.buf.String() }

// Truncated reports whether any bytes were discarded.
func (b *limitedBuffer) Truncated() bool { return b.truncated }
