// Package audit builds and persists structured records for every script
// invocation, successful or rejected.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Classification buckets an invocation by its outcome.
type Classification string

const (
	ClassificationSuccess  Classification = "success"
	ClassificationError    Classification = "error"
	ClassificationSignal   Classification = "signal"
	ClassificationTimeout  Classification = "timeout"
	ClassificationRejected Classification = "rejected"
)

// Record is one audit datum describing a script invocation. Raw argument
// payloads never appear in a record, only their digest and byte count.
type Record struct {
	ID             string         `json:"id"`
	Time           time.Time      `json:"time"`
	Skill          string         `json:"skill"`
	SkillVersion   string         `json:"skillVersion,omitempty"`
	Script         string         `json:"script"`
	Language       string         `json:"language,omitempty"`
	Interpreter    string         `json:"interpreter,omitempty"`
	Classification Classification `json:"classification"`
	ExitCode       int            `json:"exitCode"`
	Signal         string         `json:"signal,omitempty"`
	DurationMs     int64          `json:"durationMs"`
	StdoutBytes    int            `json:"stdoutBytes"`
	StderrBytes    int            `json:"stderrBytes"`
	Truncated      bool           `json:"truncated"`
	ArgsDigest     string         `json:"argsDigest,omitempty"`
	ArgsBytes      int            `json:"argsBytes,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Elevated reports whether the record warrants operator attention: any
// non-success classification or truncated output.
func (r Record) Elevated() bool {
	return r.Classification != ClassificationSuccess || r.Truncated
}

// Digest returns a short sha256 digest of the encoded argument payload plus
// its size. Empty payloads digest to "".
func Digest(encoded []byte) (string, int) {
	if len(encoded) == 0 {
		return "", 0
	}
	sum := sha256.Sum256(encoded)
	return "sha256:" + hex.EncodeToString(sum[:8]), len(encoded)
}

// Sink receives every audit record, typically to persist or publish it.
// Implementations must not block for long; sink errors are logged by the
// trail and never fail the execution that produced the record.
type Sink interface {
	Record(rec Record) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Record) error

func (f SinkFunc) Record(rec Record) error { return f(rec) }
