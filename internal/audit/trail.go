package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Trail fans one audit record out to the process log, an append-only
// hash-chained JSONL file, and any attached sinks. A nil trail still logs.
type Trail struct {
	path string

	mu    sync.Mutex
	sinks []Sink
}

// NewTrail returns a trail appending to the JSONL file at path. An empty
// path disables file persistence but keeps logging and sink fan-out.
func NewTrail(path string, sinks ...Sink) *Trail {
	return &Trail{path: path, sinks: sinks}
}

// Attach adds a sink to the fan-out set.
func (t *Trail) Attach(sink Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, sink)
}

// Record logs the record at a severity matching its classification, appends
// it to the chained audit file, and forwards it to every sink. Persistence
// and sink failures are logged and swallowed; auditing never fails the
// execution that produced the record.
func (t *Trail) Record(rec Record) {
	logRecord(rec)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.path != "" {
		if err := appendChained(t.path, rec); err != nil {
			slog.Warn("Audit: chain append failed", "path", t.path, "error", err)
		}
	}
	for _, sink := range t.sinks {
		if err := sink.Record(rec); err != nil {
			slog.Warn("Audit: sink delivery failed", "error", err)
		}
	}
}

func logRecord(rec Record) {
	attrs := []any{
		"id", rec.ID,
		"skill", rec.Skill,
		"script", rec.Script,
		"classification", string(rec.Classification),
		"exit_code", rec.ExitCode,
		"duration_ms", rec.DurationMs,
	}
	if rec.Signal != "" {
		attrs = append(attrs, "signal", rec.Signal)
	}
	if rec.ArgsDigest != "" {
		attrs = append(attrs, "args_digest", rec.ArgsDigest, "args_bytes", rec.ArgsBytes)
	}
	if rec.Error != "" {
		attrs = append(attrs, "error", rec.Error)
	}
	switch {
	case rec.Classification == ClassificationRejected:
		slog.Error("Audit: script execution rejected", attrs...)
	case rec.Classification != ClassificationSuccess:
		slog.Warn("Audit: script execution failed", attrs...)
	case rec.Truncated:
		slog.Warn("Audit: script output truncated", attrs...)
	default:
		slog.Info("Audit: script executed", attrs...)
	}
}

// appendChained writes the record as one JSONL entry whose hash covers the
// entry plus the previous entry's hash, forming a tamper-evident chain.
func appendChained(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	entry, err := canonicalEntry(rec)
	if err != nil {
		return err
	}
	prev, err := lastChainHash(path)
	if err != nil {
		return err
	}
	if prev != "" {
		entry["prevHash"] = prev
	}
	sum, err := chainHash(entry)
	if err != nil {
		return err
	}
	entry["hash"] = sum
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

// canonicalEntry converts the record to a generic map so hashing sees the
// exact field set a later verification pass will unmarshal.
func canonicalEntry(rec Record) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var entry map[string]any
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	delete(entry, "hash")
	delete(entry, "prevHash")
	return entry, nil
}

// chainHash hashes the entry minus its own hash field. Map marshaling sorts
// keys, so the digest is deterministic.
func chainHash(entry map[string]any) (string, error) {
	scratch := make(map[string]any, len(entry))
	for k, v := range entry {
		if k == "hash" {
			continue
		}
		scratch[k] = v
	}
	raw, err := json.Marshal(scratch)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func lastChainHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()
	last := ""
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if last == "" {
		return "", nil
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(last), &entry); err != nil {
		return "", fmt.Errorf("corrupt trailing audit entry: %w", err)
	}
	sum, _ := entry["hash"].(string)
	return sum, nil
}

// Verify walks the chained audit file and recomputes every hash link. It
// returns the number of intact records and the first inconsistency found.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	prev := ""
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return count, fmt.Errorf("record %d: invalid JSON: %w", count+1, err)
		}
		gotPrev, _ := entry["prevHash"].(string)
		if gotPrev != prev {
			return count, fmt.Errorf("record %d: previous-hash link broken", count+1)
		}
		stored, _ := entry["hash"].(string)
		if stored == "" {
			return count, fmt.Errorf("record %d: missing hash", count+1)
		}
		sum, err := chainHash(entry)
		if err != nil {
			return count, fmt.Errorf("record %d: %w", count+1, err)
		}
		if sum != stored {
			return count, fmt.Errorf("record %d: hash mismatch", count+1)
		}
		prev = stored
		count++
	}
	if err := sc.Err(); err != nil {
		return count, err
	}
	return count, nil
}
