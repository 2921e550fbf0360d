package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/skillrun/skillrun/internal/audit"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func record(id, skill string, class audit.Classification, at time.Time) audit.Record {
	return audit.Record{
		ID:             id,
		Time:           at,
		Skill:          skill,
		Script:         "scripts/run.sh",
		Language:       "shell",
		Classification: class,
		ExitCode:       0,
		DurationMs:     12,
		ArgsDigest:     "sha256:deadbeefdeadbeef",
		ArgsBytes:      27,
	}
}

func TestServiceRecordAndList(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	recs := []audit.Record{
		record("r1", "pdf-tools", audit.ClassificationSuccess, base),
		record("r2", "pdf-tools", audit.ClassificationError, base.Add(time.Minute)),
		record("r3", "converter", audit.ClassificationTimeout, base.Add(2*time.Minute)),
	}
	for _, rec := range recs {
		if err := svc.Record(rec); err != nil {
			t.Fatalf("Record %s: %v", rec.ID, err)
		}
	}

	rows, err := svc.List(Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("listed %d rows, want 3", len(rows))
	}
	if rows[0].ID != "r3" {
		t.Fatalf("newest first: rows[0].ID = %q", rows[0].ID)
	}
	if rows[0].Classification != "timeout" || rows[0].Skill != "converter" {
		t.Fatalf("row = %+v", rows[0])
	}
}

func TestServiceListFilters(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.Record(record("r1", "pdf-tools", audit.ClassificationSuccess, base))
	svc.Record(record("r2", "pdf-tools", audit.ClassificationError, base.Add(time.Minute)))
	svc.Record(record("r3", "converter", audit.ClassificationSuccess, base.Add(2*time.Minute)))

	bySkill, err := svc.List(Query{Skill: "pdf-tools"})
	if err != nil {
		t.Fatalf("List by skill: %v", err)
	}
	if len(bySkill) != 2 {
		t.Fatalf("skill filter returned %d rows", len(bySkill))
	}

	byClass, err := svc.List(Query{Classification: "error"})
	if err != nil {
		t.Fatalf("List by classification: %v", err)
	}
	if len(byClass) != 1 || byClass[0].ID != "r2" {
		t.Fatalf("classification filter = %+v", byClass)
	}

	since, err := svc.List(Query{Since: base.Add(90 * time.Second)})
	if err != nil {
		t.Fatalf("List since: %v", err)
	}
	if len(since) != 1 || since[0].ID != "r3" {
		t.Fatalf("since filter = %+v", since)
	}

	limited, err := svc.List(Query{Limit: 1})
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit ignored, got %d rows", len(limited))
	}
}

func TestServiceStats(t *testing.T) {
	svc := newTestService(t)
	base := time.Now().UTC()
	svc.Record(record("r1", "a", audit.ClassificationSuccess, base))
	svc.Record(record("r2", "a", audit.ClassificationSuccess, base))
	svc.Record(record("r3", "a", audit.ClassificationRejected, base))

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["success"] != 2 || stats["rejected"] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestServiceZeroTimeDefaultsToNow(t *testing.T) {
	svc := newTestService(t)
	rec := record("r1", "a", audit.ClassificationSuccess, time.Time{})
	if err := svc.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	rows, err := svc.List(Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].ExecutedAt.IsZero() {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestServiceReopenKeepsRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	svc, err := NewService(path)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.Record(record("r1", "a", audit.ClassificationSuccess, time.Now().UTC())); err != nil {
		t.Fatalf("Record: %v", err)
	}
	svc.Close()

	reopened, err := NewService(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	rows, err := reopened.List(Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("reopened db has %d rows", len(rows))
	}
}
