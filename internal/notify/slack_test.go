package notify

import (
	"strings"
	"testing"

	"github.com/skillrun/skillrun/internal/audit"
)

func TestRecordIgnoresPlainSuccess(t *testing.T) {
	// A success record never reaches the Slack API, so a notifier with no
	// usable client must still return nil.
	n := NewSlackNotifier("xoxb-invalid", "#ops")
	err := n.Record(audit.Record{Classification: audit.ClassificationSuccess})
	if err != nil {
		t.Fatalf("success record must be skipped, got %v", err)
	}
}

func TestFormatNotification(t *testing.T) {
	cases := []struct {
		name string
		rec  audit.Record
		want []string
	}{
		{
			name: "rejected",
			rec: audit.Record{
				Classification: audit.ClassificationRejected,
				Skill:          "pdf-tools",
				Script:         "scripts/extract.py",
				Error:          "path escapes skill directory",
			},
			want: []string{"rejected", "pdf-tools", "scripts/extract.py", "path escapes"},
		},
		{
			name: "timeout",
			rec: audit.Record{
				Classification: audit.ClassificationTimeout,
				Skill:          "pdf-tools",
				Script:         "slow.sh",
				DurationMs:     30000,
			},
			want: []string{"timed out", "30000"},
		},
		{
			name: "signal",
			rec: audit.Record{
				Classification: audit.ClassificationSignal,
				Skill:          "pdf-tools",
				Script:         "crash.sh",
				Signal:         "SIGSEGV",
			},
			want: []string{"SIGSEGV", "crash.sh"},
		},
		{
			name: "error",
			rec: audit.Record{
				Classification: audit.ClassificationError,
				Skill:          "pdf-tools",
				Script:         "fails.sh",
				ExitCode:       3,
			},
			want: []string{"exited with code 3"},
		},
		{
			name: "truncated success",
			rec: audit.Record{
				Classification: audit.ClassificationSuccess,
				Skill:          "pdf-tools",
				Script:         "chatty.sh",
				Truncated:      true,
			},
			want: []string{"truncated"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := formatNotification(tc.rec)
			for _, want := range tc.want {
				if !strings.Contains(got, want) {
					t.Fatalf("notification %q missing %q", got, want)
				}
			}
		})
	}
}
