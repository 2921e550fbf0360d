// Package notify pushes operator notifications for failed or rejected
// script executions.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"github.com/skillrun/skillrun/internal/audit"
)

const (
	postTimeout  = 10 * time.Second
	postAttempts = 3
	postBackoff  = 200 * time.Millisecond
)

// SlackNotifier posts a short message to a Slack channel for every elevated
// execution record: failures, signals, timeouts, rejections, and truncated
// output. Successful runs stay quiet. It implements audit.Sink.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

var _ audit.Sink = (*SlackNotifier)(nil)

// NewSlackNotifier builds a notifier posting to the given channel.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{api: slack.New(token), channel: channel}
}

// Record posts a notification when the record is elevated.
func (n *SlackNotifier) Record(rec audit.Record) error {
	if !rec.Elevated() {
		return nil
	}
	text := formatNotification(rec)

	var lastErr error
	for attempt := 0; attempt < postAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * postBackoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
		_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("post slack notification: %w", lastErr)
}

func formatNotification(rec audit.Record) string {
	switch rec.Classification {
	case audit.ClassificationRejected:
		return fmt.Sprintf(":no_entry: script `%s` of skill `%s` was rejected: %s", rec.Script, rec.Skill, rec.Error)
	case audit.ClassificationTimeout:
		return fmt.Sprintf(":hourglass: script `%s` of skill `%s` timed out after %dms", rec.Script, rec.Skill, rec.DurationMs)
	case audit.ClassificationSignal:
		return fmt.Sprintf(":boom: script `%s` of skill `%s` was killed by %s", rec.Script, rec.Skill, rec.Signal)
	case audit.ClassificationError:
		return fmt.Sprintf(":warning: script `%s` of skill `%s` exited with code %d", rec.Script, rec.Skill, rec.ExitCode)
	default:
		return fmt.Sprintf(":scissors: script `%s` of skill `%s` succeeded but its output was truncated", rec.Script, rec.Skill)
	}
}
