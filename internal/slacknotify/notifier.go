package slacknotify

import (
	"fmt"
	"log"
	"os"

	"github.com/ghtriage/ghtriage/internal/analysis"
)

// Mode records how (or whether) a notification was delivered.
type Mode string

const (
	// ModeReply means the result was posted into an existing thread.
	ModeReply Mode = "reply"
	// ModeNewMessage means a new top-level message was posted.
	ModeNewMessage Mode = "new_message"
	// ModeSkipped means no remote call was attempted (missing config).
	ModeSkipped Mode = "skipped"
	// ModeFailed means delivery was attempted and failed.
	ModeFailed Mode = "failed"
)

// Outcome is returned to the caller in place of an error. Notification
// failure must never alter the result of the analysis run, so nothing in
// this package panics or returns an error from the top-level entry points.
type Outcome struct {
	Delivered bool
	Mode      Mode
	Err       error
}

// String summarizes the outcome for log lines.
func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("delivered=%t mode=%s err=%v", o.Delivered, o.Mode, o.Err)
	}
	return fmt.Sprintf("delivered=%t mode=%s", o.Delivered, o.Mode)
}

// Notifier posts analysis results for issues to a Slack channel.
type Notifier struct {
	cfg       Config
	deliverer *Deliverer
}

// NewNotifier creates a notifier backed by the real Slack Web API.
func NewNotifier(cfg Config) *Notifier {
	return &Notifier{
		cfg:       cfg,
		deliverer: NewDeliverer(newSlackClient(cfg.BotToken)),
	}
}

// newNotifierForTest creates a Notifier with an injectable mock API.
// No Slack connection or token validation is performed.
func newNotifierForTest(api SlackAPI, cfg Config) *Notifier {
	return &Notifier{cfg: cfg, deliverer: NewDeliverer(api)}
}

// NotifyFromEnv resolves Slack configuration from the environment and
// delivers the notification. A missing or malformed token yields a
// skipped outcome without any remote call.
func NotifyFromEnv(issue IssueRef, result *analysis.Result) Outcome {
	cfg, err := ResolveConfig(os.Getenv)
	if err != nil {
		log.Printf("slacknotify: skipping notification: %v", err)
		return Outcome{Delivered: false, Mode: ModeSkipped, Err: err}
	}
	return NewNotifier(cfg).Notify(issue, result)
}

// Notify runs the full workflow for one issue: resolve an existing
// thread, format the result, and post it as a threaded reply or a new
// message. Exactly one post call is made per invocation.
func (n *Notifier) Notify(issue IssueRef, result *analysis.Result) Outcome {
	lookup := ResolveThread(n.deliverer, issue, n.cfg.Channel)
	if lookup.State == LookupError {
		// Degrade deliberately: a broken search should not block the
		// notification, only the threading.
		log.Printf("slacknotify: thread search failed for %s#%d, posting new message: %v",
			issue.Slug(), issue.Number, lookup.Err)
	}

	blocks := FormatResult(issue, result)

	outcome := Outcome{}
	if lookup.State == LookupFound {
		_, err := n.deliverer.PostReply(n.cfg.Channel, lookup.ThreadTS, blocks)
		if err != nil {
			outcome = Outcome{Delivered: false, Mode: ModeFailed, Err: fmt.Errorf("reply to thread %s: %w", lookup.ThreadTS, err)}
		} else {
			outcome = Outcome{Delivered: true, Mode: ModeReply}
		}
	} else {
		_, err := n.deliverer.PostNew(n.cfg.Channel, blocks)
		if err != nil {
			outcome = Outcome{Delivered: false, Mode: ModeFailed, Err: fmt.Errorf("post new message: %w", err)}
		} else {
			outcome = Outcome{Delivered: true, Mode: ModeNewMessage}
		}
	}

	if outcome.Delivered {
		log.Printf("slacknotify: notified %s for %s#%d (%s)", n.cfg.Channel, issue.Slug(), issue.Number, outcome.Mode)
	} else {
		log.Printf("slacknotify: notification failed for %s#%d: %v", issue.Slug(), issue.Number, outcome.Err)
	}
	return outcome
}
