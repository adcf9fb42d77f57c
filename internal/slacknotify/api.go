package slacknotify

import (
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/slack-go/slack"
)

// SlackAPI abstracts the subset of slack.Client methods the notifier uses.
// This allows tests to substitute a mock implementation without a live
// Slack connection.
type SlackAPI interface {
	SearchMessages(query string, params slack.SearchParameters) (*slack.SearchMessages, error)
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

const (
	// callTimeout bounds each Slack HTTP call so an outage cannot hang
	// the analysis run.
	callTimeout = 10 * time.Second

	// defaultRateLimitDelay is used when a rate-limit response carries no
	// Retry-After value.
	defaultRateLimitDelay = 2 * time.Second
)

// newSlackClient builds the real Slack client with a bounded HTTP timeout.
func newSlackClient(token string) *slack.Client {
	return slack.New(token, slack.OptionHTTPClient(&http.Client{Timeout: callTimeout}))
}

// Deliverer issues the three remote calls against the Slack Web API.
// Rate-limited calls are retried exactly once, waiting the delay the
// service specifies; any other error, or a second rate limit, surfaces to
// the caller.
type Deliverer struct {
	api        SlackAPI
	retryDelay time.Duration // fallback delay when Slack gives none
}

// NewDeliverer wraps a SlackAPI with the retry policy.
func NewDeliverer(api SlackAPI) *Deliverer {
	return &Deliverer{api: api, retryDelay: defaultRateLimitDelay}
}

// withRateLimitRetry runs op, retrying once if Slack reports a rate limit.
func (d *Deliverer) withRateLimitRetry(op func() error) error {
	// BackOff implementations are stateful; always use a fresh instance.
	cbo := backoff.NewConstantBackOff(d.retryDelay)
	bo := backoff.WithMaxRetries(cbo, 1)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var rl *slack.RateLimitedError
		if errors.As(err, &rl) {
			if rl.RetryAfter > 0 {
				cbo.Interval = rl.RetryAfter
			}
			return err // Retryable - backoff will retry once
		}
		return backoff.Permanent(err) // Non-retryable - stop immediately
	}, bo)
}

// Search runs a message search and returns the raw matches.
func (d *Deliverer) Search(query string) ([]slack.SearchMessage, error) {
	var matches []slack.SearchMessage
	err := d.withRateLimitRetry(func() error {
		params := slack.NewSearchParameters()
		result, err := d.api.SearchMessages(query, params)
		if err != nil {
			return err
		}
		matches = result.Matches
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// PostReply posts blocks as a threaded reply under threadTS.
func (d *Deliverer) PostReply(channel, threadTS string, blocks []slack.Block) (string, error) {
	var ts string
	err := d.withRateLimitRetry(func() error {
		var postErr error
		_, ts, postErr = d.api.PostMessage(channel,
			slack.MsgOptionBlocks(blocks...),
			slack.MsgOptionTS(threadTS),
		)
		return postErr
	})
	return ts, err
}

// PostNew posts blocks as a new top-level message. The message itself
// becomes the thread root for any later replies.
func (d *Deliverer) PostNew(channel string, blocks []slack.Block) (string, error) {
	var ts string
	err := d.withRateLimitRetry(func() error {
		var postErr error
		_, ts, postErr = d.api.PostMessage(channel,
			slack.MsgOptionBlocks(blocks...),
		)
		return postErr
	})
	return ts, err
}
