// Package slacknotify posts troubleshooting results to a Slack channel,
// replying to an existing thread about the issue when one can be found via
// message search, or starting a new thread otherwise.
//
// Notification failures are contained: every entry point returns an
// Outcome instead of propagating errors, so the surrounding analysis run
// never fails because Slack was unavailable.
package slacknotify

import (
	"fmt"
	"strings"
)

// DefaultChannel is used when SLACK_CHANNEL is not set.
const DefaultChannel = "#support-chat"

// Config holds the resolved Slack settings. It is built once per
// notification and passed explicitly; nothing in this package reads the
// environment after resolution.
type Config struct {
	BotToken string
	Channel  string
}

// ConfigError reports a missing or malformed configuration variable.
type ConfigError struct {
	Var    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("slack config: %s %s", e.Var, e.Reason)
}

// ResolveConfig reads Slack settings through getenv (typically os.Getenv;
// injectable for tests). The bot token is required and must carry a Slack
// token prefix; the channel falls back to DefaultChannel.
func ResolveConfig(getenv func(string) string) (Config, error) {
	token := getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return Config{}, &ConfigError{Var: "SLACK_BOT_TOKEN", Reason: "is not set"}
	}
	if !strings.HasPrefix(token, "xoxb-") && !strings.HasPrefix(token, "xoxp-") {
		return Config{}, &ConfigError{Var: "SLACK_BOT_TOKEN", Reason: "must start with xoxb- or xoxp-"}
	}

	channel := getenv("SLACK_CHANNEL")
	if channel == "" {
		channel = DefaultChannel
	}

	return Config{BotToken: token, Channel: channel}, nil
}
