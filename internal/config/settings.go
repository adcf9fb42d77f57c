// Package config resolves tool settings from an optional ghtriage.yaml
// file and environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultDataDir = "data"
)

// Settings holds everything the commands need. Each consumer receives the
// values it needs as explicit parameters; nothing reads ambient state after
// Load returns.
type Settings struct {
	GitHubToken     string
	AnthropicAPIKey string
	Model           string // empty means the agent default
	DataDir         string

	// Slack settings are passed through to the notifier, which performs
	// its own validation so a bad token degrades to a skipped
	// notification instead of failing the run.
	SlackBotToken string
	SlackChannel  string
}

// envBindings maps config keys to the environment variables that override
// them.
var envBindings = map[string]string{
	"github-token":      "GITHUB_TOKEN",
	"anthropic-api-key": "ANTHROPIC_API_KEY",
	"model":             "GHTRIAGE_MODEL",
	"data-dir":          "GHTRIAGE_DATA_DIR",
	"slack-bot-token":   "SLACK_BOT_TOKEN",
	"slack-channel":     "SLACK_CHANNEL",
}

// Load reads settings from configPath (optional, "" means look for
// ghtriage.yaml in the working directory) and the environment.
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("ghtriage")
		v.AddConfigPath(".")
		// A missing default config file is fine.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read ghtriage.yaml: %w", err)
			}
		}
	}

	for key, envVar := range envBindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", envVar, err)
		}
	}
	v.SetDefault("data-dir", DefaultDataDir)

	return &Settings{
		GitHubToken:     v.GetString("github-token"),
		AnthropicAPIKey: v.GetString("anthropic-api-key"),
		Model:           v.GetString("model"),
		DataDir:         v.GetString("data-dir"),
		SlackBotToken:   v.GetString("slack-bot-token"),
		SlackChannel:    v.GetString("slack-channel"),
	}, nil
}
