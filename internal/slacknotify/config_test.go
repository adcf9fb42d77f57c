package slacknotify

import (
	"errors"
	"testing"
)

func TestResolveConfig(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantErr     bool
		wantErrVar  string
		wantChannel string
	}{
		{
			name:       "missing token",
			env:        map[string]string{},
			wantErr:    true,
			wantErrVar: "SLACK_BOT_TOKEN",
		},
		{
			name:       "malformed token",
			env:        map[string]string{"SLACK_BOT_TOKEN": "not-a-slack-token"},
			wantErr:    true,
			wantErrVar: "SLACK_BOT_TOKEN",
		},
		{
			name:        "bot token with default channel",
			env:         map[string]string{"SLACK_BOT_TOKEN": "xoxb-123-456"},
			wantChannel: DefaultChannel,
		},
		{
			name:        "user token accepted",
			env:         map[string]string{"SLACK_BOT_TOKEN": "xoxp-123-456"},
			wantChannel: DefaultChannel,
		},
		{
			name: "explicit channel",
			env: map[string]string{
				"SLACK_BOT_TOKEN": "xoxb-123-456",
				"SLACK_CHANNEL":   "#ops-escalations",
			},
			wantChannel: "#ops-escalations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(key string) string { return tt.env[key] }
			cfg, err := ResolveConfig(getenv)

			if tt.wantErr {
				if err == nil {
					t.Fatal("ResolveConfig() error = nil, want error")
				}
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("error type = %T, want *ConfigError", err)
				}
				if cfgErr.Var != tt.wantErrVar {
					t.Errorf("ConfigError.Var = %q, want %q", cfgErr.Var, tt.wantErrVar)
				}
				return
			}

			if err != nil {
				t.Fatalf("ResolveConfig() error = %v", err)
			}
			if cfg.Channel != tt.wantChannel {
				t.Errorf("Channel = %q, want %q", cfg.Channel, tt.wantChannel)
			}
			if cfg.BotToken != tt.env["SLACK_BOT_TOKEN"] {
				t.Errorf("BotToken = %q, want %q", cfg.BotToken, tt.env["SLACK_BOT_TOKEN"])
			}
		})
	}
}
