package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ghtriage/ghtriage/internal/github"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second

	// DefaultModel is the model used when none is configured.
	DefaultModel = "claude-sonnet-4-5"

	// DefaultAgentName identifies this agent in results and notifications.
	DefaultAgentName = "troubleshooter"
)

// errAPIKeyRequired is returned when an API key is needed but not provided.
var errAPIKeyRequired = errors.New("API key required")

// Agent wraps the Anthropic API for issue troubleshooting.
type Agent struct {
	client         anthropic.Client
	model          anthropic.Model
	name           string
	maxRetries     int
	initialBackoff time.Duration
	now            func() time.Time
}

// NewAgent creates a troubleshooting agent. Env var ANTHROPIC_API_KEY takes
// precedence over the explicit apiKey. model may be empty for the default.
func NewAgent(apiKey, model string) (*Agent, error) {
	envKey := os.Getenv("ANTHROPIC_API_KEY")
	if envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY environment variable or provide via config", errAPIKeyRequired)
	}
	if model == "" {
		model = DefaultModel
	}

	return &Agent{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          anthropic.Model(model),
		name:           DefaultAgentName,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		now:            time.Now,
	}, nil
}

// Name returns the agent identifier recorded in results.
func (a *Agent) Name() string { return a.name }

// Model returns the configured model identifier.
func (a *Agent) Model() string { return string(a.model) }

// Analyze runs the troubleshooting prompt for one issue and parses the
// structured result.
func (a *Agent) Analyze(ctx context.Context, prompt string) (*Result, error) {
	text, err := a.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseResult(text, a.name, a.now())
}

// AnalyzeIssue formats an issue into the troubleshooting prompt and runs
// the analysis.
func (a *Agent) AnalyzeIssue(ctx context.Context, org, repo string, issue *github.Issue) (*Result, error) {
	return a.Analyze(ctx, buildIssuePrompt(org, repo, issue))
}

func (a *Agent) callWithRetry(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(systemPrompt + "\n\n" + prompt)),
		},
	}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		message, err := a.client.Messages.New(ctx, params)
		if err == nil {
			if len(message.Content) > 0 {
				content := message.Content[0]
				if content.Type == "text" {
					return content.Text, nil
				}
				return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
			}
			return "", fmt.Errorf("unexpected response format: no content blocks")
		}

		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			return "", fmt.Errorf("non-retryable error: %w", err)
		}
	}

	return "", fmt.Errorf("failed after %d retries: %w", a.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		statusCode := apiErr.StatusCode
		if statusCode == 429 || statusCode >= 500 {
			return true
		}
		return false
	}

	return false
}
