package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"high_confidence", StatusHighConfidence},
		{"needs_data", StatusNeedsData},
		{"unknown", StatusUnknown},
		{"HIGH_CONFIDENCE", StatusHighConfidence},
		{"  needs_data  ", StatusNeedsData},
		{"confident", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStatus(tt.in), "ParseStatus(%q)", tt.in)
	}
}

func TestParseResult_CleanJSON(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	text := `{
		"status": "high_confidence",
		"root_cause": "connection string is malformed",
		"evidence": ["log shows invalid DSN", "crash on first connect"],
		"recommended_solution": "URL-encode the password",
		"recommended_labels": ["product::database"]
	}`

	result, err := ParseResult(text, "troubleshooter", now)
	require.NoError(t, err)

	assert.Equal(t, StatusHighConfidence, result.Status)
	assert.Equal(t, "connection string is malformed", result.RootCause)
	assert.Equal(t, []string{"log shows invalid DSN", "crash on first connect"}, result.Evidence)
	assert.Equal(t, "URL-encode the password", result.RecommendedSolution)
	assert.Equal(t, []string{"product::database"}, result.RecommendedLabels)
	assert.Equal(t, "troubleshooter", result.AgentName)
	assert.Equal(t, now, result.Timestamp)
}

func TestParseResult_MarkdownFence(t *testing.T) {
	text := "Here is my analysis:\n```json\n" +
		`{"status": "needs_data", "next_steps": ["collect a heap dump"]}` +
		"\n```\nLet me know if you need more."

	result, err := ParseResult(text, "troubleshooter", time.Now())
	require.NoError(t, err)

	assert.Equal(t, StatusNeedsData, result.Status)
	assert.Equal(t, []string{"collect a heap dump"}, result.NextSteps)
}

func TestParseResult_StatusNormalized(t *testing.T) {
	result, err := ParseResult(`{"status": "Needs_Data"}`, "troubleshooter", time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsData, result.Status)

	result, err = ParseResult(`{"status": "something else"}`, "troubleshooter", time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, result.Status)
}

func TestParseResult_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no JSON at all", "I could not produce a structured answer."},
		{"empty input", ""},
		{"truncated object", `{"status": "high_confidence", "root_cause": "cut off`},
		{"not an object", `["status", "high_confidence"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult(tt.text, "troubleshooter", time.Now())
			assert.Error(t, err)
		})
	}
}

func TestParseResult_TimestampUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 7, 0, 0, 0, loc)

	result, err := ParseResult(`{"status": "unknown"}`, "troubleshooter", now)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, result.Timestamp.Location())
	assert.True(t, result.Timestamp.Equal(now))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"prose {\"a\": 1} trailing", `{"a": 1}`},
		{`{"outer": {"inner": 2}}`, `{"outer": {"inner": 2}}`},
		{"no braces here", ""},
		{"} backwards {", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractJSON(tt.in), "extractJSON(%q)", tt.in)
	}
}
