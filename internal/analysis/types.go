// Package analysis runs collected GitHub issues through an AI
// troubleshooting agent and produces structured results.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status classifies the confidence of a troubleshooting result.
type Status string

const (
	// StatusHighConfidence means the agent identified a root cause.
	StatusHighConfidence Status = "high_confidence"
	// StatusNeedsData means the agent needs more evidence before concluding.
	StatusNeedsData Status = "needs_data"
	// StatusUnknown means the agent could not classify the issue.
	StatusUnknown Status = "unknown"
)

// ParseStatus normalizes a status string from model output.
// Unrecognized values map to StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusHighConfidence:
		return StatusHighConfidence
	case StatusNeedsData:
		return StatusNeedsData
	default:
		return StatusUnknown
	}
}

// Result is the structured output of a troubleshooting analysis.
// Evidence ordering is preserved from the model output.
type Result struct {
	Status              Status    `json:"status"`
	RootCause           string    `json:"root_cause,omitempty"`
	Evidence            []string  `json:"evidence,omitempty"`
	RecommendedSolution string    `json:"recommended_solution,omitempty"`
	NextSteps           []string  `json:"next_steps,omitempty"`
	RecommendedLabels   []string  `json:"recommended_labels,omitempty"`
	AgentName           string    `json:"agent_name"`
	Timestamp           time.Time `json:"timestamp"`
}

// rawResult mirrors the JSON shape the agent is prompted to emit. Status
// arrives as free text and is normalized during conversion.
type rawResult struct {
	Status              string   `json:"status"`
	RootCause           string   `json:"root_cause"`
	Evidence            []string `json:"evidence"`
	RecommendedSolution string   `json:"recommended_solution"`
	NextSteps           []string `json:"next_steps"`
	RecommendedLabels   []string `json:"recommended_labels"`
}

// ParseResult decodes model output into a Result. The model is instructed
// to reply with a single JSON object; tolerate surrounding prose or a
// markdown fence by extracting the outermost object.
func ParseResult(text, agentName string, now time.Time) (*Result, error) {
	jsonText := extractJSON(text)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}

	return &Result{
		Status:              ParseStatus(raw.Status),
		RootCause:           strings.TrimSpace(raw.RootCause),
		Evidence:            raw.Evidence,
		RecommendedSolution: strings.TrimSpace(raw.RecommendedSolution),
		NextSteps:           raw.NextSteps,
		RecommendedLabels:   raw.RecommendedLabels,
		AgentName:           agentName,
		Timestamp:           now.UTC(),
	}, nil
}

// extractJSON returns the outermost {...} object in text, or "".
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
