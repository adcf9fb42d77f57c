package slacknotify

import (
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/ghtriage/ghtriage/internal/analysis"
)

// maxEvidenceEntries caps how many evidence lines render before the
// overflow indicator takes over.
const maxEvidenceEntries = 5

// statusGlyph maps a result status to its header emoji.
func statusGlyph(status analysis.Status) string {
	switch status {
	case analysis.StatusHighConfidence:
		return "✅"
	case analysis.StatusNeedsData:
		return "📋"
	default:
		return "❓"
	}
}

// FormatResult renders an analysis result as Slack blocks: a status
// header, the issue link, body sections that appear only when their field
// is populated, and an agent/timestamp footer. Missing optional fields
// are omitted, never rendered as placeholders.
func FormatResult(issue IssueRef, result *analysis.Result) []slack.Block {
	header := fmt.Sprintf("%s Issue #%d: %s", statusGlyph(result.Status), issue.Number, issue.Title)

	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject("plain_text", truncateForSlack(header, 150), true, false)),
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn",
				fmt.Sprintf("<%s|%s#%d>", issue.URL, issue.Slug(), issue.Number),
				false, false),
			nil, nil),
	}

	if result.Status == analysis.StatusHighConfidence && result.RootCause != "" {
		blocks = append(blocks,
			slack.NewSectionBlock(
				slack.NewTextBlockObject("mrkdwn",
					fmt.Sprintf("*Root Cause:*\n%s", truncateForSlack(result.RootCause, 2900)),
					false, false),
				nil, nil))
	}

	if len(result.Evidence) > 0 {
		blocks = append(blocks,
			slack.NewSectionBlock(
				slack.NewTextBlockObject("mrkdwn", formatEvidence(result.Evidence), false, false),
				nil, nil))
	}

	if result.Status == analysis.StatusHighConfidence && result.RecommendedSolution != "" {
		blocks = append(blocks,
			slack.NewSectionBlock(
				slack.NewTextBlockObject("mrkdwn",
					fmt.Sprintf("*Recommended Solution:*\n%s", truncateForSlack(result.RecommendedSolution, 2900)),
					false, false),
				nil, nil))
	}

	if result.Status == analysis.StatusNeedsData && len(result.NextSteps) > 0 {
		var sb strings.Builder
		sb.WriteString("*Next Steps:*")
		for i, step := range result.NextSteps {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, step)
		}
		blocks = append(blocks,
			slack.NewSectionBlock(
				slack.NewTextBlockObject("mrkdwn", truncateForSlack(sb.String(), 2900), false, false),
				nil, nil))
	}

	footer := fmt.Sprintf("Agent: %s", result.AgentName)
	if !result.Timestamp.IsZero() {
		footer += "  |  " + result.Timestamp.UTC().Format(time.RFC3339)
	}
	blocks = append(blocks,
		slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", footer, false, false)))

	return blocks
}

// formatEvidence renders at most maxEvidenceEntries bullet lines plus a
// "+N more" overflow line when the list is longer.
func formatEvidence(evidence []string) string {
	var sb strings.Builder
	sb.WriteString("*Key Evidence:*")

	shown := evidence
	if len(shown) > maxEvidenceEntries {
		shown = shown[:maxEvidenceEntries]
	}
	for _, e := range shown {
		fmt.Fprintf(&sb, "\n• %s", e)
	}
	if extra := len(evidence) - maxEvidenceEntries; extra > 0 {
		fmt.Fprintf(&sb, "\n_+%d more_", extra)
	}

	return truncateForSlack(sb.String(), 2900)
}

// truncateForSlack shortens text to fit Slack block limits.
func truncateForSlack(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	if limit <= 3 {
		return "..."
	}
	return text[:limit-3] + "..."
}
