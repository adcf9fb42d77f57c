package analysis

import (
	"fmt"
	"strings"

	"github.com/ghtriage/ghtriage/internal/github"
)

const systemPrompt = `You are a technical support engineer analyzing GitHub issues.
Given an issue, determine whether the available information identifies a root cause.

Respond with a single JSON object, no surrounding text:
{
  "status": "high_confidence" | "needs_data" | "unknown",
  "root_cause": "root cause description (only when high_confidence)",
  "evidence": ["observation from the issue supporting the conclusion", ...],
  "recommended_solution": "fix or workaround (only when high_confidence)",
  "next_steps": ["data to gather or step to take next (only when needs_data)", ...],
  "recommended_labels": ["product::<name>", ...]
}

Rules:
- "high_confidence" only when the evidence directly supports a specific root cause.
- "needs_data" when a hypothesis exists but confirmation requires more information;
  list the concrete missing data in next_steps.
- "unknown" when the issue cannot be classified from what is given.
- Evidence entries must quote or closely paraphrase the issue content.
- Keep recommended_labels empty unless a product area is clearly identifiable.`

// maxPromptComments bounds how many comments are included in the prompt.
const maxPromptComments = 50

// buildIssuePrompt formats an issue into the user message for analysis.
func buildIssuePrompt(org, repo string, issue *github.Issue) string {
	var labels []string
	for _, l := range issue.Labels {
		labels = append(labels, l.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this GitHub issue:\n\n")
	fmt.Fprintf(&b, "**Repository:** %s/%s\n", org, repo)
	fmt.Fprintf(&b, "**Title:** %s\n", issue.Title)
	fmt.Fprintf(&b, "**State:** %s\n", issue.State)
	fmt.Fprintf(&b, "**Labels:** %s\n\n", strings.Join(labels, ", "))
	fmt.Fprintf(&b, "**Body:**\n%s\n", issue.Body)

	if len(issue.Comments) > 0 {
		fmt.Fprintf(&b, "\n**Comments (%d):**\n", len(issue.Comments))
		comments := issue.Comments
		if len(comments) > maxPromptComments {
			comments = comments[:maxPromptComments]
		}
		for _, c := range comments {
			login := "unknown"
			if c.User != nil {
				login = c.User.Login
			}
			body := strings.TrimSpace(strings.ReplaceAll(c.Body, "\n", " "))
			fmt.Fprintf(&b, "%s: %s\n", login, body)
		}
	}

	return b.String()
}
