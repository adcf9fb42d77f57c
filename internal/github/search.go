package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SearchOptions controls an issue search. Repo may be empty for
// organization-wide searches.
type SearchOptions struct {
	Org           string
	Repo          string     // empty: search across the whole org
	Labels        []string   // all must be present
	State         string     // "open", "closed", or "all"
	Limit         int        // maximum issues to return (0: DefaultSearchLimit)
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time
	ExcludedRepos []string // org-wide searches only
}

// DefaultSearchLimit bounds searches that do not specify a limit.
const DefaultSearchLimit = 10

// searchResponse is the envelope returned by the GitHub search API.
type searchResponse struct {
	TotalCount        int     `json:"total_count"`
	IncompleteResults bool    `json:"incomplete_results"`
	Items             []Issue `json:"items"`
}

// buildQuery assembles a GitHub search query from the options.
func buildQuery(opts SearchOptions) string {
	parts := []string{}

	if opts.Repo != "" {
		parts = append(parts, "repo:"+opts.Org+"/"+opts.Repo)
	} else {
		parts = append(parts, "org:"+opts.Org)
		for _, excluded := range opts.ExcludedRepos {
			parts = append(parts, "-repo:"+opts.Org+"/"+excluded)
		}
	}
	parts = append(parts, "is:issue")

	if opts.State != "" && opts.State != "all" {
		parts = append(parts, "state:"+opts.State)
	}
	for _, label := range opts.Labels {
		if strings.ContainsAny(label, " :") {
			parts = append(parts, fmt.Sprintf("label:%q", label))
		} else {
			parts = append(parts, "label:"+label)
		}
	}

	const day = "2006-01-02"
	if opts.CreatedAfter != nil {
		parts = append(parts, "created:>="+opts.CreatedAfter.UTC().Format(day))
	}
	if opts.CreatedBefore != nil {
		parts = append(parts, "created:<="+opts.CreatedBefore.UTC().Format(day))
	}
	if opts.UpdatedAfter != nil {
		parts = append(parts, "updated:>="+opts.UpdatedAfter.UTC().Format(day))
	}
	if opts.UpdatedBefore != nil {
		parts = append(parts, "updated:<="+opts.UpdatedBefore.UTC().Format(day))
	}

	return strings.Join(parts, " ")
}

// SearchIssues finds issues matching the options via the GitHub search API,
// following pagination up to the requested limit. Pull requests are
// filtered out. Comments are fetched for each returned issue.
func (c *Client) SearchIssues(ctx context.Context, opts SearchOptions) ([]*Issue, error) {
	if opts.Org == "" {
		return nil, fmt.Errorf("search requires an organization")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	query := buildQuery(opts)
	var results []*Issue
	page := 1

	for len(results) < limit {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		perPage := MaxPageSize
		if remaining := limit - len(results); remaining < perPage {
			perPage = remaining
		}
		params := map[string]string{
			"q":        query,
			"per_page": strconv.Itoa(perPage),
			"page":     strconv.Itoa(page),
			"sort":     "created",
			"order":    "desc",
		}

		urlStr := c.buildURL("/search/issues", params)
		respBody, _, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, fmt.Errorf("issue search failed: %w", err)
		}

		var resp searchResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse search response: %w", err)
		}

		for i := range resp.Items {
			if resp.Items[i].PullRequest != nil {
				continue
			}
			issue := resp.Items[i]
			results = append(results, &issue)
			if len(results) >= limit {
				break
			}
		}

		if len(resp.Items) < perPage || len(results) >= resp.TotalCount {
			break
		}
		page++
		if page > MaxPages {
			return nil, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
		}
	}

	// Hydrate comments. The search API returns only a comment count, so
	// each issue needs a follow-up fetch.
	for _, issue := range results {
		owner, repo := opts.Org, opts.Repo
		if repo == "" {
			if issue.Repository == nil || issue.Repository.Name == "" {
				continue
			}
			repo = issue.Repository.Name
		}
		comments, err := c.ListComments(ctx, owner, repo, issue.Number)
		if err != nil {
			continue
		}
		issue.Comments = comments
	}

	return results, nil
}

// RepoName resolves the repository name for an issue found by search.
// Falls back to parsing html_url when the search response omitted the
// repository object.
func RepoName(issue *Issue) string {
	if issue.Repository != nil && issue.Repository.Name != "" {
		return issue.Repository.Name
	}
	// html_url: https://github.com/<owner>/<repo>/issues/<n>
	parts := strings.Split(issue.HTMLURL, "/")
	if len(parts) >= 5 {
		return parts[4]
	}
	return ""
}
