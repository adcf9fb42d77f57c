package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghtriage/ghtriage/internal/github"
	"github.com/ghtriage/ghtriage/internal/storage"
	"github.com/ghtriage/ghtriage/internal/ui"
)

var (
	collectOrg           string
	collectRepo          string
	collectIssueNumber   int
	collectLabels        []string
	collectState         string
	collectLimit         int
	collectCreatedAfter  string
	collectCreatedBefore string
	collectUpdatedAfter  string
	collectUpdatedBefore string
	collectLastDays      int
	collectExcludeRepos  []string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect GitHub issues into local storage",
	Long: `Collect issues from a repository or a whole organization and store
them locally as JSON for later processing.

Examples:
  ghtriage collect --org acme --repo widgets --limit 20
  ghtriage collect --org acme --repo widgets --issue-number 42
  ghtriage collect --org acme --state closed --last-days 7 --exclude-repo sandbox
  ghtriage collect --org acme --repo widgets --labels bug --labels "product::runner"`,
	Run: func(cmd *cobra.Command, args []string) {
		if settings.GitHubToken == "" {
			fatalf("GitHub token required: set GITHUB_TOKEN or github-token in the config file")
		}
		if collectIssueNumber > 0 && collectRepo == "" {
			fatalf("--issue-number requires --repo")
		}
		if collectLastDays > 0 && (collectCreatedAfter != "" || collectUpdatedAfter != "") {
			fatalf("--last-days cannot be combined with --created-after or --updated-after")
		}

		opts, err := buildSearchOptions()
		if err != nil {
			fatalf("%v", err)
		}

		store, err := storage.New(settings.DataDir)
		if err != nil {
			fatalf("%v", err)
		}
		client := github.NewClient(settings.GitHubToken)

		var issues []*github.Issue
		if collectIssueNumber > 0 {
			issue, err := client.GetIssue(rootCtx, collectOrg, collectRepo, collectIssueNumber)
			if err != nil {
				fatalf("failed to fetch issue: %v", err)
			}
			issues = []*github.Issue{issue}
		} else {
			issues, err = client.SearchIssues(rootCtx, *opts)
			if err != nil {
				fatalf("issue search failed: %v", err)
			}
		}

		saved := 0
		for _, issue := range issues {
			repo := collectRepo
			if repo == "" {
				repo = github.RepoName(issue)
				if repo == "" {
					fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderWarn(
						fmt.Sprintf("skipping #%d: cannot determine repository", issue.Number)))
					continue
				}
			}
			if _, err := store.SaveIssue(collectOrg, repo, issue); err != nil {
				fatalf("failed to save issue #%d: %v", issue.Number, err)
			}
			saved++
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"collected": saved,
				"data_dir":  settings.DataDir,
			})
			return
		}

		table := ui.Table{Header: []string{"ISSUE", "REPO", "STATE", "COMMENTS", "TITLE"}}
		for _, issue := range issues {
			repo := collectRepo
			if repo == "" {
				repo = github.RepoName(issue)
			}
			table.Rows = append(table.Rows, []string{
				"#" + strconv.Itoa(issue.Number),
				collectOrg + "/" + repo,
				issue.State,
				strconv.Itoa(len(issue.Comments)),
				truncate(issue.Title, 60),
			})
		}
		fmt.Print(table.Render())
		fmt.Println(ui.RenderPass(fmt.Sprintf("Collected %d issue(s) into %s", saved, settings.DataDir)))
	},
}

func buildSearchOptions() (*github.SearchOptions, error) {
	opts := &github.SearchOptions{
		Org:           collectOrg,
		Repo:          collectRepo,
		Labels:        collectLabels,
		State:         collectState,
		Limit:         collectLimit,
		ExcludedRepos: collectExcludeRepos,
	}

	parse := func(flag, value string) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", flag, value)
		}
		return &t, nil
	}

	var err error
	if opts.CreatedAfter, err = parse("--created-after", collectCreatedAfter); err != nil {
		return nil, err
	}
	if opts.CreatedBefore, err = parse("--created-before", collectCreatedBefore); err != nil {
		return nil, err
	}
	if opts.UpdatedAfter, err = parse("--updated-after", collectUpdatedAfter); err != nil {
		return nil, err
	}
	if opts.UpdatedBefore, err = parse("--updated-before", collectUpdatedBefore); err != nil {
		return nil, err
	}

	if collectLastDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -collectLastDays)
		opts.CreatedAfter = &cutoff
	}
	return opts, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func init() {
	collectCmd.Flags().StringVar(&collectOrg, "org", "", "GitHub organization (required)")
	collectCmd.Flags().StringVar(&collectRepo, "repo", "", "Repository name (omit for org-wide search)")
	collectCmd.Flags().IntVar(&collectIssueNumber, "issue-number", 0, "Collect a single issue by number (requires --repo)")
	collectCmd.Flags().StringSliceVar(&collectLabels, "labels", nil, "Labels that must all be present (repeatable)")
	collectCmd.Flags().StringVar(&collectState, "state", "closed", "Issue state: open, closed, or all")
	collectCmd.Flags().IntVar(&collectLimit, "limit", github.DefaultSearchLimit, "Maximum issues to collect")
	collectCmd.Flags().StringVar(&collectCreatedAfter, "created-after", "", "Only issues created on/after this date (YYYY-MM-DD)")
	collectCmd.Flags().StringVar(&collectCreatedBefore, "created-before", "", "Only issues created on/before this date (YYYY-MM-DD)")
	collectCmd.Flags().StringVar(&collectUpdatedAfter, "updated-after", "", "Only issues updated on/after this date (YYYY-MM-DD)")
	collectCmd.Flags().StringVar(&collectUpdatedBefore, "updated-before", "", "Only issues updated on/before this date (YYYY-MM-DD)")
	collectCmd.Flags().IntVar(&collectLastDays, "last-days", 0, "Only issues created in the last N days")
	collectCmd.Flags().StringSliceVar(&collectExcludeRepos, "exclude-repo", nil, "Repositories to exclude from org-wide search (repeatable)")
	_ = collectCmd.MarkFlagRequired("org")
}
