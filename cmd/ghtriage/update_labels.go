package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ghtriage/ghtriage/internal/github"
	"github.com/ghtriage/ghtriage/internal/storage"
	"github.com/ghtriage/ghtriage/internal/ui"
)

var (
	updateLabelsOrg         string
	updateLabelsRepo        string
	updateLabelsIssueNumber int
	updateLabelsDryRun      bool
)

var updateLabelsCmd = &cobra.Command{
	Use:   "update-labels",
	Short: "Apply recommended labels from analysis results to GitHub",
	Long: `Read stored analysis results and add their recommended labels
(product::* and similar) to the corresponding GitHub issues.

Examples:
  ghtriage update-labels --org acme --repo widgets --dry-run
  ghtriage update-labels --org acme --repo widgets --issue-number 42`,
	Run: func(cmd *cobra.Command, args []string) {
		if settings.GitHubToken == "" && !updateLabelsDryRun {
			fatalf("GitHub token required: set GITHUB_TOKEN or github-token in the config file")
		}

		store, err := storage.New(settings.DataDir)
		if err != nil {
			fatalf("%v", err)
		}
		results, err := store.ListResults(updateLabelsOrg, updateLabelsRepo, updateLabelsIssueNumber)
		if err != nil {
			fatalf("%v", err)
		}

		client := github.NewClient(settings.GitHubToken)

		updated, skipped, failed := 0, 0, 0
		table := ui.Table{Header: []string{"ISSUE", "LABELS", "ACTION"}}
		for _, result := range results {
			labels := result.Analysis.RecommendedLabels
			ref := fmt.Sprintf("%s/%s#%d", result.Org, result.Repo, result.IssueNumber)

			if len(labels) == 0 {
				skipped++
				table.Rows = append(table.Rows, []string{ref, "-", "no recommendation"})
				continue
			}

			if updateLabelsDryRun {
				table.Rows = append(table.Rows, []string{ref, strings.Join(labels, ", "), "would add"})
				continue
			}

			if err := client.AddLabels(rootCtx, result.Org, result.Repo, result.IssueNumber, labels); err != nil {
				failed++
				table.Rows = append(table.Rows, []string{ref, strings.Join(labels, ", "), "failed: " + err.Error()})
				continue
			}
			updated++
			table.Rows = append(table.Rows, []string{ref, strings.Join(labels, ", "), "added"})
		}

		if jsonOutput {
			outputJSON(map[string]int{
				"updated": updated,
				"skipped": skipped,
				"failed":  failed,
			})
			return
		}

		fmt.Print(table.Render())
		if updateLabelsDryRun {
			fmt.Println(ui.RenderMuted("dry run: no labels were changed"))
		} else {
			fmt.Println(ui.RenderPass(fmt.Sprintf("Updated %d issue(s), %d skipped, %d failed", updated, skipped, failed)))
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	updateLabelsCmd.Flags().StringVar(&updateLabelsOrg, "org", "", "Filter results by organization")
	updateLabelsCmd.Flags().StringVar(&updateLabelsRepo, "repo", "", "Filter results by repository")
	updateLabelsCmd.Flags().IntVar(&updateLabelsIssueNumber, "issue-number", 0, "Update a single issue by number")
	updateLabelsCmd.Flags().BoolVar(&updateLabelsDryRun, "dry-run", false, "Show what would change without calling GitHub")
}
