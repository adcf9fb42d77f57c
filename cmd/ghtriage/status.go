package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ghtriage/ghtriage/internal/storage"
	"github.com/ghtriage/ghtriage/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local storage statistics",
	Run: func(cmd *cobra.Command, args []string) {
		store := &storage.Store{Dir: settings.DataDir}
		stats, err := store.Stats()
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"data_dir":      settings.DataDir,
				"total_issues":  stats.TotalIssues,
				"total_results": stats.TotalResults,
				"total_bytes":   stats.TotalBytes,
				"by_repo":       stats.ByRepo,
			})
			return
		}

		fmt.Println(ui.KeyValue("Data dir", settings.DataDir))
		fmt.Println(ui.KeyValue("Issues", stats.TotalIssues))
		fmt.Println(ui.KeyValue("Results", stats.TotalResults))
		fmt.Println(ui.KeyValue("Size", fmt.Sprintf("%d bytes", stats.TotalBytes)))

		if len(stats.ByRepo) > 0 {
			repos := make([]string, 0, len(stats.ByRepo))
			for repo := range stats.ByRepo {
				repos = append(repos, repo)
			}
			sort.Strings(repos)

			table := ui.Table{Header: []string{"REPO", "ISSUES"}}
			for _, repo := range repos {
				table.Rows = append(table.Rows, []string{repo, strconv.Itoa(stats.ByRepo[repo])})
			}
			fmt.Println()
			fmt.Print(table.Render())
		}
	},
}
