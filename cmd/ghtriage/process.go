package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghtriage/ghtriage/internal/analysis"
	"github.com/ghtriage/ghtriage/internal/slacknotify"
	"github.com/ghtriage/ghtriage/internal/storage"
	"github.com/ghtriage/ghtriage/internal/triage"
	"github.com/ghtriage/ghtriage/internal/ui"
)

var (
	processOrg         string
	processRepo        string
	processIssueNumber int
	processModel       string
	processConcurrency int
	processDryRun      bool
	processNotify      bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Analyze stored issues with the troubleshooting agent",
	Long: `Run collected issues through the AI troubleshooting agent, saving a
structured result for each. With --notify, each result is also posted to
Slack; notification failures are logged but never fail the run.

Examples:
  ghtriage process --org acme --repo widgets
  ghtriage process --org acme --repo widgets --issue-number 42 --notify
  ghtriage process --org acme --concurrency 5 --model claude-haiku-4-5`,
	Run: func(cmd *cobra.Command, args []string) {
		store, err := storage.New(settings.DataDir)
		if err != nil {
			fatalf("%v", err)
		}

		model := processModel
		if model == "" {
			model = settings.Model
		}
		agent, err := analysis.NewAgent(settings.AnthropicAPIKey, model)
		if err != nil {
			fatalf("%v", err)
		}

		processor := &triage.Processor{
			Store:       store,
			Agent:       agent,
			Concurrency: processConcurrency,
			DryRun:      processDryRun,
		}
		if processNotify && !processDryRun {
			processor.Notify = buildNotify()
		}

		summary, err := processor.Run(rootCtx, processOrg, processRepo, processIssueNumber)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"processed": summary.Processed,
				"failed":    summary.Failed,
				"notified":  summary.Notified,
				"skipped":   summary.Skipped,
			})
		} else {
			fmt.Println(ui.KeyValue("Processed", summary.Processed))
			if summary.Skipped > 0 {
				fmt.Println(ui.KeyValue("Skipped (dry run)", summary.Skipped))
			}
			if processNotify {
				fmt.Println(ui.KeyValue("Notified", summary.Notified))
			}
			if summary.Failed > 0 {
				fmt.Println(ui.RenderWarn(fmt.Sprintf("Failed: %d", summary.Failed)))
				for _, err := range summary.Errors {
					fmt.Println(ui.RenderMuted("  " + err.Error()))
				}
			}
		}

		if summary.Failed > 0 {
			// Analysis failures make the run exit non-zero; notification
			// failures never do.
			fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderFail("some issues failed to process"))
			os.Exit(1)
		}
	},
}

// buildNotify resolves Slack config once and returns the per-result
// delivery function. A bad or missing Slack config degrades to skipped
// outcomes instead of failing processing.
func buildNotify() triage.NotifyFunc {
	cfg, err := slacknotify.ResolveConfig(func(key string) string {
		switch key {
		case "SLACK_BOT_TOKEN":
			return settings.SlackBotToken
		case "SLACK_CHANNEL":
			return settings.SlackChannel
		}
		return ""
	})
	if err != nil {
		fmt.Println(ui.RenderWarn(fmt.Sprintf("Slack notifications disabled: %v", err)))
		return func(issue slacknotify.IssueRef, result *analysis.Result) slacknotify.Outcome {
			return slacknotify.Outcome{Delivered: false, Mode: slacknotify.ModeSkipped, Err: err}
		}
	}

	notifier := slacknotify.NewNotifier(cfg)
	return notifier.Notify
}

func init() {
	processCmd.Flags().StringVar(&processOrg, "org", "", "Filter stored issues by organization")
	processCmd.Flags().StringVar(&processRepo, "repo", "", "Filter stored issues by repository")
	processCmd.Flags().IntVar(&processIssueNumber, "issue-number", 0, "Process a single issue by number")
	processCmd.Flags().StringVar(&processModel, "model", "", "Model to use (default from config or agent default)")
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", triage.DefaultConcurrency, "Parallel agent calls")
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "List what would be analyzed without calling the agent")
	processCmd.Flags().BoolVar(&processNotify, "notify", false, "Post each result to Slack")
}
