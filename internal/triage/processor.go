// Package triage coordinates analysis runs: it fans stored issues out to
// the troubleshooting agent with bounded parallelism, persists each result,
// and hands results to the Slack notifier.
package triage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ghtriage/ghtriage/internal/analysis"
	"github.com/ghtriage/ghtriage/internal/github"
	"github.com/ghtriage/ghtriage/internal/slacknotify"
	"github.com/ghtriage/ghtriage/internal/storage"
)

// DefaultConcurrency bounds parallel agent calls when none is configured.
const DefaultConcurrency = 3

// Analyzer produces a troubleshooting result for one issue.
type Analyzer interface {
	AnalyzeIssue(ctx context.Context, org, repo string, issue *github.Issue) (*analysis.Result, error)
	Model() string
}

// NotifyFunc delivers one result to Slack. Delivery failure is reported in
// the Outcome, never as an error, so it cannot fail the run.
type NotifyFunc func(issue slacknotify.IssueRef, result *analysis.Result) slacknotify.Outcome

// Processor runs stored issues through the agent.
type Processor struct {
	Store       *storage.Store
	Agent       Analyzer
	Notify      NotifyFunc // nil disables Slack notification
	Concurrency int        // <= 0 means DefaultConcurrency
	DryRun      bool
}

// Summary reports what a run did.
type Summary struct {
	Processed int // results produced and saved
	Failed    int // issues whose analysis or save failed
	Notified  int // results delivered to Slack
	Skipped   int // dry-run only
	Errors    []error
}

// Run analyzes every stored issue matching the filters. Per-issue failures
// are collected in the summary; only listing failures abort the run.
func (p *Processor) Run(ctx context.Context, org, repo string, number int) (*Summary, error) {
	issues, err := p.Store.ListIssues(org, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored issues: %w", err)
	}

	summary := &Summary{}
	if len(issues) == 0 {
		return summary, nil
	}

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, stored := range issues {
		stored := stored
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			outcome := p.processOne(ctx, stored)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome.err != nil:
				summary.Failed++
				summary.Errors = append(summary.Errors,
					fmt.Errorf("%s/%s#%d: %w", stored.Org, stored.Repo, stored.Issue.Number, outcome.err))
			case outcome.skipped:
				summary.Skipped++
			default:
				summary.Processed++
				if outcome.notified {
					summary.Notified++
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

type issueOutcome struct {
	err      error
	skipped  bool
	notified bool
}

func (p *Processor) processOne(ctx context.Context, stored *storage.StoredIssue) issueOutcome {
	issue := stored.Issue
	if issue == nil {
		return issueOutcome{err: fmt.Errorf("stored issue has no payload")}
	}

	if p.DryRun {
		log.Printf("triage: would analyze %s/%s#%d: %s", stored.Org, stored.Repo, issue.Number, issue.Title)
		return issueOutcome{skipped: true}
	}

	result, err := p.Agent.AnalyzeIssue(ctx, stored.Org, stored.Repo, issue)
	if err != nil {
		log.Printf("triage: analysis failed for %s/%s#%d: %v", stored.Org, stored.Repo, issue.Number, err)
		return issueOutcome{err: err}
	}

	if _, err := p.Store.SaveResult(stored.Org, stored.Repo, issue.Number, p.Agent.Model(), result); err != nil {
		return issueOutcome{err: err}
	}
	log.Printf("triage: analyzed %s/%s#%d (status=%s)", stored.Org, stored.Repo, issue.Number, result.Status)

	out := issueOutcome{}
	if p.Notify != nil {
		ref := issueRef(stored)
		outcome := p.Notify(ref, result)
		out.notified = outcome.Delivered
	}
	return out
}

func issueRef(stored *storage.StoredIssue) slacknotify.IssueRef {
	issue := stored.Issue
	url := issue.HTMLURL
	if url == "" {
		url = github.IssueURL(stored.Org, stored.Repo, issue.Number)
	}
	return slacknotify.IssueRef{
		Org:    stored.Org,
		Repo:   stored.Repo,
		Number: issue.Number,
		Title:  issue.Title,
		URL:    url,
	}
}
