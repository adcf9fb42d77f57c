package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghtriage/ghtriage/internal/analysis"
	"github.com/ghtriage/ghtriage/internal/github"
	"github.com/ghtriage/ghtriage/internal/slacknotify"
	"github.com/ghtriage/ghtriage/internal/storage"
)

type fakeAgent struct {
	mu       sync.Mutex
	analyzed []int
	inFlight int
	maxSeen  int
	failFor  map[int]error
	delay    time.Duration
}

func (f *fakeAgent) AnalyzeIssue(ctx context.Context, org, repo string, issue *github.Issue) (*analysis.Result, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.analyzed = append(f.analyzed, issue.Number)
	err := f.failFor[issue.Number]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &analysis.Result{
		Status:    analysis.StatusHighConfidence,
		RootCause: fmt.Sprintf("cause for #%d", issue.Number),
		AgentName: "troubleshooter",
		Timestamp: time.Now().UTC(),
	}, nil
}

func (f *fakeAgent) Model() string { return "test-model" }

func seedStore(t *testing.T, numbers ...int) *storage.Store {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	for _, n := range numbers {
		_, err := store.SaveIssue("acme", "widgets", &github.Issue{
			Number:  n,
			Title:   fmt.Sprintf("issue %d", n),
			State:   "closed",
			HTMLURL: github.IssueURL("acme", "widgets", n),
		})
		require.NoError(t, err)
	}
	return store
}

func TestRun_AnalyzesAndSavesAll(t *testing.T) {
	store := seedStore(t, 1, 2, 3)
	agent := &fakeAgent{}
	p := &Processor{Store: store, Agent: agent}

	summary, err := p.Run(context.Background(), "acme", "widgets", 0)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.ElementsMatch(t, []int{1, 2, 3}, agent.analyzed)

	for _, n := range []int{1, 2, 3} {
		stored, err := store.LoadResult("acme", "widgets", n)
		require.NoError(t, err)
		assert.Equal(t, "test-model", stored.Model)
		assert.Equal(t, fmt.Sprintf("cause for #%d", n), stored.Analysis.RootCause)
	}
}

func TestRun_FailureDoesNotStopOthers(t *testing.T) {
	store := seedStore(t, 1, 2, 3)
	agent := &fakeAgent{failFor: map[int]error{2: errors.New("model overloaded")}}
	p := &Processor{Store: store, Agent: agent}

	summary, err := p.Run(context.Background(), "acme", "widgets", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Error(), "acme/widgets#2")

	_, err = store.LoadResult("acme", "widgets", 2)
	assert.Error(t, err, "failed issue must not leave a result behind")
}

func TestRun_NotifiesPerResult(t *testing.T) {
	store := seedStore(t, 1, 2)
	agent := &fakeAgent{}

	var mu sync.Mutex
	var notified []slacknotify.IssueRef
	p := &Processor{
		Store: store,
		Agent: agent,
		Notify: func(issue slacknotify.IssueRef, result *analysis.Result) slacknotify.Outcome {
			mu.Lock()
			notified = append(notified, issue)
			mu.Unlock()
			return slacknotify.Outcome{Delivered: true, Mode: slacknotify.ModeNewMessage}
		},
	}

	summary, err := p.Run(context.Background(), "acme", "widgets", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Notified)
	require.Len(t, notified, 2)
	assert.Equal(t, "acme", notified[0].Org)
	assert.Contains(t, notified[0].URL, "github.com/acme/widgets/issues/")
}

func TestRun_NotificationFailureDoesNotFailRun(t *testing.T) {
	store := seedStore(t, 1)
	p := &Processor{
		Store: store,
		Agent: &fakeAgent{},
		Notify: func(issue slacknotify.IssueRef, result *analysis.Result) slacknotify.Outcome {
			return slacknotify.Outcome{Delivered: false, Mode: slacknotify.ModeFailed, Err: errors.New("channel_not_found")}
		},
	}

	summary, err := p.Run(context.Background(), "acme", "widgets", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Notified)
	assert.Empty(t, summary.Errors)
}

func TestRun_DryRunCallsNoAgent(t *testing.T) {
	store := seedStore(t, 1, 2)
	agent := &fakeAgent{}
	p := &Processor{Store: store, Agent: agent, DryRun: true}

	summary, err := p.Run(context.Background(), "acme", "widgets", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, agent.analyzed)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	store := seedStore(t, 1, 2, 3, 4, 5, 6)
	agent := &fakeAgent{delay: 20 * time.Millisecond}
	p := &Processor{Store: store, Agent: agent, Concurrency: 2}

	_, err := p.Run(context.Background(), "acme", "widgets", 0)
	require.NoError(t, err)

	assert.LessOrEqual(t, agent.maxSeen, 2)
	assert.Len(t, agent.analyzed, 6)
}

func TestRun_EmptyStore(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	p := &Processor{Store: store, Agent: &fakeAgent{}}

	summary, err := p.Run(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
}
