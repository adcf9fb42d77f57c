package slacknotify

import (
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

var testIssue = IssueRef{
	Org:    "acme",
	Repo:   "widgets",
	Number: 42,
	Title:  "Service crashes on startup",
	URL:    "https://github.com/acme/widgets/issues/42",
}

func TestResolveThread_MatchByURLAndNumber(t *testing.T) {
	api := &mockSlackAPI{
		searchFn: func(query string) (*slack.SearchMessages, error) {
			return searchResult(slack.SearchMessage{
				Text:      "anyone seen https://github.com/acme/widgets/issues/42 (#42)?",
				Timestamp: "1000.1",
			}), nil
		},
	}

	lookup := ResolveThread(NewDeliverer(api), testIssue, "#support-chat")
	if lookup.State != LookupFound {
		t.Fatalf("State = %v, want LookupFound", lookup.State)
	}
	if lookup.ThreadTS != "1000.1" {
		t.Errorf("ThreadTS = %q, want %q", lookup.ThreadTS, "1000.1")
	}
}

func TestResolveThread_MatchBySlugAndNumber(t *testing.T) {
	api := &mockSlackAPI{
		searchFn: func(query string) (*slack.SearchMessages, error) {
			return searchResult(slack.SearchMessage{
				Text:      "escalating acme/widgets #42: crash loop",
				Timestamp: "2000.2",
			}), nil
		},
	}

	lookup := ResolveThread(NewDeliverer(api), testIssue, "#support-chat")
	if lookup.State != LookupFound {
		t.Fatalf("State = %v, want LookupFound", lookup.State)
	}
	if lookup.ThreadTS != "2000.2" {
		t.Errorf("ThreadTS = %q, want %q", lookup.ThreadTS, "2000.2")
	}
}

// A preview mentioning #42 for a different repository must not match.
func TestResolveThread_RejectsWrongRepo(t *testing.T) {
	api := &mockSlackAPI{
		searchFn: func(query string) (*slack.SearchMessages, error) {
			return searchResult(slack.SearchMessage{
				Text:      "tracking othercorp/gadgets #42 over here",
				Timestamp: "1000.1",
			}), nil
		},
	}

	lookup := ResolveThread(NewDeliverer(api), testIssue, "#support-chat")
	if lookup.State != LookupNotFound {
		t.Fatalf("State = %v, want LookupNotFound", lookup.State)
	}
	if lookup.ThreadTS != "" {
		t.Errorf("ThreadTS = %q, want empty", lookup.ThreadTS)
	}
}

// With two matches, the earliest timestamp (the thread root) wins.
func TestResolveThread_EarliestTimestampWins(t *testing.T) {
	api := &mockSlackAPI{
		searchFn: func(query string) (*slack.SearchMessages, error) {
			return searchResult(
				slack.SearchMessage{Text: "re: acme/widgets #42", Timestamp: "2000.9"},
				slack.SearchMessage{Text: "opened acme/widgets #42", Timestamp: "1000.1"},
				slack.SearchMessage{Text: "same as acme/widgets #42", Timestamp: "1500.5"},
			), nil
		},
	}

	lookup := ResolveThread(NewDeliverer(api), testIssue, "#support-chat")
	if lookup.State != LookupFound {
		t.Fatalf("State = %v, want LookupFound", lookup.State)
	}
	if lookup.ThreadTS != "1000.1" {
		t.Errorf("ThreadTS = %q, want %q (earliest)", lookup.ThreadTS, "1000.1")
	}
}

// The fallback query fires when the literal-URL query finds nothing.
func TestResolveThread_FallbackQuery(t *testing.T) {
	api := &mockSlackAPI{
		searchFn: func(query string) (*slack.SearchMessages, error) {
			if strings.Contains(query, "https://") {
				return searchResult(), nil
			}
			return searchResult(slack.SearchMessage{
				Text:      "acme/widgets #42 is back",
				Timestamp: "3000.3",
			}), nil
		},
	}

	d := NewDeliverer(api)
	lookup := ResolveThread(d, testIssue, "#support-chat")
	if lookup.State != LookupFound {
		t.Fatalf("State = %v, want LookupFound", lookup.State)
	}
	if len(api.searchQueries) != 2 {
		t.Errorf("search calls = %d, want 2 (primary + fallback)", len(api.searchQueries))
	}
	if !strings.Contains(api.searchQueries[0], testIssue.URL) {
		t.Errorf("primary query = %q, want to contain issue URL", api.searchQueries[0])
	}
	if !strings.Contains(api.searchQueries[1], "#42") {
		t.Errorf("fallback query = %q, want to contain #42", api.searchQueries[1])
	}
}

// Queries are scoped to the configured channel.
func TestResolveThread_ChannelScopedQueries(t *testing.T) {
	api := &mockSlackAPI{}
	ResolveThread(NewDeliverer(api), testIssue, "#support-chat")

	for _, q := range api.searchQueries {
		if !strings.Contains(q, "in:#support-chat") {
			t.Errorf("query %q missing channel scope", q)
		}
	}
}

// Search API failure is reported as LookupError, not swallowed here;
// the collapse to not-found happens in the orchestrator.
func TestResolveThread_SearchErrorTagged(t *testing.T) {
	api := &mockSlackAPI{
		searchFn: func(query string) (*slack.SearchMessages, error) {
			return nil, errors.New("missing_scope")
		},
	}

	lookup := ResolveThread(NewDeliverer(api), testIssue, "#support-chat")
	if lookup.State != LookupError {
		t.Fatalf("State = %v, want LookupError", lookup.State)
	}
	if lookup.Err == nil {
		t.Error("Err = nil, want the search error")
	}
}

func TestSelectThread_UnparseableTimestamp(t *testing.T) {
	// An unparseable timestamp is still selectable when it is the only
	// candidate, but never beats a parseable one.
	matches := []slack.SearchMessage{
		{Text: "acme/widgets #42", Timestamp: "garbage"},
	}
	ts, ok := selectThread(matches, testIssue)
	if !ok || ts != "garbage" {
		t.Errorf("selectThread() = (%q, %t), want (garbage, true)", ts, ok)
	}

	matches = append(matches, slack.SearchMessage{Text: "acme/widgets #42", Timestamp: "500.0"})
	ts, ok = selectThread(matches, testIssue)
	if !ok || ts != "500.0" {
		t.Errorf("selectThread() = (%q, %t), want (500.0, true)", ts, ok)
	}
}
