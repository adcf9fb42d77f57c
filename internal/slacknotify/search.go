package slacknotify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack"
)

// IssueRef identifies the GitHub issue a notification is about. It is the
// search key for locating an existing Slack discussion and supplies the
// fields the message rendering needs.
type IssueRef struct {
	Org    string
	Repo   string
	Number int
	Title  string
	URL    string
}

// Slug returns the "org/repo" identifier.
func (r IssueRef) Slug() string {
	return r.Org + "/" + r.Repo
}

// LookupState tags the result of a thread search.
type LookupState int

const (
	// LookupNotFound means the search ran but no prior discussion matched.
	LookupNotFound LookupState = iota
	// LookupFound means a matching thread root was located.
	LookupFound
	// LookupError means the search call itself failed. Callers decide
	// whether to treat this like LookupNotFound; the distinction is kept
	// so the degradation is a deliberate choice at the orchestration
	// boundary, not baked in here.
	LookupError
)

// ThreadLookup is the outcome of ResolveThread. ThreadTS is non-empty
// exactly when State is LookupFound.
type ThreadLookup struct {
	State    LookupState
	ThreadTS string
	Err      error
}

// ResolveThread searches the channel for an existing discussion of the
// issue and returns the timestamp of its thread-starting message.
//
// Two queries are tried: the literal issue URL, then a repo + "#number"
// pattern. The fallback exists because search previews often render URLs
// as link text, so the raw URL substring may not appear in searchable
// text. A candidate only matches if its preview contains "#<number>" and
// either the repo slug or the raw URL, guarding against issue-number
// collisions across repositories. Among matches, the earliest timestamp
// wins: later mentions are assumed to be replies or duplicates quoting
// the same link.
func ResolveThread(d *Deliverer, issue IssueRef, channel string) ThreadLookup {
	queries := []string{
		fmt.Sprintf("%q in:%s", issue.URL, channel),
		fmt.Sprintf("%s #%d in:%s", issue.Slug(), issue.Number, channel),
	}

	var searchErr error
	for _, query := range queries {
		matches, err := d.Search(query)
		if err != nil {
			searchErr = err
			continue
		}
		if ts, ok := selectThread(matches, issue); ok {
			return ThreadLookup{State: LookupFound, ThreadTS: ts}
		}
	}

	if searchErr != nil {
		return ThreadLookup{State: LookupError, Err: searchErr}
	}
	return ThreadLookup{State: LookupNotFound}
}

// selectThread applies the matching policy and tie-break to search results.
func selectThread(matches []slack.SearchMessage, issue IssueRef) (string, bool) {
	numberTag := fmt.Sprintf("#%d", issue.Number)

	type candidate struct {
		ts     string
		val    float64
		parsed bool
	}
	var best *candidate

	for _, m := range matches {
		if !strings.Contains(m.Text, numberTag) {
			continue
		}
		if !strings.Contains(m.Text, issue.Slug()) && !strings.Contains(m.Text, issue.URL) {
			continue
		}
		if m.Timestamp == "" {
			continue
		}

		val, err := strconv.ParseFloat(m.Timestamp, 64)
		c := candidate{ts: m.Timestamp, val: val, parsed: err == nil}
		switch {
		case best == nil:
			best = &c
		case c.parsed && !best.parsed:
			// A parseable timestamp always beats an unparseable one.
			best = &c
		case c.parsed && c.val < best.val:
			best = &c
		}
	}

	if best == nil {
		return "", false
	}
	return best.ts, true
}
