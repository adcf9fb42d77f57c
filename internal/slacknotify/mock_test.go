package slacknotify

import (
	"github.com/slack-go/slack"
)

// mockSlackAPI implements SlackAPI for tests, recording every call.
type mockSlackAPI struct {
	searchQueries []string
	searchFn      func(query string) (*slack.SearchMessages, error)

	postChannels []string
	postOptions  [][]slack.MsgOption
	postFn       func(channelID string, options ...slack.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) SearchMessages(query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
	m.searchQueries = append(m.searchQueries, query)
	if m.searchFn != nil {
		return m.searchFn(query)
	}
	return &slack.SearchMessages{}, nil
}

func (m *mockSlackAPI) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	m.postChannels = append(m.postChannels, channelID)
	m.postOptions = append(m.postOptions, options)
	if m.postFn != nil {
		return m.postFn(channelID, options...)
	}
	return channelID, "1234.5678", nil
}

func (m *mockSlackAPI) totalCalls() int {
	return len(m.searchQueries) + len(m.postChannels)
}

// searchResult builds a search response from (text, ts) pairs.
func searchResult(matches ...slack.SearchMessage) *slack.SearchMessages {
	return &slack.SearchMessages{
		Total:   len(matches),
		Matches: matches,
	}
}

// appliedForm renders posted MsgOptions into their wire form so tests can
// inspect thread_ts and blocks.
func appliedForm(options []slack.MsgOption) (map[string]string, error) {
	_, values, err := slack.UnsafeApplyMsgOptions("token", "channel", "https://slack.com/api/", options...)
	if err != nil {
		return nil, err
	}
	form := make(map[string]string, len(values))
	for k := range values {
		form[k] = values.Get(k)
	}
	return form, nil
}
