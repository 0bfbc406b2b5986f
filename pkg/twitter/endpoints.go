package twitter

import (
	"fmt"
	"net/url"
)

const (
	// APIBaseURL serves the structured REST endpoints.
	APIBaseURL = "https://api.x.com/1.1"
	// PageBaseURL serves public HTML pages used by the document fallback.
	PageBaseURL = "https://x.com"

	// TabLatest and TabTop are the supported search tabs.
	TabLatest = "Latest"
	TabTop    = "Top"
)

// SearchEndpoint builds the structured search URL.
func SearchEndpoint(base, query, tab string, count int) string {
	resultType := "recent"
	if tab == TabTop {
		resultType = "popular"
	}
	return fmt.Sprintf("%s/search/tweets.json?q=%s&result_type=%s&count=%d&tweet_mode=extended",
		base, url.QueryEscape(query), resultType, count)
}

// UserShowEndpoint builds the user-resolution URL for a handle.
func UserShowEndpoint(base, handle string) string {
	return fmt.Sprintf("%s/users/show.json?screen_name=%s", base, url.QueryEscape(handle))
}

// UserTimelineEndpoint builds the timeline URL for a numeric user id.
func UserTimelineEndpoint(base, userID string, count int) string {
	return fmt.Sprintf("%s/statuses/user_timeline.json?user_id=%s&count=%d&tweet_mode=extended",
		base, url.QueryEscape(userID), count)
}

// StatusShowEndpoint builds the single-item lookup URL.
func StatusShowEndpoint(base, id string) string {
	return fmt.Sprintf("%s/statuses/show.json?id=%s&tweet_mode=extended", base, url.QueryEscape(id))
}

// SearchPageURL is the public search page for the document fallback.
func SearchPageURL(base, query string) string {
	return fmt.Sprintf("%s/search?q=%s&src=typed_query", base, url.QueryEscape(query))
}

// ProfilePageURL is a user's public profile page.
func ProfilePageURL(base, handle string) string {
	return fmt.Sprintf("%s/%s", base, url.PathEscape(handle))
}

// StatusPageURL is the public page of a single post.
func StatusPageURL(base, id string) string {
	return fmt.Sprintf("%s/i/status/%s", base, url.PathEscape(id))
}
