package twitter

// Item is one post as returned by the structured client. Engagement
// counters are pointers: nil means the API did not report the value,
// which is distinct from a reported zero.
type Item struct {
	ID             string
	Text           string
	CreatedAt      string
	ConversationID string
	Likes          *int64
	Reposts        *int64
	Replies        *int64
	Views          *int64
	Media          []string
	User           *UserProfile
}

// UserProfile is a resolved platform user.
type UserProfile struct {
	ID          string
	Handle      string
	DisplayName string
	Followers   *int64
	Verified    bool
}

// Wire types for the legacy REST endpoints.

type tweetJSON struct {
	IDStr             string    `json:"id_str"`
	FullText          string    `json:"full_text"`
	Text              string    `json:"text"`
	CreatedAt         string    `json:"created_at"`
	ConversationIDStr string    `json:"conversation_id_str"`
	FavoriteCount     *int64    `json:"favorite_count"`
	RetweetCount      *int64    `json:"retweet_count"`
	ReplyCount        *int64    `json:"reply_count"`
	ViewCount         *int64    `json:"view_count"`
	User              *userJSON `json:"user"`
	Entities          struct {
		Media []struct {
			MediaURLHTTPS string `json:"media_url_https"`
		} `json:"media"`
	} `json:"entities"`
}

type userJSON struct {
	IDStr          string `json:"id_str"`
	ScreenName     string `json:"screen_name"`
	Name           string `json:"name"`
	FollowersCount *int64 `json:"followers_count"`
	Verified       bool   `json:"verified"`
}

type searchResponseJSON struct {
	Statuses []tweetJSON `json:"statuses"`
}

func (t *tweetJSON) toItem() Item {
	text := t.FullText
	if text == "" {
		text = t.Text
	}
	item := Item{
		ID:             t.IDStr,
		Text:           text,
		CreatedAt:      t.CreatedAt,
		ConversationID: t.ConversationIDStr,
		Likes:          t.FavoriteCount,
		Reposts:        t.RetweetCount,
		Replies:        t.ReplyCount,
		Views:          t.ViewCount,
	}
	for _, m := range t.Entities.Media {
		if m.MediaURLHTTPS != "" {
			item.Media = append(item.Media, m.MediaURLHTTPS)
		}
	}
	if t.User != nil {
		item.User = t.User.toProfile()
	}
	return item
}

func (u *userJSON) toProfile() *UserProfile {
	return &UserProfile{
		ID:          u.IDStr,
		Handle:      u.ScreenName,
		DisplayName: u.Name,
		Followers:   u.FollowersCount,
		Verified:    u.Verified,
	}
}
