package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "xscraper/pkg/errors"
	"xscraper/pkg/identity"
)

func testIdentity() *identity.Identity {
	return identity.New("acc1", "tok", "csrf", "", 1)
}

func newClientForServer(server *httptest.Server) *APIClient {
	client := NewAPIClient(5*time.Second, nil)
	client.SetBaseURL(server.URL)
	return client
}

func TestSearchDecodesOrderedStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/search/tweets.json")
		assert.Equal(t, "recent", r.URL.Query().Get("result_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"statuses":[
			{"id_str":"1","full_text":"first","created_at":"Mon Jan 01 00:00:00 +0000 2024",
			 "favorite_count":3,"user":{"id_str":"9","screen_name":"alice"}},
			{"id_str":"2","full_text":"second","created_at":"Mon Jan 01 00:01:00 +0000 2024",
			 "entities":{"media":[{"media_url_https":"https://img/1.jpg"}]}}
		]}`))
	}))
	defer server.Close()

	client := newClientForServer(server)
	items, err := client.Search(context.Background(), testIdentity(), "india", TabLatest, 5)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "first", items[0].Text)
	require.NotNil(t, items[0].Likes)
	assert.Equal(t, int64(3), *items[0].Likes)
	assert.Equal(t, "alice", items[0].User.Handle)

	assert.Equal(t, "2", items[1].ID)
	assert.Nil(t, items[1].Likes, "unreported count must stay unknown")
	assert.Equal(t, []string{"https://img/1.jpg"}, items[1].Media)
}

func TestSearchSendsIdentityCookies(t *testing.T) {
	var gotCookie, gotCSRF string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotCSRF = r.Header.Get("x-csrf-token")
		_, _ = w.Write([]byte(`{"statuses":[]}`))
	}))
	defer server.Close()

	client := newClientForServer(server)
	_, err := client.Search(context.Background(), testIdentity(), "q", TabLatest, 1)
	require.NoError(t, err)

	assert.Contains(t, gotCookie, "auth_token=tok")
	assert.Contains(t, gotCookie, "ct0=csrf")
	assert.Equal(t, "csrf", gotCSRF)
}

func TestResolveUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "modi", r.URL.Query().Get("screen_name"))
		_, _ = w.Write([]byte(`{"id_str":"12345","screen_name":"modi","name":"Modi","followers_count":100,"verified":true}`))
	}))
	defer server.Close()

	client := newClientForServer(server)
	profile, err := client.ResolveUser(context.Background(), testIdentity(), "modi")
	require.NoError(t, err)
	assert.Equal(t, "12345", profile.ID)
	assert.True(t, profile.Verified)
	require.NotNil(t, profile.Followers)
	assert.Equal(t, int64(100), *profile.Followers)
}

func TestResolveUserMissingIDIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newClientForServer(server)
	_, err := client.ResolveUser(context.Background(), testIdentity(), "ghost")
	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeNotFound, typed.Type)
}

func TestUserTimelineDecodesArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12345", r.URL.Query().Get("user_id"))
		_, _ = w.Write([]byte(`[{"id_str":"10","full_text":"tl post"}]`))
	}))
	defer server.Close()

	client := newClientForServer(server)
	items, err := client.UserTimeline(context.Background(), testIdentity(), "12345", 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "tl post", items[0].Text)
}

func TestItemByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "777", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"id_str":"777","full_text":"detail","reply_count":0}`))
	}))
	defer server.Close()

	client := newClientForServer(server)
	item, err := client.ItemByID(context.Background(), testIdentity(), "777")
	require.NoError(t, err)
	assert.Equal(t, "777", item.ID)
	require.NotNil(t, item.Replies)
	assert.Equal(t, int64(0), *item.Replies, "a reported zero must survive as zero")
}

func TestStatusCodesMapToTypedErrors(t *testing.T) {
	cases := []struct {
		status int
		want   errs.ErrorType
	}{
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusUnauthorized, errs.ErrorTypeAuth},
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusBadGateway, errs.ErrorTypeServerError},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		client := newClientForServer(server)
		_, err := client.ItemByID(context.Background(), testIdentity(), "1")
		var typed *errs.Error
		require.ErrorAs(t, err, &typed, "status %d", tc.status)
		assert.Equal(t, tc.want, typed.Type, "status %d", tc.status)
		assert.Equal(t, tc.status, typed.Code)

		server.Close()
	}
}

func TestMalformedJSONIsParsingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"statuses": not json`))
	}))
	defer server.Close()

	client := newClientForServer(server)
	_, err := client.Search(context.Background(), testIdentity(), "q", TabLatest, 1)
	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeParsing, typed.Type)
}
