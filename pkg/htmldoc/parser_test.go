package htmldoc

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<article>
  <a href="/alice/status/111">link</a>
  <div data-testid="tweetText">first post text</div>
</article>
<article>
  <a href="/bob">profile</a>
  <a href="/bob/status/222?s=20">link</a>
  <div data-testid="tweetText">second   post
  text</div>
</article>
<article>
  <p>no structured container here, just raw words</p>
</article>
</body></html>`

const statusPage = `<html><head>
<meta property="og:description" content="the post body from metadata"/>
<meta property="og:site_name" content="alice"/>
<meta property="article:published_time" content="2024-01-01T00:00:00Z"/>
<meta property="og:image" content="https://img/pic.jpg"/>
</head><body><article><div data-testid="tweetText">inline body</div></article></body></html>`

func TestArticlesExtractsTextAndStatusIDs(t *testing.T) {
	doc, err := Parse([]byte(searchPage))
	require.NoError(t, err)

	articles := doc.Articles(10)
	require.Len(t, articles, 3)

	assert.Equal(t, "111", articles[0].StatusID)
	assert.Equal(t, "first post text", articles[0].Text)

	assert.Equal(t, "222", articles[1].StatusID)
	assert.Equal(t, "second post text", articles[1].Text, "whitespace must collapse")

	assert.Empty(t, articles[2].StatusID)
	assert.Contains(t, articles[2].Text, "raw words", "generic extraction covers unmarked posts")
}

func TestArticlesHonorsLimit(t *testing.T) {
	doc, err := Parse([]byte(searchPage))
	require.NoError(t, err)
	assert.Len(t, doc.Articles(2), 2)
}

func TestExtractStatusPrefersMetadata(t *testing.T) {
	doc, err := Parse([]byte(statusPage))
	require.NoError(t, err)

	status := doc.ExtractStatus()
	assert.Equal(t, "the post body from metadata", status.Text)
	assert.Equal(t, "alice", status.Author)
	assert.Equal(t, "2024-01-01T00:00:00Z", status.CreatedAt)
	assert.Equal(t, []string{"https://img/pic.jpg"}, status.Media)
}

func TestExtractStatusFallsBackToContainer(t *testing.T) {
	page := `<html><body><article><div data-testid="tweetText">inline only</div></article></body></html>`
	doc, err := Parse([]byte(page))
	require.NoError(t, err)

	status := doc.ExtractStatus()
	assert.Equal(t, "inline only", status.Text)
	assert.Empty(t, status.Author)
	assert.Empty(t, status.Media)
}

func TestEmbeddedProfileID(t *testing.T) {
	page := `<html><body><script>{"profile_user_id":"987654321","other":1}</script></body></html>`
	doc, err := Parse([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "987654321", doc.EmbeddedProfileID())

	empty, err := Parse([]byte("<html><body>nothing</body></html>"))
	require.NoError(t, err)
	assert.Empty(t, empty.EmbeddedProfileID())
}

func TestPlainTextIsBounded(t *testing.T) {
	doc, err := Parse([]byte("<html><body><p>aaaa bbbb cccc dddd</p></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "aaaa bbbb", doc.PlainText(9))
	assert.Equal(t, "aaaa bbbb cccc dddd", doc.PlainText(0), "zero means unbounded")
}

func TestPlainTextNeverSplitsRunes(t *testing.T) {
	doc, err := Parse([]byte("<html><body><p>héllo wörld</p></body></html>"))
	require.NoError(t, err)

	for max := 1; max < len("héllo wörld"); max++ {
		text := doc.PlainText(max)
		assert.True(t, utf8.ValidString(text), "max=%d produced %q", max, text)
		assert.LessOrEqual(t, len(text), max)
	}
	assert.Equal(t, "h", doc.PlainText(2), "a partial rune is dropped, not split")
}

func TestMetaHelpersMissingTags(t *testing.T) {
	doc, err := Parse([]byte("<html><head></head><body></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, doc.MetaProperty("og:description"))
	assert.Empty(t, doc.MetaName("description"))
}
