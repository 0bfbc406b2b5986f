package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "xscraper/pkg/errors"
	"xscraper/pkg/htmldoc"
	"xscraper/pkg/twitter"
)

func int64p(v int64) *int64 { return &v }

func TestFromItemKeepsUnknownCountsNil(t *testing.T) {
	item := twitter.Item{
		ID:    "1",
		Text:  "  hello   world ",
		Likes: int64p(0),
		User:  &twitter.UserProfile{Handle: "alice"},
	}

	rec, err := FromItem(item, ProvenancePrimary)
	require.NoError(t, err)

	assert.Equal(t, "hello world", rec.Text)
	assert.Equal(t, "alice", rec.Author)
	require.NotNil(t, rec.Likes)
	assert.Equal(t, int64(0), *rec.Likes, "a reported zero must survive")
	assert.Nil(t, rec.Reposts, "unreported counts stay nil")
	assert.Nil(t, rec.Views)
	assert.Equal(t, ProvenancePrimary, rec.Provenance)
}

func TestFromStatusTagsDocumentFallback(t *testing.T) {
	rec, err := FromStatus("777", htmldoc.Status{
		Text:   "post body",
		Author: "@alice",
		Media:  []string{" https://img/1.jpg ", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "777", rec.ID)
	assert.Equal(t, ProvenanceDocumentFallback, rec.Provenance)
	assert.Equal(t, "alice", rec.Author, "leading @ is stripped")
	assert.Equal(t, []string{"https://img/1.jpg"}, rec.Media)
	assert.Nil(t, rec.Likes, "scraped pages never report counts")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	rec, err := Normalize(Record{
		ID:         " 42 ",
		Text:       "a \t b\n c",
		Author:     "@bob",
		Likes:      int64p(7),
		Provenance: ProvenanceSearchRecovery,
	})
	require.NoError(t, err)

	again, err := Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, rec, again)
}

func TestNormalizeRejectsUnknownProvenance(t *testing.T) {
	_, err := Normalize(Record{Text: "x", Provenance: "scraped"})
	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeNormalization, typed.Type)
}

func TestNormalizeRejectsEmptyText(t *testing.T) {
	_, err := Normalize(Record{ID: "1", Provenance: ProvenancePrimary})
	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeNormalization, typed.Type)

	_, err = Normalize(Record{ID: "1", RawSnippet: "raw only", Provenance: ProvenanceDocumentFallback})
	assert.NoError(t, err, "a raw snippet alone is enough")
}

func TestNormalizeRequiresIdentifierFromStructuredSources(t *testing.T) {
	for _, prov := range []string{ProvenancePrimary, ProvenanceSearchRecovery} {
		_, err := FromItem(twitter.Item{Text: "body without id"}, prov)
		var typed *errs.Error
		require.ErrorAs(t, err, &typed, "provenance %s", prov)
		assert.Equal(t, errs.ErrorTypeNormalization, typed.Type)
	}

	rec, err := Normalize(Record{Text: "scraped body", Provenance: ProvenanceDocumentFallback})
	require.NoError(t, err, "scraped documents may produce anonymous records")
	assert.Empty(t, rec.ID)
}

func TestNormalizeDoesNotMutateInputMedia(t *testing.T) {
	media := []string{" https://img/1.jpg ", "", "https://img/2.jpg"}
	item := twitter.Item{ID: "1", Text: "x", Media: media}

	rec, err := FromItem(item, ProvenancePrimary)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, rec.Media)
	assert.Equal(t, []string{" https://img/1.jpg ", "", "https://img/2.jpg"}, media,
		"the caller's slice must stay untouched")
}

func TestNormalizeBoundsRawSnippet(t *testing.T) {
	long := make([]byte, maxRawSnippet*2)
	for i := range long {
		long[i] = 'a'
	}
	rec, err := Normalize(Record{Text: "x", RawSnippet: string(long), Provenance: ProvenanceDocumentFallback})
	require.NoError(t, err)
	assert.Len(t, rec.RawSnippet, maxRawSnippet)
}
