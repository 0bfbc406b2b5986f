// Package normalize converts fetch results from any source path into a
// single canonical record shape. Downstream consumers never see which
// path produced a record except through its provenance tag.
package normalize

import (
	"strings"
	"unicode/utf8"

	errs "xscraper/pkg/errors"
	"xscraper/pkg/htmldoc"
	"xscraper/pkg/twitter"
)

// Provenance values mark which source path produced a record.
const (
	ProvenancePrimary          = "primary"
	ProvenanceSearchRecovery   = "search_recovery"
	ProvenanceDocumentFallback = "document_fallback"
)

// maxRawSnippet bounds the raw text carried on fallback records.
const maxRawSnippet = 4000

// Record is the canonical result shape. Engagement counts are pointers:
// nil means the source did not report the value, which is different
// from a reported zero.
type Record struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Author     string   `json:"author,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
	Likes      *int64   `json:"likes"`
	Reposts    *int64   `json:"reposts"`
	Replies    *int64   `json:"replies"`
	Views      *int64   `json:"views"`
	Media      []string `json:"media,omitempty"`
	Provenance string   `json:"provenance"`
	RawSnippet string   `json:"raw_snippet,omitempty"`
}

// FromItem builds a record from a structured API item.
func FromItem(item twitter.Item, provenance string) (Record, error) {
	rec := Record{
		ID:         item.ID,
		Text:       item.Text,
		CreatedAt:  item.CreatedAt,
		Likes:      item.Likes,
		Reposts:    item.Reposts,
		Replies:    item.Replies,
		Views:      item.Views,
		Media:      item.Media,
		Provenance: provenance,
	}
	if item.User != nil {
		rec.Author = item.User.Handle
	}
	return Normalize(rec)
}

// FromStatus builds a record from a scraped single-post page.
func FromStatus(id string, status htmldoc.Status) (Record, error) {
	return Normalize(Record{
		ID:         id,
		Text:       status.Text,
		Author:     status.Author,
		CreatedAt:  status.CreatedAt,
		Media:      status.Media,
		Provenance: ProvenanceDocumentFallback,
	})
}

// FromArticle builds a record from one post container on a scraped
// listing page.
func FromArticle(article htmldoc.Article) (Record, error) {
	return Normalize(Record{
		ID:         article.StatusID,
		Text:       article.Text,
		Provenance: ProvenanceDocumentFallback,
	})
}

// RawDocument builds a degraded record carrying only bounded page text,
// for pages where no per-post structure could be recognized.
func RawDocument(id, snippet string) (Record, error) {
	return Normalize(Record{
		ID:         id,
		RawSnippet: snippet,
		Provenance: ProvenanceDocumentFallback,
	})
}

// Normalize canonicalizes a record in place and validates it. It is
// idempotent: normalizing an already-normal record returns it
// unchanged.
func Normalize(rec Record) (Record, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	rec.Text = clean(rec.Text)
	rec.Author = strings.TrimPrefix(strings.TrimSpace(rec.Author), "@")
	rec.CreatedAt = strings.TrimSpace(rec.CreatedAt)
	rec.RawSnippet = truncateRunes(rec.RawSnippet, maxRawSnippet)

	if len(rec.Media) > 0 {
		media := make([]string, 0, len(rec.Media))
		for _, m := range rec.Media {
			if m = strings.TrimSpace(m); m != "" {
				media = append(media, m)
			}
		}
		if len(media) == 0 {
			media = nil
		}
		rec.Media = media
	}

	switch rec.Provenance {
	case ProvenancePrimary, ProvenanceSearchRecovery, ProvenanceDocumentFallback:
	default:
		return Record{}, errs.New(errs.ErrorTypeNormalization,
			"record has no recognized provenance", 0)
	}
	if rec.Text == "" && rec.RawSnippet == "" {
		return Record{}, errs.New(errs.ErrorTypeNormalization,
			"record carries no text", 0)
	}
	// Structured sources always report an id; only scraped documents may
	// produce anonymous records.
	if rec.ID == "" && rec.Provenance != ProvenanceDocumentFallback {
		return Record{}, errs.New(errs.ErrorTypeNormalization,
			"structured record missing identifier", 0)
	}
	return rec, nil
}

// clean collapses whitespace runs and strips invalid UTF-8.
func clean(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
