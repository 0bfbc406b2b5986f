// Package htmldoc extracts best-effort structured data from public HTML
// pages. It is the last layer of the fallback chain: everything here is
// tolerant of missing markup and returns empty values instead of errors
// for absent fields.
package htmldoc

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	errs "xscraper/pkg/errors"
)

const (
	// articleTextLimit bounds per-post generic text extraction.
	articleTextLimit = 800
	// tweetTextMarker is the stable attribute marking post text containers.
	tweetTextMarker = "tweetText"
)

var (
	statusLinkPattern = regexp.MustCompile(`/status/(\d+)`)
	profileIDPattern  = regexp.MustCompile(`profile_user_id["']?\s*:\s*["']?(\d+)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Document wraps a parsed HTML page.
type Document struct {
	doc *goquery.Document
	raw []byte
}

// Parse builds a Document from raw markup.
func Parse(data []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, fmt.Sprintf("parsing document: %v", err), 0)
	}
	return &Document{doc: doc, raw: data}, nil
}

// MetaProperty returns the content of a <meta property=...> tag, or "".
func (d *Document) MetaProperty(property string) string {
	content, _ := d.doc.Find(fmt.Sprintf("meta[property=%q]", property)).First().Attr("content")
	return strings.TrimSpace(content)
}

// MetaName returns the content of a <meta name=...> tag, or "".
func (d *Document) MetaName(name string) string {
	content, _ := d.doc.Find(fmt.Sprintf("meta[name=%q]", name)).First().Attr("content")
	return strings.TrimSpace(content)
}

// PlainText returns a whitespace-collapsed text rendering of the whole
// document, truncated to max bytes.
func (d *Document) PlainText(max int) string {
	text := collapse(d.doc.Find("body").Text())
	if text == "" {
		text = collapse(d.doc.Text())
	}
	return truncate(text, max)
}

// EmbeddedProfileID scans the raw page for a platform-internal numeric
// user id. Profile pages embed it in an inline data blob.
func (d *Document) EmbeddedProfileID() string {
	if m := profileIDPattern.FindSubmatch(d.raw); m != nil {
		return string(m[1])
	}
	return ""
}

// Article is one post-like container found on a page.
type Article struct {
	StatusID string
	Text     string
}

// Articles extracts up to limit post containers from a search or
// timeline page. Posts without a recognizable text container fall back
// to a bounded generic extraction of the whole article.
func (d *Document) Articles(limit int) []Article {
	var articles []Article
	d.doc.Find("article").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if limit > 0 && len(articles) >= limit {
			return false
		}

		text := collapse(sel.Find(fmt.Sprintf("div[data-testid=%q]", tweetTextMarker)).First().Text())
		if text == "" {
			text = truncate(collapse(sel.Text()), articleTextLimit)
		}

		var statusID string
		sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if m := statusLinkPattern.FindStringSubmatch(href); m != nil {
				statusID = m[1]
				return false
			}
			return true
		})

		articles = append(articles, Article{StatusID: statusID, Text: text})
		return true
	})
	return articles
}

// Status holds whatever fields a single post's public page exposed.
type Status struct {
	Text      string
	Author    string
	CreatedAt string
	Media     []string
}

// ExtractStatus pulls post fields out of a status page, preferring
// descriptive metadata over structured containers over generic text.
func (d *Document) ExtractStatus() Status {
	s := Status{
		Text:      d.MetaProperty("og:description"),
		Author:    d.MetaProperty("og:site_name"),
		CreatedAt: d.MetaProperty("article:published_time"),
	}

	if s.Text == "" {
		s.Text = collapse(d.doc.Find(fmt.Sprintf("div[data-testid=%q]", tweetTextMarker)).First().Text())
	}
	if s.Text == "" {
		s.Text = truncate(collapse(d.doc.Find("article").First().Text()), articleTextLimit)
	}

	if img := d.MetaProperty("og:image"); img != "" {
		s.Media = append(s.Media, img)
	}
	return s
}

func collapse(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
