// Package resolve expands short links found in message text into URL entries
// carrying the final URL, its domain, the page title and a short snippet.
// Those entries feed the URL repetition penalties during scoring.
package resolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/quietriver/winnow/internal/tweet"
)

// SnippetRunes caps the stored snippet length.
const SnippetRunes = 280

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURLs returns the http(s) links contained in the message text, with
// trailing punctuation trimmed.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)\"'")
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Resolver fetches linked pages and extracts title and snippet.
// The zero value is not usable; construct with New.
type Resolver struct {
	converter *md.Converter
}

func New() *Resolver {
	return &Resolver{converter: md.NewConverter("", true, nil)}
}

// Resolve fetches rawURL and builds a URL entry. The returned entry always
// carries the final (post-redirect) URL and its domain; title and snippet are
// best effort and may be empty.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (tweet.URLEntry, error) {
	body, finalURL, err := fetchPage(ctx, rawURL)
	if err != nil {
		return tweet.URLEntry{}, err
	}
	defer body.Close()

	entry := tweet.URLEntry{
		URL:    finalURL,
		Domain: domainOf(finalURL),
	}

	html, err := io.ReadAll(body)
	if err != nil && len(html) == 0 {
		return entry, fmt.Errorf("read %q: %w", rawURL, err)
	}

	base, _ := url.Parse(finalURL)
	if base == nil {
		base = &url.URL{}
	}
	if article, err := readability.FromReader(strings.NewReader(string(html)), base); err == nil {
		entry.Title = strings.TrimSpace(article.Title)
		entry.Snippet = r.snippet(article.Content)
	}
	if entry.Title == "" {
		entry.Title = titleFromHTML(string(html))
	}
	return entry, nil
}

// ResolveTweet resolves every link in the message text and attaches the
// resulting entries. Failed resolutions are logged and skipped so a single
// dead link does not block scoring.
func (r *Resolver) ResolveTweet(ctx context.Context, tw *tweet.Tweet) {
	for _, raw := range ExtractURLs(tw.Text) {
		entry, err := r.Resolve(ctx, raw)
		if err != nil {
			slog.Debug("link resolution failed", "url", raw, "error", err)
			continue
		}
		tw.AddURLEntry(entry)
	}
}

// snippet converts extracted article HTML to plain markdown and truncates it.
func (r *Resolver) snippet(articleHTML string) string {
	if articleHTML == "" {
		return ""
	}
	markdown, err := r.converter.ConvertString(articleHTML)
	if err != nil {
		return ""
	}
	markdown = strings.Join(strings.Fields(markdown), " ")
	if utf8.RuneCountInString(markdown) > SnippetRunes {
		runes := []rune(markdown)
		markdown = strings.TrimSpace(string(runes[:SnippetRunes])) + "…"
	}
	return markdown
}

// titleFromHTML is the fallback when readability finds no title.
func titleFromHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
