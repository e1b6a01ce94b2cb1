// Package detect turns raw message text into term and language statistics.
//
// Extraction lowercases the text, strips markup, links and punctuation,
// splits on whitespace and then routes every surviving token through the
// dictionaries: tokens with a noise entry are dropped from the content terms
// (unless protected by a whitelisted phrase) while every token with a
// language-signal entry contributes to the language statistics; a stripped
// stopword still tells us which language it belongs to.
package detect

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/quietriver/winnow/internal/dict"
	"github.com/quietriver/winnow/internal/freq"
	"github.com/quietriver/winnow/internal/tweet"
)

const (
	minTokenLen = 2
	maxTokenLen = 70
)

var (
	urlRe   = regexp.MustCompile(`https?://[^ ]*`)
	punctRe = regexp.MustCompile("[\":;&.!?)(\\[\\],><\n\t-]")
)

// StripNoise removes highlighting markup, links, punctuation and hashtag
// markers so that only word material remains.
func StripNoise(s string) string {
	if utf8.RuneCountInString(s) < 2 {
		return s
	}

	s = strings.ReplaceAll(s, "<b>", "")
	s = strings.ReplaceAll(s, "</b>", "")
	s = urlRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, " ")
	// hashtags count as their bare word
	s = strings.ReplaceAll(s, " #", " ")
	if s != "" && s[0] == '#' {
		s = s[1:]
	}
	return s
}

// Extractor computes term and language frequency maps for message text.
// It is stateless apart from the shared read-only dictionaries and safe for
// concurrent use.
type Extractor struct {
	dict *dict.Dict
}

// New creates an Extractor over the given dictionaries.
func New(d *dict.Dict) *Extractor {
	return &Extractor{dict: d}
}

// Extract tokenizes text and returns the content-term and language-signal
// frequency maps. Malformed or empty input yields empty maps, never an error.
func (e *Extractor) Extract(text string) (terms, langs *freq.Map) {
	terms = freq.New()
	langs = freq.New()

	lower := strings.ToLower(text)
	tokens := strings.Fields(StripNoise(lower))
	for i, tok := range tokens {
		n := utf8.RuneCountInString(tok)
		if n < minTokenLen || n > maxTokenLen || strings.HasPrefix(tok, "@") {
			continue
		}

		// language signal is independent of noise filtering; the final
		// token is skipped because trailing words are often truncated
		if i < len(tokens)-1 {
			for _, lang := range e.dict.SignalLangs(tok) {
				if lang == dict.Num || lang == dict.Single || lang == dict.Misc {
					continue
				}
				langs.Inc(lang, 1)
			}
		}

		if e.dict.InWhitelistedPhrase(lower, tok) {
			terms.Inc(tok, 1)
			continue
		}
		if !e.dict.IsNoise(tok) {
			terms.Inc(tok, 1)
		}
	}
	return terms, langs
}

// ExtractInto populates the record's term statistics. It is idempotent:
// a record whose terms are already present is left untouched, so the scorer
// may call it any number of times.
func (e *Extractor) ExtractInto(tw *tweet.Tweet) {
	if tw.TextTerms != nil && tw.TextTerms.Len() > 0 {
		return
	}
	tw.TextTerms, tw.Languages = e.Extract(tw.Text)
}
