// Package search provides an in-memory lexical index over scored tweets.
//
// Ranking uses BM25 field-weighted scoring; both documents and queries are
// snowball-stemmed per tweet language so that "presents" still matches
// "present". Messages that fell into the spam band are excluded from results
// unless the caller opts in.
package search

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/chriscorrea/bm25md"
	"github.com/kljensen/snowball"

	"github.com/quietriver/winnow/internal/dict"
	"github.com/quietriver/winnow/internal/tweet"
)

// Result pairs a tweet with its relevance score.
type Result struct {
	Tweet *tweet.Tweet
	Score float64
}

// Index is an append-only collection of scored tweets that can be searched.
// It is not safe for concurrent mutation; build it, then query.
type Index struct {
	tweets      []*tweet.Tweet
	includeSpam bool
}

// NewIndex creates an empty index. With includeSpam false, spam-band tweets
// are still stored but never returned.
func NewIndex(includeSpam bool) *Index {
	return &Index{includeSpam: includeSpam}
}

// Add appends tweets to the index.
func (ix *Index) Add(tws ...*tweet.Tweet) {
	ix.tweets = append(ix.tweets, tws...)
}

// Len returns the number of indexed tweets.
func (ix *Index) Len() int {
	return len(ix.tweets)
}

// Search ranks the indexed tweets against the query and returns the best
// matches with positive scores, at most limit (0 means no limit).
func (ix *Index) Search(query string, limit int) []Result {
	query = strings.TrimSpace(query)
	if query == "" || len(ix.tweets) == 0 {
		return nil
	}

	candidates := make([]*tweet.Tweet, 0, len(ix.tweets))
	for _, tw := range ix.tweets {
		if !ix.includeSpam && tw.IsSpam() {
			continue
		}
		candidates = append(candidates, tw)
	}
	if len(candidates) == 0 {
		return nil
	}

	corpus := bm25md.NewCorpus()
	parser := bm25md.NewMarkdownFieldParser()
	for i, tw := range candidates {
		stemmed := stemText(tw.Text, tw.Language)
		doc := bm25md.Document{
			ID:       i,
			Fields:   parser.ParseDocument(stemmed),
			Original: tw.Text,
		}
		corpus.AddDocument(doc)
	}

	// queries don't carry a language tag; stem with the default stemmer
	stemmedQuery := stemText(query, dict.EN)
	slog.Debug("searching index", "query", query, "candidates", len(candidates))

	results := make([]Result, 0, len(candidates))
	for i, tw := range candidates {
		score := corpus.Score(stemmedQuery, i)
		if score <= 0 {
			continue
		}
		results = append(results, Result{Tweet: tw, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// stemmerFor maps a resolved language tag to a snowball stemmer name.
// Languages without a supported stemmer fall back to english, which leaves
// most non-english words untouched.
func stemmerFor(lang string) string {
	switch lang {
	case dict.ES:
		return "spanish"
	case dict.FR:
		return "french"
	case dict.RU:
		return "russian"
	default:
		return "english"
	}
}

func stemText(text, lang string) string {
	stemmer := stemmerFor(lang)
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		stemmed, err := snowball.Stem(tok, stemmer, true)
		if err != nil || stemmed == "" {
			stemmed = strings.ToLower(tok)
		}
		out = append(out, stemmed)
	}
	return strings.Join(out, " ")
}
