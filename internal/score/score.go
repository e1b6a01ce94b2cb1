// Package score implements the quality scoring and near-duplicate detection
// engine. Given a new message and the author's message history it applies a
// repetition self-penalty, Jaccard-similarity penalties against older
// messages, URL/title repetition penalties, and finally resolves the
// message's language from the merged language statistics.
//
// Scoring is a pure in-memory computation: no I/O, no blocking, no errors
// under well-formed input. The caller owns the record and its author history
// exclusively for the duration of the call; distinct authors may be scored
// concurrently.
package score

import (
	"fmt"
	"math"

	"github.com/quietriver/winnow/internal/detect"
	"github.com/quietriver/winnow/internal/dict"
	"github.com/quietriver/winnow/internal/freq"
	"github.com/quietriver/winnow/internal/tweet"
)

// Similarity thresholds for the Jaccard comparison between two messages'
// term sets.
const (
	jaccardBad = 0.8
	jaccardLow = 0.6

	// maxGatedReductions caps the softer penalty categories; the
	// near-identical penalty is deliberately not gated.
	maxGatedReductions = 3

	// selfRepeatLimit is the per-message occurrence count above which a
	// term triggers the repetition self-penalty.
	selfRepeatLimit = 4

	// topFraction selects the top slice of the term frequency
	// distribution inspected by the self-penalty.
	topFraction = 0.05
)

// Scorer scores messages against their author's history. It is safe for
// concurrent use across authors; a single author's history must not be
// scored by two goroutines at once.
type Scorer struct {
	extractor    *detect.Extractor
	termRemoving bool
}

// New creates a Scorer over the given dictionaries. With termRemoving
// enabled, terms that occur in no other message of the author are dropped
// from the scored record after comparison, being too idiosyncratic to be
// useful for indexing.
func New(d *dict.Dict, termRemoving bool) *Scorer {
	return &Scorer{
		extractor:    detect.New(d),
		termRemoving: termRemoving,
	}
}

// Extractor exposes the scorer's extractor for callers that only need term
// statistics without full scoring.
func (s *Scorer) Extractor() *detect.Extractor {
	return s.extractor
}

// ScoreAndTag mutates tw in place: quality, reduction count, penalty trail,
// duplicate set and resolved language. history is the author's message
// collection in any order; it may or may not contain tw itself. Prior
// messages are never rescored, only lazily extracted when their term
// statistics are still missing.
func (s *Scorer) ScoreAndTag(tw *tweet.Tweet, history []*tweet.Tweet) {
	// already processed in a previous pass
	if tw.TextTerms != nil && tw.TextTerms.Len() > 0 && tw.Quality < tweet.QualMax {
		return
	}

	s.extractor.ExtractInto(tw)

	// Step A: repetition inside the message itself
	qual := float64(tw.Quality)
	maxTerms := 0
	for _, e := range tw.TextTerms.SortedFreqLimit(topFraction) {
		if e.Count > maxTerms {
			maxTerms = e.Count
		}
	}
	if maxTerms > selfRepeatLimit {
		qual = math.Max(0, float64(100-maxTerms*8))
		tw.AddQualityAction("MT,")
	}
	tw.Quality = int(qual)

	// Step B: comparison against the author's history
	mergedTerms := freq.New()
	mergedLangs := freq.New()
	tw.Quality = int(s.compareWithHistory(tw, history, mergedTerms, mergedLangs))

	if s.termRemoving {
		for _, term := range tw.TextTerms.Terms() {
			if mergedTerms.Get(term) < 1 {
				tw.TextTerms.Delete(term)
			}
		}
	}

	// Step C: language resolution
	tw.Language = resolveLanguage(tw, mergedLangs)
}

// compareWithHistory folds over the author's messages, accumulating merged
// term/language statistics and applying similarity and URL repetition
// penalties against strictly-older messages. It returns the new quality as a
// float; the caller truncates.
func (s *Scorer) compareWithHistory(tw *tweet.Tweet, history []*tweet.Tweet, mergedTerms, mergedLangs *freq.Map) float64 {
	qual := float64(tw.Quality)

	// URL/title occurrence counts span the whole collection, the current
	// message included: three prior posts plus the current one sharing a
	// title is already a count of four.
	titleCounts := freq.New()
	urlCounts := freq.New()
	sawSelf := false
	for _, other := range history {
		if other == tw || other.ID == tw.ID {
			sawSelf = true
		}
		countURLEntries(other, titleCounts, urlCounts)
	}
	if !sawSelf {
		countURLEntries(tw, titleCounts, urlCounts)
	}

	// iteration order must not depend on how the caller stores history
	ordered := make([]*tweet.Tweet, len(history))
	copy(ordered, history)
	tweet.SortByTime(ordered)

	urlPenaltyApplied := false
	for _, older := range ordered {
		s.extractor.ExtractInto(older)

		if older == tw || older.ID == tw.ID {
			continue
		}

		// merged statistics take every message, penalties below only
		// strictly-older ones
		mergedTerms.AddOnePerSource(older.TextTerms)
		mergedLangs.AddValues(older.Languages)

		if !older.CreatedAt.Before(tw.CreatedAt) {
			continue
		}

		ji := tw.TextTerms.Jaccard(older.TextTerms)
		if ji >= jaccardBad {
			// nearly identical term sets
			qual *= tweet.QualBad / 100.0
			tw.AddQualityAction(fmt.Sprintf("JB,%d,", older.ID))
			tw.AddDuplicate(older.ID)
		} else if ji >= jaccardLow && tw.QualityReductions < maxGatedReductions {
			// e.g. 3 of 4 terms shared
			qual *= tweet.QualLow / 100.0
			tw.AddQualityAction(fmt.Sprintf("JL,%d,", older.ID))
		}

		if urlPenaltyApplied {
			continue
		}
		for _, entry := range older.URLEntries {
			titleCount := 0
			if entry.Title != "" {
				titleCount = titleCounts.Get(entry.Title)
			}

			switch {
			case (titleCount == 2 || titleCount == 3) && tw.QualityReductions < maxGatedReductions:
				qual *= tweet.QualLow / 100.0
				tw.AddQualityAction(fmt.Sprintf("TL,%d,", older.ID))
				urlPenaltyApplied = true
			case titleCount > 3:
				// repeatedly posted the identical page
				qual *= tweet.QualBad / 100.0
				tw.AddQualityAction(fmt.Sprintf("TB,%d,", older.ID))
				urlPenaltyApplied = true
			}
			if urlPenaltyApplied {
				break
			}

			// the title is not yet a meaningful signal; fall back to
			// the raw resolved URL
			if titleCount < 2 {
				urlCount := urlCounts.Get(entry.URL)
				switch {
				case (urlCount == 2 || urlCount == 3) && tw.QualityReductions < maxGatedReductions:
					qual *= tweet.QualLow / 100.0
					tw.AddQualityAction(fmt.Sprintf("UL,%d,", older.ID))
					urlPenaltyApplied = true
				case urlCount > 3:
					qual *= tweet.QualBad / 100.0
					tw.AddQualityAction(fmt.Sprintf("UB,%d,", older.ID))
					urlPenaltyApplied = true
				}
				if urlPenaltyApplied {
					break
				}
			}
		}
	}
	return qual
}

func countURLEntries(tw *tweet.Tweet, titleCounts, urlCounts *freq.Map) {
	for _, entry := range tw.URLEntries {
		if entry.Title != "" {
			titleCounts.Inc(entry.Title, 1)
		}
		if entry.URL != "" {
			urlCounts.Inc(entry.URL, 1)
		}
	}
}

// resolveLanguage picks the message's language tag from its own signal
// statistics, corroborated by the merged statistics of the author's other
// messages. A guess is only trusted when the runner-up is clearly weaker and
// either the author's history confirms the language or the message itself
// carries more than two signal tokens.
func resolveLanguage(tw *tweet.Tweet, mergedLangs *freq.Map) string {
	if tw.Languages == nil || tw.Languages.Len() == 0 {
		return dict.Unknown
	}

	list := tw.Languages.Sorted()
	idx := 0
	candidate := list[idx]

	// the synthetic unknown bucket loses against a real runner-up
	if len(list) > idx+1 && candidate.Term == dict.Unknown {
		idx++
		candidate = list[idx]
	}

	if len(list) > idx+1 && candidate.Term != dict.Unknown {
		if candidate.Count-1 < list[idx+1].Count {
			// the second language seems just as important
			return dict.Unknown
		}
	}

	if mergedLangs.Contains(candidate.Term) || candidate.Count > 2 {
		return candidate.Term
	}
	return dict.Unknown
}
