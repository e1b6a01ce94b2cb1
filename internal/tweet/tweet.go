// Package tweet defines the message record the scoring pipeline works on,
// together with the quality band constants and small helpers for retweet
// detection and list hygiene.
//
// A Tweet starts at full quality; the scorer lowers it as evidence of
// repetition accumulates and records each applied penalty in the quality
// trail. Once newer messages from the same author arrive, the record is only
// read, never rescored.
package tweet

import (
	"sort"
	"strings"
	"time"

	"github.com/quietriver/winnow/internal/dict"
	"github.com/quietriver/winnow/internal/freq"
)

// Quality bands (inclusive thresholds). A single low-similarity hit keeps a
// message above Bad: (75/100)^2 = 0.5625, three take it below Bad but a
// near-identical hit goes there directly: (50/100)^2 = 0.25 < Spam/100.
const (
	QualMax  = 100
	QualLow  = 75
	QualBad  = 50
	QualSpam = 26
)

// URLEntry is a resolved link carried by a message. Resolution happens
// upstream; the scorer only reads these fields.
type URLEntry struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Title  string `json:"title"`
	// Snippet is an optional markdown excerpt of the linked page,
	// kept for display only.
	Snippet string `json:"snippet,omitempty"`
}

// Tweet is one scored message. The scorer mutates Quality, the trail,
// the reduction counter and Language exactly once per ingestion pass.
type Tweet struct {
	ID        int64
	Text      string
	CreatedAt time.Time
	Author    string

	Quality           int
	QualityReductions int
	QualityTrail      string
	Language          string

	TextTerms  *freq.Map
	Languages  *freq.Map
	URLEntries []URLEntry
	Duplicates map[int64]struct{}

	lowerText string
}

// New creates a fresh record at full quality with empty term statistics.
func New(id int64, text, author string, createdAt time.Time) *Tweet {
	return &Tweet{
		ID:         id,
		Text:       text,
		CreatedAt:  createdAt,
		Author:     author,
		Quality:    QualMax,
		Language:   dict.Unknown,
		TextTerms:  freq.New(),
		Languages:  freq.New(),
		Duplicates: make(map[int64]struct{}),
	}
}

// LowerText returns the lowercase message text, computed once.
func (t *Tweet) LowerText() string {
	if t.lowerText == "" {
		t.lowerText = strings.ToLower(t.Text)
	}
	return t.lowerText
}

// IsSpam reports whether the quality fell below the spam band.
func (t *Tweet) IsSpam() bool {
	return t.Quality >= 0 && t.Quality < QualSpam
}

// Band names the quality band the record currently sits in.
func (t *Tweet) Band() string {
	switch {
	case t.IsSpam():
		return "spam"
	case t.Quality < QualBad:
		return "bad"
	case t.Quality < QualLow:
		return "low"
	default:
		return "ok"
	}
}

// AddQualityAction appends a short penalty code to the trail and counts one
// more reduction. The trail is diagnostic only; nothing reads it back.
func (t *Tweet) AddQualityAction(code string) {
	t.QualityTrail += code
	t.QualityReductions++
}

// AddDuplicate records another message id judged near-identical.
// A record never lists itself.
func (t *Tweet) AddDuplicate(id int64) {
	if id == t.ID {
		return
	}
	if t.Duplicates == nil {
		t.Duplicates = make(map[int64]struct{})
	}
	t.Duplicates[id] = struct{}{}
}

// AddURLEntry appends a resolved link record.
func (t *Tweet) AddURLEntry(e URLEntry) {
	t.URLEntries = append(t.URLEntries, e)
}

// IsRetweet reports whether the text carries the classic "rt @" marker.
func (t *Tweet) IsRetweet() bool {
	return strings.Contains(t.LowerText(), "rt @")
}

// RTText returns the retweeted portion of the text, empty if this is not a
// retweet or the marker is malformed.
func (t *Tweet) RTText() string {
	idx := strings.Index(t.LowerText(), "rt @")
	if idx < 0 {
		return ""
	}
	rest := t.Text[idx+4:]
	space := strings.Index(rest, " ")
	if space < 0 {
		return ""
	}
	return strings.TrimSpace(rest[space+1:])
}

// IsRetweetOf reports whether this message retweets other, i.e. its text
// embeds "rt @author: text" or "rt @author text" of the original.
func (t *Tweet) IsRetweetOf(other *Tweet) bool {
	if !t.IsRetweet() {
		return false
	}
	this, ext := t.LowerText(), other.LowerText()
	author := strings.ToLower(other.Author)
	return strings.Contains(this, "rt @"+author+": "+ext) ||
		strings.Contains(this, "rt @"+author+" "+ext)
}

// SortByID orders a list ascending by id. Ids grow over time, so this is
// also a coarse chronological order.
func SortByID(list []*Tweet) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

// SortByTime orders a list ascending by creation time, ties broken by id.
func SortByTime(list []*Tweet) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

// Deduplicate removes adjacent entries with identical id or identical text.
// With an id-sorted list the greater id wins; identical text is only dropped
// when no other tweet sits in between.
func Deduplicate(list []*Tweet) []*Tweet {
	out := list[:0]
	var prev *Tweet
	for _, tw := range list {
		if prev == nil || (tw.ID != prev.ID && tw.Text != prev.Text) {
			out = append(out, tw)
		}
		// compare against the previous list entry, not the previous
		// survivor: identical text only counts without a tweet in-between
		prev = tw
	}
	return out
}

// SortAndDeduplicate sorts by id and removes duplicates in place.
func SortAndDeduplicate(list []*Tweet) []*Tweet {
	SortByID(list)
	return Deduplicate(list)
}
