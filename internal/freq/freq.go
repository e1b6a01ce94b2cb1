// Package freq provides an insertion-ordered string frequency map.
//
// The map is the workhorse of term and language statistics: it counts
// occurrences, merges counts from other maps in two different modes
// (one-per-source vs. full weight), and exposes set-style intersection and
// union sizes over its key set so callers can compute Jaccard similarity.
//
// Usage Example:
//
//	m := freq.New()
//	m.Inc("java", 1)
//	top := m.SortedFreqLimit(0.05)
//
// Iteration order of Entries and sort tie-breaking follow insertion order,
// which keeps results deterministic for identical input sequences.
package freq

import (
	"math"
	"sort"
)

// Entry is a single term/count pair.
type Entry struct {
	Term  string
	Count int
}

// Map counts string occurrences while remembering first-insertion order.
type Map struct {
	counts map[string]int
	order  []string
}

// New creates an empty frequency map.
func New() *Map {
	return &Map{counts: make(map[string]int)}
}

// Len returns the number of distinct terms.
func (m *Map) Len() int {
	return len(m.counts)
}

// Get returns the count for term, 0 if absent.
func (m *Map) Get(term string) int {
	return m.counts[term]
}

// Contains reports whether term has an entry.
func (m *Map) Contains(term string) bool {
	_, ok := m.counts[term]
	return ok
}

// Inc adds delta to the term's count, creating the entry at 0 if absent.
func (m *Map) Inc(term string, delta int) {
	if _, ok := m.counts[term]; !ok {
		m.order = append(m.order, term)
	}
	m.counts[term] += delta
}

// Set assigns an absolute count for term.
func (m *Map) Set(term string, count int) {
	if _, ok := m.counts[term]; !ok {
		m.order = append(m.order, term)
	}
	m.counts[term] = count
}

// Delete removes the term's entry if present.
func (m *Map) Delete(term string) {
	if _, ok := m.counts[term]; !ok {
		return
	}
	delete(m.counts, term)
	for i, t := range m.order {
		if t == term {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Terms returns the distinct terms in insertion order.
func (m *Map) Terms() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Entries returns all term/count pairs in insertion order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, t := range m.order {
		out = append(out, Entry{Term: t, Count: m.counts[t]})
	}
	return out
}

// AddOnePerSource increments every term of other by exactly 1, regardless of
// its count there. Used to answer "in how many sources did this term appear".
func (m *Map) AddOnePerSource(other *Map) {
	if other == nil {
		return
	}
	for _, t := range other.order {
		m.Inc(t, 1)
	}
}

// AddValues increments every term of other by its full count there.
func (m *Map) AddValues(other *Map) {
	if other == nil {
		return
	}
	for _, t := range other.order {
		m.Inc(t, other.counts[t])
	}
}

// AndSize returns the size of the key-set intersection with other.
// Counts are ignored.
func (m *Map) AndSize(other *Map) int {
	if other == nil {
		return 0
	}
	small, large := m, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	n := 0
	for t := range small.counts {
		if _, ok := large.counts[t]; ok {
			n++
		}
	}
	return n
}

// OrSize returns the size of the key-set union with other.
func (m *Map) OrSize(other *Map) int {
	if other == nil {
		return m.Len()
	}
	return m.Len() + other.Len() - m.AndSize(other)
}

// Jaccard returns the Jaccard similarity of the two key sets, in [0,1].
// Two empty maps have similarity 0, never a division by zero.
func (m *Map) Jaccard(other *Map) float64 {
	or := m.OrSize(other)
	if or == 0 {
		return 0
	}
	return float64(m.AndSize(other)) / float64(or)
}

// Sorted returns all entries ordered by descending count.
// Equal counts keep their insertion order (stable sort).
func (m *Map) Sorted() []Entry {
	out := m.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// SortedTermLimit returns at most max entries of Sorted.
func (m *Map) SortedTermLimit(max int) []Entry {
	out := m.Sorted()
	if max < len(out) {
		out = out[:max]
	}
	return out
}

// SortedFreqLimit returns the sorted entries whose count reaches the given
// fraction of the maximum count (inclusive). E.g. for "a 10", "b 2", "c 1"
// and fraction 0.2 the threshold is 2, yielding "a 10" and "b 2".
// An empty map yields an empty result.
func (m *Map) SortedFreqLimit(fraction float64) []Entry {
	if m.Len() == 0 {
		return nil
	}
	sorted := m.Sorted()
	threshold := int(math.Round(fraction * float64(sorted[0].Count)))
	out := make([]Entry, 0, len(sorted))
	for _, e := range sorted {
		if e.Count >= threshold {
			out = append(out, e)
		}
	}
	return out
}
