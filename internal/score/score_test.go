package score

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/quietriver/winnow/internal/dict"
	"github.com/quietriver/winnow/internal/freq"
	"github.com/quietriver/winnow/internal/tweet"
)

func testDict(t *testing.T) *dict.Dict {
	t.Helper()
	fsys := fstest.MapFS{}
	lists := map[string]string{
		"lang_det_de.txt":    "hallo\ndanke\nheute\nfernsehen\n",
		"lang_det_en.txt":    "hello\nthanks\ntoday\npeople\n",
		"lang_det_nl.txt":    "bedankt\nkijken\n",
		"lang_det_ru.txt":    "привет\n",
		"lang_det_es.txt":    "hola\n",
		"lang_det_fr.txt":    "bonjour\n",
		"lang_det_pt.txt":    "olá\n",
		"noise_words_de.txt": "der\nund\nist\n",
		"noise_words_en.txt": "the\nand\nis\nthere\nare\nfrom\nyour\nno\nall\n",
		"noise_words_nl.txt": "het\n",
		"noise_words_ru.txt": "это\n",
		"noise_words_es.txt": "pues\n",
		"noise_words_fr.txt": "donc\n",
		"noise_words_pt.txt": "pois\n",
	}
	for name, content := range lists {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	d, err := dict.Load(fsys, nil)
	if err != nil {
		t.Fatalf("dict.Load() error = %v", err)
	}
	return d
}

func newScorer(t *testing.T, termRemoving bool) *Scorer {
	t.Helper()
	return New(testDict(t), termRemoving)
}

func tw(id int64, text string, sec int64) *tweet.Tweet {
	return tweet.New(id, text, "usera", time.Unix(sec, 0))
}

// scoreAll scores a list in arrival order the way the streaming pipeline
// does: each message sees the already-ingested messages plus itself.
func scoreAll(s *Scorer, list []*tweet.Tweet) {
	for i := range list {
		s.ScoreAndTag(list[i], list[:i+1])
	}
}

func TestSelfRepetitionPenalty(t *testing.T) {
	s := newScorer(t, false)

	spammy := tw(1, strings.Repeat("#JAVA! #COFFEE! ", 7), 1)
	s.ScoreAndTag(spammy, nil)

	clean := tw(2, "#JAVA! #COFFEE!", 2)
	s.ScoreAndTag(clean, nil)

	// both terms occur 7 times: quality = 100 - 7*8
	if spammy.Quality != 44 {
		t.Errorf("spammy quality = %d, want 44", spammy.Quality)
	}
	if clean.Quality != tweet.QualMax {
		t.Errorf("clean quality = %d, want %d", clean.Quality, tweet.QualMax)
	}
	if spammy.Quality >= clean.Quality {
		t.Error("repeated terms must score strictly lower")
	}
	if !strings.Contains(spammy.QualityTrail, "MT,") {
		t.Errorf("trail = %q, want MT code", spammy.QualityTrail)
	}
}

func TestNearDuplicatePenalty(t *testing.T) {
	s := newScorer(t, false)

	first := tw(1, "Dear kids, there is no Santa, presents are from your parents", 1)
	second := tw(2, "Dear kids! There is no Santa; all presents are from your parents", 2)

	s.ScoreAndTag(first, []*tweet.Tweet{first})
	s.ScoreAndTag(second, []*tweet.Tweet{first, second})

	if first.Quality != tweet.QualMax {
		t.Errorf("first quality = %d, want %d", first.Quality, tweet.QualMax)
	}
	// identical content terms: quality * QualBad/100
	if second.Quality != 50 {
		t.Errorf("second quality = %d, want 50", second.Quality)
	}
	if !strings.Contains(second.QualityTrail, "JB,1,") {
		t.Errorf("trail = %q, want JB against id 1", second.QualityTrail)
	}
	if _, ok := second.Duplicates[1]; !ok {
		t.Error("near-identical older message not recorded as duplicate")
	}
}

func TestSimilarButNotIdentical(t *testing.T) {
	s := newScorer(t, false)

	// 3 of 5 distinct terms shared: ji = 3/7, below both thresholds
	a := tw(1, "alpha bravo charlie delta echo", 1)
	b := tw(2, "alpha bravo charlie foxtrot golf", 2)
	s.ScoreAndTag(a, []*tweet.Tweet{a})
	s.ScoreAndTag(b, []*tweet.Tweet{a, b})
	if b.Quality != tweet.QualMax {
		t.Errorf("quality = %d, want %d for low overlap", b.Quality, tweet.QualMax)
	}

	// 3 of 4 terms shared: ji = 3/5 = 0.6, the soft penalty band
	c := tw(3, "alpha bravo charlie delta", 3)
	d := tw(4, "alpha bravo charlie echo", 4)
	s.ScoreAndTag(c, []*tweet.Tweet{c})
	s.ScoreAndTag(d, []*tweet.Tweet{c, d})
	if d.Quality != 75 {
		t.Errorf("quality = %d, want 75 for 0.6 overlap", d.Quality)
	}
	if !strings.Contains(d.QualityTrail, "JL,3,") {
		t.Errorf("trail = %q, want JL against id 3", d.QualityTrail)
	}
}

func TestRepeatedSpamDegradesToSpamBand(t *testing.T) {
	s := newScorer(t, false)

	base := "Fernsehen live Werder Bremen gegen Twente Enschede heute abend"
	variants := []string{
		"Fernsehen live Werder Bremen gegen Twente Enschede heute abend",
		"Fernsehen live Werder Bremen gegen Twente Enschede heute abend",
		"Fernsehen live Werder Bremen gegen Twente Enschede heute abend",
	}

	list := []*tweet.Tweet{tw(1, base, 1)}
	for i, text := range variants {
		list = append(list, tw(int64(i+2), text, int64(i+2)))
	}
	scoreAll(s, list)

	// the near-identical penalty is not gated: each older copy halves
	last := list[len(list)-1]
	if last.Quality != 12 { // 100 * 0.5^3
		t.Errorf("quality = %d, want 12", last.Quality)
	}
	if !last.IsSpam() {
		t.Errorf("quality = %d, want spam band (< %d)", last.Quality, tweet.QualSpam)
	}
}

func TestQualityNeverNegative(t *testing.T) {
	s := newScorer(t, false)

	text := "repeat spam " + strings.Repeat("winnow ", 20)
	list := make([]*tweet.Tweet, 0, 8)
	for i := int64(1); i <= 8; i++ {
		list = append(list, tw(i, text, i))
	}
	scoreAll(s, list)

	for _, m := range list {
		if m.Quality < 0 || m.Quality > tweet.QualMax {
			t.Errorf("id %d: quality = %d out of [0,100]", m.ID, m.Quality)
		}
	}
}

func TestFutureMessagesNeverPenalize(t *testing.T) {
	s := newScorer(t, false)

	cur := tw(1, "identical text message here", 5)
	future := tw(2, "identical text message here", 9)

	s.ScoreAndTag(cur, []*tweet.Tweet{cur, future})

	if cur.Quality != tweet.QualMax {
		t.Errorf("quality = %d, want %d: future twins must not penalize", cur.Quality, tweet.QualMax)
	}
}

func TestURLTitleRepetition(t *testing.T) {
	s := newScorer(t, false)

	texts := []string{"alpha bravo", "charlie delta", "echo foxtrot", "golf hotel", "india juliet"}
	list := make([]*tweet.Tweet, 0, len(texts))
	for i, text := range texts {
		m := tw(int64(i+1), text, int64(i+1))
		m.AddURLEntry(tweet.URLEntry{
			URL:    "http://example.com/post/" + strings.Fields(text)[0],
			Domain: "example.com",
			Title:  "Werder Bremen vs FC Twente — live",
		})
		list = append(list, m)
	}
	scoreAll(s, list)

	if list[0].Quality != tweet.QualMax {
		t.Errorf("1st quality = %d, want 100", list[0].Quality)
	}
	// 2 and 3 occurrences hit the soft band
	if list[1].Quality != 75 || list[2].Quality != 75 {
		t.Errorf("2nd/3rd quality = %d/%d, want 75/75", list[1].Quality, list[2].Quality)
	}
	// the 4th crosses the >3 threshold, exactly once
	if list[3].Quality != 50 {
		t.Errorf("4th quality = %d, want 50", list[3].Quality)
	}
	if list[3].QualityReductions != 1 {
		t.Errorf("4th reductions = %d, want 1 (no double penalty)", list[3].QualityReductions)
	}
	if !strings.Contains(list[3].QualityTrail, "TB,") {
		t.Errorf("4th trail = %q, want TB code", list[3].QualityTrail)
	}
}

func TestURLFallbackWhenTitleMissing(t *testing.T) {
	s := newScorer(t, false)

	texts := []string{"alpha bravo", "charlie delta", "echo foxtrot", "golf hotel"}
	list := make([]*tweet.Tweet, 0, len(texts))
	for i, text := range texts {
		m := tw(int64(i+1), text, int64(i+1))
		m.AddURLEntry(tweet.URLEntry{URL: "http://tinyurl.com/5hwubc", Domain: "tinyurl.com"})
		list = append(list, m)
	}
	scoreAll(s, list)

	if list[1].Quality != 75 {
		t.Errorf("2nd quality = %d, want 75 via URL count", list[1].Quality)
	}
	if list[3].Quality != 50 {
		t.Errorf("4th quality = %d, want 50 via URL count", list[3].Quality)
	}
	if !strings.Contains(list[3].QualityTrail, "UB,") {
		t.Errorf("4th trail = %q, want UB code", list[3].QualityTrail)
	}
}

func TestTermRemoving(t *testing.T) {
	s := newScorer(t, true)

	older := tw(1, "shared words here", 1)
	cur := tw(2, "shared words different unique", 2)

	s.ScoreAndTag(older, []*tweet.Tweet{older})
	s.ScoreAndTag(cur, []*tweet.Tweet{older, cur})

	for _, term := range []string{"shared", "words"} {
		if !cur.TextTerms.Contains(term) {
			t.Errorf("corroborated term %q removed", term)
		}
	}
	for _, term := range []string{"different", "unique"} {
		if cur.TextTerms.Contains(term) {
			t.Errorf("idiosyncratic term %q kept", term)
		}
	}
}

func TestScoreIsIdempotentPerRecord(t *testing.T) {
	s := newScorer(t, false)

	older := tw(1, "dear kids santa presents parents", 1)
	cur := tw(2, "dear kids santa presents parents", 2)

	s.ScoreAndTag(older, []*tweet.Tweet{older})
	s.ScoreAndTag(cur, []*tweet.Tweet{older, cur})
	want := cur.Quality

	// a second ingestion pass must not degrade further
	s.ScoreAndTag(cur, []*tweet.Tweet{older, cur})
	if cur.Quality != want {
		t.Errorf("quality after rescore = %d, want %d", cur.Quality, want)
	}
	if cur.QualityReductions != 1 {
		t.Errorf("reductions = %d, want 1", cur.QualityReductions)
	}
}

func TestLazyExtractionOfHistory(t *testing.T) {
	s := newScorer(t, false)

	older := tw(1, "never scored before now", 1)
	cur := tw(2, "completely unrelated content words", 2)

	s.ScoreAndTag(cur, []*tweet.Tweet{older, cur})

	if older.TextTerms.Len() == 0 {
		t.Error("history record was not lazily extracted")
	}
	if older.Quality != tweet.QualMax {
		t.Errorf("history quality = %d: prior records must never be rescored", older.Quality)
	}
}

func TestResolveLanguage(t *testing.T) {
	mk := func(pairs ...any) *freq.Map {
		m := freq.New()
		for i := 0; i < len(pairs); i += 2 {
			m.Set(pairs[i].(string), pairs[i+1].(int))
		}
		return m
	}

	tests := []struct {
		name   string
		langs  *freq.Map
		merged *freq.Map
		want   string
	}{
		{"empty", freq.New(), freq.New(), "unknown"},
		{"clear winner by count", mk("en", 4), freq.New(), "en"},
		{"weak but corroborated", mk("de", 1), mk("de", 3), "de"},
		{"weak and uncorroborated", mk("de", 2), freq.New(), "unknown"},
		{"tie is ambiguous", mk("en", 3, "de", 3), freq.New(), "unknown"},
		{"close runner-up is ambiguous", mk("en", 4, "de", 4), mk("en", 1), "unknown"},
		{"distant runner-up wins", mk("en", 5, "de", 2), freq.New(), "en"},
		{"unknown bucket skipped", mk("unknown", 9, "de", 3), freq.New(), "de"},
		{"only unknown bucket", mk("unknown", 9), freq.New(), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tw(1, "text", 1)
			m.Languages = tt.langs
			if got := resolveLanguage(m, tt.merged); got != tt.want {
				t.Errorf("resolveLanguage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLanguageTagging(t *testing.T) {
	s := newScorer(t, false)

	english := tw(1, "hello thanks today people trailing", 1)
	s.ScoreAndTag(english, nil)
	if english.Language != dict.EN {
		t.Errorf("language = %q, want en", english.Language)
	}

	tied := tw(2, "hello thanks today hallo danke heute trailing", 2)
	s.ScoreAndTag(tied, nil)
	if tied.Language != dict.Unknown {
		t.Errorf("language = %q, want unknown for tie", tied.Language)
	}
}

func TestLanguageCorroboratedByHistory(t *testing.T) {
	s := newScorer(t, false)

	older := tw(1, "hallo danke heute fernsehen trailing", 1)
	// two German markers alone would not be trusted (count <= 2)
	cur := tw(2, "hallo danke unrelated words trailing", 2)

	s.ScoreAndTag(older, []*tweet.Tweet{older})
	s.ScoreAndTag(cur, []*tweet.Tweet{older, cur})

	if cur.Language != dict.DE {
		t.Errorf("language = %q, want de via history corroboration", cur.Language)
	}
}
