// Package dict builds the two word lookup tables the scoring pipeline relies
// on: the noise table (tokens too common to serve as content terms) and the
// language-signal table (tokens that hint at the language a message is
// written in). Both views are backed by a single token→language-set store so
// a word is never listed twice with diverging tags.
//
// The bundled word lists live under data/ as newline-delimited lowercase
// files, one noise list and one detection list per language. Blank lines and
// lines starting with "//" are ignored. Tables are immutable once Load
// returns and safe for concurrent readers.
package dict

import (
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

// Language tags used across the pipeline. Single, Num and Misc are synthetic
// noise buckets, not real languages; Unknown doubles as the catch-all bucket
// for short cross-language function words and as the "no confident guess"
// result of language resolution.
const (
	Unknown = "unknown"
	Misc    = "misc"
	Num     = "num"
	Single  = "1"
	DE      = "de"
	EN      = "en"
	NL      = "nl"
	RU      = "ru"
	ES      = "es"
	FR      = "fr"
	PT      = "pt"
)

// Languages lists the real languages with bundled word lists.
var Languages = []string{DE, EN, NL, RU, ES, FR, PT}

//go:embed data
var dataFS embed.FS

// miscWords are twitterish interjections and fragments that carry neither
// content nor language signal.
var miscWords = []string{
	"ah", "aw", "cu", "ff",
	"haha", "hahaha", "hehe", "hey", "hi",
	"rt", "re", "soo", "thx",
	"yeah", "via",
	"/by", "/cc", "/via",
	"+1", "-1", ";d", "^^",
	".", ",", ";", "ur", "tx", "ini", "ii", "iii",
	"//", "\\n", "com", "jp", "lol",
	"om", "ve", "ya", "yr", "za",
}

// unsortedWords are short function words from many languages that were never
// assigned to a specific list. They are noise, but unlike miscWords they still
// feed the synthetic "unknown" signal bucket.
var unsortedWords = []string{
	"¿qué",
	"ak", "aku", "aja", "al", "ada", "amb", "así", "au", "avec",
	"δεν",
	"bien", "boa", "bom", "bueno",
	"ca", "ça", "cap", "ce", "c'est", "cek", "ces", "che", "chi", "ci",
	"col", "como", "con", "crec", "cosa", "cuando",
	"dan", "dans", "dc", "del", "decir", "dong", "dua", "di",
	"ed", "een", "ei", "el", "els", "em", "en", "entre", "era", "és", "est",
	"está", "esta", "estes", "estoy", "eso", "et", "été", "ex",
	"fer", "fu",
	"ga", "ge", "gue", "gracias", "gua", "guau",
	"ha", "hay", "han", "het", "ho", "hoy",
	"ik", "il", "inte", "iv",
	"jajaja", "je", "jo", "jos", "ju",
	"και", "ki", "ke",
	"la", "las", "le", "les", "lett", "leur", "li", "lo", "los",
	"mas", "más", "mejor", "més", "merci", "ma", "me", "mi", "mon", "muchas", "muy",
	"με",
	"não", "nada", "ne", "ni", "nih", "non", "nor", "nos", "notre", "nu", "nya",
	"θα",
	"opció", "ou", "oui",
	"par", "para", "pas", "per", "pero", "por", "pour", "pro",
	"qualche", "que", "qu", "qui", "qué",
	"san", "se", "sen", "ses", "sí", "si", "sin",
	"sólo", "son", "somme", "soirée", "sous",
	"su", "suis", "sul", "sur", "sus",
	"ta", "també", "te", "té", "tem", "ti", "tinc", "tion", "tive", "todos", "το", "tous", "tra", "très", "tu",
	"uma", "un", "una", "une", "ut",
	"va", "van", "να", "vi", "vie", "vos", "vous", "votre",
	"yang", "για", "yg", "yo",
}

// defaultPhrases are multi-word phrases whose words must survive noise
// filtering, e.g. "bin" alone would be stripped and break detection of the
// phrase context.
var defaultPhrases = []string{
	"bin laden",
	"open source",
}

// Extra supplies host-configured additions applied during Load, before the
// tables are frozen.
type Extra struct {
	// NoiseWords are filed under the catch-all "unknown" bucket.
	NoiseWords []string
	// Phrases extend the whitelist of protected multi-word phrases.
	Phrases []string
}

// Dict holds the frozen noise and language-signal tables.
type Dict struct {
	noise   map[string][]string
	signal  map[string][]string
	phrases []string
}

// Default builds the dictionaries from the embedded word lists.
func Default() (*Dict, error) {
	return DefaultWith(nil)
}

// DefaultWith builds the dictionaries from the embedded word lists with
// host-configured extras applied.
func DefaultWith(extra *Extra) (*Dict, error) {
	sub, err := fs.Sub(dataFS, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub, extra)
}

// Load builds the dictionaries from the given filesystem, expecting
// lang_det_<lang>.txt and noise_words_<lang>.txt for every language.
// A missing or unreadable list is a hard error: operating with a partial
// dictionary would silently misclassify instead of failing visibly.
func Load(fsys fs.FS, extra *Extra) (*Dict, error) {
	d := &Dict{
		noise:  make(map[string][]string),
		signal: make(map[string][]string),
	}

	for _, lang := range Languages {
		words, err := readWordList(fsys, "lang_det_"+lang+".txt")
		if err != nil {
			return nil, fmt.Errorf("load language words for %q: %w", lang, err)
		}
		addAll(d.signal, lang, words)
	}

	for _, lang := range Languages {
		words, err := readWordList(fsys, "noise_words_"+lang+".txt")
		if err != nil {
			return nil, fmt.Errorf("load noise words for %q: %w", lang, err)
		}
		addAll(d.noise, lang, words)
		// stopwords are stripped from content terms but still carry
		// language signal ("der" marks German even though it is noise)
		addAll(d.signal, lang, words)
	}

	addAll(d.noise, Unknown, unsortedWords)
	addAll(d.signal, Unknown, unsortedWords)
	addAll(d.noise, Misc, miscWords)
	addAll(d.noise, Single, singleLetters())
	addAll(d.noise, Num, numerals())

	d.phrases = append(d.phrases, defaultPhrases...)

	if extra != nil {
		addAll(d.noise, Unknown, extra.NoiseWords)
		addAll(d.signal, Unknown, extra.NoiseWords)
		for _, p := range extra.Phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				d.phrases = append(d.phrases, p)
			}
		}
	}

	return d, nil
}

// IsNoise reports whether the lowercase token has any noise entry.
func (d *Dict) IsNoise(token string) bool {
	_, ok := d.noise[token]
	return ok
}

// NoiseLangs returns the language tags the token is a noise word for,
// nil if the token is not noise.
func (d *Dict) NoiseLangs(token string) []string {
	return d.noise[token]
}

// SignalLangs returns the language tags the token is a marker word for,
// nil if the token carries no signal.
func (d *Dict) SignalLangs(token string) []string {
	return d.signal[token]
}

// Phrases returns the whitelisted multi-word phrases.
func (d *Dict) Phrases() []string {
	return d.phrases
}

// InWhitelistedPhrase reports whether token occurs as a word of a whitelisted
// phrase that is present in the lowercase message text. Such tokens are kept
// as content even when they have a noise entry.
func (d *Dict) InWhitelistedPhrase(lowerText, token string) bool {
	for _, phrase := range d.phrases {
		if !strings.Contains(lowerText, phrase) {
			continue
		}
		for _, word := range strings.Fields(phrase) {
			if word == token {
				return true
			}
		}
	}
	return false
}

func addAll(table map[string][]string, lang string, words []string) {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || strings.HasPrefix(w, "//") {
			continue
		}
		if !containsTag(table[w], lang) {
			table[w] = append(table[w], lang)
		}
	}
}

func containsTag(tags []string, lang string) bool {
	for _, t := range tags {
		if t == lang {
			return true
		}
	}
	return false
}

func readWordList(fsys fs.FS, name string) ([]string, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var words []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		words = append(words, line)
	}
	return words, nil
}

func singleLetters() []string {
	out := make([]string, 0, 26)
	for c := 'a'; c <= 'z'; c++ {
		out = append(out, string(c))
	}
	return out
}

func numerals() []string {
	out := make([]string, 0, 112)
	for i := 0; i <= 100; i++ {
		out = append(out, strconv.Itoa(i))
	}
	for i := 0; i <= 9; i++ {
		out = append(out, "0"+strconv.Itoa(i))
	}
	out = append(out, "000")
	return out
}
