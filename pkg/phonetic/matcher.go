package phonetic

import (
	"strings"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/ashishact/ramble/internal/store"
)

// Matcher holds the in-memory phonetic index built from the Store's
// learned Vocabulary (spec.md §4.D). Grounded on GoKitt's
// RuntimeDictionary (pkg/implicit-matcher/dictionary.go). Build also
// compiles an Aho-Corasick automaton over every known correct spelling,
// but no method reads it: FindUnknownTokens flags tokens that are NOT
// already a known spelling by looking them up in the known-spelling
// map, so they can be phonetically scored against the vocabulary.
type Matcher struct {
	ac        *ahocorasick.Automaton
	known     map[string]bool
	byCode    map[string][]*store.Vocabulary
	stopwords *stopwords.Stopwords
}

// Build constructs a Matcher from the full learned vocabulary.
func Build(vocab []*store.Vocabulary) (*Matcher, error) {
	m := &Matcher{
		known:     make(map[string]bool, len(vocab)),
		byCode:    make(map[string][]*store.Vocabulary),
		stopwords: stopwords.MustGet("en"),
	}

	patterns := make([]string, 0, len(vocab))
	for _, v := range vocab {
		key := CanonicalizeForMatch(v.CorrectSpelling)
		if key == "" {
			continue
		}
		if !m.known[key] {
			patterns = append(patterns, key)
		}
		m.known[key] = true
		m.byCode[v.PhoneticPrimary] = append(m.byCode[v.PhoneticPrimary], v)
		if v.PhoneticSecondary != nil && *v.PhoneticSecondary != "" {
			m.byCode[*v.PhoneticSecondary] = append(m.byCode[*v.PhoneticSecondary], v)
		}
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	m.ac = automaton
	return m, nil
}

// CanonicalizeForMatch normalizes a surface form for pattern matching:
// lowercase, letters/digits/apostrophes/hyphens kept, everything else
// collapsed to a single space.
func CanonicalizeForMatch(s string) string {
	var out strings.Builder
	lastWasSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '’' || r == '‘':
			r = '\''
			fallthrough
		case isLetterOrDigit(r) || r == '\'' || r == '-':
			out.WriteRune(r)
			lastWasSpace = false
		default:
			if !lastWasSpace {
				out.WriteRune(' ')
				lastWasSpace = true
			}
		}
	}
	return strings.TrimRight(out.String(), " ")
}

func isLetterOrDigit(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// Candidate is a token in scanned text that is not a known spelling
// and isn't a stopword, the population the fuzzy matcher scores.
type Candidate struct {
	Token     string
	Start     int
	End       int
}

// FindUnknownTokens tokenizes text on whitespace and returns every
// token that is neither a known vocabulary spelling nor an English
// stopword — candidates worth phonetic scoring.
func (m *Matcher) FindUnknownTokens(text string) []Candidate {
	var out []Candidate
	pos := 0
	for _, raw := range strings.Fields(text) {
		start := strings.Index(text[pos:], raw) + pos
		end := start + len(raw)
		pos = end

		key := CanonicalizeForMatch(raw)
		if key == "" {
			continue
		}
		if m.known[key] {
			continue
		}
		if m.stopwords.Contains(key) {
			continue
		}
		out = append(out, Candidate{Token: raw, Start: start, End: end})
	}
	return out
}

// Match is a scored phonetic match between a candidate token and a
// learned vocabulary entry.
type Match struct {
	Candidate       Candidate
	Vocabulary      *store.Vocabulary
	EditDistance    int
	PhoneticMatched bool
}

// Suggest scores candidate against every vocabulary entry sharing its
// primary or secondary Double Metaphone code, returning the closest
// match by edit distance (or nil if none share a code).
func (m *Matcher) Suggest(candidate string) *Match {
	primary, secondary := DoubleMetaphone(candidate)

	var best *store.Vocabulary
	bestDist := -1
	consider := func(v *store.Vocabulary) {
		d := Levenshtein(strings.ToLower(candidate), strings.ToLower(v.CorrectSpelling))
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = v
		}
	}
	for _, v := range m.byCode[primary] {
		consider(v)
	}
	if secondary != "" {
		for _, v := range m.byCode[secondary] {
			consider(v)
		}
	}
	if best == nil {
		return nil
	}
	return &Match{
		Vocabulary:      best,
		EditDistance:    bestDist,
		PhoneticMatched: true,
	}
}
