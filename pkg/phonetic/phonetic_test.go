package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishact/ramble/internal/store"
)

func TestDoubleMetaphone_MatchesSimilarSoundingNames(t *testing.T) {
	p1, _ := DoubleMetaphone("Smith")
	p2, _ := DoubleMetaphone("Smyth")
	assert.Equal(t, p1, p2, "Smith and Smyth should share a primary code")
}

func TestLevenshtein_Basics(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("same", "same"))
	assert.Equal(t, 1, Levenshtein("cat", "cats"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
}

func TestNormalizedLevenshtein_BoundedZeroToOne(t *testing.T) {
	d := NormalizedLevenshtein("copenhagen", "cophenhagen")
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 0.3)
	assert.Equal(t, 0.0, NormalizedLevenshtein("same", "same"))
}

func vocab(spelling string) *store.Vocabulary {
	primary, secondary := DoubleMetaphone(spelling)
	var sec *string
	if secondary != "" {
		sec = &secondary
	}
	return &store.Vocabulary{
		ID:                spelling,
		CorrectSpelling:   spelling,
		PhoneticPrimary:   primary,
		PhoneticSecondary: sec,
	}
}

func TestBuild_FindUnknownTokens_SkipsKnownAndStopwords(t *testing.T) {
	m, err := Build([]*store.Vocabulary{vocab("Copenhagen")})
	require.NoError(t, err)

	candidates := m.FindUnknownTokens("I am going to Cophenhagen and Copenhagen with the team")
	var tokens []string
	for _, c := range candidates {
		tokens = append(tokens, c.Token)
	}
	assert.Contains(t, tokens, "Cophenhagen", "an unrecognized spelling should surface as a candidate")
	assert.NotContains(t, tokens, "Copenhagen", "the learned spelling itself is already known")
	assert.NotContains(t, tokens, "the", "stopwords should be excluded")
	assert.Contains(t, tokens, "team", "an ordinary unknown word should still surface")
}

func TestSuggest_FindsClosestVocabularyEntryBySharedCode(t *testing.T) {
	m, err := Build([]*store.Vocabulary{vocab("Copenhagen"), vocab("Stockholm")})
	require.NoError(t, err)

	match := m.Suggest("Kopenhagen")
	require.NotNil(t, match)
	assert.Equal(t, "Copenhagen", match.Vocabulary.CorrectSpelling)
	assert.True(t, match.PhoneticMatched)
}

func TestSuggest_ReturnsNilWhenNoSharedCode(t *testing.T) {
	m, err := Build([]*store.Vocabulary{vocab("Copenhagen")})
	require.NoError(t, err)

	match := m.Suggest("xyz123")
	assert.Nil(t, match)
}
