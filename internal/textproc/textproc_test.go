package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"paris", "is", "the", "capital", "of", "france"},
		Tokenize("Paris is the capital of France."))
	assert.Equal(t, []string{"paris", "tower"}, Tokenize("Paris's tower"))
	assert.Equal(t, []string{"born", "in", "1452"}, Tokenize("born in 1452!"))
	assert.Empty(t, Tokenize("  ... "))
}

func TestTerms_DropsStopwordsAndStems(t *testing.T) {
	assert.Equal(t, []string{"capital", "france"}, Terms("What is the capital of France?"))
	assert.Equal(t, []string{"city", "city"}, Terms("cities and the city"))
}

func TestKeywords_Distinct(t *testing.T) {
	assert.Equal(t, []string{"tower", "paris"}, Keywords("Tower, tower, Paris towers"))
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"capitals": "capital",
		"cities":   "city",
		"boxes":    "box",
		"glass":    "glass",
		"campus":   "campus",
		"analysis": "analysis",
		"is":       "is",
		"paint":    "paint",
	}
	for in, want := range tests {
		assert.Equal(t, want, Stem(in), in)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("Paris is the capital.  The Eiffel Tower is in Paris! Is it tall?\nTrailing clause")

	assert.Equal(t, []string{
		"Paris is the capital.",
		"The Eiffel Tower is in Paris!",
		"Is it tall?",
		"Trailing clause",
	}, got)
	assert.Empty(t, Sentences("   "))
}

func TestCoverage(t *testing.T) {
	kw := Keywords("capital of France")

	assert.InDelta(t, 1.0, Coverage(kw, "Paris is the capital of France."), 1e-9)
	assert.InDelta(t, 0.5, Coverage(kw, "France is in Europe."), 1e-9)
	assert.InDelta(t, 0.0, Coverage(kw, "Unrelated text."), 1e-9)
	assert.InDelta(t, 1.0, Coverage(nil, "anything"), 1e-9)
}

func TestIsCapitalised(t *testing.T) {
	assert.True(t, IsCapitalised("Leonardo"))
	assert.False(t, IsCapitalised("da"))
	assert.False(t, IsCapitalised(""))
}
