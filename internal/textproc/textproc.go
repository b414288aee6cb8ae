// Package textproc holds the tokenisation shared by the local embedder,
// the heuristic reasoner and conversation rewriting.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	tokenPattern    = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)
	sentencePattern = regexp.MustCompile(`(?s)[^.!?]+[.!?]+|[^.!?]+$`)
)

// Tokenize lowercases text and returns its word tokens in order.
// Possessive suffixes ("Paris's") are dropped.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		t = strings.TrimSuffix(strings.TrimSuffix(t, "'s"), "’s")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Terms returns the stemmed non-stopword tokens of text, in order, with repeats.
func Terms(text string) []string {
	toks := Tokenize(text)
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		if IsStopword(t) {
			continue
		}
		out = append(out, Stem(t))
	}
	return out
}

// Keywords returns the distinct terms of text in first-occurrence order.
func Keywords(text string) []string {
	terms := Terms(text)
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Stem applies light suffix stripping so plural and singular forms match.
func Stem(token string) string {
	n := len(token)
	switch {
	case n > 4 && strings.HasSuffix(token, "ies"):
		return token[:n-3] + "y"
	case n > 3 && strings.HasSuffix(token, "es") && strings.ContainsAny(token[n-3:n-2], "sxz"):
		return token[:n-2]
	case n > 3 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") &&
		!strings.HasSuffix(token, "us") && !strings.HasSuffix(token, "is"):
		return token[:n-1]
	default:
		return token
	}
}

// Sentences splits text into trimmed sentences. Text without terminal
// punctuation yields a single sentence.
func Sentences(text string) []string {
	matches := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.Join(strings.Fields(m), " ")
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Coverage returns the fraction of keywords that occur among the terms of text.
// An empty keyword list has full coverage.
func Coverage(keywords []string, text string) float64 {
	if len(keywords) == 0 {
		return 1
	}
	present := make(map[string]struct{})
	for _, t := range Terms(text) {
		present[t] = struct{}{}
	}
	hit := 0
	for _, k := range keywords {
		if _, ok := present[k]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(keywords))
}

// IsCapitalised reports whether a word starts with an upper-case letter.
func IsCapitalised(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

// IsStopword reports whether a lowercase token carries no topical meaning.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such",
		"into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off",
		"own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "who", "whom", "whose", "when", "where", "which", "why", "how",
		"do", "does", "did", "done", "doing", "has", "have", "had", "having",
		"he", "she", "they", "them", "him", "her", "his", "hers", "their", "theirs", "we", "us", "our",
		"you", "your", "i", "me", "my", "there", "here", "also", "any", "all", "some", "not", "no",
		"would", "could", "may", "might", "must", "shall", "tell", "please",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
