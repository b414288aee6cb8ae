package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/textproc"
)

var (
	personalPronoun = regexp.MustCompile(`(?i)\b(he|she|they|him|her|them)\b`)
	possessive      = regexp.MustCompile(`(?i)\b(his|its|their)\b`)
	herBeforeWord   = regexp.MustCompile(`(?i)\bher(\s+)([\p{L}]+)`)
	reference       = regexp.MustCompile(`(?i)\b(it|this|that|these|those)\b`)
	ellipsis        = regexp.MustCompile(`(?i)^\s*(and|what about|how about)\s+`)
)

// nameParticles may appear inside a proper name without being capitalised.
var nameParticles = map[string]bool{
	"da": true, "de": true, "del": true, "della": true, "di": true, "du": true,
	"van": true, "von": true, "der": true, "la": true, "le": true, "of": true, "bin": true,
}

// rewriteHeuristic resolves references in query against the previous turn.
func rewriteHeuristic(query string, prev domain.ConversationTurn) string {
	query = strings.TrimSpace(query)
	prevQuery := strings.TrimSpace(prev.Query)

	if m := ellipsis.FindStringIndex(query); m != nil {
		rest := strings.TrimSpace(query[m[1]:])
		if rest == "" || prevQuery == "" {
			return query
		}
		return withContext(rest, prevQuery)
	}

	entity := salientEntity(prev.Answer)
	if entity == "" {
		entity = salientEntity(prevQuery)
	}

	rewritten := query
	if entity != "" {
		rewritten = possessive.ReplaceAllLiteralString(rewritten, entity+"'s")
		rewritten = replacePossessiveHer(rewritten, entity)
		rewritten = personalPronoun.ReplaceAllLiteralString(rewritten, entity)
	}

	unresolved := entity == "" && (personalPronoun.MatchString(rewritten) || possessive.MatchString(rewritten))
	if reference.MatchString(rewritten) || unresolved {
		if prevQuery != "" {
			rewritten = withContext(rewritten, prevQuery)
		}
	}
	return rewritten
}

// replacePossessiveHer turns "her" into "<entity>'s" when a content word
// follows it ("her nationality"). Object uses ("asked her about") are left
// for the personal pronoun pass.
func replacePossessiveHer(query, entity string) string {
	return herBeforeWord.ReplaceAllStringFunc(query, func(m string) string {
		sub := herBeforeWord.FindStringSubmatch(m)
		if textproc.IsStopword(strings.ToLower(sub[2])) {
			return m
		}
		return entity + "'s" + sub[1] + sub[2]
	})
}

func withContext(query, prevQuery string) string {
	return query + " (context: " + prevQuery + ")"
}

// salientEntity returns the longest run of capitalised words in text.
// Lowercase name particles are allowed between capitalised words, and a
// capitalised stopword ("What", "The") never starts a run. The first
// longest run wins.
func salientEntity(text string) string {
	var best, cur []string
	flush := func() {
		for len(cur) > 0 && nameParticles[cur[len(cur)-1]] {
			cur = cur[:len(cur)-1]
		}
		if len(cur) > len(best) {
			best = cur
		}
		cur = nil
	}

	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, isEdgePunct)
		word = strings.TrimSuffix(strings.TrimSuffix(word, "'s"), "’s")
		endsClause := strings.TrimRightFunc(field, isEdgePunct) != field

		switch {
		case word == "":
			flush()
		case textproc.IsCapitalised(word) && !textproc.IsStopword(strings.ToLower(word)):
			cur = append(cur, word)
		case len(cur) > 0 && nameParticles[word]:
			cur = append(cur, word)
		default:
			flush()
		}
		if endsClause {
			flush()
		}
	}
	flush()
	return strings.Join(best, " ")
}

func isEdgePunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
