// Package heuristic provides a Reasoner that needs no language model.
//
// Decomposition splits compound questions and adds fixed framing
// questions; sufficiency is keyword coverage of the query by the evidence;
// answers are extractive, built from the evidence sentences that best
// cover the query.
package heuristic

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/textproc"
)

// Ensure Reasoner implements the interface.
var _ driven.Reasoner = (*Reasoner)(nil)

const (
	// CoverageTarget is the fraction of query keywords the evidence must
	// mention before the query counts as answered.
	CoverageTarget = 0.6

	// MaxAnswerSentences bounds the extractive answer.
	MaxAnswerSentences = 3
)

// clauseSplit separates independent clauses of a compound question.
var clauseSplit = regexp.MustCompile(`(?i)\s*(?:;|\?|\band\b)\s*`)

// Reasoner is the offline reasoner.
type Reasoner struct{}

// New creates a heuristic reasoner.
func New() *Reasoner {
	return &Reasoner{}
}

// Name identifies the reasoner in logs.
func (r *Reasoner) Name() string {
	return "heuristic"
}

// Decompose returns, in the first round, the query itself, its clauses
// and three framing questions. Later rounds ask about query keywords the
// evidence does not mention yet; none left means nothing more to ask.
func (r *Reasoner) Decompose(_ context.Context, state driven.ReasoningState) ([]string, error) {
	if state.Round == 0 {
		subs := []string{state.Query}
		if clauses := splitClauses(state.Query); len(clauses) > 1 {
			subs = append(subs, clauses...)
		}
		return append(subs,
			fmt.Sprintf("What is the main topic of '%s'?", state.Query),
			fmt.Sprintf("What aspects of '%s' need to be addressed?", state.Query),
			fmt.Sprintf("How can '%s' be understood in context?", state.Query),
		), nil
	}

	missing := uncovered(textproc.Keywords(state.Query), evidenceText(state.Evidence))
	if len(missing) == 0 {
		return nil, nil
	}

	anchor := latestConclusion(state.Steps)
	subs := make([]string, 0, len(missing))
	for _, kw := range missing {
		if anchor != "" {
			subs = append(subs, fmt.Sprintf("%s %s", kw, anchor))
		} else {
			subs = append(subs, fmt.Sprintf("%s %s", kw, state.Query))
		}
	}
	return subs, nil
}

// Conclude returns the sentence of the top result that best covers the sub-query.
func (r *Reasoner) Conclude(_ context.Context, subQuery string, results []domain.SearchResult) (string, error) {
	if len(results) == 0 {
		return "", nil
	}
	best, _ := bestSentence(textproc.Keywords(subQuery), results[0].Chunk.Content)
	return best, nil
}

// Sufficient reports whether the evidence covers enough of the query keywords.
func (r *Reasoner) Sufficient(_ context.Context, state driven.ReasoningState) (bool, error) {
	if len(state.Evidence) == 0 {
		return false, nil
	}
	keywords := textproc.Keywords(state.Query)
	return textproc.Coverage(keywords, evidenceText(state.Evidence)) >= CoverageTarget, nil
}

// Synthesize builds an extractive answer citing the chunks it quotes.
func (r *Reasoner) Synthesize(_ context.Context, state driven.ReasoningState) (string, error) {
	if len(state.Evidence) == 0 {
		return "", nil
	}
	keywords := textproc.Keywords(state.Query)

	type pick struct {
		sentence string
		source   int
		score    float64
	}
	var picks []pick
	seen := make(map[string]struct{})
	for i, ev := range state.Evidence {
		for _, s := range textproc.Sentences(ev.Chunk.Content) {
			key := strings.ToLower(s)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if score := textproc.Coverage(keywords, s); score > 0 {
				picks = append(picks, pick{sentence: s, source: i, score: score})
			}
		}
	}

	// Highest coverage first; evidence order breaks ties.
	slices.SortStableFunc(picks, func(a, b pick) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(picks) > MaxAnswerSentences {
		picks = picks[:MaxAnswerSentences]
	}
	if len(picks) == 0 {
		if first := textproc.Sentences(state.Evidence[0].Chunk.Content); len(first) > 0 {
			picks = append(picks, pick{sentence: first[0], source: 0})
		}
	}

	cites := make(map[int]int)
	var order []int
	var body strings.Builder
	for i, p := range picks {
		n, ok := cites[p.source]
		if !ok {
			order = append(order, p.source)
			n = len(order)
			cites[p.source] = n
		}
		if i > 0 {
			body.WriteByte(' ')
		}
		fmt.Fprintf(&body, "%s [%d]", p.sentence, n)
	}

	body.WriteString("\n\nSources:")
	for i, src := range order {
		fmt.Fprintf(&body, "\n[%d] %s", i+1, sourceLabel(state.Evidence[src]))
	}
	return body.String(), nil
}

func sourceLabel(res domain.SearchResult) string {
	if title := res.Chunk.MetadataString(domain.MetaTitle); title != "" {
		return fmt.Sprintf("%s (chunk %s)", title, res.ChunkID)
	}
	return "chunk " + res.ChunkID
}

func splitClauses(query string) []string {
	var out []string
	for _, part := range clauseSplit.Split(query, -1) {
		part = strings.TrimSpace(part)
		if len(textproc.Keywords(part)) > 0 {
			out = append(out, part)
		}
	}
	return out
}

func evidenceText(evidence []domain.SearchResult) string {
	var b strings.Builder
	for _, ev := range evidence {
		b.WriteString(ev.Chunk.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

func uncovered(keywords []string, text string) []string {
	present := make(map[string]struct{})
	for _, t := range textproc.Terms(text) {
		present[t] = struct{}{}
	}
	var out []string
	for _, kw := range keywords {
		if _, ok := present[kw]; !ok {
			out = append(out, kw)
		}
	}
	return out
}

func latestConclusion(steps []domain.ReasoningStep) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Conclusion != "" {
			return steps[i].Conclusion
		}
	}
	return ""
}

// bestSentence returns the sentence of text with the highest keyword
// coverage, the first one on ties.
func bestSentence(keywords []string, text string) (string, float64) {
	best, bestScore := "", -1.0
	for _, s := range textproc.Sentences(text) {
		if score := textproc.Coverage(keywords, s); score > bestScore {
			best, bestScore = s, score
		}
	}
	return best, bestScore
}
