// Package llm provides a Reasoner that asks a language model for each
// judgement call and falls back to the heuristic reasoner when the model
// fails.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/reasoner/heuristic"
	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// Ensure Reasoner implements the interface.
var _ driven.Reasoner = (*Reasoner)(nil)

// Generation limits per call.
const (
	decomposeTokens  = 256
	verdictTokens    = 8
	concludeTokens   = 160
	synthesizeTokens = 1024
)

const systemPrompt = "You are a research assistant. Answer only from the numbered context you are given and cite it as [n]."

// listMarker matches bullets and numbering at the start of a line.
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// Reasoner prompts an LLM for decomposition, sufficiency, conclusions and
// the final answer.
type Reasoner struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	fallback *heuristic.Reasoner
}

// New creates an LLM-backed reasoner.
func New(llm driven.LLMService, prompts driven.PromptStore) *Reasoner {
	return &Reasoner{
		llm:      llm,
		prompts:  prompts,
		fallback: heuristic.New(),
	}
}

// Name identifies the reasoner and its model in logs.
func (r *Reasoner) Name() string {
	return "llm:" + r.llm.ModelName()
}

// Decompose asks for sub-queries, one per line. The first round always
// starts with the query itself.
func (r *Reasoner) Decompose(ctx context.Context, state driven.ReasoningState) ([]string, error) {
	findings := "none yet"
	if conclusions := collectConclusions(state.Steps); conclusions != "" {
		findings = conclusions
	}
	limit := max(state.Remaining, 1)

	out, err := r.generate(ctx, driven.PromptDecompose, decomposeTokens, state.Query, findings, limit)
	if err != nil {
		logger.Warn("LLM decompose failed, using heuristic: %v", err)
		return r.fallback.Decompose(ctx, state)
	}

	var subs []string
	if state.Round == 0 {
		subs = append(subs, state.Query)
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" || strings.EqualFold(line, "none") {
			continue
		}
		subs = append(subs, line)
	}
	return subs, nil
}

// Conclude asks for a one or two sentence conclusion of a step.
func (r *Reasoner) Conclude(ctx context.Context, subQuery string, results []domain.SearchResult) (string, error) {
	if len(results) == 0 {
		return "", nil
	}
	out, err := r.generate(ctx, driven.PromptConclude, concludeTokens, subQuery, formatContext(results))
	if err != nil {
		logger.Warn("LLM conclude failed, using heuristic: %v", err)
		return r.fallback.Conclude(ctx, subQuery, results)
	}
	return out, nil
}

// Sufficient asks the model for a YES/NO verdict.
func (r *Reasoner) Sufficient(ctx context.Context, state driven.ReasoningState) (bool, error) {
	if len(state.Evidence) == 0 {
		return false, nil
	}
	out, err := r.generate(ctx, driven.PromptSufficiency, verdictTokens, state.Query, formatContext(state.Evidence))
	if err != nil {
		logger.Warn("LLM sufficiency check failed, using heuristic: %v", err)
		return r.fallback.Sufficient(ctx, state)
	}
	return strings.HasPrefix(strings.ToUpper(out), "YES"), nil
}

// Synthesize asks for the final answer from the evidence.
func (r *Reasoner) Synthesize(ctx context.Context, state driven.ReasoningState) (string, error) {
	out, err := r.generate(ctx, driven.PromptSynthesize, synthesizeTokens, formatContext(state.Evidence), state.Query)
	if err != nil {
		logger.Warn("LLM synthesis failed, using heuristic: %v", err)
		return r.fallback.Synthesize(ctx, state)
	}
	return out, nil
}

func (r *Reasoner) generate(ctx context.Context, prompt string, maxTokens int, args ...any) (string, error) {
	tmpl, err := r.prompts.Load(prompt)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", prompt, err)
	}
	out, err := r.llm.Complete(ctx, driven.CompletionRequest{
		System:      systemPrompt,
		Prompt:      fmt.Sprintf(tmpl, args...),
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%s: empty %s response", r.llm.ModelName(), prompt)
	}
	return out, nil
}

// formatContext numbers the chunks so the model can cite them.
func formatContext(results []domain.SearchResult) string {
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, strings.TrimSpace(res.Chunk.Content))
	}
	return b.String()
}

func collectConclusions(steps []domain.ReasoningStep) string {
	var lines []string
	for _, st := range steps {
		if st.Conclusion != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", st.SubQuery, st.Conclusion))
		}
	}
	return strings.Join(lines, "\n")
}
