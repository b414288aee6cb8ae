package domain

import (
	"fmt"
	"math"
)

// ResearchConfig bounds a single research run.
type ResearchConfig struct {
	// MaxSteps caps the number of reasoning steps (one per sub-query).
	MaxSteps int

	// KPerStep is the number of results retrieved per sub-query.
	KPerStep int

	// SimilarityThreshold excludes individually weak matches from evidence.
	// It never aborts a run.
	SimilarityThreshold float64
}

// DefaultResearchConfig returns the configuration used when nothing is set.
func DefaultResearchConfig() ResearchConfig {
	return ResearchConfig{
		MaxSteps:            5,
		KPerStep:            5,
		SimilarityThreshold: 0.1,
	}
}

// Validate checks that the configuration can drive a bounded run.
func (c ResearchConfig) Validate() error {
	if c.MaxSteps < 1 {
		return fmt.Errorf("%w: max_steps must be >= 1, got %d", ErrInvalidConfig, c.MaxSteps)
	}
	if c.KPerStep < 1 {
		return fmt.Errorf("%w: k_per_step must be >= 1, got %d", ErrInvalidConfig, c.KPerStep)
	}
	if math.IsNaN(c.SimilarityThreshold) || math.IsInf(c.SimilarityThreshold, 0) {
		return fmt.Errorf("%w: similarity_threshold must be finite", ErrInvalidConfig)
	}
	return nil
}

// ReasoningStep records one retrieval for one sub-query.
// Steps are appended in order during a run and never modified afterwards.
type ReasoningStep struct {
	// Index is the 0-based position of this step in the trace.
	Index int

	// SubQuery is the query text issued for this step.
	SubQuery string

	// Results are the retrieved matches, including those below the threshold.
	Results []SearchResult

	// Conclusion is the intermediate finding drawn from Results.
	Conclusion string

	// Err is the retrieval failure message when the sub-query was skipped.
	Err string
}

// Empty returns true if the step retrieved nothing.
func (s ReasoningStep) Empty() bool {
	return len(s.Results) == 0
}

// StopReason explains why a research run left its loop.
type StopReason string

const (
	// StopSufficient means the evaluator judged the evidence sufficient.
	StopSufficient StopReason = "sufficient"

	// StopMaxSteps means the step budget was exhausted.
	StopMaxSteps StopReason = "max_steps"

	// StopExhausted means decomposition produced no new sub-queries.
	StopExhausted StopReason = "exhausted"
)

// ResearchResult is the outcome of a research run.
type ResearchResult struct {
	// Query is the query the run investigated (after conversation rewriting).
	Query string

	// Answer is the synthesised final answer.
	Answer string

	// Steps is the complete ordered step trace.
	Steps []ReasoningStep

	// Evidence is the deduplicated set of results the answer was built from,
	// best score first.
	Evidence []SearchResult

	// StopReason records why the loop ended.
	StopReason StopReason
}

// SubQueries returns the sub-query of every step in order.
func (r *ResearchResult) SubQueries() []string {
	out := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.SubQuery
	}
	return out
}
