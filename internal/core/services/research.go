package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// Ensure ResearchService implements the interface.
var _ driving.ResearchService = (*ResearchService)(nil)

// maxParallelRetrievals bounds concurrent searches within one round.
const maxParallelRetrievals = 4

// researchState is a state of the research loop.
type researchState int

const (
	stateDecompose researchState = iota
	stateRetrieve
	stateEvaluate
	stateFinalize
	stateDone
)

func (s researchState) String() string {
	switch s {
	case stateDecompose:
		return "decompose"
	case stateRetrieve:
		return "retrieve"
	case stateEvaluate:
		return "evaluate"
	case stateFinalize:
		return "finalize"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ResearchService runs the bounded Decompose → Retrieve → Evaluate → Finalize loop.
type ResearchService struct {
	search   driving.SearchService
	reasoner driven.Reasoner
}

// NewResearchService creates a research service.
func NewResearchService(search driving.SearchService, reasoner driven.Reasoner) *ResearchService {
	return &ResearchService{
		search:   search,
		reasoner: reasoner,
	}
}

// researchRun is the mutable state of one Run call. It is never shared
// between runs or goroutines.
type researchRun struct {
	idx     *domain.Index
	query   string
	history []domain.ConversationTurn
	cfg     domain.ResearchConfig

	steps    []domain.ReasoningStep
	pending  []string
	issued   map[string]struct{}
	evidence []domain.SearchResult
	seen     map[string]int
	round    int
	stop     domain.StopReason
}

func (r *researchRun) view() driven.ReasoningState {
	return driven.ReasoningState{
		Query:     r.query,
		History:   r.history,
		Steps:     slices.Clone(r.steps),
		Evidence:  slices.Clone(r.evidence),
		Round:     r.round,
		Remaining: r.cfg.MaxSteps - len(r.steps),
	}
}

// Run investigates query against idx.
//
// The trace never exceeds cfg.MaxSteps steps. A failing sub-query is
// recorded as an empty step and the run continues; the run fails with a
// NoEvidenceError only if every step came back empty.
func (s *ResearchService) Run(
	ctx context.Context, idx *domain.Index, query string,
	history []domain.ConversationTurn, cfg domain.ResearchConfig,
) (*domain.ResearchResult, error) {
	logger.Section("Research")
	logger.Debug("Query: %q, reasoner: %s, max_steps: %d, k_per_step: %d, threshold: %.3f",
		query, s.reasoner.Name(), cfg.MaxSteps, cfg.KPerStep, cfg.SimilarityThreshold)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("research: %w: empty query", domain.ErrInvalidInput)
	}
	if idx == nil {
		return nil, fmt.Errorf("research %q: %w", query, domain.ErrIndexNotLoaded)
	}
	if idx.Len() == 0 {
		return nil, fmt.Errorf("research %q: %w", query, domain.ErrEmptyIndex)
	}

	run := &researchRun{
		idx:     idx,
		query:   query,
		history: slices.Clone(history),
		cfg:     cfg,
		issued:  make(map[string]struct{}),
		seen:    make(map[string]int),
	}

	var (
		result *domain.ResearchResult
		err    error
	)
	state := stateDecompose
	for state != stateDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debug("State %s (round %d, steps %d/%d)", state, run.round, len(run.steps), cfg.MaxSteps)

		switch state {
		case stateDecompose:
			state = s.decompose(ctx, run)
		case stateRetrieve:
			state, err = s.retrieve(ctx, run)
		case stateEvaluate:
			state = s.evaluate(ctx, run)
		case stateFinalize:
			result, err = s.finalize(ctx, run)
			state = stateDone
		}
		if err != nil {
			return nil, err
		}
	}

	logger.Info("Research finished after %d step(s): %s", len(result.Steps), result.StopReason)
	return result, nil
}

func (s *ResearchService) decompose(ctx context.Context, run *researchRun) researchState {
	remaining := run.cfg.MaxSteps - len(run.steps)
	if remaining <= 0 {
		run.stop = domain.StopMaxSteps
		return stateFinalize
	}

	proposed, err := s.reasoner.Decompose(ctx, run.view())
	if err != nil {
		logger.Warn("Decompose failed in round %d: %v", run.round, err)
		proposed = nil
	}
	if run.round == 0 && len(proposed) == 0 {
		proposed = []string{run.query}
	}

	run.pending = run.pending[:0]
	for _, sub := range proposed {
		sub = strings.TrimSpace(sub)
		key := strings.ToLower(strings.Join(strings.Fields(sub), " "))
		if key == "" {
			continue
		}
		if _, dup := run.issued[key]; dup {
			continue
		}
		run.issued[key] = struct{}{}
		run.pending = append(run.pending, sub)
		if len(run.pending) == remaining {
			break
		}
	}

	if len(run.pending) == 0 {
		logger.Debug("No new sub-queries in round %d", run.round)
		run.stop = domain.StopExhausted
		return stateFinalize
	}
	logger.Debug("Sub-queries: %q", run.pending)
	return stateRetrieve
}

// retrieve searches every pending sub-query, in parallel, and appends the
// steps in emission order.
func (s *ResearchService) retrieve(ctx context.Context, run *researchRun) (researchState, error) {
	type outcome struct {
		results []domain.SearchResult
		err     error
	}
	outcomes := make([]outcome, len(run.pending))

	var g errgroup.Group
	g.SetLimit(maxParallelRetrievals)
	for i, sub := range run.pending {
		g.Go(func() error {
			res, err := s.search.Search(ctx, run.idx, sub, domain.SearchOptions{K: run.cfg.KPerStep})
			outcomes[i] = outcome{results: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, sub := range run.pending {
		out := outcomes[i]
		step := domain.ReasoningStep{Index: len(run.steps), SubQuery: sub}

		if out.err != nil {
			if isIndexLevel(out.err) {
				return stateDone, out.err
			}
			if ctx.Err() != nil {
				return stateDone, ctx.Err()
			}
			logger.Warn("Sub-query %q failed, recording empty step: %v", sub, out.err)
			step.Err = out.err.Error()
			run.steps = append(run.steps, step)
			continue
		}

		step.Results = out.results
		if len(out.results) > 0 {
			conclusion, err := s.reasoner.Conclude(ctx, sub, out.results)
			if err != nil {
				logger.Warn("Conclude failed for %q: %v", sub, err)
			}
			step.Conclusion = conclusion
		}
		run.steps = append(run.steps, step)
		run.addEvidence(out.results)
	}

	run.pending = run.pending[:0]
	run.round++
	return stateEvaluate, nil
}

// addEvidence keeps results at or above the threshold, one per chunk,
// retaining the best score seen.
func (r *researchRun) addEvidence(results []domain.SearchResult) {
	for _, res := range results {
		if res.Score < r.cfg.SimilarityThreshold {
			continue
		}
		if i, ok := r.seen[res.ChunkID]; ok {
			if res.Score > r.evidence[i].Score {
				r.evidence[i] = res
			}
			continue
		}
		r.seen[res.ChunkID] = len(r.evidence)
		r.evidence = append(r.evidence, res)
	}
}

func (s *ResearchService) evaluate(ctx context.Context, run *researchRun) researchState {
	if len(run.steps) >= run.cfg.MaxSteps {
		run.stop = domain.StopMaxSteps
		return stateFinalize
	}

	ok, err := s.reasoner.Sufficient(ctx, run.view())
	if err != nil {
		logger.Warn("Sufficiency check failed, continuing: %v", err)
		ok = false
	}
	if ok {
		run.stop = domain.StopSufficient
		return stateFinalize
	}
	return stateDecompose
}

func (s *ResearchService) finalize(ctx context.Context, run *researchRun) (*domain.ResearchResult, error) {
	empty := true
	for _, step := range run.steps {
		if !step.Empty() {
			empty = false
			break
		}
	}
	if empty {
		logger.Warn("All %d step(s) returned no results", len(run.steps))
		return nil, &domain.NoEvidenceError{Query: run.query, Steps: len(run.steps)}
	}

	if len(run.evidence) == 0 {
		logger.Debug("No result cleared the threshold, using each step's best match")
		for _, step := range run.steps {
			if !step.Empty() {
				run.addBestEffort(step.Results[0])
			}
		}
	}
	sortEvidence(run.evidence)

	answer, err := s.reasoner.Synthesize(ctx, run.view())
	if err != nil {
		return nil, fmt.Errorf("synthesize answer for %q: %w", run.query, err)
	}

	return &domain.ResearchResult{
		Query:      run.query,
		Answer:     answer,
		Steps:      cloneSteps(run.steps),
		Evidence:   slices.Clone(run.evidence),
		StopReason: run.stop,
	}, nil
}

func (r *researchRun) addBestEffort(res domain.SearchResult) {
	if _, ok := r.seen[res.ChunkID]; ok {
		return
	}
	r.seen[res.ChunkID] = len(r.evidence)
	r.evidence = append(r.evidence, res)
}

// sortEvidence orders evidence best score first; the stable sort keeps
// discovery order among equal scores.
func sortEvidence(evidence []domain.SearchResult) {
	slices.SortStableFunc(evidence, func(a, b domain.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
}

// cloneSteps deep-copies the trace so callers cannot alias run state.
func cloneSteps(steps []domain.ReasoningStep) []domain.ReasoningStep {
	out := make([]domain.ReasoningStep, len(steps))
	for i, st := range steps {
		st.Results = slices.Clone(st.Results)
		out[i] = st
	}
	return out
}
