package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptDecompose splits a research query into sub-queries.
	// Placeholders: %s (query), %s (findings so far), %d (max sub-queries).
	PromptDecompose = "decompose"

	// PromptSufficiency asks whether the evidence answers the query (YES/NO).
	// Placeholders: %s (query), %s (evidence).
	PromptSufficiency = "sufficiency"

	// PromptConclude draws an intermediate conclusion for one sub-query.
	// Placeholders: %s (sub-query), %s (retrieved context).
	PromptConclude = "conclude"

	// PromptSynthesize composes the final answer.
	// Placeholders: %s (context), %s (query).
	PromptSynthesize = "synthesize"

	// PromptRewrite resolves references in a follow-up question.
	// Placeholders: %s (conversation so far), %s (new question).
	PromptRewrite = "rewrite"
)
