// Package driven lists what the core needs from the outside world:
// embedding and completion backends, document, chunk, conversation and
// index persistence, configuration, prompts, normalisers and reasoners.
//
// LLMService and PromptStore may be nil. Without an LLM the heuristic
// reasoner and rule-based query rewriting take over; without a prompt
// store the built-in prompts are used.
//
// Packages here import domain and nothing else from internal/.
package driven
