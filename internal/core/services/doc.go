// Package services implements the driving port interfaces.
// Services contain the core retrieval and reasoning logic and orchestrate
// calls to driven ports (adapters).
//
// Indexes are explicit values passed into every call; IndexHandle is the
// only shared holder and swaps whole indexes atomically.
package services
