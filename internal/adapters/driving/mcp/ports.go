package mcp

import (
	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
)

// Ports is everything the MCP server needs from the application.
type Ports struct {
	// Researcher answers questions and runs plain searches.
	Researcher driving.Researcher

	// Conversations serves session history.
	Conversations driving.ConversationService

	// Ingest lists stored documents. Optional; without it the document
	// resources are empty.
	Ingest driving.IngestService

	// Research holds the default loop bounds for the research tool.
	Research domain.ResearchConfig

	// Version is reported to clients. Empty means "dev".
	Version string
}

// Validate reports the first missing required port.
func (p *Ports) Validate() error {
	if p.Researcher == nil {
		return ErrMissingResearcher
	}
	if p.Conversations == nil {
		return ErrMissingConversations
	}
	return nil
}
