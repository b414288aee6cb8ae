package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriScheme    = "deepresearch://"
	documentsURI = uriScheme + "documents"
	sessionsURI  = uriScheme + "sessions"
)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Documents in the indexed corpus",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{documentId}",
		Name:        "document-content",
		Description: "Normalised text of one document",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)

	s.server.AddResource(&mcp.Resource{
		URI:         sessionsURI,
		Name:        "sessions",
		Description: "Conversation sessions, most recently active first",
		MIMEType:    "application/json",
	}, s.handleSessionsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: sessionsURI + "/{sessionId}",
		Name:        "session-history",
		Description: "Every turn of one conversation session, oldest first",
		MIMEType:    "application/json",
	}, s.handleSessionResource)
}

type documentEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// handleDocumentsResource lists stored documents; the list is empty when
// the server runs without an ingest service.
func (s *Server) handleDocumentsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	entries := []documentEntry{}
	if s.ports.Ingest != nil {
		docs, err := s.ports.Ingest.Documents(ctx)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		for _, d := range docs {
			entries = append(entries, documentEntry{ID: d.ID, Title: d.Title, URI: d.URI})
		}
	}
	return jsonResource(req.Params.URI, entries)
}

func (s *Server) handleDocumentContentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := extractDocumentID(req.Params.URI)
	if id == "" || s.ports.Ingest == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	docs, err := s.ports.Ingest.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for _, d := range docs {
		if d.ID == id {
			return textResource(req.Params.URI, "text/plain", d.Content), nil
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func (s *Server) handleSessionsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	sessions, err := s.ports.Conversations.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return jsonResource(req.Params.URI, toSessions(sessions))
}

// handleSessionResource returns a session's full history. An unknown
// session has no turns and reads as not found.
func (s *Server) handleSessionResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id, ok := strings.CutPrefix(req.Params.URI, sessionsURI+"/")
	if !ok || id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	turns, err := s.ports.Conversations.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if len(turns) == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, toTurns(turns))
}

// extractDocumentID returns the id in deepresearch://documents/{id}, or "".
func extractDocumentID(uri string) string {
	id, _ := strings.CutPrefix(uri, documentsURI+"/")
	if id == uri {
		return ""
	}
	return id
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}
	return textResource(uri, "application/json", string(data)), nil
}

func textResource(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
	}
}
