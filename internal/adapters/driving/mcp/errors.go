// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets AI assistants search the corpus, run research and read
// conversation history.
package mcp

import "errors"

// ErrMissingResearcher is returned when the researcher is not provided.
var ErrMissingResearcher = errors.New("mcp: researcher is required")

// ErrMissingConversations is returned when the conversation service is not provided.
var ErrMissingConversations = errors.New("mcp: conversation service is required")
