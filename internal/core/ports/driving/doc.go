// Package driving holds the operations the CLI and MCP server call on the
// core. internal/core/services implements them.
package driving
