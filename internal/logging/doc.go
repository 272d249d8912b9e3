// Package logging configures structured JSON logging for docsearch.
//
// Logs go to a size-rotated file under ~/.docsearch/logs/ and, outside of
// MCP server mode, to stderr as well. The viewer in this package backs the
// `docsearch logs` command.
package logging
