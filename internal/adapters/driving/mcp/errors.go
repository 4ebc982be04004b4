// Package mcp provides an MCP (Model Context Protocol) server adapter for Reserca.
// It enables AI assistants to retrieve aggregated evidence and manage the local corpus.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
