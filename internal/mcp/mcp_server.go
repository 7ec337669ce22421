// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"strings"

	"github.com/coffeeportal/backfill/core"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// sourceOpener returns the series source for a tool call.
type sourceOpener func(cfg *contract.Config) (contract.SeriesSource, error)

// NewMCPServer initializes and configures the backfill MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	return newMCPServer(baseCfg, mgr, core.OpenSource)
}

func newMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, open sourceOpener) *server.MCPServer {
	s := server.NewMCPServer(
		"Backfill Series Server",
		"1.0.0",
		server.WithLogging(),
		server.WithRecovery(),
	)

	h := &toolHandler{
		baseCfg:    baseCfg,
		mgr:        mgr,
		openSource: open,
	}

	tables := schema.TableNames()

	// --- 1. Tool: reconstruct_series ---
	s.AddTool(mcp.NewTool("reconstruct_series",
		mcp.WithDescription("Reconstruct one annual metric from the configured source. Missing years are interpolated or extrapolated and every point is tagged actual, interpolated or extrapolated."),
		mcp.WithString("table", mcp.Description("Metric table ("+strings.Join(tables, ", ")+")."), mcp.Required(), mcp.Enum(tables...)),
		mcp.WithString("column", mcp.Description("Numeric column of the table, e.g. output_tons."), mcp.Required()),
	), h.handleReconstructSeries)

	// --- 2. Tool: reconstruct_table ---
	s.AddTool(mcp.NewTool("reconstruct_table",
		mcp.WithDescription("Reconstruct every column of a metric table. Columns that cannot be reconstructed are listed under failures."),
		mcp.WithString("table", mcp.Description("Metric table ("+strings.Join(tables, ", ")+")."), mcp.Required(), mcp.Enum(tables...)),
	), h.handleReconstructTable)

	// --- 3. Tool: reconstruct_points ---
	s.AddTool(mcp.NewTool("reconstruct_points",
		mcp.WithDescription("Reconstruct an inline series. Years may be skipped; they are treated as missing."),
		mcp.WithString("points", mcp.Description(`JSON array such as [{"year":2020,"value":100},{"year":2021,"value":null}].`), mcp.Required()),
		mcp.WithNumber("min_points", mcp.Description("Shortest accepted series (defaults to the configured value).")),
	), h.handleReconstructPoints)

	// --- 4. Tool: list_metrics ---
	s.AddTool(mcp.NewTool("list_metrics",
		mcp.WithDescription("List the metric tables and columns that can be reconstructed."),
	), h.handleListMetrics)

	return s
}

// StartMCPServer starts the backfill MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
