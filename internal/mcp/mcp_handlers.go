package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coffeeportal/backfill/core"
	"github.com/coffeeportal/backfill/core/fill"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg    *contract.Config
	mgr        contract.CacheManager
	openSource sourceOpener
}

func (h *toolHandler) handleReconstructSeries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metric, err := schema.LookupMetric(request.GetString("table", ""), request.GetString("column", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid metric: %v", err)), nil
	}
	cfg := h.baseCfg.Clone()
	cfg.Table, cfg.Column = metric.Table, metric.Column

	source, err := h.openSource(cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("source unavailable: %v", err)), nil
	}
	defer func() { _ = source.Close() }()

	series, err := core.GetSeriesResult(core.WithSuppressHeader(ctx), cfg, h.mgr, source, metric)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reconstruction failed: %v", err)), nil
	}
	return jsonResult(schema.NewSeriesResponse(series))
}

func (h *toolHandler) handleReconstructTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := schema.LookupTable(request.GetString("table", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid table: %v", err)), nil
	}
	cfg := h.baseCfg.Clone()
	cfg.Table, cfg.Column = table.Name, ""

	source, err := h.openSource(cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("source unavailable: %v", err)), nil
	}
	defer func() { _ = source.Close() }()

	result, err := core.GetTableResult(core.WithSuppressHeader(ctx), cfg, h.mgr, source, table)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reconstruction failed: %v", err)), nil
	}
	return jsonResult(schema.NewTableResponse(result))
}

func (h *toolHandler) handleReconstructPoints(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("points", "")
	if raw == "" {
		return mcp.NewToolResultError("points is required"), nil
	}
	var observed []schema.ObservedPoint
	if err := json.Unmarshal([]byte(raw), &observed); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid points JSON: %v", err)), nil
	}

	opts := h.baseCfg.Fill
	if n := request.GetInt("min_points", 0); n > 0 {
		opts.MinPoints = n
	}

	points, err := fill.Densify(observed)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid points: %v", err)), nil
	}
	series, err := fill.Reconstruct(points, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reconstruction failed: %v", err)), nil
	}
	return jsonResult(schema.NewSeriesResponse(series))
}

// metricListing is the list_metrics payload entry.
type metricListing struct {
	Table       string   `json:"table"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
}

func (h *toolHandler) handleListMetrics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var listing []metricListing
	for _, name := range schema.TableNames() {
		t := schema.MetricTables[name]
		listing = append(listing, metricListing{Table: t.Name, Description: t.Description, Columns: t.ColumnNames()})
	}
	return jsonResult(listing)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
