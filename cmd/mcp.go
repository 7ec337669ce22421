package cmd

import (
	"github.com/coffeeportal/backfill/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the backfill MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents reconstruct series via standard tools.

Tools: reconstruct_series, reconstruct_table, reconstruct_points, list_metrics.
The source, cache and run tracking settings are the same as for the series command.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
