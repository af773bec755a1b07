package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	tlmcp "github.com/valter-silva-au/tasklists/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the tl MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tl MCP server on stdio",
	Long: `Start the tl MCP server on stdio transport.

The server keeps one session for the lifetime of the connection and exposes
it as MCP tools that AI assistants can call: list_tasks, add_task, edit_task,
delete_tasks, move_tasks, swap_task, select_tasks, set_active_list, save,
load and get_metrics. Nothing is written to GitHub until save is called.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}

		srv := tlmcp.NewServer(Session, MetricsCalc, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
