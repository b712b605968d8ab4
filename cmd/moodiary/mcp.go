package main

import (
	"github.com/spf13/cobra"

	"github.com/unowned-ai/moodiary/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the moodiary MCP server (stdio)",
	Long: `Start a Model Context Protocol (MCP) server that exposes the mood journal as MCP
tools via STDIO: get_entry, save_entry, delete_entry, list_entries, get_statistics,
get_calendar and ping.

Logs go to stderr so they never mix with the JSON-RPC stream on stdout.

The --db flag is optional. If not provided, a system-specific default location will be used:
- Windows: %USERPROFILE%\AppData\Roaming\moodiary\moodiary.db
- macOS: ~/Library/Application Support/moodiary/moodiary.db
- Linux: $XDG_DATA_HOME/moodiary/moodiary.db (~/.local/share/moodiary/moodiary.db)

Example:
  moodiary mcp
  moodiary mcp --db moodiary.db --log-format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.svc.Close()

		srv := mcp.NewMoodiaryMCPServer(st.svc, logger)
		logger.Info("moodiary mcp server starting", "backend", st.backend, "data", st.location)
		return srv.Start()
	},
}
