package mcp

import (
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	moodiary "github.com/unowned-ai/moodiary/pkg"
	"github.com/unowned-ai/moodiary/pkg/service"
)

// MoodiaryMCPServer exposes the journal as MCP tools over stdio.
type MoodiaryMCPServer struct {
	mcpServer *server.MCPServer
	svc       *service.Service
	log       *slog.Logger
	now       func() time.Time
}

// NewMoodiaryMCPServer builds the server and registers every tool. The
// service stays owned by the caller.
func NewMoodiaryMCPServer(svc *service.Service, log *slog.Logger) *MoodiaryMCPServer {
	if log == nil {
		log = slog.Default()
	}
	s := server.NewMCPServer(
		"Moodiary MCP Server",
		moodiary.Version,
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	srv := &MoodiaryMCPServer{
		mcpServer: s,
		svc:       svc,
		log:       log.With("component", "mcp"),
		now:       time.Now,
	}
	RegisterTools(s, svc, srv.log, srv.now)
	return srv
}

// RegisterTools adds every moodiary tool to s.
func RegisterTools(s *server.MCPServer, j Journal, log *slog.Logger, now func() time.Time) {
	RegisterPingTool(s)
	RegisterGetEntryTool(s, j, now)
	RegisterSaveEntryTool(s, j, log, now)
	RegisterDeleteEntryTool(s, j, log, now)
	RegisterListEntriesTool(s, j, now)
	RegisterGetStatisticsTool(s, j, now)
	RegisterGetCalendarTool(s, j, now)
}

// ToolNames lists the registered tools, for startup logging.
var ToolNames = []string{
	"ping", "get_entry", "save_entry", "delete_entry",
	"list_entries", "get_statistics", "get_calendar",
}

// Start runs the stdio event loop until stdin closes.
func (s *MoodiaryMCPServer) Start() error {
	s.log.Info("mcp server listening on stdio", "tools", ToolNames)
	return server.ServeStdio(s.mcpServer)
}

// MCPRawServer exposes the underlying mcp-go server.
func (s *MoodiaryMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}
