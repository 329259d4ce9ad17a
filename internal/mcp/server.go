// Package mcp exposes workout session history to MCP clients.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	if log == nil {
		log = discardLogger()
	}
	s := server.NewMCPServer("repclock", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("repclock workout history. Query recorded training sessions, their completed sets and circuit rounds, and training volume per exercise."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetSessions, Handler: h.getSessions},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetTrainingVolume, Handler: h.getTrainingVolume},
		server.ServerTool{Tool: toolGetSessionStats, Handler: h.getSessionStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
		server.ServerResource{Resource: resSessionStats, Handler: h.sessionStats},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecentSessions = mcp.NewResource(
	"repclock://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("Workout sessions from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)

var resSessionStats = mcp.NewResource(
	"repclock://session_stats",
	"Session Stats",
	mcp.WithResourceDescription("All-time session counts, volume and per-day breakdown"),
	mcp.WithMIMEType("application/json"),
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
