package main

import (
	"errors"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/claude/repclock/internal/config"
	"github.com/claude/repclock/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve session history to an MCP client over stdio",
	Long: `Runs an MCP server on stdin/stdout backed by a remote repclock server,
so a local assistant can query workout history over the tailnet.`,
	RunE: runMCP,
}

var mcpServerURL string

func init() {
	mcpCmd.Flags().StringVar(&mcpServerURL, "server", "", "repclock server URL (default push.server_url)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return err
	}
	url := mcpServerURL
	if url == "" {
		url = cfg.Push.ServerURL
	}
	if url == "" {
		return errors.New("--server is required when push.server_url is not configured")
	}

	log, f, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer f.Close()

	log.Info("mcp stdio starting", "server", url, "version", Version)
	s := mcp.New(mcp.NewHTTPClient(url), Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		return fmt.Errorf("serving mcp: %w", err)
	}
	return nil
}
