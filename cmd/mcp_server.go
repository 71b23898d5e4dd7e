package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pmadusud/salesagent/internal/console"
	"github.com/pmadusud/salesagent/internal/mcpserver"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "http"
)

var (
	mcpTransport  string
	mcpServerHost string
	mcpServerPort int
	mcpCheck      bool
)

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Serve the hybrid search tool over MCP (Model Context Protocol)",
	Long: `
Expose the hybrid_search_mongodb_atlas tool to MCP-compatible clients such as IDEs and
desktop assistants. Calls are rate limited with MCP_RATE_LIMIT / MCP_RATE_BURST.

With --transport http the streamable HTTP endpoint is served on /mcp and a health
check on /health.

Examples:
  salesagent mcp-server                          # stdio, for clients that spawn the server
  salesagent mcp-server --transport http --port 9000
`,
	RunE: runMCPServer,
}

func init() {
	mcpServerCmd.Flags().StringVar(&mcpTransport, "transport", transportStdio, "Transport: stdio|http")
	mcpServerCmd.Flags().StringVar(&mcpServerHost, "host", "localhost", "HTTP listen host")
	mcpServerCmd.Flags().IntVar(&mcpServerPort, "port", 8080, "HTTP listen port")
	mcpServerCmd.Flags().BoolVar(&mcpCheck, "check", true, "Check MongoDB Atlas and embedding connectivity before serving")
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	if mcpTransport != transportStdio && mcpTransport != transportHTTP {
		return fmt.Errorf("invalid transport %q (allowed: stdio|http)", mcpTransport)
	}

	cfg, cleanup, err := loadRuntime()
	if err != nil {
		return err
	}
	defer cleanup()

	if cmd.Flags().Changed("host") {
		cfg.MCPServerHost = mcpServerHost
	}
	if cmd.Flags().Changed("port") {
		cfg.MCPServerPort = mcpServerPort
	}

	serverCfg, err := mcpserver.NewServerConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid MCP server configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := newSearchStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	if mcpCheck {
		// stdout carries the stdio protocol, so the report goes to stderr.
		if err := stack.Check(ctx, console.New(os.Stdin, os.Stderr, true)); err != nil {
			return err
		}
	}

	handler := mcpserver.NewHybridSearchHandler(stack.service, serverCfg.RateLimit, serverCfg.RateBurst)
	server, err := mcpserver.NewServer(serverCfg, handler, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if mcpTransport == transportStdio {
		if err := server.RunStdio(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("MCP stdio session failed: %w", err)
		}
		return nil
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}
	log.Printf("MCP endpoint: http://%s/mcp", server.Addr())

	<-ctx.Done()
	log.Printf("Received shutdown signal, stopping server...")
	return server.Stop()
}
