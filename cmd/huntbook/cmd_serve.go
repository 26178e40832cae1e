package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"huntbook/internal/logging"
	mcpserver "huntbook/internal/mcp"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var serveFlags struct {
	workers int
	timeout time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing run_hunt, list_catalog
and get_history, so an agent host can drive catalog runs directly.

The server watches for parent process death and self-terminates when the
host disconnects, to prevent zombie processes.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.IntVar(&serveFlags.workers, "workers", 1, "Parallel query workers per run (1 = sequential)")
	f.DurationVar(&serveFlags.timeout, "timeout", 0, "Per-query timeout (0 = none)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	history := openHistory(cfg.DBPath)
	if history != nil {
		defer history.Close()
	}

	srv := mcpserver.NewServer(backend, mcpserver.Options{
		CatalogDir: cfg.CatalogDir,
		ReportDir:  cfg.ReportDir,
		Workers:    serveFlags.workers,
		Timeout:    serveFlags.timeout,
		History:    history,
		Version:    version,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting huntbook MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
