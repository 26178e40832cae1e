package mcp

import (
	"context"
	"os"
	"time"

	"huntbook/internal/logging"
)

// WatchParent monitors for parent process death in a background
// goroutine. When the parent PID changes (the MCP host disconnected or
// restarted), it calls cancel to trigger graceful shutdown so stdio
// servers do not linger as orphans.
//
// It must NOT read from stdin: the SDK's StdioTransport owns stdin
// exclusively and stealing bytes would corrupt the JSON-RPC stream.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	watchParent(ctx, cancel, os.Getppid, 2*time.Second)
}

func watchParent(ctx context.Context, cancel context.CancelFunc, ppid func() int, interval time.Duration) {
	initial := ppid()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
				if ppid() != initial {
					logging.New("mcp").Warn("parent process died, shutting down", "was_pid", initial)
					cancel()
					return
				}
			}
		}
	}()
}
