package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/awantoch/n8n-mcp/constants"
	mcphttp "github.com/awantoch/n8n-mcp/http"
	"github.com/awantoch/n8n-mcp/utils"
)

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	var stdio bool
	var addr string
	cmd := &cobra.Command{
		Use:   constants.CmdServe,
		Short: constants.DescServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdio {
				// stdout carries JSON-RPC frames
				utils.SetUserOutput(io.Discard)
			}
			deps, cleanup, err := loadDependencies()
			if err != nil {
				utils.Error("Failed to start: %v", err)
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if stdio {
				return deps.Server.ServeStdio(ctx, os.Stdin, os.Stdout)
			}
			if addr == "" {
				addr = deps.Config.ListenAddr()
			}
			srv := mcphttp.NewServer(deps.Server, deps.Config.PublicURL())
			utils.User("n8n MCP server: SSE %s%s, streamable %s%s", deps.Config.PublicURL(), constants.RouteSSE, deps.Config.PublicURL(), constants.RouteMCP)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve over stdin/stdout instead of HTTP")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for HTTP mode (default from config)")
	return cmd
}
