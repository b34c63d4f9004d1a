package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"factotum/pkg/mcp"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the agents over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := mcp.NewAgentServer(mcp.AgentServerDeps{
				Registry: rt.registry,
				Logger:   rt.logger,
			})
			rt.logger.Info("serving agents over MCP stdio")
			return srv.Serve(ctx)
		},
	}
}
