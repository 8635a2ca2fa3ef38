package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kydx-console/backend"
	"kydx-console/session"
	"kydx-console/web"
	"kydx-console/web/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

// serveCmd runs the browser chat
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser chat",
	Long: `Serve the chat page and its JSON API. Each browser gets its own
session, identified by cookie. Media locators under /charts are proxied to
the backend.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.WebPort = servePort
		}

		client := backend.New(cfg, logger)
		sessions, err := services.NewSessionService(client, session.OptionsFromConfig(cfg), cfg.MaxSessions, logger)
		if err != nil {
			return fmt.Errorf("failed to create session registry: %w", err)
		}

		server, err := web.NewServer(sessions, logger, cfg)
		if err != nil {
			return fmt.Errorf("failed to create web server: %w", err)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		addr := fmt.Sprintf(":%d", cfg.WebPort)
		logger.Info("Starting KYDxBot console",
			zap.String("address", addr),
			zap.String("backend", client.BaseURL()))
		if err := server.Start(ctx, addr); err != nil {
			return fmt.Errorf("web server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on (overrides WEB_PORT)")
	rootCmd.AddCommand(serveCmd)
}
