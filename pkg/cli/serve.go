package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/websublime/vite-open-api-server-sub004/pkg/config"
	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
	"github.com/websublime/vite-open-api-server-sub004/pkg/server"
)

var serveFlags struct {
	addr      string
	watch     bool
	logLevel  string
	logFormat string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock server (foreground)",
	Long: `Start the mock server in the foreground. Every spec in the configuration is
mounted under its proxy path; inspector clients connect over WebSocket at ` + server.WebSocketPath + `.

Flags override the corresponding configuration file settings.`,
	Example: `  # Serve with the default config file
  oasmock serve

  # Serve a different config on another port with hot reload
  oasmock serve -c mocks/oasmock.yaml --addr :9090 --watch`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Address = serveFlags.addr
	}
	if cmd.Flags().Changed("watch") {
		cfg.Watch = serveFlags.watch
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = serveFlags.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = serveFlags.logFormat
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, Version, log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", config.DefaultAddress, "Listen address")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "Reload handler and seed modules on file changes")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveFlags.logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.AddCommand(serveCmd)
}
