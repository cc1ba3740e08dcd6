package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/binSaed/flutter-redirectly/internal/config"
	"github.com/binSaed/flutter-redirectly/internal/logger"
	"github.com/binSaed/flutter-redirectly/internal/telemetry"
)

// app carries state shared by all subcommands once flags are parsed.
type app struct {
	cfg           *config.Config
	initTracing   func(endpoint, serviceName string) (telemetry.Shutdown, error)
	traceShutdown telemetry.Shutdown
}

func newApp() *app {
	return &app{initTracing: telemetry.Init}
}

// close flushes buffered spans. It runs whether or not the command failed.
func (a *app) close() {
	if a.traceShutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.traceShutdown(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "tracing shutdown:", err)
	}
	a.traceShutdown = nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "redirectly",
		Short:         "Redirectly link client, host bridge and dev server",
		Long:          "Manage Redirectly links, resolve deep links, and run a local Redirectly-compatible API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := logger.Setup(cfg.Log.Level, cfg.Log.Pretty); err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			a.cfg = cfg

			shutdown, err := a.initTracing(cfg.OTel.Endpoint, cfg.OTel.ServiceName)
			if err != nil {
				return fmt.Errorf("tracing: %w", err)
			}
			a.traceShutdown = shutdown
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("api-key", "", "Redirectly API key (REDIRECTLY_API_KEY)")
	pf.String("base-url", "", "Redirectly API base URL (REDIRECTLY_BASE_URL)")
	pf.Bool("debug", false, "enable debug logging (REDIRECTLY_DEBUG)")
	pf.String("log-level", "info", "log level: debug, info, warn or error (REDIRECTLY_LOG_LEVEL)")

	rootCmd.AddCommand(newLinksCmd(a))
	rootCmd.AddCommand(newTempLinksCmd(a))
	rootCmd.AddCommand(newResolveCmd(a))
	rootCmd.AddCommand(newBridgeCmd(a))
	rootCmd.AddCommand(newDevServerCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}
