package main

import (
	"github.com/spf13/cobra"

	"github.com/binSaed/flutter-redirectly/internal/bridge"
	"github.com/binSaed/flutter-redirectly/internal/client"
	"github.com/binSaed/flutter-redirectly/internal/deeplink"
	"github.com/binSaed/flutter-redirectly/internal/events"
	"github.com/binSaed/flutter-redirectly/internal/logger"
)

func newBridgeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Host bridge for embedding applications",
	}
	cmd.AddCommand(newBridgeServeCmd(a))
	return cmd
}

func newBridgeServeCmd(a *app) *cobra.Command {
	var (
		addr       string
		initialURL string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve method calls and link events over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Component("bridge")
			if addr == "" {
				addr = a.cfg.Bridge.Addr
			}

			broker := events.NewBroker(events.DefaultBuffer, log)
			defer broker.Close()

			api := client.New(client.WithLogger(logger.Component("client")))
			plugin := bridge.NewPlugin(api, broker,
				bridge.WithLogger(log),
				bridge.WithConcurrency(a.cfg.Bridge.Concurrency),
				bridge.WithClassifierOptions(deeplink.WithDomain(a.cfg.Domain)),
			)

			// Start pre-initialized when credentials are configured; hosts
			// can still call initialize to replace them.
			if a.cfg.RequireClient() == nil {
				_, err := plugin.Handle(cmd.Context(), bridge.MethodCall{
					Method: bridge.MethodInitialize,
					Arguments: map[string]any{
						"apiKey":             a.cfg.APIKey,
						"baseUrl":            a.cfg.BaseURL,
						"enableDebugLogging": a.cfg.Debug,
					},
				})
				if err != nil {
					return err
				}
			}
			if initialURL != "" {
				plugin.SetInitialURL(initialURL)
			}

			return runServer(cmd.Context(), addr, "bridge", bridge.NewRouter(plugin, broker), log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from REDIRECTLY_BRIDGE_ADDR, :8787)")
	cmd.Flags().StringVar(&initialURL, "initial-url", "", "launch URI reported by getInitialLink")
	return cmd
}
