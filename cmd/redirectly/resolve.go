package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/binSaed/flutter-redirectly/internal/deeplink"
	"github.com/binSaed/flutter-redirectly/internal/logger"
)

func newResolveCmd(a *app) *cobra.Command {
	var domain string
	cmd := &cobra.Command{
		Use:   "resolve <url>...",
		Short: "Classify deep links offline and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if domain == "" {
				domain = a.cfg.Domain
			}
			c := deeplink.New(
				deeplink.WithDomain(domain),
				deeplink.WithLogger(logger.Debug(logger.Component("deeplink"), a.cfg.Debug)),
			)
			failed := 0
			for _, uri := range args {
				link := c.Classify(uri)
				if !link.OK() {
					failed++
				}
				if err := printJSON(cmd.OutOrStdout(), link); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d link(s) did not resolve", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "production link domain (default from REDIRECTLY_DOMAIN, redirectly.app)")
	return cmd
}
