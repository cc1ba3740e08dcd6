package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newTempLinksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "temp-links",
		Short: "Manage expiring links",
	}
	cmd.AddCommand(newTempLinksCreateCmd(a))
	return cmd
}

func newTempLinksCreateCmd(a *app) *cobra.Command {
	var (
		slug string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create <target>",
		Short: "Create a link that expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.linkService()
			if err != nil {
				return err
			}
			rec, err := svc.CreateTempLink(cmd.Context(), args[0], slug, int(ttl/time.Second))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "slug to use; the server picks one when empty")
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "lifetime of the link")
	return cmd
}
