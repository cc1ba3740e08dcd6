package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/binSaed/flutter-redirectly/internal/client"
	"github.com/binSaed/flutter-redirectly/internal/links"
	"github.com/binSaed/flutter-redirectly/internal/logger"
)

// deleteConcurrency bounds parallel requests for a bulk delete.
const deleteConcurrency = 4

func (a *app) linkService() (*links.Service, error) {
	if err := a.cfg.RequireClient(); err != nil {
		return nil, err
	}
	c := client.New(client.WithLogger(logger.Component("client")))
	if err := c.Initialize(a.cfg.ClientConfig()); err != nil {
		return nil, err
	}
	return links.NewService(c), nil
}

func newLinksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Manage permanent links",
	}
	cmd.AddCommand(newLinksCreateCmd(a))
	cmd.AddCommand(newLinksListCmd(a))
	cmd.AddCommand(newLinksUpdateCmd(a))
	cmd.AddCommand(newLinksDeleteCmd(a))
	return cmd
}

func newLinksCreateCmd(a *app) *cobra.Command {
	var metadata []string
	cmd := &cobra.Command{
		Use:   "create <slug> <target>",
		Short: "Create a link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := parseMetadata(metadata)
			if err != nil {
				return err
			}
			svc, err := a.linkService()
			if err != nil {
				return err
			}
			rec, err := svc.CreateLink(cmd.Context(), args[0], args[1], md)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringArrayVarP(&metadata, "metadata", "m", nil, "metadata entry as key=value (repeatable)")
	return cmd
}

func newLinksListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.linkService()
			if err != nil {
				return err
			}
			recs, err := svc.GetLinks(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), recs)
			}
			return printLinks(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON records")
	return cmd
}

func newLinksUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <slug> <target>",
		Short: "Point a link at a new target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.linkService()
			if err != nil {
				return err
			}
			rec, err := svc.UpdateLink(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newLinksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug>...",
		Short: "Delete one or more links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.linkService()
			if err != nil {
				return err
			}
			slugs := lo.Uniq(args)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(deleteConcurrency)
			for _, slug := range slugs {
				g.Go(func() error {
					if err := svc.DeleteLink(ctx, slug); err != nil {
						return fmt.Errorf("delete %s: %w", slug, err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d link(s)\n", len(slugs))
			return err
		},
	}
}

// parseMetadata turns key=value pairs into a metadata object. Values that
// look like numbers or booleans keep that type.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	md := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("metadata %q: want key=value", p)
		}
		md[k] = metadataValue(v)
	}
	return md, nil
}

func metadataValue(v string) any {
	if n, err := cast.ToInt64E(v); err == nil && cast.ToString(n) == v {
		return n
	}
	if v == "true" || v == "false" {
		return v == "true"
	}
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printLinks(w io.Writer, recs []links.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tTARGET\tEXPIRES")
	for _, r := range recs {
		expires := cast.ToString(r["expiresAt"])
		if expires == "" {
			expires = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", cast.ToString(r["slug"]), cast.ToString(r["target"]), expires)
	}
	return tw.Flush()
}
