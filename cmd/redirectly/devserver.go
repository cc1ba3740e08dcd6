package main

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/binSaed/flutter-redirectly/internal/db"
	"github.com/binSaed/flutter-redirectly/internal/devserver"
	"github.com/binSaed/flutter-redirectly/internal/logger"
	"github.com/binSaed/flutter-redirectly/internal/store"
)

const sweepInterval = time.Minute

func newDevServerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Local Redirectly-compatible API for development",
	}
	cmd.AddCommand(newDevServerServeCmd(a))
	cmd.AddCommand(newDevServerMigrateCmd(a))
	cmd.AddCommand(newDevServerKeysCmd(a))
	return cmd
}

// openDB opens the configured database and brings its schema up to date.
func (a *app) openDB() (*sqlx.DB, error) {
	database, err := db.New(a.cfg.DB.Driver, a.cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, a.cfg.DB.Driver); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

func newDevServerServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dev server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Component("devserver")
			if addr == "" {
				addr = a.cfg.DevServer.Addr
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			links := store.NewLinkStore(database)
			go devserver.RunSweeper(cmd.Context(), links, sweepInterval, log)

			router := devserver.NewRouter(devserver.Deps{
				Links:       links,
				Keys:        store.NewKeyStore(database),
				Log:         log,
				Domain:      a.cfg.Domain,
				Concurrency: a.cfg.DevServer.Concurrency,
			})
			return runServer(cmd.Context(), addr, "devserver", router, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from REDIRECTLY_DEVSERVER_ADDR, :3000)")
	return cmd
}

func newDevServerMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			version, err := db.Version(database, a.cfg.DB.Driver)
			if err != nil {
				return err
			}
			log := logger.Component("devserver")
			log.Info().Int64("version", version).Msg("migrations complete")
			return nil
		},
	}
}

func newDevServerKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage dev server API keys",
	}
	cmd.AddCommand(newDevServerKeysCreateCmd(a))
	cmd.AddCommand(newDevServerKeysRevokeCmd(a))
	return cmd
}

func newDevServerKeysCreateCmd(a *app) *cobra.Command {
	var username, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.ValidateUsername(username); err != nil {
				return err
			}
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			plaintext, hash, err := store.GenerateKey()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			key, err := store.NewKeyStore(database).Create(cmd.Context(), username, name, hash)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "id:  %s\nkey: %s\n", key.ID, plaintext)
			return err
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "username the key acts as")
	cmd.Flags().StringVar(&name, "name", "cli", "label for the key")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newDevServerKeysRevokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()
			return store.NewKeyStore(database).Revoke(cmd.Context(), args[0])
		},
	}
}
