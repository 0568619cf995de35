// Package cli implements the webform command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"webform-store/internal/config"
	"webform-store/internal/datastore"
	"webform-store/internal/store"
)

type globalOptions struct {
	configDir string
	pool      string
	driver    string
	dsn       string
	dialect   string
	logLevel  string
	json      bool
}

// session is one opened store and the pools behind it.
type session struct {
	store  *store.Store
	pools  *datastore.Pools
	logger *slog.Logger
}

func (s *session) Close() error {
	return s.pools.Close()
}

// RootCommand creates the webform command with every subcommand attached.
func RootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "webform",
		Short: "Store and query form submissions",
		Long: `Store and query form submissions in PostgreSQL or SQLite.

Settings come from webform.yaml in --config-dir, WEBFORM_* environment
variables (DB_CONN_STRING is honoured for the connection string) and the
flags below, in increasing order of precedence.

Examples:
  webform init-db --driver sqlite --dsn ./forms.db
  webform submit --form contact --field email=ada@example.com --field topic=billing
  webform list --form contact --state 0 --json
  webform count --field topic=billing`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configDir, "config-dir", ".", "Directory holding webform.yaml")
	pf.StringVar(&opts.pool, "pool", "", "Database pool to use (overrides db-pool)")
	pf.StringVar(&opts.driver, "driver", "", "Database driver for the pool: postgresql or sqlite")
	pf.StringVar(&opts.dsn, "dsn", "", "Connection string for the pool (overrides DB_CONN_STRING)")
	pf.StringVar(&opts.dialect, "dialect", "", "Query catalog dialect: postgres or sqlite")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&opts.json, "json", false, "Print results as JSON")

	cmd.AddCommand(
		InitDBCommand(opts),
		SchemaCommand(opts),
		CountCommand(opts),
		ListCommand(opts),
		GetCommand(opts),
		DeleteCommand(opts),
		FieldNamesCommand(opts),
		SetStateCommand(opts),
		SetFieldCommand(opts),
		SubmitCommand(opts),
		ConfigCommand(opts),
	)
	return cmd
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		return nil, err
	}
	for key, value := range map[string]string{
		config.KeyDBPool:   o.pool,
		config.KeyDriver:   o.driver,
		config.KeyDSN:      o.dsn,
		config.KeyDialect:  o.dialect,
		config.KeyLogLevel: o.logLevel,
	} {
		if value != "" {
			cfg.Set(key, value)
		}
	}
	return cfg, nil
}

// open wires configuration, pools, catalog and resolver into a store.
func (o *globalOptions) open(ctx context.Context, logOut io.Writer) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	poolConfigs, err := cfg.Pools()
	if err != nil {
		return nil, err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	resources, err := cfg.Resources()
	if err != nil {
		return nil, err
	}

	pools, err := datastore.Open(ctx, poolConfigs)
	if err != nil {
		return nil, err
	}

	s, err := store.New(store.Options{
		Params:   cfg,
		Pools:    pools,
		Catalog:  cat,
		Resolver: resources,
		Logger:   logger,
	})
	if err != nil {
		_ = pools.Close()
		return nil, err
	}
	logger.Debug("store opened", "pool", s.Pool(), "config", cfg.File())
	return &session{store: s, pools: pools, logger: logger}, nil
}

// withStore opens a session for one command and closes it afterwards.
func (o *globalOptions) withStore(cmd *cobra.Command, fn func(ctx context.Context, s *store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := o.open(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			sess.logger.Warn("failed to close pools", "error", err)
		}
	}()
	return fn(ctx, sess.store)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
