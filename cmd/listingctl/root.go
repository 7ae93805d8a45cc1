package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/listingscope/internal/cache"
	"github.com/kiranshivaraju/listingscope/internal/config"
	"github.com/kiranshivaraju/listingscope/internal/store"
)

type rootOptions struct {
	databaseURL    string
	redisURL       string
	migrationsDir  string
	connectTimeout time.Duration
}

// backend is what a subcommand talks to. close releases every connection it
// holds.
type backend struct {
	store store.Store
	cache cache.Cache
	close func()
}

// opener connects to the configured backends. withCache is false for commands
// that only need the database.
type opener func(ctx context.Context, opts *rootOptions, withCache bool) (*backend, error)

func newRootCmd(open opener) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "listingctl",
		Short:         "Operate a listingscope deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL (default $DATABASE_URL)")
	flags.StringVar(&opts.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis connection URL (default $REDIS_URL)")
	flags.StringVar(&opts.migrationsDir, "migrations", "migrations", "Directory holding the SQL migrations")
	flags.DurationVar(&opts.connectTimeout, "connect-timeout", 30*time.Second, "How long to retry the initial database connection")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newKeysCmd(opts, open),
		newReapCmd(opts, open),
	)
	return cmd
}

func defaultOpener(ctx context.Context, opts *rootOptions, withCache bool) (*backend, error) {
	if opts.databaseURL == "" {
		return nil, fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	if withCache && opts.redisURL == "" {
		return nil, fmt.Errorf("--redis-url or REDIS_URL is required")
	}

	pool, err := store.Connect(ctx, config.DatabaseConfig{
		URL:             opts.databaseURL,
		MaxOpenConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  opts.connectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	b := &backend{store: store.NewPostgresStore(pool), close: pool.Close}
	if !withCache {
		return b, nil
	}

	rc, err := cache.NewRedisCache(opts.redisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create redis cache: %w", err)
	}
	b.cache = rc
	b.close = func() {
		_ = rc.Close()
		pool.Close()
	}
	return b, nil
}
