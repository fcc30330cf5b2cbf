// Command agroctl runs marketplace lookups against the dealer directory and
// inspects or drains a local offline queue file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/clock"
	"github.com/mavuno/agrolink/internal/config"
	"github.com/mavuno/agrolink/internal/db"
	"github.com/mavuno/agrolink/internal/repository"
	"github.com/mavuno/agrolink/internal/service"
)

type rootOptions struct {
	databaseURL string
	jsonOut     bool
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "agroctl",
		Short:        "Query the agro-dealer marketplace and manage offline queues",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"),
		"PostgreSQL dealer directory (default: built-in seed data)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of a table")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newSearchCmd(opts),
		newProductsCmd(opts),
		newSubstitutesCmd(opts),
		newQueueCmd(opts),
	)
	return root
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// marketplace builds the service without simulated latency. The returned
// func releases the database pool, if one was opened.
func (o *rootOptions) marketplace(ctx context.Context) (*service.MarketplaceService, func(), error) {
	logger := o.logger()
	if o.databaseURL == "" {
		svc := service.NewMarketplaceService(repository.NewSeededDealerRepository(), clock.Real{}, logger, service.MarketplaceOptions{})
		return svc, func() {}, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.DatabaseURL = o.databaseURL
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	svc := service.NewMarketplaceService(repository.NewPgDealerRepository(pool), clock.Real{}, logger, service.MarketplaceOptions{})
	return svc, pool.Close, nil
}
