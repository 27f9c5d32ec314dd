package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/fish-storefront/db"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog JSON file (default: the embedded catalog)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	data := db.Catalog
	if catalogFile != "" {
		slog.Info("reading catalog file", slog.String("path", catalogFile))
		b, err := os.ReadFile(catalogFile)
		if err != nil {
			return errors.Wrap(err, "read catalog file")
		}
		data = b
	}

	items, err := catalog.Decode(data)
	if err != nil {
		return err
	}
	// Reject what the server would refuse to load.
	if _, err := catalog.New(items); err != nil {
		return errors.Wrap(err, "validate catalog")
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	slog.Info("upserting catalog", slog.Int("count", len(items)))
	if err := postgres.NewCatalogRepository(pool).Upsert(ctx, items); err != nil {
		return errors.Wrap(err, "upsert catalog")
	}
	for _, it := range items {
		slog.Info("upserted item", slog.Int("id", it.ID), slog.String("name", it.Name))
	}
	return nil
}
