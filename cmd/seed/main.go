// seed はYAMLのカタログからvendor・店舗・customerを投入する。既存のemailは飛ばす。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jedmamosto/tupv-project-sub000/internal/config"
	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"
	"github.com/jedmamosto/tupv-project-sub000/internal/infra/db"
	infraRepo "github.com/jedmamosto/tupv-project-sub000/internal/infra/repository"
	"github.com/jedmamosto/tupv-project-sub000/internal/infra/store"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	"github.com/jedmamosto/tupv-project-sub000/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	path := flag.String("file", "seed.yaml", "catalog yaml")
	flag.Parse()

	log := logger.NewLogger("canteen-seed")
	if err := run(context.Background(), *path, log); err != nil {
		log.Error("seed", "", "seed failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, log *logger.Logger) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	catalog, err := seed.Load(path)
	if err != nil {
		return err
	}

	var docs docstore.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		mdb, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
		s := store.NewMongoStore(mdb)
		if err := s.CreateIndexes(ctx); err != nil {
			return err
		}
		docs = s
	case config.StoreDriverPostgres:
		gdb, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		s := store.NewGormStore(gdb)
		if err := s.Migrate(); err != nil {
			return err
		}
		docs = s
	default:
		return fmt.Errorf("seed needs a persistent store, got STORE_DRIVER=%s", cfg.StoreDriver)
	}

	res, err := seed.Apply(ctx, catalog, infraRepo.NewUserRepository(docs), infraRepo.NewShopRepository(docs))
	if err != nil {
		return err
	}

	log.Info("seed", "", "seed finished",
		slog.Int("users_created", res.UsersCreated),
		slog.Int("users_skipped", res.UsersSkipped),
		slog.Int("shops_created", res.ShopsCreated))
	return nil
}
