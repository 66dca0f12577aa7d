package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/cache"
	"github.com/jedmamosto/tupv-project-sub000/internal/cart"
	"github.com/jedmamosto/tupv-project-sub000/internal/config"
	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"
	"github.com/jedmamosto/tupv-project-sub000/internal/events"
	"github.com/jedmamosto/tupv-project-sub000/internal/handler"
	"github.com/jedmamosto/tupv-project-sub000/internal/infra/db"
	infraRepo "github.com/jedmamosto/tupv-project-sub000/internal/infra/repository"
	"github.com/jedmamosto/tupv-project-sub000/internal/infra/store"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	"github.com/jedmamosto/tupv-project-sub000/internal/payment"
	"github.com/jedmamosto/tupv-project-sub000/internal/repository"
	"github.com/jedmamosto/tupv-project-sub000/internal/server"
	"github.com/jedmamosto/tupv-project-sub000/internal/session"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"
	"github.com/jedmamosto/tupv-project-sub000/internal/validator"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "canteen-api"

func main() {
	log := logger.NewLogger(serviceName)
	if err := run(log); err != nil {
		log.Error("startup", "", "server stopped", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	//.envは無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	shutdownTracing, err := setupTracing(cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	//ストア
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	//Repository生成
	userRepo := infraRepo.NewUserRepository(st.docs)
	shopRepo := infraRepo.NewShopRepository(st.docs)
	orderRepo := infraRepo.NewOrderRepository(st.docs)
	auditRepo := st.audit

	//プロフィールキャッシュ（REDIS_ADDRが空なら無し）
	var profiles cache.ProfileCache = cache.NopProfileCache{}
	if cfg.RedisAddr != "" {
		rdb, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		profiles = cache.NewRedisProfileCache(rdb, cfg.ProfileCacheTTL)
	}

	//注文イベント（AMQP_URLが空なら捨てる）
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, log)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	}

	gateway := payment.NewClient(cfg.PaymentBaseURL)

	carts := cart.NewRegistry()
	sessions := session.NewManager(userRepo, profiles, carts, log)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, shopRepo, validator.NewAuthValidator(userRepo), sessions, log)
	shopUC := usecase.NewShopUsecase(shopRepo)
	cartUC := usecase.NewCartUsecase(shopRepo, carts)
	orderUC := usecase.NewOrderUsecase(userRepo, shopRepo, orderRepo, carts, gateway, publisher, log, cfg.AppBaseURL)
	vendorOrderUC := usecase.NewVendorOrderUsecase(shopRepo, orderRepo, auditRepo, publisher, log)
	inventoryUC := usecase.NewInventoryUsecase(shopRepo, userRepo, auditRepo, validator.NewInventoryValidator(), log)

	//Handler生成
	guard := handler.Guard{Cfg: cfg, Profiles: sessions, Log: log}
	e := server.New(guard, server.Handlers{
		Auth:       handler.NewAuthHandler(authUC),
		Navigation: handler.NewNavigationHandler(),
		Shop:       handler.NewShopHandler(shopUC),
		Cart:       handler.NewCartHandler(cartUC),
		Order:      handler.NewOrderHandler(orderUC),
		Vendor:     handler.NewVendorHandler(vendorOrderUC, inventoryUC),
	}, log)

	//Server起動
	return server.Start(listenAddr(cfg.Port), e, log)
}

type openedStore struct {
	docs  docstore.Store
	audit repository.AuditLogRepository
	close func()
}

// STORE_DRIVERに応じてストアを開く。postgresでは監査ログだけ専用テーブル。
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (openedStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		mdb, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return openedStore{}, err
		}
		disconnect := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mdb.Client().Disconnect(dctx)
		}
		s := store.NewMongoStore(mdb)
		if err := initOrClose(disconnect, func() error { return s.CreateIndexes(ctx) }); err != nil {
			return openedStore{}, err
		}
		log.Info("store_open", "", "using mongo store", slog.String("db", cfg.MongoDB))
		return openedStore{
			docs:  s,
			audit: infraRepo.NewAuditLogRepository(s),
			close: disconnect,
		}, nil

	case config.StoreDriverMemory:
		log.Warn("store_open", "", "using in-memory store, data is lost on restart")
		s := docstore.NewMemoryStore()
		return openedStore{docs: s, audit: infraRepo.NewAuditLogRepository(s), close: func() {}}, nil

	default:
		gdb, err := db.Connect(cfg)
		if err != nil {
			return openedStore{}, err
		}
		closeDB := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		s := store.NewGormStore(gdb)
		err = initOrClose(closeDB,
			s.Migrate,
			func() error { return infraRepo.MigrateAuditLogs(gdb) },
		)
		if err != nil {
			return openedStore{}, err
		}
		log.Info("store_open", "", "using postgres store")
		return openedStore{
			docs:  s,
			audit: infraRepo.NewAuditLogGormRepository(gdb),
			close: closeDB,
		}, nil
	}
}

// initOrClose はstepsを順に実行し、失敗したら接続を閉じてそのエラーを返す
func initOrClose(closeFn func(), steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			closeFn()
			return err
		}
	}
	return nil
}

// TRACE_STDOUT=true のときだけ標準出力にスパンを出す
func setupTracing(cfg config.Config) (func(), error) {
	if !cfg.TraceStdout {
		return func() {}, nil
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("stdouttrace: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}, nil
}

func listenAddr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] != ':' {
		return ":" + port
	}
	return port
}
