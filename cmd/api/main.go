package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cashbox-api/internal/config"
	"cashbox-api/internal/database"
	"cashbox-api/internal/locks"
	"cashbox-api/internal/observability"
	"cashbox-api/internal/repositories"
	"cashbox-api/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	// --- Store ---
	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Locks & notifications ---
	metrics := observability.NewMetrics()
	var (
		locker   locks.Locker = locks.NewLocal()
		notifier              = services.MultiNotifier{services.NewLogNotifier(log), metrics}
	)
	if cfg.LockDriver == config.LockRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		locker = locks.NewRedis(client, cfg.LockTTL, log)
		notifier = append(notifier, services.NewRedisNotifier(client, cfg.NotifyChannel, log))
	}

	// --- Users ---
	seed, err := repositories.ParseUsers(cfg.Users)
	if err != nil {
		return err
	}
	if len(seed) == 0 {
		log.Warn("no users configured; every authenticated route will answer 401")
	}
	users := repositories.NewUserRepository(seed)

	// --- Services ---
	ledger := services.NewLedger(repo, locker)
	workflow := services.NewRequestWorkflow(repo, locker)
	svc := services.NewCashBoxService(ledger, workflow, locker, notifier, services.NewAmountFormatter(cfg.Locale, cfg.CurrencySymbol))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           SetupRoutes(log, cfg, metrics, svc, users),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server running", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver), zap.String("lock", cfg.LockDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repositories.CashBoxRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewPostgresRepository(pool, log)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	case config.StoreMySQL:
		db, err := database.NewMySQL(ctx, cfg.MySQLURL)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewMySQLRepository(db, log)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil
	}
	return repositories.NewMemoryRepository(), func() {}, nil
}
