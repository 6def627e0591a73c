package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/voice-inventory/internal/adapter/handler"
	"github.com/rl1809/voice-inventory/internal/adapter/llm"
	"github.com/rl1809/voice-inventory/internal/adapter/storage"
	"github.com/rl1809/voice-inventory/internal/config"
	"github.com/rl1809/voice-inventory/internal/core/alias"
	"github.com/rl1809/voice-inventory/internal/core/parser"
	"github.com/rl1809/voice-inventory/internal/core/service"
	"github.com/rl1809/voice-inventory/internal/logging"
	"github.com/rl1809/voice-inventory/internal/port"
)

type stores struct {
	repo    port.InventoryRepository
	history port.TransactionLog
	close   func()
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Alias table
	table := alias.Default()
	if cfg.AliasesPath != "" {
		table, err = alias.LoadFile(cfg.AliasesPath)
		if err != nil {
			logger.Fatal("failed to load aliases", zap.String("path", cfg.AliasesPath), zap.Error(err))
		}
	}

	// Inventory store
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))

	// Locking and idempotency: Redis when configured, in-process otherwise
	var (
		locker port.Locker          = storage.NewKeyedLocker()
		cache  port.CacheRepository = storage.NewMemoryAdapter()
		rdb    *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		redisAdapter := storage.NewRedisAdapter(rdb, logger.Named("redis"))
		locker, cache = redisAdapter, redisAdapter
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Parser with optional model fallback
	var (
		translator port.Translator
		fallback   port.FallbackParser
	)
	if cfg.LLM.BaseURL != "" {
		client := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.RatePerSecond)
		translator, fallback = client, client
		logger.Info("llm fallback enabled", zap.String("model", cfg.LLM.Model))
	}
	p := parser.New(table, translator, fallback, logger.Named("parser"))

	// Services
	ledger := service.NewLedger(cfg.Ledger.QueueSize, logger.Named("ledger"))
	resolver := service.NewInventoryResolver(st.repo, locker, logger.Named("resolver"))
	svc := service.NewCommandService(p, resolver, service.Options{
		Ledger:              ledger,
		Cache:               cache,
		History:             st.history,
		LowStockThresholdKg: cfg.LowStockThresholdKg,
		Logger:              logger.Named("command"),
	})

	// Start ledger worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.Ledger.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ledger.Run(context.Background(), id, st.history)
		}(i)
	}
	logger.Info("started ledger workers", zap.Int("count", cfg.Ledger.Workers))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(svc, logger.Named("grpc")))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(handler.NewHTTPHandler(svc, logger.Named("http"))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close ledger queue and wait for workers to drain it
	ledger.Close()
	wg.Wait()
	logger.Info("ledger workers stopped")

	if rdb != nil {
		rdb.Close()
	}
	st.close()
	logger.Info("connections closed")
}

func openStore(ctx context.Context, cfg config.StoreConfig) (stores, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return stores{}, err
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return stores{}, fmt.Errorf("ping mysql: %w", err)
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			db.Close()
			return stores{}, err
		}
		return stores{repo: adapter, history: adapter, close: func() { db.Close() }}, nil

	case config.DriverSQLite:
		adapter, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		return stores{repo: adapter, history: adapter, close: func() { adapter.Close() }}, nil

	default:
		mem := storage.NewMemoryAdapter()
		return stores{repo: mem, history: mem, close: func() {}}, nil
	}
}
