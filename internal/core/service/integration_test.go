package service_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/voice-inventory/internal/adapter/storage"
	"github.com/rl1809/voice-inventory/internal/core/alias"
	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/core/parser"
	"github.com/rl1809/voice-inventory/internal/core/service"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cache   *storage.RedisAdapter
	db      *storage.MySQLAdapter
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/voice_inventory?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	adapter := storage.NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	return &testEnv{
		redis: rdb,
		mysql: db,
		cache: storage.NewRedisAdapter(rdb, nil),
		db:    adapter,
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func (env *testEnv) reset(ctx context.Context, product string) {
	env.mysql.ExecContext(ctx, `DELETE FROM products WHERE canonical_name = ?`, product)
	env.mysql.ExecContext(ctx, `DELETE FROM transactions WHERE product_name = ?`, product)
}

func (env *testEnv) service(ledger *service.Ledger) *service.CommandService {
	p := parser.New(alias.Default(), nil, nil, nil)
	resolver := service.NewInventoryResolver(env.db, env.cache, nil)
	return service.NewCommandService(p, resolver, service.Options{
		Ledger:  ledger,
		Cache:   env.cache,
		History: env.db,
	})
}

func TestIntegration_ConcurrentAddsSumExactly(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	product := "carrot"
	env.reset(ctx, product)
	defer env.reset(ctx, product)

	ledger := service.NewLedger(100, nil)
	svc := env.service(ledger)

	// Start workers
	var wg sync.WaitGroup
	workerCount := 3
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ledger.Run(context.Background(), id, env.db)
		}(i)
	}

	// Execute adds
	var successCount atomic.Int32
	var addWg sync.WaitGroup
	totalRequests := 20

	for i := 0; i < totalRequests; i++ {
		addWg.Add(1)
		go func() {
			defer addWg.Done()
			_, err := svc.Execute(ctx, service.CommandRequest{
				RequestID: uuid.NewString(),
				Text:      "add 1 kg carrot at ₹30",
				Language:  "en",
			})
			if err == nil {
				successCount.Add(1)
			}
		}()
	}

	addWg.Wait()

	// Close ledger and wait for workers
	ledger.Close()
	wg.Wait()

	if successCount.Load() != int32(totalRequests) {
		t.Errorf("expected %d successful adds, got %d", totalRequests, successCount.Load())
	}

	item, err := env.db.Find(ctx, product)
	if err != nil || item == nil {
		t.Fatalf("expected %s in MySQL, got %v, %v", product, item, err)
	}
	if item.QuantityKg != float64(totalRequests) {
		t.Errorf("expected quantity %d, got %v", totalRequests, item.QuantityKg)
	}
	if item.PricePerKg != 30 {
		t.Errorf("expected price 30, got %v", item.PricePerKg)
	}

	var txCount int
	env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE product_name = ?`, product).Scan(&txCount)
	if txCount != totalRequests {
		t.Errorf("expected %d transactions in MySQL, got %d", totalRequests, txCount)
	}
}

func TestIntegration_StoreFailureIsNotNotFound(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	svc := env.service(nil)

	// Close MySQL underneath the service
	env.mysql.Close()

	resp, err := svc.Execute(ctx, service.CommandRequest{
		RequestID: uuid.NewString(),
		Text:      "remove 1 kg carrot",
		Language:  "en",
	})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got: %v", err)
	}
	if resp.Outcome == service.OutcomeNotFound {
		t.Errorf("store failure reported as not_found")
	}
}

func TestIntegration_IdempotencyPreventsDoubleAdd(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	product := "wheat"
	requestID := "same-request-id-" + uuid.NewString()
	env.reset(ctx, product)
	defer env.reset(ctx, product)

	svc := env.service(nil)
	req := service.CommandRequest{RequestID: requestID, Text: "add 2 kg wheat at ₹35", Language: "en"}

	// First call
	if _, err := svc.Execute(ctx, req); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	// Second call with same requestID
	if _, err := svc.Execute(ctx, req); err != service.ErrDuplicateRequest {
		t.Errorf("expected ErrDuplicateRequest, got: %v", err)
	}

	item, err := env.db.Find(ctx, product)
	if err != nil || item == nil {
		t.Fatalf("expected %s in MySQL, got %v, %v", product, item, err)
	}
	if item.QuantityKg != 2 {
		t.Errorf("expected quantity 2, got %v", item.QuantityKg)
	}
}
