package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/voice-inventory/internal/adapter/storage"
	"github.com/rl1809/voice-inventory/internal/core/alias"
	"github.com/rl1809/voice-inventory/internal/core/parser"
	"github.com/rl1809/voice-inventory/internal/core/service"
	"github.com/rl1809/voice-inventory/internal/port"
)

const (
	product       = "onion"
	command       = "add 1 kg onion at ₹40"
	totalRequests = 50
	duplicates    = 10
	queueSize     = 100
)

func main() {
	redisAddr := flag.String("redis", "", "redis address; empty uses the in-process locker")
	flag.Parse()

	ctx := context.Background()

	// Lock and idempotency backend
	var (
		locker port.Locker          = storage.NewKeyedLocker()
		cache  port.CacheRepository = storage.NewMemoryAdapter()
	)
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		redisAdapter := storage.NewRedisAdapter(rdb, zap.NewNop())
		locker, cache = redisAdapter, redisAdapter
	}

	// Initialize store and service
	store := storage.NewMemoryAdapter()
	ledger := service.NewLedger(queueSize, zap.NewNop())
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		ledger.Run(ctx, 0, store)
	}()

	p := parser.New(alias.Default(), nil, nil, zap.NewNop())
	svc := service.NewCommandService(p, service.NewInventoryResolver(store, locker, zap.NewNop()), service.Options{
		Ledger:  ledger,
		Cache:   cache,
		History: store,
	})

	// Request IDs: the first `duplicates` ids are sent twice
	ids := make([]string, totalRequests)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	requests := append([]string{}, ids...)
	requests = append(requests, ids[:duplicates]...)

	// Counters
	var successCount atomic.Int32
	var duplicateCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for _, id := range requests {
		wg.Add(1)
		go func(requestID string) {
			defer wg.Done()

			_, err := svc.Execute(ctx, service.CommandRequest{RequestID: requestID, Text: command, Language: "en"})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrDuplicateRequest):
				duplicateCount.Add(1)
			default:
				failCount.Add(1)
			}
		}(id)
	}

	wg.Wait()
	elapsed := time.Since(start)

	ledger.Close()
	workers.Wait()

	// Results
	success := successCount.Load()
	dup := duplicateCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Command:          %s\n", command)
	fmt.Printf("Total Requests:   %d\n", len(requests))
	fmt.Printf("Applied:          %d\n", success)
	fmt.Printf("Duplicates:       %d\n", dup)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == totalRequests && dup == duplicates && fail == 0 {
		fmt.Printf("PASS: Exactly %d commands applied, %d duplicates rejected\n", totalRequests, duplicates)
	} else {
		fmt.Printf("FAIL: Expected %d applied/%d duplicate/0 failed, got %d/%d/%d\n",
			totalRequests, duplicates, success, dup, fail)
	}

	// Verify final quantity and price
	item, err := store.Find(ctx, product)
	if err != nil || item == nil {
		fmt.Printf("FAIL: %s missing from store: %v\n", product, err)
		return
	}
	fmt.Printf("Final Quantity:   %.2f kg at ₹%.2f\n", item.QuantityKg, item.PricePerKg)

	if math.Abs(item.QuantityKg-totalRequests) < 1e-9 && item.PricePerKg == 40 {
		fmt.Printf("PASS: Quantity is exactly %d kg\n", totalRequests)
	} else {
		fmt.Printf("FAIL: Expected %d kg at ₹40, got %.2f kg at ₹%.2f\n", totalRequests, item.QuantityKg, item.PricePerKg)
	}

	history, _ := store.Recent(ctx, totalRequests*2)
	if len(history) == totalRequests {
		fmt.Printf("PASS: Ledger recorded %d transactions\n", totalRequests)
	} else {
		fmt.Printf("FAIL: Expected %d ledger entries, got %d\n", totalRequests, len(history))
	}
}
