package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/port"
)

type repository interface {
	port.InventoryRepository
	port.TransactionLog
}

func newTestItem(name string, quantity, price float64) domain.Item {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.Item{
		ID:            uuid.NewString(),
		CanonicalName: name,
		DisplayName:   name,
		QuantityKg:    quantity,
		PricePerKg:    price,
		Description:   "Fresh " + name + " perfect for cooking.",
		Category:      "Vegetables",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// runRepositoryContract exercises the behaviour every store must share.
// Names are prefixed so shared databases can be cleaned between runs.
func runRepositoryContract(t *testing.T, repo repository, prefix string) {
	ctx := context.Background()
	tomato := prefix + "tomato"
	onion := prefix + "onion"

	// Setup
	repo.Delete(ctx, tomato)
	repo.Delete(ctx, onion)
	defer repo.Delete(ctx, tomato)
	defer repo.Delete(ctx, onion)

	t.Run("find missing returns nil", func(t *testing.T) {
		item, err := repo.Find(ctx, prefix+"nonexistent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item != nil {
			t.Errorf("expected nil, got %+v", item)
		}
	})

	t.Run("insert then find", func(t *testing.T) {
		want := newTestItem(tomato, 5, 50)
		if _, err := repo.Insert(ctx, want); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		got, err := repo.Find(ctx, tomato)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected item, got nil")
		}
		if got.ID != want.ID || got.QuantityKg != 5 || got.PricePerKg != 50 {
			t.Errorf("unexpected item: %+v", got)
		}
		if !got.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("expected created_at %v, got %v", want.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("update applies only set fields", func(t *testing.T) {
		quantity, price := 8.0, 53.75
		ok, err := repo.Update(ctx, tomato, domain.ItemPatch{
			QuantityKg: &quantity,
			PricePerKg: &price,
			UpdatedAt:  time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if !ok {
			t.Fatal("expected update to find the item")
		}

		got, _ := repo.Find(ctx, tomato)
		if got.QuantityKg != 8 || got.PricePerKg != 53.75 {
			t.Errorf("expected 8 kg at 53.75, got %v kg at %v", got.QuantityKg, got.PricePerKg)
		}
		if got.Category != "Vegetables" {
			t.Errorf("category should be untouched, got %q", got.Category)
		}
		if got.Version != 1 {
			t.Errorf("expected version 1, got %d", got.Version)
		}
	})

	t.Run("update missing returns false", func(t *testing.T) {
		price := 10.0
		ok, err := repo.Update(ctx, prefix+"nonexistent", domain.ItemPatch{PricePerKg: &price, UpdatedAt: time.Now()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected false for missing item")
		}
	})

	t.Run("list is ordered by name", func(t *testing.T) {
		if _, err := repo.Insert(ctx, newTestItem(onion, 3, 40)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		items, err := repo.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		var names []string
		for _, item := range items {
			if item.CanonicalName == tomato || item.CanonicalName == onion {
				names = append(names, item.CanonicalName)
			}
		}
		if len(names) != 2 || names[0] != onion || names[1] != tomato {
			t.Errorf("expected [%s %s], got %v", onion, tomato, names)
		}
	})

	t.Run("delete", func(t *testing.T) {
		ok, err := repo.Delete(ctx, onion)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if !ok {
			t.Error("expected delete to report the item existed")
		}

		ok, err = repo.Delete(ctx, onion)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if ok {
			t.Error("expected second delete to report nothing removed")
		}
	})

	t.Run("ledger returns newest first", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Millisecond)
		for i, typ := range []domain.TransactionType{domain.TransactionAdd, domain.TransactionMerge, domain.TransactionRemove} {
			err := repo.Append(ctx, domain.Transaction{
				ID:             ulid.Make().String(),
				ProductName:    tomato,
				Type:           typ,
				QuantityChange: float64(i + 1),
				PricePerKg:     50,
				Language:       "en",
				CreatedAt:      base.Add(time.Duration(i) * time.Second),
			})
			if err != nil {
				t.Fatalf("Append failed: %v", err)
			}
		}

		txs, err := repo.Recent(ctx, 2)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(txs) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(txs))
		}
		if txs[0].Type != domain.TransactionRemove || txs[1].Type != domain.TransactionMerge {
			t.Errorf("unexpected order: %s, %s", txs[0].Type, txs[1].Type)
		}
	})
}
