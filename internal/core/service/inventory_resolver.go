package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/port"
)

type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeMerged   Outcome = "merged"
	OutcomeUpdated  Outcome = "updated"
	OutcomeRemoved  Outcome = "removed"
	OutcomeDeleted  Outcome = "deleted"
	OutcomeNotFound Outcome = "not_found"
)

const (
	DefaultCategory = "Grocery"
	pricePlaces     = 2
)

type Result struct {
	Outcome  Outcome
	Item     domain.Item
	Previous *domain.Item
}

// InventoryResolver applies operations to stored items. Every read-modify-write
// runs under the product's lock, so concurrent commands for one product
// serialize while different products proceed independently.
type InventoryResolver struct {
	repo   port.InventoryRepository
	locker port.Locker
	log    *zap.Logger
	now    func() time.Time
}

func NewInventoryResolver(repo port.InventoryRepository, locker port.Locker, log *zap.Logger) *InventoryResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryResolver{repo: repo, locker: locker, log: log, now: time.Now}
}

// WeightedAverage returns round((p·q + dp·dq) / (q + dq), 2). When the total
// quantity is zero it returns the incoming price with ErrMergeArithmetic.
func WeightedAverage(quantity, price, addQuantity, addPrice float64) (float64, error) {
	q := decimal.NewFromFloat(quantity)
	dq := decimal.NewFromFloat(addQuantity)
	total := q.Add(dq)
	if total.IsZero() {
		return addPrice, domain.ErrMergeArithmetic
	}

	value := decimal.NewFromFloat(price).Mul(q).Add(decimal.NewFromFloat(addPrice).Mul(dq))
	avg, _ := value.Div(total).Round(pricePlaces).Float64()
	return avg, nil
}

func sumQuantity(a, b float64) float64 {
	sum, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Float64()
	return sum
}

func subtractQuantity(a, b float64) float64 {
	diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b))
	if diff.IsNegative() {
		return 0
	}
	v, _ := diff.Float64()
	return v
}

func quantityDelta(from, to float64) float64 {
	d, _ := decimal.NewFromFloat(to).Sub(decimal.NewFromFloat(from)).Float64()
	return d
}

func (r *InventoryResolver) lock(ctx context.Context, name string) (func(), error) {
	unlock, err := r.locker.Lock(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}
	return unlock, nil
}

// Add creates the product or merges the delivery into existing stock.
func (r *InventoryResolver) Add(ctx context.Context, op domain.AddOp) (Result, error) {
	if op.QuantityKg < 0 || op.PricePerKg < 0 {
		return Result{}, fmt.Errorf("%w: quantity and price must not be negative", domain.ErrInvalidInput)
	}

	unlock, err := r.lock(ctx, op.Product)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	existing, err := r.repo.Find(ctx, op.Product)
	if err != nil {
		return Result{}, err
	}
	now := r.now()

	if existing == nil {
		item := domain.Item{
			ID:            uuid.NewString(),
			CanonicalName: op.Product,
			DisplayName:   op.DisplayName,
			QuantityKg:    op.QuantityKg,
			PricePerKg:    op.PricePerKg,
			Description:   op.Description,
			Category:      op.Category,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if item.DisplayName == "" {
			item.DisplayName = op.Product
		}
		if item.Description == "" {
			item.Description = fmt.Sprintf("Fresh %s perfect for cooking.", op.Product)
		}
		if item.Category == "" {
			item.Category = DefaultCategory
		}

		stored, err := r.repo.Insert(ctx, item)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeCreated, Item: stored}, nil
	}

	price, err := WeightedAverage(existing.QuantityKg, existing.PricePerKg, op.QuantityKg, op.PricePerKg)
	if errors.Is(err, domain.ErrMergeArithmetic) {
		r.log.Info("merge with zero total quantity, using incoming price",
			zap.String("product", op.Product), zap.Float64("price", op.PricePerKg))
	}
	quantity := sumQuantity(existing.QuantityKg, op.QuantityKg)

	patch := domain.ItemPatch{QuantityKg: &quantity, PricePerKg: &price, UpdatedAt: now}
	if desc, changed := mergeDescription(existing.Description, op.Description); changed {
		patch.Description = &desc
	}
	return r.update(ctx, *existing, patch, OutcomeMerged)
}

// mergeDescription appends a new description to the old one unless it is
// already part of it.
func mergeDescription(old, incoming string) (string, bool) {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" || strings.Contains(old, incoming) {
		return old, false
	}
	if old == "" {
		return incoming, true
	}
	return old + " | " + incoming, true
}

func (r *InventoryResolver) UpdatePrice(ctx context.Context, op domain.UpdatePriceOp) (Result, error) {
	if op.PricePerKg < 0 {
		return Result{}, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	price := op.PricePerKg
	return r.Patch(ctx, op.Product, domain.ItemPatch{PricePerKg: &price})
}

// Remove takes quantity out of stock, flooring at zero. The product stays
// listed even when it reaches zero.
func (r *InventoryResolver) Remove(ctx context.Context, op domain.RemoveOp) (Result, error) {
	if op.QuantityKg < 0 {
		return Result{}, fmt.Errorf("%w: quantity must not be negative", domain.ErrInvalidInput)
	}

	unlock, err := r.lock(ctx, op.Product)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	existing, err := r.repo.Find(ctx, op.Product)
	if err != nil {
		return Result{}, err
	}
	if existing == nil {
		return Result{Outcome: OutcomeNotFound}, domain.ErrProductNotFound
	}

	quantity := subtractQuantity(existing.QuantityKg, op.QuantityKg)
	patch := domain.ItemPatch{QuantityKg: &quantity, UpdatedAt: r.now()}
	return r.update(ctx, *existing, patch, OutcomeRemoved)
}

func (r *InventoryResolver) Delete(ctx context.Context, op domain.DeleteOp) (Result, error) {
	unlock, err := r.lock(ctx, op.Product)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	existing, err := r.repo.Find(ctx, op.Product)
	if err != nil {
		return Result{}, err
	}
	if existing == nil {
		return Result{Outcome: OutcomeNotFound}, domain.ErrProductNotFound
	}

	ok, err := r.repo.Delete(ctx, op.Product)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Outcome: OutcomeNotFound}, domain.ErrProductNotFound
	}
	return Result{Outcome: OutcomeDeleted, Item: *existing, Previous: existing}, nil
}

// Patch replaces the fields set in patch on an existing product.
func (r *InventoryResolver) Patch(ctx context.Context, name string, patch domain.ItemPatch) (Result, error) {
	if (patch.QuantityKg != nil && *patch.QuantityKg < 0) || (patch.PricePerKg != nil && *patch.PricePerKg < 0) {
		return Result{}, fmt.Errorf("%w: quantity and price must not be negative", domain.ErrInvalidInput)
	}

	unlock, err := r.lock(ctx, name)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	existing, err := r.repo.Find(ctx, name)
	if err != nil {
		return Result{}, err
	}
	if existing == nil {
		return Result{Outcome: OutcomeNotFound}, domain.ErrProductNotFound
	}

	patch.UpdatedAt = r.now()
	return r.update(ctx, *existing, patch, OutcomeUpdated)
}

func (r *InventoryResolver) update(ctx context.Context, existing domain.Item, patch domain.ItemPatch, outcome Outcome) (Result, error) {
	ok, err := r.repo.Update(ctx, existing.CanonicalName, patch)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Outcome: OutcomeNotFound}, domain.ErrProductNotFound
	}
	prev := existing
	return Result{Outcome: outcome, Item: patch.Apply(existing), Previous: &prev}, nil
}

func (r *InventoryResolver) Get(ctx context.Context, name string) (domain.Item, error) {
	item, err := r.repo.Find(ctx, name)
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrProductNotFound
	}
	return *item, nil
}

func (r *InventoryResolver) List(ctx context.Context) ([]domain.Item, error) {
	return r.repo.ListAll(ctx)
}
