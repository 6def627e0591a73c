package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

const itemColumns = `id, canonical_name, display_name, quantity_kg, price_per_kg, description, category, version, created_at, updated_at`

// storeErr marks a driver failure as a store outage so callers never mistake
// it for a missing product.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

// patchStatement builds the UPDATE for a patch; ts is the driver value of patch.UpdatedAt.
func patchStatement(name string, patch domain.ItemPatch, ts any) (string, []any) {
	sets := []string{"version = version + 1", "updated_at = ?"}
	args := []any{ts}
	if patch.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *patch.DisplayName)
	}
	if patch.QuantityKg != nil {
		sets = append(sets, "quantity_kg = ?")
		args = append(args, *patch.QuantityKg)
	}
	if patch.PricePerKg != nil {
		sets = append(sets, "price_per_kg = ?")
		args = append(args, *patch.PricePerKg)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	args = append(args, name)
	return "UPDATE products SET " + strings.Join(sets, ", ") + " WHERE canonical_name = ?", args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func affected(result sql.Result) bool {
	rows, err := result.RowsAffected()
	return err == nil && rows > 0
}
