package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the products and transactions tables when missing.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	statements := []string{`
		CREATE TABLE IF NOT EXISTS products (
			id CHAR(36) NOT NULL,
			canonical_name VARCHAR(191) NOT NULL,
			display_name VARCHAR(191) NOT NULL,
			quantity_kg DOUBLE NOT NULL DEFAULT 0,
			price_per_kg DOUBLE NOT NULL DEFAULT 0,
			description TEXT NOT NULL,
			category VARCHAR(64) NOT NULL,
			version INT NOT NULL DEFAULT 0,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			PRIMARY KEY (canonical_name),
			UNIQUE KEY uk_products_id (id)
		) DEFAULT CHARSET=utf8mb4`, `
		CREATE TABLE IF NOT EXISTS transactions (
			id CHAR(26) NOT NULL PRIMARY KEY,
			product_name VARCHAR(191) NOT NULL,
			type VARCHAR(32) NOT NULL,
			quantity_change DOUBLE NOT NULL,
			price_per_kg DOUBLE NOT NULL,
			language VARCHAR(8) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			KEY idx_transactions_created (created_at)
		) DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return storeErr("create schema", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Find(ctx context.Context, name string) (*domain.Item, error) {
	item, err := scanMySQLItem(m.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM products WHERE canonical_name = ?`, name))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("query product", err)
	}

	return &item, nil
}

func (m *MySQLAdapter) Insert(ctx context.Context, item domain.Item) (domain.Item, error) {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.CanonicalName, item.DisplayName, item.QuantityKg, item.PricePerKg,
		item.Description, item.Category, item.Version, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return domain.Item{}, storeErr("insert product", err)
	}

	return item, nil
}

func (m *MySQLAdapter) Update(ctx context.Context, name string, patch domain.ItemPatch) (bool, error) {
	query, args := patchStatement(name, patch, patch.UpdatedAt)
	result, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storeErr("update product", err)
	}

	return affected(result), nil
}

func (m *MySQLAdapter) Delete(ctx context.Context, name string) (bool, error) {
	result, err := m.db.ExecContext(ctx, `DELETE FROM products WHERE canonical_name = ?`, name)
	if err != nil {
		return false, storeErr("delete product", err)
	}

	return affected(result), nil
}

func (m *MySQLAdapter) ListAll(ctx context.Context) ([]domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM products ORDER BY canonical_name`)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanMySQLItem(rows)
		if err != nil {
			return nil, storeErr("scan product", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list products", err)
	}

	return items, nil
}

func (m *MySQLAdapter) Append(ctx context.Context, tx domain.Transaction) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO transactions (id, product_name, type, quantity_change, price_per_kg, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.ProductName, string(tx.Type), tx.QuantityChange, tx.PricePerKg, tx.Language, tx.CreatedAt,
	)
	if err != nil {
		return storeErr("insert transaction", err)
	}

	return nil
}

func (m *MySQLAdapter) Recent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, product_name, type, quantity_change, price_per_kg, language, created_at
		FROM transactions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var typ string
		if err := rows.Scan(&tx.ID, &tx.ProductName, &typ, &tx.QuantityChange, &tx.PricePerKg, &tx.Language, &tx.CreatedAt); err != nil {
			return nil, storeErr("scan transaction", err)
		}
		tx.Type = domain.TransactionType(typ)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list transactions", err)
	}

	return txs, nil
}

func scanMySQLItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.ID, &item.CanonicalName, &item.DisplayName, &item.QuantityKg, &item.PricePerKg,
		&item.Description, &item.Category, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}
