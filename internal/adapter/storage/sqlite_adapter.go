package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

type SQLiteAdapter struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and initializes its schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := initSQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteAdapter{db: db}, nil
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
	id TEXT NOT NULL UNIQUE,
	canonical_name TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	quantity_kg REAL NOT NULL DEFAULT 0,
	price_per_kg REAL NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	version INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	product_name TEXT NOT NULL,
	type TEXT NOT NULL,
	quantity_change REAL NOT NULL,
	price_per_kg REAL NOT NULL,
	language TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteAdapter) Close() error {
	return s.db.Close()
}

func (s *SQLiteAdapter) Find(ctx context.Context, name string) (*domain.Item, error) {
	item, err := scanSQLiteItem(s.db.QueryRowContext(ctx, `
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

func (s *SQLiteAdapter) Insert(ctx context.Context, item domain.Item) (domain.Item, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.CanonicalName, item.DisplayName, item.QuantityKg, item.PricePerKg,
		item.Description, item.Category, item.Version, formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	if err != nil {
		return domain.Item{}, storeErr("insert product", err)
	}

	return item, nil
}

func (s *SQLiteAdapter) Update(ctx context.Context, name string, patch domain.ItemPatch) (bool, error) {
	query, args := patchStatement(name, patch, formatTime(patch.UpdatedAt))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storeErr("update product", err)
	}

	return affected(result), nil
}

func (s *SQLiteAdapter) Delete(ctx context.Context, name string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE canonical_name = ?`, name)
	if err != nil {
		return false, storeErr("delete product", err)
	}

	return affected(result), nil
}

func (s *SQLiteAdapter) ListAll(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM products ORDER BY canonical_name`)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanSQLiteItem(rows)
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

func (s *SQLiteAdapter) Append(ctx context.Context, tx domain.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, product_name, type, quantity_change, price_per_kg, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.ProductName, string(tx.Type), tx.QuantityChange, tx.PricePerKg, tx.Language, formatTime(tx.CreatedAt),
	)
	if err != nil {
		return storeErr("insert transaction", err)
	}

	return nil
}

func (s *SQLiteAdapter) Recent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_name, type, quantity_change, price_per_kg, language, created_at
		FROM transactions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var typ, created string
		if err := rows.Scan(&tx.ID, &tx.ProductName, &typ, &tx.QuantityChange, &tx.PricePerKg, &tx.Language, &created); err != nil {
			return nil, storeErr("scan transaction", err)
		}
		tx.Type = domain.TransactionType(typ)
		tx.CreatedAt = parseTime(created)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list transactions", err)
	}

	return txs, nil
}

func scanSQLiteItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	var created, updated string
	err := row.Scan(&item.ID, &item.CanonicalName, &item.DisplayName, &item.QuantityKg, &item.PricePerKg,
		&item.Description, &item.Category, &item.Version, &created, &updated)
	if err != nil {
		return domain.Item{}, err
	}
	item.CreatedAt = parseTime(created)
	item.UpdatedAt = parseTime(updated)
	return item, nil
}

// Times are stored as fixed-width UTC text so ORDER BY sorts chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
