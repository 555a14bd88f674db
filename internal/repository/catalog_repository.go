package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
)

// PostgresCatalogStore implements CatalogStore using PostgreSQL.
type PostgresCatalogStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalogStore creates a new PostgresCatalogStore.
func NewPostgresCatalogStore(pool *pgxpool.Pool) *PostgresCatalogStore {
	return &PostgresCatalogStore{pool: pool}
}

const productColumns = `id, supplier_id, sku, name, description, category, brand,
	supplier_sku, cost_price, sale_price, currency, stock_qty, reorder_point,
	max_stock, unit, weight, barcode, location, tags, notes, created_at, updated_at`

// querier is the read surface shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func lookupBySKUs(ctx context.Context, q querier, supplierID string, skus []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(skus))
	if len(skus) == 0 {
		return out, nil
	}

	rows, err := q.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE supplier_id = $1 AND sku = ANY($2)
	`, supplierID, skus)
	if err != nil {
		return nil, fmt.Errorf("lookup products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.SKU] = p
	}
	return out, rows.Err()
}

func scanProduct(rows pgx.Rows) (domain.Product, error) {
	var p domain.Product
	err := rows.Scan(&p.ID, &p.SupplierID, &p.SKU, &p.Name, &p.Description, &p.Category,
		&p.Brand, &p.SupplierSKU, &p.CostPrice, &p.SalePrice, &p.Currency, &p.StockQty,
		&p.ReorderPoint, &p.MaxStock, &p.Unit, &p.Weight, &p.Barcode, &p.Location,
		&p.Tags, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

// LookupBySKUs loads existing products for a supplier keyed by SKU.
func (r *PostgresCatalogStore) LookupBySKUs(ctx context.Context, supplierID string, skus []string) (map[string]domain.Product, error) {
	return lookupBySKUs(ctx, r.pool, supplierID, skus)
}

// ExistingValues returns the distinct category and brand sets for a supplier.
func (r *PostgresCatalogStore) ExistingValues(ctx context.Context, supplierID string) (map[string]struct{}, map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT category, brand FROM products WHERE supplier_id = $1
	`, supplierID)
	if err != nil {
		return nil, nil, fmt.Errorf("query existing values: %w", err)
	}
	defer rows.Close()

	categories := make(map[string]struct{})
	brands := make(map[string]struct{})
	for rows.Next() {
		var category, brand string
		if err := rows.Scan(&category, &brand); err != nil {
			return nil, nil, fmt.Errorf("scan existing values: %w", err)
		}
		if category != "" {
			categories[category] = struct{}{}
		}
		if brand != "" {
			brands[brand] = struct{}{}
		}
	}
	return categories, brands, rows.Err()
}

// InTx runs fn inside a single database transaction. Any error from fn rolls
// the whole scope back, leaving zero catalog mutation.
func (r *PostgresCatalogStore) InTx(ctx context.Context, fn func(tx CatalogTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgxCatalogTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgxCatalogTx struct {
	tx pgx.Tx
}

// RowScope wraps fn in a savepoint (pgx nested transaction). A SQL error
// inside fn aborts only the savepoint; rolling it back restores the outer
// transaction instead of leaving it in the aborted 25P01 state.
func (t *pgxCatalogTx) RowScope(ctx context.Context, fn func(tx CatalogTx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := fn(&pgxCatalogTx{tx: sp}); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (t *pgxCatalogTx) LookupBySKUs(ctx context.Context, supplierID string, skus []string) (map[string]domain.Product, error) {
	return lookupBySKUs(ctx, t.tx, supplierID, skus)
}

// UpsertProduct inserts or replaces a catalog entry under its (supplier, SKU)
// natural key.
func (t *pgxCatalogTx) UpsertProduct(ctx context.Context, p *domain.Product) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (supplier_id, sku) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			brand = EXCLUDED.brand,
			supplier_sku = EXCLUDED.supplier_sku,
			cost_price = EXCLUDED.cost_price,
			sale_price = EXCLUDED.sale_price,
			currency = EXCLUDED.currency,
			stock_qty = EXCLUDED.stock_qty,
			reorder_point = EXCLUDED.reorder_point,
			max_stock = EXCLUDED.max_stock,
			unit = EXCLUDED.unit,
			weight = EXCLUDED.weight,
			barcode = EXCLUDED.barcode,
			location = EXCLUDED.location,
			tags = EXCLUDED.tags,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.SupplierID, p.SKU, p.Name, p.Description, p.Category, p.Brand,
		p.SupplierSKU, p.CostPrice, p.SalePrice, p.Currency, p.StockQty, p.ReorderPoint,
		p.MaxStock, p.Unit, p.Weight, p.Barcode, p.Location, p.Tags, p.Notes,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// SetQuantity sets the stock level for a product and records an audited
// stock movement carrying the unit cost and reason.
func (t *pgxCatalogTx) SetQuantity(ctx context.Context, supplierID, sku string, qty int, unitCost float64, reason string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products SET stock_qty = $3, updated_at = NOW()
		WHERE supplier_id = $1 AND sku = $2
	`, supplierID, sku, qty)
	if err != nil {
		return fmt.Errorf("set quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set quantity: product %s/%s not found", supplierID, sku)
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO stock_movements (supplier_id, sku, quantity, unit_cost, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, supplierID, sku, qty, unitCost, reason)
	if err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}
	return nil
}

// SaveBackup persists one pre-mutation snapshot keyed by session.
func (t *pgxCatalogTx) SaveBackup(ctx context.Context, backup *domain.ImportBackup) error {
	snapshot, err := json.Marshal(backup.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal backup snapshot: %w", err)
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO import_backups (id, session_id, skus, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, backup.ID, backup.SessionID, backup.SKUs, snapshot, backup.CreatedAt)
	if err != nil {
		return fmt.Errorf("save backup: %w", err)
	}
	return nil
}
