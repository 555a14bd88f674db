package repository

import (
	"context"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/table"
)

// SessionStore persists upload sessions and their temporary parsed payloads.
type SessionStore interface {
	Create(ctx context.Context, session *domain.UploadSession) error
	Get(ctx context.Context, id string) (*domain.UploadSession, error)
	Update(ctx context.Context, session *domain.UploadSession) error

	// SaveUpload retains the normalized table for a session across phases.
	SaveUpload(ctx context.Context, sessionID string, tbl *table.Table) error
	GetUpload(ctx context.Context, sessionID string) (*table.Table, error)
	DeleteUpload(ctx context.Context, sessionID string) error
}

// CatalogTx is the mutating surface of one catalog transaction. The backup
// write and every row mutation of an import share a single CatalogTx; either
// all of them persist or none do.
type CatalogTx interface {
	LookupBySKUs(ctx context.Context, supplierID string, skus []string) (map[string]domain.Product, error)
	UpsertProduct(ctx context.Context, p *domain.Product) error
	SetQuantity(ctx context.Context, supplierID, sku string, qty int, unitCost float64, reason string) error
	SaveBackup(ctx context.Context, backup *domain.ImportBackup) error

	// RowScope runs fn inside a nested scope (a savepoint on SQL backends).
	// An error from fn discards only that scope's mutations; the enclosing
	// transaction stays usable. Without it, a single failed statement poisons
	// the whole postgres transaction and the final commit fails.
	RowScope(ctx context.Context, fn func(tx CatalogTx) error) error
}

// CatalogStore is the read surface of the product catalog plus the entry
// point into its transactional scope.
type CatalogStore interface {
	LookupBySKUs(ctx context.Context, supplierID string, skus []string) (map[string]domain.Product, error)

	// ExistingValues returns the distinct category and brand sets already
	// present for a supplier, pre-fetched so the import loop can detect new
	// values without per-row queries.
	ExistingValues(ctx context.Context, supplierID string) (categories, brands map[string]struct{}, err error)

	// InTx runs fn inside one transaction. fn returning an error aborts the
	// transaction with zero catalog mutation.
	InTx(ctx context.Context, fn func(tx CatalogTx) error) error
}
