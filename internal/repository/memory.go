package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/table"
)

// MemorySessionStore is an in-memory SessionStore for tests and local runs.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.UploadSession
	uploads  map[string]*table.Table
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domain.UploadSession),
		uploads:  make(map[string]*table.Table),
	}
}

func (s *MemorySessionStore) Create(_ context.Context, session *domain.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*domain.UploadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := session
	return &copied, nil
}

func (s *MemorySessionStore) Update(_ context.Context, session *domain.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemorySessionStore) SaveUpload(_ context.Context, sessionID string, tbl *table.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[sessionID] = tbl
	return nil
}

func (s *MemorySessionStore) GetUpload(_ context.Context, sessionID string) (*table.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tbl, ok := s.uploads[sessionID]
	if !ok {
		return nil, domain.ErrNoUploadData
	}
	return tbl, nil
}

func (s *MemorySessionStore) DeleteUpload(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, sessionID)
	return nil
}

// HasUpload reports whether temp data is still retained for a session.
func (s *MemorySessionStore) HasUpload(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.uploads[sessionID]
	return ok
}

// MemoryCatalogStore is an in-memory CatalogStore. InTx stages every
// mutation on a copy and swaps it in on success, so an aborted transaction
// leaves the catalog untouched. A failed statement poisons the transaction
// the way postgres does: later statements and the final commit fail unless
// the failure happened inside a RowScope that was rolled back.
type MemoryCatalogStore struct {
	mu       sync.Mutex
	products map[string]domain.Product // keyed by supplierID+"/"+sku
	backups  map[string]domain.ImportBackup

	// FailUpsert aborts UpsertProduct for matching SKUs, for exercising
	// per-row error tolerance.
	FailUpsert map[string]error
	// FailBackup aborts SaveBackup, for exercising transactional rollback.
	FailBackup error
}

// NewMemoryCatalogStore creates an in-memory catalog seeded with the given
// products.
func NewMemoryCatalogStore(seed ...domain.Product) *MemoryCatalogStore {
	s := &MemoryCatalogStore{
		products: make(map[string]domain.Product),
		backups:  make(map[string]domain.ImportBackup),
	}
	for _, p := range seed {
		s.products[p.SupplierID+"/"+p.SKU] = p
	}
	return s
}

func (s *MemoryCatalogStore) LookupBySKUs(_ context.Context, supplierID string, skus []string) (map[string]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookupMem(s.products, supplierID, skus), nil
}

func lookupMem(products map[string]domain.Product, supplierID string, skus []string) map[string]domain.Product {
	out := make(map[string]domain.Product)
	for _, sku := range skus {
		if p, ok := products[supplierID+"/"+sku]; ok {
			out[sku] = p
		}
	}
	return out
}

func (s *MemoryCatalogStore) ExistingValues(_ context.Context, supplierID string) (map[string]struct{}, map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	categories := make(map[string]struct{})
	brands := make(map[string]struct{})
	for _, p := range s.products {
		if p.SupplierID != supplierID {
			continue
		}
		if p.Category != "" {
			categories[p.Category] = struct{}{}
		}
		if p.Brand != "" {
			brands[p.Brand] = struct{}{}
		}
	}
	return categories, brands, nil
}

func (s *MemoryCatalogStore) InTx(_ context.Context, fn func(tx CatalogTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]domain.Product, len(s.products))
	for k, v := range s.products {
		staged[k] = v
	}
	tx := &memCatalogTx{store: s, staged: staged, backups: make(map[string]domain.ImportBackup)}

	if err := fn(tx); err != nil {
		return err
	}
	if tx.aborted {
		return fmt.Errorf("commit transaction: %w", errTxAborted)
	}

	s.products = tx.staged
	for k, v := range tx.backups {
		s.backups[k] = v
	}
	return nil
}

// Product returns a catalog entry by natural key, for assertions.
func (s *MemoryCatalogStore) Product(supplierID, sku string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[supplierID+"/"+sku]
	return p, ok
}

// ProductCount returns the catalog size, for assertions.
func (s *MemoryCatalogStore) ProductCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

// Backup returns a stored snapshot by id, for assertions.
func (s *MemoryCatalogStore) Backup(id string) (domain.ImportBackup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.backups[id]
	return b, ok
}

// errTxAborted mirrors the postgres 25P01 behavior after a failed statement.
var errTxAborted = errors.New("current transaction is aborted, commands ignored until end of transaction block")

type memCatalogTx struct {
	store   *MemoryCatalogStore
	staged  map[string]domain.Product
	backups map[string]domain.ImportBackup
	aborted bool
}

// RowScope stages the nested scope on its own copy. A failure inside fn
// discards the copy and leaves this transaction clean, matching savepoint
// rollback semantics.
func (t *memCatalogTx) RowScope(_ context.Context, fn func(tx CatalogTx) error) error {
	if t.aborted {
		return errTxAborted
	}

	staged := make(map[string]domain.Product, len(t.staged))
	for k, v := range t.staged {
		staged[k] = v
	}
	backups := make(map[string]domain.ImportBackup, len(t.backups))
	for k, v := range t.backups {
		backups[k] = v
	}
	child := &memCatalogTx{store: t.store, staged: staged, backups: backups}

	if err := fn(child); err != nil {
		return err
	}
	if child.aborted {
		// A swallowed statement failure cannot be released.
		return fmt.Errorf("release savepoint: %w", errTxAborted)
	}
	t.staged = child.staged
	t.backups = child.backups
	return nil
}

func (t *memCatalogTx) LookupBySKUs(_ context.Context, supplierID string, skus []string) (map[string]domain.Product, error) {
	if t.aborted {
		return nil, errTxAborted
	}
	return lookupMem(t.staged, supplierID, skus), nil
}

func (t *memCatalogTx) UpsertProduct(_ context.Context, p *domain.Product) error {
	if t.aborted {
		return errTxAborted
	}
	if err, ok := t.store.FailUpsert[p.SKU]; ok {
		t.aborted = true
		return err
	}
	t.staged[p.SupplierID+"/"+p.SKU] = *p
	return nil
}

func (t *memCatalogTx) SetQuantity(_ context.Context, supplierID, sku string, qty int, _ float64, _ string) error {
	if t.aborted {
		return errTxAborted
	}
	key := supplierID + "/" + sku
	p, ok := t.staged[key]
	if !ok {
		t.aborted = true
		return fmt.Errorf("set quantity: product %s/%s not found", supplierID, sku)
	}
	p.StockQty = qty
	t.staged[key] = p
	return nil
}

func (t *memCatalogTx) SaveBackup(_ context.Context, backup *domain.ImportBackup) error {
	if t.aborted {
		return errTxAborted
	}
	if t.store.FailBackup != nil {
		t.aborted = true
		return t.store.FailBackup
	}
	t.backups[backup.ID] = *backup
	return nil
}
