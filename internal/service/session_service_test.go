package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/repository"
)

func newTestService(seed ...domain.Product) (*ImportService, *repository.MemorySessionStore, *repository.MemoryCatalogStore) {
	sessions := repository.NewMemorySessionStore()
	catalog := repository.NewMemoryCatalogStore(seed...)
	return NewImportService(sessions, catalog), sessions, catalog
}

// uploadFixture runs the upload phase for one small price list and returns
// the session id. Headers are deliberately supplier-flavored to exercise
// mapping inference end to end.
func uploadFixture(t *testing.T, svc *ImportService, rows [][]any) string {
	t.Helper()
	resp, err := svc.ProcessUpload(context.Background(), UploadRequest{
		SupplierID: "sup-1",
		Filename:   "pricelist.xlsx",
		FileSize:   1024,
		Headers:    []string{"Item Code", "Product Desc", "Category", "Cost", "On Hand"},
		Rows:       rows,
	})
	require.NoError(t, err)
	return resp.SessionID
}

func importRequest(strategy domain.ConflictStrategy) ImportRequest {
	return ImportRequest{
		Resolution: domain.ConflictResolution{Strategy: strategy},
		Options:    ImportOptions{SkipEmptyRows: true, ValidateSKU: true, Backup: true},
	}
}

func TestProcessUpload(t *testing.T) {
	svc, sessions, _ := newTestService()

	resp, err := svc.ProcessUpload(context.Background(), UploadRequest{
		SupplierID: "sup-1",
		Filename:   "pricelist.xlsx",
		FileSize:   1024,
		Headers:    []string{"Item Code", "Product Desc", "Category", "Cost", "On Hand"},
		Rows: [][]any{
			{"W-100", "Widget", "Tools", 9.99, 5},
			{"W-101", "Gadget", "Tools", 4.50, 12},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Len(t, resp.SampleRows, 2)
	assert.InDelta(t, 1.0, resp.Suggested.Overall, 0.001)
	assert.Equal(t, "Item Code", resp.Suggested.Mapping[domain.FieldSKU])
	assert.Equal(t, "Product Desc", resp.Suggested.Mapping[domain.FieldName])
	assert.Equal(t, "On Hand", resp.Suggested.Mapping[domain.FieldStockQty])

	session, err := sessions.Get(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionUploading, session.Status)
	assert.Equal(t, 2, session.RowCount)
	assert.Equal(t, 5, session.ColumnCount)
	assert.True(t, sessions.HasUpload(resp.SessionID))
}

func TestProcessUploadRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ProcessUpload(context.Background(), UploadRequest{
		Filename: "pricelist.xlsx",
		Headers:  []string{"SKU"},
	})
	require.Error(t, err)

	_, err = svc.ProcessUpload(context.Background(), UploadRequest{
		SupplierID: "sup-1",
		Filename:   "pricelist.xlsx",
	})
	require.Error(t, err)
}

func TestProcessImportCreatesProducts(t *testing.T) {
	svc, sessions, catalog := newTestService()
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "Widget", "Tools", 9.99, 5},
		{"W-101", "Gadget", "Tools", 4.50, 12},
	})

	resp, err := svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategySkip))
	require.NoError(t, err)

	require.NotNil(t, resp.Import)
	assert.Equal(t, 2, resp.Import.Created)
	assert.Equal(t, 0, resp.Import.Updated)
	assert.Equal(t, 0, resp.Import.Skipped)
	assert.Empty(t, resp.Import.Errors)
	assert.InDelta(t, 9.99*5+4.50*12, resp.Import.TotalValue, 0.001)
	assert.Equal(t, []string{"Tools"}, resp.Import.NewCategories)
	assert.Equal(t, 1, resp.Import.SuppliersAffected)
	// No existing records matched, so no backup was taken.
	assert.Nil(t, resp.Import.BackupID)

	p, ok := catalog.Product("sup-1", "W-100")
	require.True(t, ok)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, 5, p.StockQty)
	assert.InDelta(t, 9.99, p.CostPrice, 0.001)

	assert.Equal(t, domain.SessionCompleted, resp.Session.Status)
	require.NotNil(t, resp.Session.CompletedAt)
	assert.False(t, sessions.HasUpload(sessionID), "temp data must be purged on success")
}

func TestProcessImportSkipStrategy(t *testing.T) {
	existing := domain.Product{
		ID: "p-1", SupplierID: "sup-1", SKU: "W-100",
		Name: "Old Widget", Category: "Tools", CostPrice: 5.0, StockQty: 10,
	}
	svc, _, catalog := newTestService(existing)
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "New Widget", "Tools", 9.99, 5},
	})

	resp, err := svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategySkip))
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Import.Created)
	assert.Equal(t, 0, resp.Import.Updated)
	assert.Equal(t, 1, resp.Import.Skipped)
	assert.Equal(t, 1, resp.Validation.DuplicatesFound)
	assert.Equal(t, 0, resp.Validation.ConflictsResolved)

	p, ok := catalog.Product("sup-1", "W-100")
	require.True(t, ok)
	assert.Equal(t, "Old Widget", p.Name, "skip must leave the record untouched")
	assert.Equal(t, 10, p.StockQty)
	assert.Equal(t, 1, catalog.ProductCount())
}

func TestProcessImportUpdateStrategy(t *testing.T) {
	existing := domain.Product{
		ID: "p-1", SupplierID: "sup-1", SKU: "W-100",
		Name: "Old Widget", Category: "Tools", Brand: "Acme", CostPrice: 5.0, StockQty: 10,
	}
	svc, _, catalog := newTestService(existing)
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "New Widget", "Tools", 9.99, 7},
	})

	resp, err := svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategyUpdate))
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Import.Created)
	assert.Equal(t, 1, resp.Import.Updated)
	assert.Equal(t, 1, resp.Validation.ConflictsResolved)

	p, ok := catalog.Product("sup-1", "W-100")
	require.True(t, ok)
	assert.Equal(t, "New Widget", p.Name)
	assert.InDelta(t, 9.99, p.CostPrice, 0.001)
	assert.Equal(t, 7, p.StockQty)
	assert.Equal(t, "p-1", p.ID, "update must keep the record identity")
	assert.Equal(t, "Acme", p.Brand, "unmapped fields keep their stored values")

	// The pre-mutation snapshot is durable and carries the old record.
	require.NotNil(t, resp.Import.BackupID)
	backup, ok := catalog.Backup(*resp.Import.BackupID)
	require.True(t, ok)
	assert.Equal(t, []string{"W-100"}, backup.SKUs)
	require.Len(t, backup.Snapshot, 1)
	assert.Equal(t, "Old Widget", backup.Snapshot[0].Name)
	assert.Equal(t, 10, backup.Snapshot[0].StockQty)
}

func TestProcessImportUpdateHonorsFieldContracts(t *testing.T) {
	existing := domain.Product{
		ID: "p-1", SupplierID: "sup-1", SKU: "W-100",
		Name: "Old Widget", Category: "Hardware", CostPrice: 5.0, StockQty: 10,
	}
	svc, _, catalog := newTestService(existing)
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "New Widget", "Tools", 9.99, 7},
	})

	req := importRequest(domain.StrategyUpdate)
	req.Resolution.UpdateFields = []domain.Field{domain.FieldName, domain.FieldCostPrice, domain.FieldCategory}
	req.Resolution.PreserveFields = []domain.Field{domain.FieldCategory}

	resp, err := svc.ProcessImport(context.Background(), sessionID, req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Import.Updated)

	p, _ := catalog.Product("sup-1", "W-100")
	assert.Equal(t, "New Widget", p.Name)
	assert.InDelta(t, 9.99, p.CostPrice, 0.001)
	assert.Equal(t, "Hardware", p.Category, "preserved field must not change")
	assert.Equal(t, 10, p.StockQty, "field outside the update set must not change")
}

func TestProcessImportMergeKeepsStoredValues(t *testing.T) {
	existing := domain.Product{
		ID: "p-1", SupplierID: "sup-1", SKU: "W-100",
		Name: "Old Widget", Category: "Hardware", Brand: "Acme", CostPrice: 5.0, StockQty: 10,
	}
	svc, _, catalog := newTestService(existing)

	// Empty brand cell: merge must not blank the stored value.
	upload, err := svc.ProcessUpload(context.Background(), UploadRequest{
		SupplierID: "sup-1",
		Filename:   "pricelist.xlsx",
		FileSize:   1024,
		Headers:    []string{"Item Code", "Product Desc", "Category", "Brand", "Cost", "On Hand"},
		Rows:       [][]any{{"W-100", "New Widget", "Tools", "", 9.99, 7}},
	})
	require.NoError(t, err)

	resp, err := svc.ProcessImport(context.Background(), upload.SessionID, importRequest(domain.StrategyMerge))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Import.Updated)

	p, _ := catalog.Product("sup-1", "W-100")
	assert.Equal(t, "New Widget", p.Name)
	assert.Equal(t, "Tools", p.Category)
	assert.Equal(t, "Acme", p.Brand)
}

func TestProcessImportCreateVariant(t *testing.T) {
	existing := domain.Product{
		ID: "p-1", SupplierID: "sup-1", SKU: "W-100",
		Name: "Old Widget", Category: "Tools", CostPrice: 5.0, StockQty: 10,
	}
	svc, _, catalog := newTestService(existing)
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "New Widget", "Tools", 9.99, 7},
	})

	resp, err := svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategyCreateVariant))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Import.Created)
	assert.Equal(t, 0, resp.Import.Updated)
	assert.Equal(t, 2, catalog.ProductCount(), "variant lands beside the original")

	p, ok := catalog.Product("sup-1", "W-100")
	require.True(t, ok)
	assert.Equal(t, "Old Widget", p.Name, "original record must not change")
}

func TestProcessImportErrorRowsAreSkipped(t *testing.T) {
	svc, _, catalog := newTestService()
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "Widget", "Tools", 9.99, 5},
		{"W-101", "Gadget", "Tools", -4.50, 12}, // negative cost fails validation
	})

	resp, err := svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategySkip))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Import.Created)
	assert.Equal(t, 1, resp.Import.Skipped)
	assert.Equal(t, 1, resp.Validation.ErrorRows)
	assert.Equal(t, 1, catalog.ProductCount())
	_, ok := catalog.Product("sup-1", "W-101")
	assert.False(t, ok, "error rows must never reach the catalog")
}

func TestProcessImportDryRun(t *testing.T) {
	svc, sessions, catalog := newTestService()
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "Widget", "Tools", 9.99, 5},
	})

	req := importRequest(domain.StrategySkip)
	req.Options.DryRun = true

	resp, err := svc.ProcessImport(context.Background(), sessionID, req)
	require.NoError(t, err)

	assert.Nil(t, resp.Import, "dry run must not produce an import result")
	require.NotNil(t, resp.Validation)
	assert.Equal(t, 1, resp.Validation.ValidRows)
	assert.Equal(t, domain.SessionValidating, resp.Session.Status)
	assert.Equal(t, 0, catalog.ProductCount(), "dry run must not touch the catalog")
	assert.True(t, sessions.HasUpload(sessionID), "dry run must retain temp data")

	// The same session accepts a real import afterwards.
	real, err := svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategySkip))
	require.NoError(t, err)
	assert.Equal(t, 1, real.Import.Created)
	assert.Equal(t, domain.SessionCompleted, real.Session.Status)
}

func TestProcessImportEstimatedValueIncludesErrorRows(t *testing.T) {
	svc, _, _ := newTestService()
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "Widget", "Tools", 10.0, 2},
		{"", "Nameless", "Tools", 5.0, 4}, // missing SKU is an error row
	})

	req := importRequest(domain.StrategySkip)
	req.Options.DryRun = true

	resp, err := svc.ProcessImport(context.Background(), sessionID, req)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Validation.ErrorRows)
	assert.InDelta(t, 10.0*2+5.0*4, resp.Validation.EstimatedValue, 0.001)
}

func TestProcessImportUnknownStrategyFailsFast(t *testing.T) {
	svc, sessions, _ := newTestService()
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "Widget", "Tools", 9.99, 5},
	})

	req := importRequest("overwrite")
	_, err := svc.ProcessImport(context.Background(), sessionID, req)

	var strategyErr *domain.UnsupportedStrategyError
	require.ErrorAs(t, err, &strategyErr)
	assert.Equal(t, "overwrite", strategyErr.Strategy)

	session, err := sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionUploading, session.Status, "rejection must precede any state change")
}

func TestProcessImportBackupFailureRollsBack(t *testing.T) {
	existing := domain.Product{
		ID: "p-1", SupplierID: "sup-1", SKU: "W-100",
		Name: "Old Widget", Category: "Tools", CostPrice: 5.0, StockQty: 10,
	}
	svc, sessions, catalog := newTestService(existing)
	catalog.FailBackup = errors.New("disk full")

	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "New Widget", "Tools", 9.99, 7},
		{"W-101", "Gadget", "Tools", 4.50, 12},
	})

	_, err := svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategyUpdate))
	require.Error(t, err)

	session, getErr := sessions.Get(context.Background(), sessionID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.SessionFailed, session.Status)
	assert.True(t, sessions.HasUpload(sessionID), "temp data must be retained on failure")

	// Zero catalog mutations persisted, including the conflict-free row.
	assert.Equal(t, 1, catalog.ProductCount())
	p, _ := catalog.Product("sup-1", "W-100")
	assert.Equal(t, "Old Widget", p.Name)
}

func TestProcessImportToleratesRowFailures(t *testing.T) {
	svc, _, catalog := newTestService()
	catalog.FailUpsert = map[string]error{"W-101": errors.New("constraint violated")}

	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "Widget", "Tools", 9.99, 5},
		{"W-101", "Gadget", "Tools", 4.50, 12},
		{"W-102", "Sprocket", "Tools", 2.00, 3},
	})

	resp, err := svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategySkip))
	require.NoError(t, err, "one bad row must not abort the run")

	assert.Equal(t, 2, resp.Import.Created)
	assert.Equal(t, 1, resp.Import.Skipped)
	require.Len(t, resp.Import.Errors, 1)
	assert.Equal(t, domain.RowErrorUpsert, resp.Import.Errors[0].Kind)
	assert.Equal(t, 2, resp.Import.Errors[0].Row)
	assert.Equal(t, domain.SessionCompleted, resp.Session.Status)

	// The failed statement must not poison the transaction: the rows around
	// it commit, the failed one leaves no trace.
	_, ok := catalog.Product("sup-1", "W-100")
	assert.True(t, ok)
	_, ok = catalog.Product("sup-1", "W-102")
	assert.True(t, ok)
	_, ok = catalog.Product("sup-1", "W-101")
	assert.False(t, ok)
}

func TestProcessImportRerunAfterCompletion(t *testing.T) {
	svc, _, catalog := newTestService()
	rows := [][]any{{"W-100", "Widget", "Tools", 9.99, 5}}

	first := uploadFixture(t, svc, rows)
	resp, err := svc.ProcessImport(context.Background(), first, importRequest(domain.StrategySkip))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Import.Created)

	// Same file uploaded again: skip resolves every row against the catalog
	// the first run produced.
	second := uploadFixture(t, svc, rows)
	resp, err = svc.ProcessImport(context.Background(), second, importRequest(domain.StrategySkip))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Import.Created)
	assert.Equal(t, 1, resp.Import.Skipped)
	assert.Equal(t, 1, catalog.ProductCount())
}

func TestProcessImportCompletedSessionRejectsReprocessing(t *testing.T) {
	svc, _, _ := newTestService()
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "Widget", "Tools", 9.99, 5},
	})

	_, err := svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategySkip))
	require.NoError(t, err)

	_, err = svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategySkip))
	require.Error(t, err, "a completed session has no retained upload data")
}

func TestProcessImportSerializesPerSession(t *testing.T) {
	svc, _, catalog := newTestService()
	sessionID := uploadFixture(t, svc, [][]any{
		{"W-100", "Widget", "Tools", 9.99, 5},
	})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.ProcessImport(context.Background(), sessionID, importRequest(domain.StrategySkip))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent submission may win")
	assert.Equal(t, 1, catalog.ProductCount())
	p, _ := catalog.Product("sup-1", "W-100")
	assert.Equal(t, 5, p.StockQty)
}

func TestProcessImportMissingSession(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ProcessImport(context.Background(), "5c0d3a7e-9a51-4a7e-9a51-000000000000", importRequest(domain.StrategySkip))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
