package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/repository"
)

// mutationError tags a row mutation failure with the statement that caused
// it, so the row error report can say which write failed.
type mutationError struct {
	kind domain.RowErrorKind
	err  error
}

func (e *mutationError) Error() string { return e.err.Error() }

func rowErrorOf(rowNumber int, err error) domain.RowError {
	kind := domain.RowErrorUpsert
	if m, ok := err.(*mutationError); ok {
		kind = m.kind
	}
	return domain.RowError{Row: rowNumber, Kind: kind, Message: err.Error()}
}

// executeImport applies resolved rows to the catalog in original order. Each
// row's mutations run in their own RowScope so a failed statement aborts only
// that row, not the enclosing transaction: the error is recorded, the row
// counted as skipped, and the loop continues.
func (s *ImportService) executeImport(ctx context.Context, tx repository.CatalogTx, session *domain.UploadSession, rows []*domain.ProcessedRow, existingCategories, existingBrands map[string]struct{}) (*domain.ImportResult, error) {
	result := &domain.ImportResult{}
	newCategories := make(map[string]struct{})
	newBrands := make(map[string]struct{})

	for _, row := range rows {
		if row.Status == domain.RowStatusError {
			result.Skipped++
			continue
		}

		switch row.Action {
		case domain.ActionCreate:
			var value float64
			err := tx.RowScope(ctx, func(rtx repository.CatalogTx) error {
				v, err := s.createRow(ctx, rtx, session, row)
				value = v
				return err
			})
			if err != nil {
				result.Errors = append(result.Errors, rowErrorOf(row.RowNumber, err))
				result.Skipped++
				continue
			}
			result.Created++
			result.TotalValue += value
			trackNew(row, existingCategories, newCategories, existingBrands, newBrands)

		case domain.ActionUpdate:
			if row.Existing == nil {
				result.Skipped++
				continue
			}
			var value float64
			err := tx.RowScope(ctx, func(rtx repository.CatalogTx) error {
				v, err := s.updateRow(ctx, rtx, session, row)
				value = v
				return err
			})
			if err != nil {
				result.Errors = append(result.Errors, rowErrorOf(row.RowNumber, err))
				result.Skipped++
				continue
			}
			result.Updated++
			result.TotalValue += value

		default:
			// skip, or no usable natural key
			result.Skipped++
		}
	}

	result.NewCategories = sortedKeys(newCategories)
	result.NewBrands = sortedKeys(newBrands)
	if result.Created+result.Updated > 0 {
		result.SuppliersAffected = 1
	}
	return result, nil
}

// createRow upserts a new catalog entry and applies its initial stock level.
// Returns the value moved (cost times quantity) when a quantity was mapped.
func (s *ImportService) createRow(ctx context.Context, tx repository.CatalogTx, session *domain.UploadSession, row *domain.ProcessedRow) (float64, error) {
	now := s.now()
	product := domain.Product{
		ID:         uuid.New().String(),
		SupplierID: session.SupplierID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for field, value := range row.Fields {
		product.ApplyField(field, value)
	}

	if err := tx.UpsertProduct(ctx, &product); err != nil {
		return 0, &mutationError{kind: domain.RowErrorUpsert, err: err}
	}

	qty, ok := row.IntField(domain.FieldStockQty)
	if !ok {
		return 0, nil
	}
	cost, _ := row.FloatField(domain.FieldCostPrice)
	if err := tx.SetQuantity(ctx, session.SupplierID, product.SKU, qty, cost, auditReason(session.ID, row.RowNumber)); err != nil {
		return 0, &mutationError{kind: domain.RowErrorQuantity, err: err}
	}
	return cost * float64(qty), nil
}

// updateRow writes the resolver's field subset over the matched record and
// sets the stock level when the quantity field is among them.
func (s *ImportService) updateRow(ctx context.Context, tx repository.CatalogTx, session *domain.UploadSession, row *domain.ProcessedRow) (float64, error) {
	product := *row.Existing
	quantityResolved := false
	for _, field := range row.ResolvedFields {
		if field == domain.FieldStockQty {
			quantityResolved = true
		}
		product.ApplyField(field, row.Fields[field])
	}
	product.UpdatedAt = s.now()

	if err := tx.UpsertProduct(ctx, &product); err != nil {
		return 0, &mutationError{kind: domain.RowErrorUpsert, err: err}
	}

	if !quantityResolved {
		return 0, nil
	}
	qty, _ := row.IntField(domain.FieldStockQty)
	cost := product.CostPrice
	if rowCost, ok := row.FloatField(domain.FieldCostPrice); ok {
		cost = rowCost
	}
	if err := tx.SetQuantity(ctx, session.SupplierID, product.SKU, qty, cost, auditReason(session.ID, row.RowNumber)); err != nil {
		return 0, &mutationError{kind: domain.RowErrorQuantity, err: err}
	}
	return cost * float64(qty), nil
}

func trackNew(row *domain.ProcessedRow, existingCategories, newCategories, existingBrands, newBrands map[string]struct{}) {
	if c := row.StringField(domain.FieldCategory); c != "" {
		if _, known := existingCategories[c]; !known {
			newCategories[c] = struct{}{}
		}
	}
	if b := row.StringField(domain.FieldBrand); b != "" {
		if _, known := existingBrands[b]; !known {
			newBrands[b] = struct{}{}
		}
	}
}

func auditReason(sessionID string, rowNumber int) string {
	return fmt.Sprintf("bulk import session %s row %d", sessionID, rowNumber)
}
