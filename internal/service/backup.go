package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/logger"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/repository"
)

// writeBackup snapshots every catalog record the import is about to
// overwrite: rows that matched an existing record, will not be skipped, and
// are clean enough to be applied. Creates are never backed up. The snapshot
// is written inside the import transaction, before the first mutation;
// returns nil when nothing qualifies.
func (s *ImportService) writeBackup(ctx context.Context, tx repository.CatalogTx, session *domain.UploadSession, rows []*domain.ProcessedRow) (*domain.ImportBackup, error) {
	seen := make(map[string]struct{})
	var skus []string
	for _, row := range rows {
		if row.Action == domain.ActionSkip || row.Existing == nil || row.HasError() {
			continue
		}
		sku := row.Existing.SKU
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}
		skus = append(skus, sku)
	}
	if len(skus) == 0 {
		return nil, nil
	}
	sort.Strings(skus)

	records, err := tx.LookupBySKUs(ctx, session.SupplierID, skus)
	if err != nil {
		return nil, fmt.Errorf("fetch backup pre-images: %w", err)
	}

	backup := &domain.ImportBackup{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		SKUs:      skus,
		Snapshot:  make([]domain.Product, 0, len(records)),
		CreatedAt: s.now(),
	}
	for _, sku := range skus {
		if p, ok := records[sku]; ok {
			backup.Snapshot = append(backup.Snapshot, p)
		}
	}

	if err := tx.SaveBackup(ctx, backup); err != nil {
		return nil, fmt.Errorf("save backup: %w", err)
	}

	logger.WithSessionID(session.ID).Info("backup written",
		slog.String("backup_id", backup.ID),
		slog.Int("records", len(backup.Snapshot)))
	return backup, nil
}
