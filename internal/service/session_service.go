package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/logger"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/mapping"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/metrics"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/repository"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/resolver"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/table"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/validator"
)

// SampleRowCount is how many preview rows the upload phase returns.
const SampleRowCount = 5

// ImportService owns the upload-to-import workflow. Sessions are independent
// and safely concurrent; a per-session lock serializes concurrent calls
// against the same session id so a double-submitted import cannot race.
type ImportService struct {
	sessions repository.SessionStore
	catalog  repository.CatalogStore

	locks sync.Map // session id -> *sync.Mutex
	now   func() time.Time
}

// NewImportService creates a new ImportService.
func NewImportService(sessions repository.SessionStore, catalog repository.CatalogStore) *ImportService {
	return &ImportService{
		sessions: sessions,
		catalog:  catalog,
		now:      time.Now,
	}
}

// ProcessUpload normalizes decoded table data, infers a field mapping and
// creates the session. Input errors reject before any session state exists.
func (s *ImportService) ProcessUpload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if req.SupplierID == "" {
		return nil, fmt.Errorf("supplier id is required")
	}
	if len(req.Headers) == 0 {
		return nil, fmt.Errorf("uploaded data has no header row")
	}

	tbl := table.FromRaw(req.Headers, req.Rows)
	suggested := mapping.Infer(tbl.Headers)
	now := s.now()

	session := &domain.UploadSession{
		ID:          uuid.New().String(),
		SupplierID:  req.SupplierID,
		Filename:    req.Filename,
		Status:      domain.SessionUploading,
		FileSize:    req.FileSize,
		RowCount:    tbl.RowCount(),
		ColumnCount: tbl.ColumnCount(),
		Mapping:     suggested.Mapping,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.sessions.SaveUpload(ctx, session.ID, tbl); err != nil {
		return nil, fmt.Errorf("retain upload data: %w", err)
	}

	metrics.SessionsTotal.WithLabelValues(string(domain.SessionUploading)).Inc()
	logger.WithSessionID(session.ID).Info("upload received",
		slog.String("supplier_id", req.SupplierID),
		slog.Int("rows", tbl.RowCount()),
		slog.Int("columns", tbl.ColumnCount()),
		slog.Float64("mapping_confidence", suggested.Overall))

	return &UploadResponse{
		SessionID:  session.ID,
		Headers:    tbl.Headers,
		SampleRows: tbl.Sample(SampleRowCount),
		Suggested:  suggested,
	}, nil
}

// GetSession retrieves a session by id.
func (s *ImportService) GetSession(ctx context.Context, id string) (*domain.UploadSession, error) {
	return s.sessions.Get(ctx, id)
}

// ProcessImport runs the validate phase and, unless DryRun is set, applies
// the accepted rows inside one catalog transaction. A dry run leaves the
// session at validating so the same session can be resubmitted for a real
// import without re-uploading.
func (s *ImportService) ProcessImport(ctx context.Context, sessionID string, req ImportRequest) (*ImportResponse, error) {
	// Strategy is checked before any session state is touched.
	if _, err := domain.ParseStrategy(string(req.Resolution.Strategy)); err != nil {
		return nil, err
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tbl, err := s.sessions.GetUpload(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanTransition(domain.SessionValidating) {
		return nil, fmt.Errorf("%w: cannot validate session in status %s", domain.ErrSessionState, session.Status)
	}

	start := s.now()
	log := logger.WithSessionID(sessionID)

	fieldMapping := req.Mapping
	if len(fieldMapping) == 0 {
		fieldMapping = session.Mapping
	}

	s.setStatus(ctx, session, domain.SessionValidating)

	rows, agg := validator.New(validator.Options{
		SkipEmptyRows: req.Options.SkipEmptyRows,
		ValidateSKU:   req.Options.ValidateSKU,
		NormalizeText: req.Options.NormalizeText,
	}).Run(tbl, fieldMapping)

	existing, err := s.preloadCatalog(ctx, session.SupplierID, rows)
	if err != nil {
		s.fail(ctx, session, log, err)
		return nil, err
	}

	res, err := resolver.New(req.Resolution, existing)
	if err != nil {
		return nil, err
	}
	resolution := res.Run(rows)

	validation := buildValidationResult(rows, agg, resolution)
	session.Mapping = fieldMapping
	session.Validation = validation
	session.ValidRows = validation.ValidRows
	session.WarningRows = validation.WarningRows
	session.ErrorRows = validation.ErrorRows
	session.SkippedRows = validation.SkippedRows

	if req.Options.DryRun {
		// Progress pinned at validating; temp data stays for the real run.
		session.UpdatedAt = s.now()
		if err := s.sessions.Update(ctx, session); err != nil {
			return nil, fmt.Errorf("update session: %w", err)
		}
		log.Info("dry run complete",
			slog.Int("total_rows", validation.TotalRows),
			slog.Int("error_rows", validation.ErrorRows),
			slog.Int("duplicates", validation.DuplicatesFound))
		return &ImportResponse{Session: session, Validation: validation}, nil
	}

	s.setStatus(ctx, session, domain.SessionImporting)

	categories, brands, err := s.catalog.ExistingValues(ctx, session.SupplierID)
	if err != nil {
		s.fail(ctx, session, log, err)
		return nil, fmt.Errorf("preload existing values: %w", err)
	}

	var result *domain.ImportResult
	txErr := s.catalog.InTx(ctx, func(tx repository.CatalogTx) error {
		// Backup must be durable in the same scope before any mutation.
		var backupID *string
		if req.Options.Backup {
			backup, err := s.writeBackup(ctx, tx, session, rows)
			if err != nil {
				return err
			}
			if backup != nil {
				backupID = &backup.ID
			}
		}

		res, execErr := s.executeImport(ctx, tx, session, rows, categories, brands)
		if execErr != nil {
			return execErr
		}
		res.BackupID = backupID
		result = res
		return nil
	})
	if txErr != nil {
		// Transactional failure: zero catalog mutations persisted. Temp data
		// is retained for diagnosis.
		s.fail(ctx, session, log, txErr)
		metrics.ImportsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("import transaction: %w", txErr)
	}

	completed := s.now()
	session.Import = result
	session.BackupID = result.BackupID
	session.SkippedRows = result.Skipped
	session.Status = domain.SessionCompleted
	session.CompletedAt = &completed
	session.UpdatedAt = completed
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	// Temp data is purged only on the success path.
	if err := s.sessions.DeleteUpload(ctx, sessionID); err != nil {
		log.Warn("failed to purge upload data", slog.String("error", err.Error()))
	}

	metrics.ImportsTotal.WithLabelValues("completed").Inc()
	metrics.ImportDuration.Observe(completed.Sub(start).Seconds())
	observeRowMetrics(rows)

	log.Info("import complete",
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("row_errors", len(result.Errors)),
		slog.Duration("elapsed", completed.Sub(start).Round(time.Millisecond)))

	return &ImportResponse{Session: session, Validation: validation, Import: result}, nil
}

// preloadCatalog loads every existing record matching the upload's SKUs in
// one query so the row loop never touches the store.
func (s *ImportService) preloadCatalog(ctx context.Context, supplierID string, rows []*domain.ProcessedRow) (map[string]domain.Product, error) {
	seen := make(map[string]struct{}, len(rows))
	skus := make([]string, 0, len(rows))
	for _, row := range rows {
		sku := row.StringField(domain.FieldSKU)
		if sku == "" {
			continue
		}
		if _, dup := seen[sku]; !dup {
			seen[sku] = struct{}{}
			skus = append(skus, sku)
		}
	}

	existing, err := s.catalog.LookupBySKUs(ctx, supplierID, skus)
	if err != nil {
		return nil, fmt.Errorf("preload catalog: %w", err)
	}
	return existing, nil
}

func (s *ImportService) sessionLock(id string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *ImportService) setStatus(ctx context.Context, session *domain.UploadSession, status domain.SessionStatus) {
	session.Status = status
	session.UpdatedAt = s.now()
	if err := s.sessions.Update(ctx, session); err != nil {
		logger.WithSessionID(session.ID).Warn("failed to persist session status",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
	}
	metrics.SessionsTotal.WithLabelValues(string(status)).Inc()
}

func (s *ImportService) fail(ctx context.Context, session *domain.UploadSession, log *slog.Logger, cause error) {
	log.Error("import failed", slog.String("error", cause.Error()))
	s.setStatus(ctx, session, domain.SessionFailed)
}

func buildValidationResult(rows []*domain.ProcessedRow, agg validator.Aggregate, res resolver.Result) *domain.ValidationResult {
	v := &domain.ValidationResult{
		TotalRows:         len(rows),
		DuplicatesFound:   res.DuplicatesFound,
		ConflictsResolved: res.ConflictsResolved,
		EstimatedValue:    agg.EstimatedValue,
		Categories:        sortedKeys(agg.Categories),
		Brands:            sortedKeys(agg.Brands),
		Rows:              rows,
	}

	for _, row := range rows {
		switch row.Status {
		case domain.RowStatusError:
			v.ErrorRows++
		case domain.RowStatusWarning:
			v.WarningRows++
		default:
			v.ValidRows++
		}
		if row.Action == domain.ActionSkip {
			v.SkippedRows++
		}
		v.Issues = append(v.Issues, row.Issues...)
	}

	v.Recommendations = recommendations(v)
	return v
}

func recommendations(v *domain.ValidationResult) []string {
	var out []string
	if v.ErrorRows > 0 {
		out = append(out, fmt.Sprintf("%d row(s) have errors and will be skipped; fix them and re-upload to import everything", v.ErrorRows))
	}
	if v.WarningRows > 0 {
		out = append(out, fmt.Sprintf("%d row(s) carry warnings; review suggested fixes before importing", v.WarningRows))
	}
	if v.DuplicatesFound > 0 {
		out = append(out, fmt.Sprintf("%d row(s) match existing catalog entries; the chosen conflict strategy decides their fate", v.DuplicatesFound))
	}
	return out
}

func observeRowMetrics(rows []*domain.ProcessedRow) {
	for _, row := range rows {
		metrics.ImportRowsTotal.WithLabelValues(string(row.Status)).Inc()
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
