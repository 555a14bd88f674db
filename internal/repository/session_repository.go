package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/table"
)

// PostgresSessionStore implements SessionStore using PostgreSQL.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionStore creates a new PostgresSessionStore.
func NewPostgresSessionStore(pool *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Create inserts a new upload session.
func (r *PostgresSessionStore) Create(ctx context.Context, s *domain.UploadSession) error {
	mapping, validation, importRes, err := marshalSessionBlobs(s)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO upload_sessions (id, supplier_id, filename, status, file_size,
			row_count, column_count, valid_rows, warning_rows, error_rows, skipped_rows,
			mapping, validation, import_result, backup_id, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, s.ID, s.SupplierID, s.Filename, s.Status, s.FileSize,
		s.RowCount, s.ColumnCount, s.ValidRows, s.WarningRows, s.ErrorRows, s.SkippedRows,
		mapping, validation, importRes, s.BackupID, s.CreatedAt, s.UpdatedAt, s.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert upload session: %w", err)
	}
	return nil
}

// Get retrieves a session by id. A missing session maps to
// domain.ErrSessionNotFound.
func (r *PostgresSessionStore) Get(ctx context.Context, id string) (*domain.UploadSession, error) {
	var s domain.UploadSession
	var mapping, validation, importRes []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, supplier_id, filename, status, file_size,
			row_count, column_count, valid_rows, warning_rows, error_rows, skipped_rows,
			mapping, validation, import_result, backup_id, created_at, updated_at, completed_at
		FROM upload_sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.SupplierID, &s.Filename, &s.Status, &s.FileSize,
		&s.RowCount, &s.ColumnCount, &s.ValidRows, &s.WarningRows, &s.ErrorRows, &s.SkippedRows,
		&mapping, &validation, &importRes, &s.BackupID, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload session: %w", err)
	}

	if err := unmarshalSessionBlobs(&s, mapping, validation, importRes); err != nil {
		return nil, err
	}
	return &s, nil
}

// Update writes back every mutable session field.
func (r *PostgresSessionStore) Update(ctx context.Context, s *domain.UploadSession) error {
	mapping, validation, importRes, err := marshalSessionBlobs(s)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE upload_sessions
		SET status = $2, file_size = $3, row_count = $4, column_count = $5,
			valid_rows = $6, warning_rows = $7, error_rows = $8, skipped_rows = $9,
			mapping = $10, validation = $11, import_result = $12, backup_id = $13,
			updated_at = $14, completed_at = $15
		WHERE id = $1
	`, s.ID, s.Status, s.FileSize, s.RowCount, s.ColumnCount,
		s.ValidRows, s.WarningRows, s.ErrorRows, s.SkippedRows,
		mapping, validation, importRes, s.BackupID, s.UpdatedAt, s.CompletedAt)
	if err != nil {
		return fmt.Errorf("update upload session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// SaveUpload stores the normalized table payload for a session.
func (r *PostgresSessionStore) SaveUpload(ctx context.Context, sessionID string, tbl *table.Table) error {
	payload, err := json.Marshal(tbl)
	if err != nil {
		return fmt.Errorf("marshal upload payload: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO upload_payloads (session_id, payload, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id) DO UPDATE SET payload = EXCLUDED.payload
	`, sessionID, payload)
	if err != nil {
		return fmt.Errorf("save upload payload: %w", err)
	}
	return nil
}

// GetUpload loads the retained table payload. Missing payloads map to
// domain.ErrNoUploadData.
func (r *PostgresSessionStore) GetUpload(ctx context.Context, sessionID string) (*table.Table, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `
		SELECT payload FROM upload_payloads WHERE session_id = $1
	`, sessionID).Scan(&payload)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoUploadData
	}
	if err != nil {
		return nil, fmt.Errorf("get upload payload: %w", err)
	}

	var tbl table.Table
	if err := json.Unmarshal(payload, &tbl); err != nil {
		return nil, fmt.Errorf("unmarshal upload payload: %w", err)
	}
	return &tbl, nil
}

// DeleteUpload purges the temporary payload for a session.
func (r *PostgresSessionStore) DeleteUpload(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM upload_payloads WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete upload payload: %w", err)
	}
	return nil
}

func marshalSessionBlobs(s *domain.UploadSession) (mapping, validation, importRes []byte, err error) {
	if s.Mapping != nil {
		if mapping, err = json.Marshal(s.Mapping); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal mapping: %w", err)
		}
	}
	if s.Validation != nil {
		if validation, err = json.Marshal(s.Validation); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal validation result: %w", err)
		}
	}
	if s.Import != nil {
		if importRes, err = json.Marshal(s.Import); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal import result: %w", err)
		}
	}
	return mapping, validation, importRes, nil
}

func unmarshalSessionBlobs(s *domain.UploadSession, mapping, validation, importRes []byte) error {
	if mapping != nil {
		if err := json.Unmarshal(mapping, &s.Mapping); err != nil {
			return fmt.Errorf("unmarshal mapping: %w", err)
		}
	}
	if validation != nil {
		if err := json.Unmarshal(validation, &s.Validation); err != nil {
			return fmt.Errorf("unmarshal validation result: %w", err)
		}
	}
	if importRes != nil {
		if err := json.Unmarshal(importRes, &s.Import); err != nil {
			return fmt.Errorf("unmarshal import result: %w", err)
		}
	}
	return nil
}
