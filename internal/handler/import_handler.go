package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/logger"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/middleware"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/service"
)

// ImportHandler handles import-related HTTP requests.
type ImportHandler struct {
	importService service.ImportServiceInterface
	maxUploadRows int
	backupDefault bool
}

// NewImportHandler creates a new ImportHandler. maxUploadRows caps the number
// of data rows accepted in a single upload; backupDefault is applied when a
// process request leaves the backup switch unset.
func NewImportHandler(importService service.ImportServiceInterface, maxUploadRows int, backupDefault bool) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		maxUploadRows: maxUploadRows,
		backupDefault: backupDefault,
	}
}

// UploadRequest is the JSON body for POST /api/v1/imports/upload. Rows carry
// already-decoded cell values; binary spreadsheet parsing happens client-side.
type UploadRequest struct {
	SupplierID string   `json:"supplier_id"`
	Filename   string   `json:"filename"`
	FileSize   int64    `json:"file_size"`
	Headers    []string `json:"headers"`
	Rows       [][]any  `json:"rows"`
}

// Validate validates the upload request body.
func (r UploadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SupplierID, validation.Required),
		validation.Field(&r.Filename, validation.Required),
		validation.Field(&r.Headers, validation.Required, validation.Length(1, 0)),
		validation.Field(&r.Rows, validation.Required),
	)
}

// ProcessRequest is the JSON body for POST /api/v1/imports/:id/process.
// Mapping keys are canonical field names; values are source column headers.
type ProcessRequest struct {
	Mapping            map[string]string    `json:"mapping"`
	ConflictResolution ConflictResolutionIn `json:"conflict_resolution"`
	Options            OptionsIn            `json:"options"`
}

// ConflictResolutionIn is the wire form of a conflict-handling contract.
type ConflictResolutionIn struct {
	Strategy       string   `json:"strategy"`
	UpdateFields   []string `json:"update_fields,omitempty"`
	PreserveFields []string `json:"preserve_fields,omitempty"`
}

// OptionsIn is the wire form of the per-run behavior switches. Backup is a
// pointer so a request that omits it picks up the server-side default.
type OptionsIn struct {
	SkipEmptyRows bool  `json:"skip_empty_rows"`
	ValidateSKU   bool  `json:"validate_sku"`
	NormalizeText bool  `json:"normalize_text"`
	Backup        *bool `json:"backup"`
	DryRun        bool  `json:"dry_run"`
}

// Validate validates the process request body.
func (r ProcessRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ConflictResolution, validation.Required),
	)
}

// Validate validates the conflict resolution block. Strategy membership in
// the closed set is checked downstream so the error carries the exact value.
func (r ConflictResolutionIn) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Strategy, validation.Required),
	)
}

// Upload handles POST /api/v1/imports/upload
func (h *ImportHandler) Upload(c *gin.Context) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Rows) > h.maxUploadRows {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds the maximum row count"})
		return
	}

	resp, err := h.importService.ProcessUpload(c.Request.Context(), service.UploadRequest{
		SupplierID: req.SupplierID,
		Filename:   req.Filename,
		FileSize:   req.FileSize,
		Headers:    req.Headers,
		Rows:       req.Rows,
	})
	if err != nil {
		requestID := middleware.GetRequestID(c)
		logger.WithRequestID(requestID).Error("upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process upload"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Process handles POST /api/v1/imports/:id/process
func (h *ImportHandler) Process(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a valid UUID"})
		return
	}

	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mapping, err := toFieldMapping(req.Mapping)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updateFields, err := toFields(req.ConflictResolution.UpdateFields)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	preserveFields, err := toFields(req.ConflictResolution.PreserveFields)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	backup := h.backupDefault
	if req.Options.Backup != nil {
		backup = *req.Options.Backup
	}

	resp, err := h.importService.ProcessImport(c.Request.Context(), id, service.ImportRequest{
		Mapping: mapping,
		Resolution: domain.ConflictResolution{
			Strategy:       domain.ConflictStrategy(req.ConflictResolution.Strategy),
			UpdateFields:   updateFields,
			PreserveFields: preserveFields,
		},
		Options: service.ImportOptions{
			SkipEmptyRows: req.Options.SkipEmptyRows,
			ValidateSKU:   req.Options.ValidateSKU,
			NormalizeText: req.Options.NormalizeText,
			Backup:        backup,
			DryRun:        req.Options.DryRun,
		},
	})
	if err != nil {
		h.writeProcessError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSession handles GET /api/v1/imports/:id
func (h *ImportHandler) GetSession(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a valid UUID"})
		return
	}

	session, err := h.importService.GetSession(c.Request.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		requestID := middleware.GetRequestID(c)
		logger.WithRequestID(requestID).Error("get session failed", "session_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *ImportHandler) writeProcessError(c *gin.Context, id string, err error) {
	var strategyErr *domain.UnsupportedStrategyError
	switch {
	case errors.As(err, &strategyErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": strategyErr.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, domain.ErrNoUploadData):
		c.JSON(http.StatusNotFound, gin.H{"error": "no upload data for session"})
	case errors.Is(err, domain.ErrSessionState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "session is not in a state that allows processing"})
	default:
		requestID := middleware.GetRequestID(c)
		logger.WithRequestID(requestID).Error("process failed", "session_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process import"})
	}
}

func toFieldMapping(in map[string]string) (domain.FieldMapping, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(domain.FieldMapping, len(in))
	for name, header := range in {
		if !domain.IsValidField(name) {
			return nil, &unknownFieldError{Field: name}
		}
		out[domain.Field(name)] = header
	}
	return out, nil
}

func toFields(in []string) ([]domain.Field, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]domain.Field, 0, len(in))
	for _, name := range in {
		if !domain.IsValidField(name) {
			return nil, &unknownFieldError{Field: name}
		}
		out = append(out, domain.Field(name))
	}
	return out, nil
}

type unknownFieldError struct {
	Field string
}

func (e *unknownFieldError) Error() string {
	return "unknown field " + e.Field
}
