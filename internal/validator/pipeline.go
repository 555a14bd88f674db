// Package validator transforms mapped cells into typed field values and
// accumulates per-cell validation issues. Issues drive row status; they are
// never raised as errors.
package validator

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/table"
)

var (
	skuCharset   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	skuSanitize  = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	moneyStrip   = regexp.MustCompile(`[^0-9.\-]`)
	requiredRule = validation.Required.Error("required field is empty")
)

// Options controls optional pipeline behavior.
type Options struct {
	SkipEmptyRows bool
	ValidateSKU   bool
	NormalizeText bool
}

// DefaultOptions matches the import form defaults.
func DefaultOptions() Options {
	return Options{SkipEmptyRows: true, ValidateSKU: true, NormalizeText: false}
}

// Aggregate carries the pass-wide statistics the pipeline accumulates.
// Estimated value and the category/brand sets include every row regardless of
// its final status.
type Aggregate struct {
	EstimatedValue float64
	Categories     map[string]struct{}
	Brands         map[string]struct{}
}

// Pipeline validates and transforms one upload against a field mapping.
type Pipeline struct {
	opts Options
}

// New creates a pipeline with the given options.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Run makes a single pass over the table's data rows. Wholly-empty rows are
// dropped when SkipEmptyRows is set. Row numbers are 1-based over the data
// rows of the source table.
func (p *Pipeline) Run(tbl *table.Table, mapping domain.FieldMapping) ([]*domain.ProcessedRow, Aggregate) {
	agg := Aggregate{
		Categories: make(map[string]struct{}),
		Brands:     make(map[string]struct{}),
	}

	// Resolve mapped headers to column indexes once, not per row.
	colIdx := make(map[domain.Field]int, len(mapping))
	for field, header := range mapping {
		if idx := tbl.HeaderIndex(header); idx >= 0 {
			colIdx[field] = idx
		}
	}

	rows := make([]*domain.ProcessedRow, 0, tbl.RowCount())
	for i := 0; i < tbl.RowCount(); i++ {
		if p.opts.SkipEmptyRows && tbl.IsEmptyRow(i) {
			continue
		}

		row := &domain.ProcessedRow{
			ID:        uuid.New().String(),
			RowNumber: i + 1,
			Original:  make(map[string]string, tbl.ColumnCount()),
			Fields:    make(map[domain.Field]any, len(colIdx)),
			Status:    domain.RowStatusValid,
		}
		for j, h := range tbl.Headers {
			row.Original[h] = tbl.Rows[i][j].String()
		}

		for _, field := range domain.CanonicalFields {
			idx, mapped := colIdx[field]
			if !mapped {
				continue
			}
			p.transform(row, field, tbl.Rows[i][idx])
		}

		p.accumulate(&agg, row)
		rows = append(rows, row)
	}

	return rows, agg
}

// transform applies the field-specific coercion for one cell and records the
// result (possibly nil) on the row.
func (p *Pipeline) transform(row *domain.ProcessedRow, field domain.Field, cell table.Cell) {
	raw := cell.String()

	if domain.IsRequiredField(field) {
		if err := validation.Validate(raw, requiredRule); err != nil {
			row.Fields[field] = nil
			row.AddIssue(domain.ValidationIssue{
				Row:      row.RowNumber,
				Field:    field,
				Severity: domain.SeverityError,
				Message:  err.Error(),
			})
			return
		}
	} else if raw == "" {
		row.Fields[field] = nil
		return
	}

	switch field {
	case domain.FieldSKU:
		p.transformSKU(row, raw)
	case domain.FieldCostPrice, domain.FieldSalePrice:
		p.transformMoney(row, field, raw)
	case domain.FieldStockQty, domain.FieldReorderPoint, domain.FieldMaxStock:
		p.transformQuantity(row, field, raw)
	case domain.FieldWeight:
		if w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			row.Fields[domain.FieldWeight] = w
		} else {
			row.Fields[domain.FieldWeight] = nil
		}
	default:
		row.Fields[field] = p.transformText(raw)
	}
}

// transformSKU normalizes the natural key. A malformed SKU is warned about
// with a sanitized suggestion but never rejected outright.
func (p *Pipeline) transformSKU(row *domain.ProcessedRow, raw string) {
	sku := strings.ToUpper(strings.TrimSpace(raw))
	row.Fields[domain.FieldSKU] = sku

	if !p.opts.ValidateSKU {
		return
	}
	if err := validation.Validate(sku, validation.Match(skuCharset).Error("sku contains characters outside A-Z, 0-9, _ and -")); err != nil {
		row.AddIssue(domain.ValidationIssue{
			Row:        row.RowNumber,
			Field:      domain.FieldSKU,
			Value:      raw,
			Severity:   domain.SeverityWarning,
			Message:    err.Error(),
			Suggestion: skuSanitize.ReplaceAllString(sku, "-"),
		})
	}
}

// transformMoney strips everything but digits, dot and minus before parsing,
// so "R 1,234.56" and "1234.56" coerce to the same value. Negative or
// unparsable amounts are errors.
func (p *Pipeline) transformMoney(row *domain.ProcessedRow, field domain.Field, raw string) {
	cleaned := moneyStrip.ReplaceAllString(raw, "")
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(amount) || amount < 0 {
		row.Fields[field] = nil
		row.AddIssue(domain.ValidationIssue{
			Row:      row.RowNumber,
			Field:    field,
			Value:    raw,
			Severity: domain.SeverityError,
			Message:  "invalid monetary amount",
		})
		return
	}
	row.Fields[field] = amount
}

// transformQuantity coerces integer stock figures. Bad values degrade to zero
// with an auto-fixable warning rather than blocking the row.
func (p *Pipeline) transformQuantity(row *domain.ProcessedRow, field domain.Field, raw string) {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty < 0 {
		row.Fields[field] = 0
		row.AddIssue(domain.ValidationIssue{
			Row:      row.RowNumber,
			Field:    field,
			Value:    raw,
			Severity: domain.SeverityWarning,
			Message:  "invalid quantity, coerced to 0",
			AutoFix:  true,
		})
		return
	}
	row.Fields[field] = qty
}

func (p *Pipeline) transformText(raw string) string {
	s := strings.TrimSpace(raw)
	if p.opts.NormalizeText {
		s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return s
}

// accumulate folds one row into the pass-wide statistics.
func (p *Pipeline) accumulate(agg *Aggregate, row *domain.ProcessedRow) {
	if cost, ok := row.FloatField(domain.FieldCostPrice); ok {
		if qty, ok := row.IntField(domain.FieldStockQty); ok {
			agg.EstimatedValue += cost * float64(qty)
		}
	}
	if c := row.StringField(domain.FieldCategory); c != "" {
		agg.Categories[c] = struct{}{}
	}
	if b := row.StringField(domain.FieldBrand); b != "" {
		agg.Brands[b] = struct{}{}
	}
}
