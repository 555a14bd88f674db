package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/table"
)

var testMapping = domain.FieldMapping{
	domain.FieldSKU:       "Item Code",
	domain.FieldName:      "Product Desc",
	domain.FieldCategory:  "Category",
	domain.FieldBrand:     "Brand",
	domain.FieldCostPrice: "Cost",
	domain.FieldStockQty:  "On Hand",
}

func makeTable(rows ...[]any) *table.Table {
	return table.FromRaw(
		[]string{"Item Code", "Product Desc", "Category", "Brand", "Cost", "On Hand"},
		rows,
	)
}

func TestRunValidRow(t *testing.T) {
	tbl := makeTable([]any{"abc-1", "Widget", "Hardware", "Acme", "19.99", "50"})
	rows, agg := New(DefaultOptions()).Run(tbl, testMapping)

	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, domain.RowStatusValid, row.Status)
	assert.Equal(t, 1, row.RowNumber)
	assert.Equal(t, "ABC-1", row.StringField(domain.FieldSKU))
	assert.Equal(t, "Widget", row.StringField(domain.FieldName))

	cost, ok := row.FloatField(domain.FieldCostPrice)
	require.True(t, ok)
	assert.InDelta(t, 19.99, cost, 1e-9)

	qty, ok := row.IntField(domain.FieldStockQty)
	require.True(t, ok)
	assert.Equal(t, 50, qty)

	assert.InDelta(t, 999.5, agg.EstimatedValue, 1e-6)
	assert.Contains(t, agg.Categories, "Hardware")
	assert.Contains(t, agg.Brands, "Acme")

	assert.Equal(t, "abc-1", row.Original["Item Code"])
}

func TestMoneyNormalization(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"R 1,234.56", 1234.56},
		{"1234.56", 1234.56},
		{"$ 99", 99},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tbl := makeTable([]any{"SKU-1", "Widget", "Hardware", "", tt.raw, "1"})
			rows, _ := New(DefaultOptions()).Run(tbl, testMapping)

			require.Len(t, rows, 1)
			cost, ok := rows[0].FloatField(domain.FieldCostPrice)
			require.True(t, ok)
			assert.InDelta(t, tt.want, cost, 1e-9)
			assert.Equal(t, domain.RowStatusValid, rows[0].Status)
		})
	}
}

func TestNegativeCostIsError(t *testing.T) {
	tbl := makeTable([]any{"SKU-1", "Widget", "Hardware", "", "-5", "10"})
	rows, _ := New(DefaultOptions()).Run(tbl, testMapping)

	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, domain.RowStatusError, row.Status)
	assert.Nil(t, row.Fields[domain.FieldCostPrice])

	found := false
	for _, is := range row.Issues {
		if is.Field == domain.FieldCostPrice && is.Severity == domain.SeverityError {
			found = true
		}
	}
	assert.True(t, found, "expected error issue on cost_price")
}

func TestRequiredEmptyIsError(t *testing.T) {
	tbl := makeTable([]any{"", "Widget", "Hardware", "", "10", "5"})
	rows, _ := New(DefaultOptions()).Run(tbl, testMapping)

	require.Len(t, rows, 1)
	assert.Equal(t, domain.RowStatusError, rows[0].Status)
	assert.Nil(t, rows[0].Fields[domain.FieldSKU])
}

func TestMalformedSKUWarnsButKeepsValue(t *testing.T) {
	tbl := makeTable([]any{"ab c#1", "Widget", "Hardware", "", "10", "5"})
	rows, _ := New(DefaultOptions()).Run(tbl, testMapping)

	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, domain.RowStatusWarning, row.Status)
	assert.Equal(t, "AB C#1", row.StringField(domain.FieldSKU))

	require.Len(t, row.Issues, 1)
	assert.Equal(t, domain.SeverityWarning, row.Issues[0].Severity)
	assert.Equal(t, "AB-C-1", row.Issues[0].Suggestion)
}

func TestSKUValidationDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.ValidateSKU = false
	tbl := makeTable([]any{"ab c#1", "Widget", "Hardware", "", "10", "5"})
	rows, _ := New(opts).Run(tbl, testMapping)

	require.Len(t, rows, 1)
	assert.Equal(t, domain.RowStatusValid, rows[0].Status)
}

func TestBadQuantityAutoFixesToZero(t *testing.T) {
	for _, raw := range []string{"lots", "-3"} {
		t.Run(raw, func(t *testing.T) {
			tbl := makeTable([]any{"SKU-1", "Widget", "Hardware", "", "10", raw})
			rows, _ := New(DefaultOptions()).Run(tbl, testMapping)

			require.Len(t, rows, 1)
			row := rows[0]

			qty, ok := row.IntField(domain.FieldStockQty)
			require.True(t, ok)
			assert.Zero(t, qty)
			assert.Equal(t, domain.RowStatusWarning, row.Status)
			require.Len(t, row.Issues, 1)
			assert.True(t, row.Issues[0].AutoFix)
		})
	}
}

func TestWeightInvalidIsSilentlyNil(t *testing.T) {
	m := domain.FieldMapping{domain.FieldWeight: "Item Code"}
	tbl := makeTable([]any{"heavy", "", "", "", "", ""}) // "heavy" in the weight-mapped column
	rows, _ := New(Options{}).Run(tbl, m)

	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Fields[domain.FieldWeight])
	assert.Empty(t, rows[0].Issues)
}

func TestNormalizeText(t *testing.T) {
	opts := DefaultOptions()
	opts.NormalizeText = true
	tbl := makeTable([]any{"SKU-1", "Widget", "Hardware", "  ACME   Corp  ", "10", "5"})
	rows, _ := New(opts).Run(tbl, testMapping)

	require.Len(t, rows, 1)
	assert.Equal(t, "acme corp", rows[0].StringField(domain.FieldBrand))
}

func TestSkipEmptyRows(t *testing.T) {
	empty := []any{"", "", "", "", "", ""}
	data := []any{"SKU-1", "Widget", "Hardware", "", "10", "5"}

	rows, _ := New(DefaultOptions()).Run(makeTable(empty, data), testMapping)
	require.Len(t, rows, 1)
	// Row numbering still reflects the source position.
	assert.Equal(t, 2, rows[0].RowNumber)

	opts := DefaultOptions()
	opts.SkipEmptyRows = false
	rows, _ = New(opts).Run(makeTable(empty, data), testMapping)
	assert.Len(t, rows, 2)
}

func TestAggregateIncludesErrorRows(t *testing.T) {
	// The error row still contributes its category; its unparsable cost
	// cannot contribute value, but its quantity-bearing sibling fields do
	// not gate on row status.
	bad := []any{"SKU-1", "Widget", "Gadgets", "", "-5", "10"}
	good := []any{"SKU-2", "Widget", "Hardware", "", "2.50", "4"}
	rows, agg := New(DefaultOptions()).Run(makeTable(bad, good), testMapping)

	require.Len(t, rows, 2)
	assert.Equal(t, domain.RowStatusError, rows[0].Status)
	assert.Contains(t, agg.Categories, "Gadgets")
	assert.InDelta(t, 10.0, agg.EstimatedValue, 1e-9)
}
