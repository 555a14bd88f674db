// Package table turns decoded header/row arrays into a uniform in-memory
// table. Cell values are classified once at normalization time rather than
// re-inferred inside every downstream transform.
package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// CellKind tags the value held by a Cell.
type CellKind string

const (
	KindEmpty  CellKind = "empty"
	KindNumber CellKind = "number"
	KindText   CellKind = "text"
	KindDate   CellKind = "date"
)

// Cell is one normalized table value.
type Cell struct {
	Kind CellKind  `json:"kind"`
	Num  float64   `json:"num,omitempty"`
	Text string    `json:"text,omitempty"`
	Time time.Time `json:"time,omitempty"`
}

// NewCell classifies a decoded scalar. Strings are trimmed; blank strings and
// nils become empty cells.
func NewCell(v any) Cell {
	switch x := v.(type) {
	case nil:
		return Cell{Kind: KindEmpty}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Cell{Kind: KindEmpty}
		}
		return Cell{Kind: KindText, Text: s}
	case bool:
		return Cell{Kind: KindText, Text: strconv.FormatBool(x)}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Cell{Kind: KindEmpty}
		}
		return Cell{Kind: KindNumber, Num: x}
	case float32:
		return NewCell(float64(x))
	case int:
		return Cell{Kind: KindNumber, Num: float64(x)}
	case int32:
		return Cell{Kind: KindNumber, Num: float64(x)}
	case int64:
		return Cell{Kind: KindNumber, Num: float64(x)}
	case time.Time:
		return Cell{Kind: KindDate, Time: x}
	default:
		return Cell{Kind: KindEmpty}
	}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == KindEmpty }

// String renders the cell for display and for the original-cell map kept on
// processed rows. Numbers drop trailing zeros.
func (c Cell) String() string {
	switch c.Kind {
	case KindNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case KindText:
		return c.Text
	case KindDate:
		return c.Time.Format("2006-01-02")
	}
	return ""
}

// Table is a uniform in-memory view of one upload: trimmed headers plus
// rectangular rows of classified cells.
type Table struct {
	Headers []string `json:"headers"`
	Rows    [][]Cell `json:"rows"`
}

// FromRaw builds a Table from decoded header and row arrays. Short rows are
// padded with empty cells; excess cells beyond the header width are dropped.
func FromRaw(headers []string, rows [][]any) *Table {
	t := &Table{
		Headers: make([]string, len(headers)),
		Rows:    make([][]Cell, 0, len(rows)),
	}
	for i, h := range headers {
		t.Headers[i] = strings.TrimSpace(h)
	}
	for _, raw := range rows {
		cells := make([]Cell, len(headers))
		for i := range cells {
			if i < len(raw) {
				cells[i] = NewCell(raw[i])
			} else {
				cells[i] = Cell{Kind: KindEmpty}
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int { return len(t.Rows) }

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.Headers) }

// IsEmptyRow reports whether every cell in a data row is empty.
func (t *Table) IsEmptyRow(i int) bool {
	for _, c := range t.Rows[i] {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// HeaderIndex returns the column index of a header, or -1.
func (t *Table) HeaderIndex(header string) int {
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Sample returns up to n rows rendered as strings for upload previews.
func (t *Table) Sample(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.Rows[i]))
		for j, c := range t.Rows[i] {
			row[j] = c.String()
		}
		out[i] = row
	}
	return out
}
