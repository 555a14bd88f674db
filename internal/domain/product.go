package domain

import "time"

// Product represents a catalog entry owned by a supplier. The (SupplierID,
// SKU) pair is the natural key used for conflict detection during import.
type Product struct {
	ID           string    `json:"id"`
	SupplierID   string    `json:"supplier_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	Brand        string    `json:"brand,omitempty"`
	SupplierSKU  string    `json:"supplier_sku,omitempty"`
	CostPrice    float64   `json:"cost_price"`
	SalePrice    float64   `json:"sale_price"`
	Currency     string    `json:"currency,omitempty"`
	StockQty     int       `json:"stock_qty"`
	ReorderPoint int       `json:"reorder_point"`
	MaxStock     int       `json:"max_stock"`
	Unit         string    `json:"unit,omitempty"`
	Weight       *float64  `json:"weight,omitempty"`
	Barcode      string    `json:"barcode,omitempty"`
	Location     string    `json:"location,omitempty"`
	Tags         string    `json:"tags,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ApplyField sets a single canonical field from a typed pipeline value.
// Unknown fields and nil values are ignored.
func (p *Product) ApplyField(f Field, v any) {
	if v == nil {
		return
	}
	switch f {
	case FieldSKU:
		if s, ok := v.(string); ok {
			p.SKU = s
		}
	case FieldName:
		if s, ok := v.(string); ok {
			p.Name = s
		}
	case FieldDescription:
		if s, ok := v.(string); ok {
			p.Description = s
		}
	case FieldCategory:
		if s, ok := v.(string); ok {
			p.Category = s
		}
	case FieldBrand:
		if s, ok := v.(string); ok {
			p.Brand = s
		}
	case FieldSupplierSKU:
		if s, ok := v.(string); ok {
			p.SupplierSKU = s
		}
	case FieldCostPrice:
		if n, ok := v.(float64); ok {
			p.CostPrice = n
		}
	case FieldSalePrice:
		if n, ok := v.(float64); ok {
			p.SalePrice = n
		}
	case FieldCurrency:
		if s, ok := v.(string); ok {
			p.Currency = s
		}
	case FieldStockQty:
		if n, ok := v.(int); ok {
			p.StockQty = n
		}
	case FieldReorderPoint:
		if n, ok := v.(int); ok {
			p.ReorderPoint = n
		}
	case FieldMaxStock:
		if n, ok := v.(int); ok {
			p.MaxStock = n
		}
	case FieldUnit:
		if s, ok := v.(string); ok {
			p.Unit = s
		}
	case FieldWeight:
		if n, ok := v.(float64); ok {
			w := n
			p.Weight = &w
		}
	case FieldBarcode:
		if s, ok := v.(string); ok {
			p.Barcode = s
		}
	case FieldLocation:
		if s, ok := v.(string); ok {
			p.Location = s
		}
	case FieldTags:
		if s, ok := v.(string); ok {
			p.Tags = s
		}
	case FieldNotes:
		if s, ok := v.(string); ok {
			p.Notes = s
		}
	}
}
