package domain

// Field is a canonical product attribute that arbitrary source columns are
// mapped onto during import.
type Field string

const (
	FieldSKU          Field = "sku"
	FieldName         Field = "name"
	FieldDescription  Field = "description"
	FieldCategory     Field = "category"
	FieldBrand        Field = "brand"
	FieldSupplierSKU  Field = "supplier_sku"
	FieldCostPrice    Field = "cost_price"
	FieldSalePrice    Field = "sale_price"
	FieldCurrency     Field = "currency"
	FieldStockQty     Field = "stock_qty"
	FieldReorderPoint Field = "reorder_point"
	FieldMaxStock     Field = "max_stock"
	FieldUnit         Field = "unit"
	FieldWeight       Field = "weight"
	FieldBarcode      Field = "barcode"
	FieldLocation     Field = "location"
	FieldTags         Field = "tags"
	FieldNotes        Field = "notes"
)

// CanonicalFields lists every mappable field in a stable order.
var CanonicalFields = []Field{
	FieldSKU, FieldName, FieldDescription, FieldCategory, FieldBrand,
	FieldSupplierSKU, FieldCostPrice, FieldSalePrice, FieldCurrency,
	FieldStockQty, FieldReorderPoint, FieldMaxStock, FieldUnit,
	FieldWeight, FieldBarcode, FieldLocation, FieldTags, FieldNotes,
}

// RequiredFields are the fields a usable catalog row cannot do without.
// Mapping confidence is computed over this set.
var RequiredFields = []Field{
	FieldSKU, FieldName, FieldCategory, FieldCostPrice, FieldStockQty,
}

// IsValidField checks whether a string names a canonical field.
func IsValidField(s string) bool {
	for _, f := range CanonicalFields {
		if string(f) == s {
			return true
		}
	}
	return false
}

// IsRequiredField checks whether a field is part of the required set.
func IsRequiredField(f Field) bool {
	for _, r := range RequiredFields {
		if r == f {
			return true
		}
	}
	return false
}

// FieldMapping maps canonical fields to source column headers.
type FieldMapping map[Field]string
