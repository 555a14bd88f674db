// Package mapping heuristically maps arbitrary source column headers onto the
// canonical product field set.
package mapping

import (
	"regexp"
	"strings"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
)

// AutoMapThreshold is the minimum confidence for a field to be auto-mapped.
const AutoMapThreshold = 0.4

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader lower-cases a header and collapses every non-alphanumeric
// run to a single underscore.
func NormalizeHeader(h string) string {
	n := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "_")
	return strings.Trim(n, "_")
}

// fieldPatterns holds per-field matching tokens in priority order. A pattern
// matches when the normalized header contains it; confidence is the fraction
// of the header the pattern covers.
var fieldPatterns = map[domain.Field][]string{
	domain.FieldSKU:          {"sku", "item_code", "itemcode", "product_code", "part_number", "item_no", "article_no", "code"},
	domain.FieldName:         {"product_name", "item_name", "product_desc", "name", "title", "product"},
	domain.FieldDescription:  {"long_description", "description", "details", "desc"},
	domain.FieldCategory:     {"category", "product_group", "group", "type"},
	domain.FieldBrand:        {"brand", "manufacturer", "make"},
	domain.FieldSupplierSKU:  {"supplier_sku", "supplier_code", "vendor_sku", "vendor_code"},
	domain.FieldCostPrice:    {"cost_price", "unit_cost", "purchase_price", "cost"},
	domain.FieldSalePrice:    {"sale_price", "selling_price", "retail_price", "rrp", "price"},
	domain.FieldCurrency:     {"currency", "curr"},
	domain.FieldStockQty:     {"stock_qty", "stock_quantity", "quantity_on_hand", "on_hand", "qty", "quantity", "stock"},
	domain.FieldReorderPoint: {"reorder_point", "reorder_level", "min_stock", "minimum"},
	domain.FieldMaxStock:     {"max_stock", "maximum_stock", "max_qty"},
	domain.FieldUnit:         {"unit_of_measure", "uom", "unit"},
	domain.FieldWeight:       {"weight_kg", "weight"},
	domain.FieldBarcode:      {"barcode", "ean", "upc", "gtin"},
	domain.FieldLocation:     {"location", "bin", "warehouse"},
	domain.FieldTags:         {"tags", "keywords", "labels"},
	domain.FieldNotes:        {"notes", "comments", "remarks"},
}

// Suggestion is the inferencer's output: the proposed mapping, per-field
// confidence, the overall required-field confidence ratio, and any source
// headers claimed by more than one field.
type Suggestion struct {
	Mapping    domain.FieldMapping      `json:"mapping"`
	Confidence map[domain.Field]float64 `json:"confidence"`
	Overall    float64                  `json:"overall"`
	Contested  []string                 `json:"contested,omitempty"`
}

// Infer proposes a field mapping for the given source headers. Fields are
// matched independently, so one header can be claimed by several fields;
// claimed-twice headers are reported in Contested.
func Infer(headers []string) Suggestion {
	s := Suggestion{
		Mapping:    make(domain.FieldMapping),
		Confidence: make(map[domain.Field]float64),
	}

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	claims := make(map[string]int)
	for _, field := range domain.CanonicalFields {
		best := 0.0
		bestHeader := ""
		for i, norm := range normalized {
			if norm == "" {
				continue
			}
			for _, pattern := range fieldPatterns[field] {
				if !strings.Contains(norm, pattern) {
					continue
				}
				conf := float64(len(pattern)) / float64(len(norm))
				if conf > best {
					best = conf
					bestHeader = headers[i]
				}
			}
		}
		if best > AutoMapThreshold {
			s.Mapping[field] = bestHeader
			s.Confidence[field] = best
			claims[bestHeader]++
		}
	}

	for _, h := range headers {
		if claims[h] > 1 {
			s.Contested = append(s.Contested, h)
		}
	}

	mapped := 0
	for _, f := range domain.RequiredFields {
		if _, ok := s.Mapping[f]; ok {
			mapped++
		}
	}
	s.Overall = float64(mapped) / float64(len(domain.RequiredFields))

	return s
}
