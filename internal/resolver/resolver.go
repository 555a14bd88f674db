// Package resolver matches processed rows against the existing catalog by
// natural key and decides the action for each row. Strategies form a closed
// set; anything else fails fast instead of silently skipping.
package resolver

import (
	"fmt"
	"sort"
	"time"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
)

// Result summarizes one resolution pass.
type Result struct {
	DuplicatesFound   int
	ConflictsResolved int
}

// Resolver resolves conflicts for one import run. The existing catalog is
// supplied pre-loaded as a SKU-keyed map so the row loop never queries the
// store.
type Resolver struct {
	resolution domain.ConflictResolution
	existing   map[string]domain.Product
	taken      map[string]struct{}
	now        func() time.Time
}

// New builds a resolver. It returns an UnsupportedStrategyError when the
// resolution carries a strategy outside the closed set.
func New(resolution domain.ConflictResolution, existing map[string]domain.Product) (*Resolver, error) {
	switch resolution.Strategy {
	case domain.StrategySkip, domain.StrategyUpdate, domain.StrategyMerge, domain.StrategyCreateVariant:
	default:
		return nil, &domain.UnsupportedStrategyError{Strategy: string(resolution.Strategy)}
	}

	taken := make(map[string]struct{}, len(existing))
	for sku := range existing {
		taken[sku] = struct{}{}
	}
	return &Resolver{
		resolution: resolution,
		existing:   existing,
		taken:      taken,
		now:        time.Now,
	}, nil
}

// Run resolves every row in order and returns the pass summary. Rows without
// a usable SKU keep their zero action and are left for the executor to count
// as skipped.
func (r *Resolver) Run(rows []*domain.ProcessedRow) Result {
	var res Result
	for _, row := range rows {
		sku := row.StringField(domain.FieldSKU)
		if sku == "" {
			continue
		}

		existing, found := r.existing[sku]
		if !found {
			row.Action = domain.ActionCreate
			r.taken[sku] = struct{}{}
			continue
		}

		res.DuplicatesFound++
		row.Existing = &existing
		r.resolve(row, sku)
		if row.Action != domain.ActionSkip {
			res.ConflictsResolved++
		}
	}
	return res
}

func (r *Resolver) resolve(row *domain.ProcessedRow, sku string) {
	switch r.resolution.Strategy {
	case domain.StrategySkip:
		row.Action = domain.ActionSkip

	case domain.StrategyUpdate:
		row.Action = domain.ActionUpdate
		row.ResolvedFields = r.updateCandidates(row, false)

	case domain.StrategyMerge:
		row.Action = domain.ActionUpdate
		row.ResolvedFields = r.updateCandidates(row, true)

	case domain.StrategyCreateVariant:
		variant := r.variantSKU(sku)
		row.Fields[domain.FieldSKU] = variant
		row.Action = domain.ActionCreate
		row.Existing = nil
		r.taken[variant] = struct{}{}
	}
}

// updateCandidates computes the fields an update may touch: every mapped
// non-nil field, narrowed by UpdateFields when given, minus PreserveFields.
// Merge additionally drops empty incoming values.
func (r *Resolver) updateCandidates(row *domain.ProcessedRow, nonEmptyOnly bool) []domain.Field {
	allow := map[domain.Field]bool{}
	for _, f := range r.resolution.UpdateFields {
		allow[f] = true
	}
	preserve := map[domain.Field]bool{}
	for _, f := range r.resolution.PreserveFields {
		preserve[f] = true
	}

	var fields []domain.Field
	for _, f := range domain.CanonicalFields {
		v, ok := row.Fields[f]
		if !ok || v == nil {
			continue
		}
		if len(r.resolution.UpdateFields) > 0 && !allow[f] {
			continue
		}
		if preserve[f] {
			continue
		}
		if nonEmptyOnly {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// variantSKU synthesizes a SKU distinct from every existing and already
// claimed key. The timestamp suffix is bumped until unique so two variants of
// the same SKU in one batch cannot collide.
func (r *Resolver) variantSKU(sku string) string {
	ts := r.now().Unix()
	for {
		candidate := fmt.Sprintf("%s-V%d", sku, ts)
		if _, clash := r.taken[candidate]; !clash {
			return candidate
		}
		ts++
	}
}
