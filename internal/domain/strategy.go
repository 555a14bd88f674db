package domain

import "fmt"

// ConflictStrategy decides what happens when an incoming row's SKU already
// exists in the catalog. The set is closed: unknown strategy strings are
// rejected at the boundary instead of silently falling back to skip.
type ConflictStrategy string

const (
	StrategySkip          ConflictStrategy = "skip"
	StrategyUpdate        ConflictStrategy = "update"
	StrategyMerge         ConflictStrategy = "merge"
	StrategyCreateVariant ConflictStrategy = "create_variant"
)

// UnsupportedStrategyError reports a conflict strategy outside the closed set.
type UnsupportedStrategyError struct {
	Strategy string
}

func (e *UnsupportedStrategyError) Error() string {
	return fmt.Sprintf("unsupported conflict strategy %q", e.Strategy)
}

// ParseStrategy validates a strategy string at the boundary.
func ParseStrategy(s string) (ConflictStrategy, error) {
	switch ConflictStrategy(s) {
	case StrategySkip, StrategyUpdate, StrategyMerge, StrategyCreateVariant:
		return ConflictStrategy(s), nil
	}
	return "", &UnsupportedStrategyError{Strategy: s}
}

// ConflictResolution is the caller's conflict-handling contract for one
// import run. UpdateFields restricts which fields update/merge may touch;
// PreserveFields are never touched.
type ConflictResolution struct {
	Strategy       ConflictStrategy `json:"strategy"`
	UpdateFields   []Field          `json:"update_fields,omitempty"`
	PreserveFields []Field          `json:"preserve_fields,omitempty"`
}
