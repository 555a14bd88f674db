package domain

// Severity classifies a validation issue. Only error severity blocks a row
// from being imported.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationIssue is a single finding for one cell. Issues are data, never
// thrown: the pipeline accumulates them and derives row status from them.
type ValidationIssue struct {
	Row        int      `json:"row"`
	Field      Field    `json:"field"`
	Value      string   `json:"value,omitempty"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	AutoFix    bool     `json:"auto_fix,omitempty"`
}
