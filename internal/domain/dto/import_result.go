package dto

// RowErrorKind classifies row-level validation failures attached to an
// import result.
type RowErrorKind string

const (
	RowErrorValidation RowErrorKind = "VALIDATION"
	RowErrorUnknown    RowErrorKind = "UNKNOWN"
)

// RowError describes one rejected input row. Row errors are non-fatal:
// the row is skipped and the import continues.
type RowError struct {
	Row     int          `json:"row"`
	Message string       `json:"message"`
	Kind    RowErrorKind `json:"kind"`
	Raw     string       `json:"raw,omitempty"`
}

// ImportResult is returned by every import invocation, including failed
// and cancelled ones: callers always get counts and a session id for
// resumability, never a bare error.
type ImportResult struct {
	Success   bool       `json:"success"`
	Cancelled bool       `json:"cancelled,omitempty"`
	SessionID string     `json:"session_id"`
	Processed int        `json:"processed"`
	Skipped   int        `json:"skipped"`
	Total     int        `json:"total"`
	ElapsedMs int64      `json:"elapsed_ms"`
	Errors    []RowError `json:"errors,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
}
