package grammar

import "fmt"

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic messages
const (
	MsgTerminatorExpected = "terminator expected"
	MsgInvalidCharacter   = "not a valid character for this function"
	MsgInvalidFunction    = "not a valid function"
	MsgInvalidLine        = "invalid line"
	MsgUnexpectedTrailing = "unexpected characters after the statement"
	MsgTooFewLines        = "too few lines: expected %d, got %d"
	MsgTooManyLines       = "too many lines: expected %d, got %d"
)

// Diagnostic is a positioned problem in the submitted text.
type Diagnostic struct {
	Line        int      `json:"line"`
	StartColumn int      `json:"start_column"`
	EndColumn   int      `json:"end_column"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d, col %d-%d: %s: %s", d.Line, d.StartColumn, d.EndColumn, d.Severity, d.Message)
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// FirstError returns the first error diagnostic, or nil.
func FirstError(diags []Diagnostic) *Diagnostic {
	for i := range diags {
		if diags[i].Severity == SeverityError {
			return &diags[i]
		}
	}
	return nil
}

func hasErrorOnLine(diags []Diagnostic, line int) bool {
	for _, d := range diags {
		if d.Line == line && d.Severity == SeverityError {
			return true
		}
	}
	return false
}
