package grammar

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Options tune a validation pass.
type Options struct {
	// CaretLine is the 1-based line being edited, 0 when unknown.
	CaretLine int
	// Previous is the diagnostic set from the last pass.
	Previous []Diagnostic
}

// Result is the outcome of a validation pass.
type Result struct {
	OK          bool         `json:"ok"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Statements  []Statement  `json:"statements,omitempty"`
}

// Validate compares submitted text with the canonical solution. When
// expectedLines is not Unconstrained the statement count must match exactly.
func Validate(submitted, canonical string, expectedLines int, opts Options) Result {
	stmts := SplitStatements(Normalize(submitted))
	lines := ParseCanonical(canonical)
	diags := []Diagnostic{}

	if expectedLines != Unconstrained && len(stmts) != expectedLines {
		return Result{
			OK:          false,
			Diagnostics: []Diagnostic{lineCountDiagnostic(stmts, expectedLines)},
			Statements:  stmts,
		}
	}

	for i, st := range stmts {
		if skipWhileEditing(st, i == len(stmts)-1, opts) {
			continue
		}

		length := utf8.RuneCountInString(st.Text)
		if length > 1 && !strings.HasSuffix(st.Text, ";") {
			col := st.Indent + length + 1
			diags = append(diags, Diagnostic{
				Line:        st.Line,
				StartColumn: col,
				EndColumn:   col + 1,
				Severity:    SeverityError,
				Message:     MsgTerminatorExpected,
			})
			continue
		}

		if i >= len(lines) {
			diags = append(diags, wholeLine(st, SeverityError, MsgInvalidLine))
			continue
		}

		if lines[i].Matches(st.Text) {
			continue
		}
		diags = append(diags, compareLine(st, lines[i].Primary())...)
	}

	return Result{
		OK:          !HasErrors(diags),
		Diagnostics: diags,
		Statements:  stmts,
	}
}

// ValidateSurface validates an editor snapshot using its caret line.
func ValidateSurface(surface CodeSurface, canonical string, expectedLines int, previous []Diagnostic) Result {
	return Validate(surface.Content, canonical, expectedLines, Options{
		CaretLine: surface.CaretLine,
		Previous:  previous,
	})
}

// skipWhileEditing holds back checks of the last statement while it is being
// typed: it is on the caret line, has no terminator yet and was clean before.
func skipWhileEditing(st Statement, last bool, opts Options) bool {
	if opts.CaretLine == 0 || !last || st.Line != opts.CaretLine {
		return false
	}
	if strings.Contains(st.Text, ";") {
		return false
	}
	return !hasErrorOnLine(opts.Previous, st.Line)
}

func lineCountDiagnostic(stmts []Statement, expected int) Diagnostic {
	msg := fmt.Sprintf(MsgTooFewLines, expected, len(stmts))
	if len(stmts) > expected {
		msg = fmt.Sprintf(MsgTooManyLines, expected, len(stmts))
	}
	if len(stmts) == 0 {
		return Diagnostic{Line: 1, StartColumn: 1, EndColumn: 2, Severity: SeverityError, Message: msg}
	}
	return wholeLine(stmts[len(stmts)-1], SeverityError, msg)
}

func wholeLine(st Statement, sev Severity, msg string) Diagnostic {
	return Diagnostic{
		Line:        st.Line,
		StartColumn: st.Indent + 1,
		EndColumn:   st.Indent + utf8.RuneCountInString(st.Text) + 1,
		Severity:    sev,
		Message:     msg,
	}
}

// compareLine reports where text departs from the expected statement.
func compareLine(st Statement, expected string) []Diagnostic {
	got := []rune(st.Text)
	want := []rune(expected)

	diff := firstDifference(got, want)
	col := st.Indent + diff + 1

	diags := []Diagnostic{
		{
			Line:        st.Line,
			StartColumn: col,
			EndColumn:   col + 1,
			Severity:    SeverityError,
			Message:     MsgInvalidCharacter,
		},
		wholeLine(st, SeverityWarning, MsgInvalidFunction),
	}

	if len(got) > len(want) {
		diags = append(diags, Diagnostic{
			Line:        st.Line,
			StartColumn: st.Indent + len(want) + 1,
			EndColumn:   st.Indent + len(got) + 1,
			Severity:    SeverityWarning,
			Message:     MsgUnexpectedTrailing,
		})
	}

	return diags
}

// firstDifference returns the 0-based rune index of the first mismatch. When
// one slice is a prefix of the other it is the length of the shorter one.
func firstDifference(a, b []rune) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
