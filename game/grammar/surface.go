package grammar

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// CodeSurface is a snapshot of the learner's editor.
type CodeSurface struct {
	Content   string `json:"content"`
	LineCount int    `json:"line_count"`
	CaretLine int    `json:"caret_line"`
}

// Statement is one non-blank line of submitted text.
type Statement struct {
	// Line is the 1-based line in the submitted text.
	Line int `json:"line"`
	// Text is the trimmed line.
	Text string `json:"text"`
	// Indent is the number of runes trimmed from the start of the line.
	Indent int `json:"indent"`
}

// Normalize folds full-width forms (as typed through an IME) to their ASCII
// counterparts. It maps rune for rune so diagnostic columns stay valid.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		p := width.LookupRune(r)
		if p.Kind() == width.EastAsianFullwidth {
			if n := p.Narrow(); n != 0 {
				r = n
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitStatements returns the non-blank lines of text, trimmed.
func SplitStatements(text string) []Statement {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []Statement
	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		lead := strings.TrimLeftFunc(raw, unicode.IsSpace)
		out = append(out, Statement{
			Line:   i + 1,
			Text:   trimmed,
			Indent: utf8.RuneCountInString(raw) - utf8.RuneCountInString(lead),
		})
	}
	return out
}

// Texts returns the trimmed text of each statement.
func Texts(stmts []Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.Text
	}
	return out
}
