package grammar

import "strings"

const (
	LineSeparator        = "||"
	AlternativeSeparator = "//"

	// Unconstrained is the expected line count meaning any count is accepted.
	Unconstrained = 0
)

// CanonicalLine holds the accepted literal forms for one statement ordinal.
type CanonicalLine struct {
	Alternatives []string `json:"alternatives"`
}

// Matches reports whether text equals one of the alternatives.
func (c CanonicalLine) Matches(text string) bool {
	for _, alt := range c.Alternatives {
		if alt == text {
			return true
		}
	}
	return false
}

// Primary is the first alternative, used for character comparison.
func (c CanonicalLine) Primary() string {
	if len(c.Alternatives) == 0 {
		return ""
	}
	return c.Alternatives[0]
}

// ParseCanonical splits a canonical solution into its lines. Empty entries
// produced by stray separators are dropped.
func ParseCanonical(solution string) []CanonicalLine {
	var lines []CanonicalLine
	for _, raw := range strings.Split(solution, LineSeparator) {
		var alts []string
		for _, alt := range strings.Split(raw, AlternativeSeparator) {
			alt = strings.TrimSpace(alt)
			if alt != "" {
				alts = append(alts, alt)
			}
		}
		if len(alts) > 0 {
			lines = append(lines, CanonicalLine{Alternatives: alts})
		}
	}
	return lines
}

// CanonicalStatements returns the primary alternative of each line, i.e. the
// reference solution as plain statements.
func CanonicalStatements(solution string) []string {
	lines := ParseCanonical(solution)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Primary())
	}
	return out
}

// CanonicalText joins the primary alternatives with newlines, giving the text
// a learner would type to solve the level.
func CanonicalText(solution string) string {
	return strings.Join(CanonicalStatements(solution), "\n")
}
