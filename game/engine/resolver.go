package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrUnknownStatement        = errors.New("unknown statement")
	ErrMissingNumericParameter = errors.New("missing numeric parameter")
)

var (
	moveStatement = regexp.MustCompile(`^move\(\s*([^()]*?)\s*\)\s*;?$`)
	turnStatement = regexp.MustCompile(`^turn\(\s*"?\s*([a-zA-Z]*)\s*"?\s*\)\s*;?$`)
)

// turnDirections maps the turn parameter to its degree delta.
var turnDirections = map[string]int{
	"left":   -90,
	"right":  90,
	"around": 180,
}

// StatementError reports which statement could not be resolved.
type StatementError struct {
	Index     int
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d %q: %v", e.Index+1, e.Statement, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// UserMessage is the learner-facing text for the failure.
func (e *StatementError) UserMessage() string {
	if errors.Is(e.Err, ErrMissingNumericParameter) {
		return MsgMissingNumber
	}
	return fmt.Sprintf("Invalid code line found: %s", e.Statement)
}

// Resolve converts validated statements into actions. It is pure: the same
// statements always give the same actions.
func Resolve(statements []string) ([]Action, error) {
	actions := make([]Action, 0, len(statements))
	for i, raw := range statements {
		action, err := ResolveStatement(raw)
		if err != nil {
			return nil, &StatementError{Index: i, Statement: strings.TrimSpace(raw), Err: err}
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// ResolveStatement converts a single statement.
func ResolveStatement(statement string) (Action, error) {
	statement = strings.TrimSpace(statement)

	if m := moveStatement.FindStringSubmatch(statement); m != nil {
		if m[1] == "" {
			return Move(1), nil
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Action{}, fmt.Errorf("%w: %q", ErrMissingNumericParameter, m[1])
		}
		return Move(n), nil
	}

	if m := turnStatement.FindStringSubmatch(statement); m != nil {
		degrees, ok := turnDirections[strings.ToLower(m[1])]
		if !ok {
			return Action{}, fmt.Errorf("%w: turn direction %q", ErrUnknownStatement, m[1])
		}
		return Turn(degrees), nil
	}

	return Action{}, ErrUnknownStatement
}
