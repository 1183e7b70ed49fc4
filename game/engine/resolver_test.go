package engine

import (
	"errors"
	"testing"
)

func TestResolveStatement(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		want      Action
		wantErr   error
	}{
		{"bare move", "move();", Move(1), nil},
		{"move with count", "move(3);", Move(3), nil},
		{"move without terminator", "move(2)", Move(2), nil},
		{"move with spaces", "  move( 4 );  ", Move(4), nil},
		{"turn left", `turn("left");`, Turn(-90), nil},
		{"turn right", `turn("right");`, Turn(90), nil},
		{"turn around", `turn("around");`, Turn(180), nil},
		{"turn unquoted", "turn(right);", Turn(90), nil},
		{"move zero", "move(0);", Action{}, ErrMissingNumericParameter},
		{"move negative", "move(-1);", Action{}, ErrMissingNumericParameter},
		{"move word", "move(two);", Action{}, ErrMissingNumericParameter},
		{"turn up", `turn("up");`, Action{}, ErrUnknownStatement},
		{"jump", "jump();", Action{}, ErrUnknownStatement},
		{"empty", "", Action{}, ErrUnknownStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStatement(tt.statement)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveStatement(%q) error = %v, want %v", tt.statement, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveStatement(%q) unexpected error: %v", tt.statement, err)
			}
			if got != tt.want {
				t.Errorf("ResolveStatement(%q) = %v, want %v", tt.statement, got, tt.want)
			}
		})
	}
}

func TestResolve_ReportsFailingStatement(t *testing.T) {
	_, err := Resolve([]string{"move();", "move(x);"})
	var se *StatementError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatementError, got %v", err)
	}
	if se.Index != 1 {
		t.Errorf("Index = %d, want 1", se.Index)
	}
	if se.UserMessage() != MsgMissingNumber {
		t.Errorf("UserMessage() = %q, want %q", se.UserMessage(), MsgMissingNumber)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	lines := []string{"move(2);", `turn("right");`, "move();"}
	first, err := Resolve(lines)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := Resolve(lines)
	want := []Action{Move(2), Turn(90), Move(1)}
	for i := range want {
		if first[i] != want[i] || second[i] != want[i] {
			t.Errorf("action %d = %v / %v, want %v", i, first[i], second[i], want[i])
		}
	}
}

func TestLevel_CanonicalActions(t *testing.T) {
	for _, level := range allLevels() {
		if _, err := level.CanonicalActions(); err != nil {
			t.Errorf("level %d: canonical code does not resolve: %v", level.Number, err)
		}
	}
}
