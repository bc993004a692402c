package diag

import (
	"bytes"
	"testing"

	"lox/internal/token"
)

func TestLineAndColumn(t *testing.T) {
	src := "one\ntwo\nthree"

	tests := []struct {
		pos  int
		line int
		col  int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{4, 2, 1},
		{8, 3, 1},
		{12, 3, 5},
	}
	for _, tt := range tests {
		line, col := LineAndColumn(src, tt.pos)
		if line != tt.line || col != tt.col {
			t.Errorf("pos %d: got %d:%d, want %d:%d", tt.pos, line, col, tt.line, tt.col)
		}
	}
}

func TestErrorShapes(t *testing.T) {
	src := "var x = 1;\nvar y = ;"
	var out bytes.Buffer
	bag := NewBag(src, &out)

	bag.Error(StageLexer, 0, "Unexpected character.")
	bag.ErrorAt(StageParser, token.Token{Type: token.SEMICOLON, Literal: ";", Position: 19}, "Expect expression.")
	bag.ErrorAt(StageParser, token.Token{Type: token.EOF, Literal: "", Position: 20}, "Expect ';' after value.")

	want := "[line 1] Error: Unexpected character.\n" +
		"[line 2] Error at ';': Expect expression.\n" +
		"[line 2] Error at end: Expect ';' after value.\n"
	if out.String() != want {
		t.Errorf("wrong rendering:\n%q\nwant\n%q", out.String(), want)
	}

	if !bag.HadError() {
		t.Error("static errors must set the had-error flag")
	}
	if bag.HadRuntimeError() {
		t.Error("static errors must not set the runtime flag")
	}
	if len(bag.Diagnostics()) != 3 {
		t.Errorf("expected 3 recorded diagnostics, got %d", len(bag.Diagnostics()))
	}
}

func TestRuntimeShape(t *testing.T) {
	src := "print 1;\nprint \"a\" - 1;"
	var out bytes.Buffer
	bag := NewBag(src, &out)

	bag.Runtime(19, "Operands must be numbers.")

	want := "Operands must be numbers.\n[line 2]\n"
	if out.String() != want {
		t.Errorf("wrong rendering: %q, want %q", out.String(), want)
	}
	if bag.HadError() {
		t.Error("runtime errors must not set the static flag")
	}
	if !bag.HadRuntimeError() {
		t.Error("runtime errors must set the runtime flag")
	}
}
