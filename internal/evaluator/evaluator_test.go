package evaluator

import (
	"bytes"
	"strings"
	"testing"

	"lox/internal/diag"
	"lox/internal/lexer"
	"lox/internal/object"
	"lox/internal/parser"
	"lox/internal/resolver"
)

type runResult struct {
	stdout string
	errOut string
	result object.Object
	eval   *Evaluator
}

func run(t *testing.T, input string) runResult {
	t.Helper()
	var out, errOut bytes.Buffer

	bag := diag.NewBag(input, &errOut)
	l := lexer.New(input, bag)
	p := parser.New(l, bag)
	program := p.ParseProgram()
	if bag.HadError() {
		t.Fatalf("static errors for %q:\n%s", input, errOut.String())
	}
	locals := resolver.New(bag).Resolve(program)
	if bag.HadError() {
		t.Fatalf("resolution errors for %q:\n%s", input, errOut.String())
	}

	e := New(&out)
	e.AddLocals(locals)
	result := e.Run(program)
	if errObj, ok := result.(*object.Error); ok {
		bag.Runtime(errObj.Position, errObj.Message)
	}

	return runResult{stdout: out.String(), errOut: errOut.String(), result: result, eval: e}
}

func expectOutput(t *testing.T, input, expected string) {
	t.Helper()
	r := run(t, input)
	if err, ok := r.result.(*object.Error); ok {
		t.Fatalf("%q: unexpected runtime error: %s", input, err.Message)
	}
	if r.stdout != expected {
		t.Errorf("%q:\nexpected output %q\ngot             %q", input, expected, r.stdout)
	}
}

func expectRuntimeError(t *testing.T, input, message string) runResult {
	t.Helper()
	r := run(t, input)
	err, ok := r.result.(*object.Error)
	if !ok {
		t.Fatalf("%q: expected a runtime error, got %v (stdout %q)", input, r.result, r.stdout)
	}
	if err.Message != message {
		t.Errorf("%q: wrong message.\nexpected %q\ngot      %q", input, message, err.Message)
	}
	return r
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"print 1 + 2 * 3;", "7\n"},
		{"print (1 + 2) * 3;", "9\n"},
		{"print 10 - 2 - 3;", "5\n"},
		{"print 3 / 2;", "1.5\n"},
		{"print 4 / 2;", "2\n"},
		{"print -5 + 10;", "5\n"},
		{"print --5;", "5\n"},
		{"print 0.1 + 0.2 == 0.3;", "false\n"},
	}
	for _, tt := range tests {
		expectOutput(t, tt.input, tt.expected)
	}
}

func TestComparisonAndEquality(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"print 1 < 2;", "true\n"},
		{"print 2 <= 2;", "true\n"},
		{"print 3 > 4;", "false\n"},
		{"print 4 >= 4;", "true\n"},
		{"print 1 == 1;", "true\n"},
		{"print 1 != 1;", "false\n"},
		{`print "a" == "a";`, "true\n"},
		{`print "a" == "b";`, "false\n"},
		{"print nil == nil;", "true\n"},
		{"print true == true;", "true\n"},
		{"print true == false;", "false\n"},
		// different variants are never equal
		{`print 1 == "1";`, "false\n"},
		{"print nil == false;", "false\n"},
		{`print "" == false;`, "false\n"},
	}
	for _, tt := range tests {
		expectOutput(t, tt.input, tt.expected)
	}
}

func TestCallablesCompareByIdentity(t *testing.T) {
	expectOutput(t, `
fun f() { return 1; }
fun g() { return 1; }
var h = f;
print f == h;
print f == g;
`, "true\nfalse\n")
}

func TestStringConcatAndStringify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`print "pi≈" + "3";`, "pi≈3\n"},
		{`print "foo" + "bar";`, "foobar\n"},
		{"print nil;", "nil\n"},
		{"print true;", "true\n"},
		{"print clock == clock;", "true\n"},
	}
	for _, tt := range tests {
		expectOutput(t, tt.input, tt.expected)
	}
}

func TestFunctionStringify(t *testing.T) {
	expectOutput(t, "fun greet() {} print greet;", "<fn greet>\n")
	expectOutput(t, "print clock;", "<native fn>\n")
}

func TestTruthiness(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"if (nil) print 1; else print 2;", "2\n"},
		{"if (false) print 1; else print 2;", "2\n"},
		{"if (true) print 1; else print 2;", "1\n"},
		{"if (0) print 1; else print 2;", "1\n"},
		{`if ("") print 1; else print 2;`, "1\n"},
		{"print !nil;", "true\n"},
		{"print !0;", "false\n"},
	}
	for _, tt := range tests {
		expectOutput(t, tt.input, tt.expected)
	}
}

func TestShortCircuit(t *testing.T) {
	// the right operand must never run when the left decides
	expectOutput(t, `
var calls = 0;
fun bump() { calls = calls + 1; return true; }
var a = true or bump();
var b = false and bump();
print calls;
print a;
print b;
`, "0\ntrue\nfalse\n")

	// logical operators return operand values, not coerced booleans
	expectOutput(t, `print "hi" or 2; print nil or "yes"; print nil and "no";`, "hi\nyes\nnil\n")
}

func TestVariablesAndScopes(t *testing.T) {
	expectOutput(t, "var a = 1; { var a = 2; print a; } print a;", "2\n1\n")
	expectOutput(t, "var a = 1; { a = 2; } print a;", "2\n")
	expectOutput(t, "var a; print a;", "nil\n")
	expectOutput(t, `
var a = "global a";
var b = "global b";
{
  var a = "outer a";
  {
    var b = "inner b";
    print a;
    print b;
  }
  print a;
  print b;
}
print a;
print b;
`, "outer a\ninner b\nouter a\nglobal b\nglobal a\nglobal b\n")
}

func TestClosureCounter(t *testing.T) {
	expectOutput(t, `
fun makeCounter() { var i = 0; fun count() { i = i + 1; return i; } return count; }
var c = makeCounter();
print c();
print c();
print c();
`, "1\n2\n3\n")
}

func TestClosuresCaptureByReference(t *testing.T) {
	// assignments after capture are observable through the closure
	expectOutput(t, `
var x = "before";
fun show() { print x; }
x = "after";
show();
`, "after\n")

	// two closures over the same frame share mutations
	expectOutput(t, `
fun pair() {
  var n = 0;
  fun inc() { n = n + 1; return n; }
  fun get() { return n; }
  print inc();
  print get();
  print inc();
  print get();
}
pair();
`, "1\n1\n2\n2\n")
}

func TestClosureSnapshotsItsScopeChain(t *testing.T) {
	// the classic resolver test: the closure keeps seeing the binding it
	// closed over even when a later shadowing declaration appears
	expectOutput(t, `
var a = "global";
{
  fun showA() { print a; }
  showA();
  var a = "block";
  showA();
}
`, "global\nglobal\n")
}

func TestForLoop(t *testing.T) {
	expectOutput(t, "for (var i = 0; i < 3; i = i + 1) print i;", "0\n1\n2\n")
	expectOutput(t, `
var sum = 0;
for (var i = 1; i <= 10; i = i + 1) sum = sum + i;
print sum;
`, "55\n")
}

func TestWhileAndBreak(t *testing.T) {
	expectOutput(t, "var i = 0; while (true) { if (i == 3) break; i = i + 1; } print i;", "3\n")
	expectOutput(t, "var i = 0; while (i < 5) { i = i + 1; } print i;", "5\n")
	// break only exits the innermost loop
	expectOutput(t, `
var total = 0;
for (var i = 0; i < 3; i = i + 1) {
  var j = 0;
  while (true) {
    if (j == 2) break;
    j = j + 1;
    total = total + 1;
  }
}
print total;
`, "6\n")
}

func TestFunctionCalls(t *testing.T) {
	expectOutput(t, "fun add(a, b) { return a + b; } print add(1, 2);", "3\n")
	expectOutput(t, "fun noReturn() { 1 + 1; } print noReturn();", "nil\n")
	expectOutput(t, "fun bare() { return; } print bare();", "nil\n")
	expectOutput(t, `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(10);
`, "55\n")
	// arguments evaluate left to right
	expectOutput(t, `
fun side(label, value) { print label; return value; }
fun add3(a, b, c) { return a + b + c; }
print add3(side("first", 1), side("second", 2), side("third", 3));
`, "first\nsecond\nthird\n6\n")
}

func TestReturnUnwindsThroughBlocksAndLoops(t *testing.T) {
	expectOutput(t, `
fun find() {
  for (var i = 0; i < 10; i = i + 1) {
    if (i == 4) { return i; }
  }
  return -1;
}
print find();
`, "4\n")
}

func TestClock(t *testing.T) {
	r := run(t, "print clock() >= 0;")
	if r.stdout != "true\n" {
		t.Errorf("clock() should yield a non-negative number, output %q", r.stdout)
	}
	r = run(t, "print clock() == clock() or clock() < clock() + 1;")
	if strings.Contains(r.errOut, "Error") {
		t.Errorf("clock arithmetic failed: %s", r.errOut)
	}
}

func TestRuntimeTypeErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{`print "a" - 1;`, "Operands must be numbers."},
		{"print 1 < true;", "Operands must be numbers."},
		{`print "a" * "b";`, "Operands must be numbers."},
		{`print 1 + "a";`, "Operands must be two numbers or two strings."},
		{"print nil + nil;", "Operands must be two numbers or two strings."},
		{"print -true;", "Operand must be a number."},
		{`print -"a";`, "Operand must be a number."},
		{"print undefinedThing;", "Undefined variable 'undefinedThing'."},
		{"missing = 1;", "Undefined variable 'missing'."},
		{`"not callable"();`, "Can only call functions and classes."},
		{"fun f(a) {} f(1, 2);", "Expected 1 arguments but got 2."},
		{"fun g(a, b) {} g(1);", "Expected 2 arguments but got 1."},
		{"clock(1);", "Expected 0 arguments but got 1."},
	}
	for _, tt := range tests {
		expectRuntimeError(t, tt.input, tt.message)
	}
}

func TestRuntimeErrorReportShape(t *testing.T) {
	r := expectRuntimeError(t, `print "a" - 1;`, "Operands must be numbers.")
	if r.errOut != "Operands must be numbers.\n[line 1]\n" {
		t.Errorf("wrong report shape: %q", r.errOut)
	}

	r = expectRuntimeError(t, "var a = 1;\nprint a - nil;", "Operands must be numbers.")
	if !strings.Contains(r.errOut, "[line 2]") {
		t.Errorf("runtime error should carry the source line: %q", r.errOut)
	}
}

func TestRuntimeErrorAbortsStatement(t *testing.T) {
	// the failing statement stops, earlier output stays
	r := expectRuntimeError(t, `print "first"; print 1 - "x"; print "never";`, "Operands must be numbers.")
	if r.stdout != "first\n" {
		t.Errorf("output after the error must not appear: %q", r.stdout)
	}
}

func TestBlockRestoresEnvironmentOnUnwind(t *testing.T) {
	var out bytes.Buffer
	input := `
var a = "kept";
{
  var a = "shadow";
  explode();
}
`
	bag := diag.NewBag(input, &bytes.Buffer{})
	l := lexer.New(input, bag)
	p := parser.New(l, bag)
	program := p.ParseProgram()
	if bag.HadError() {
		t.Fatal("unexpected static errors")
	}
	locals := resolver.New(bag).Resolve(program)
	if bag.HadError() {
		t.Fatal("unexpected resolution errors")
	}

	e := New(&out)
	e.AddLocals(locals)
	// a native that fails mid-block, standing in for any runtime error
	e.Globals().Define("explode", &object.Native{
		Name:    "explode",
		NumArgs: 0,
		Fn: func(args []object.Object) object.Object {
			return &object.Error{Message: "boom"}
		},
	})

	result := e.Run(program)
	if _, ok := result.(*object.Error); !ok {
		t.Fatalf("expected the native error to surface, got %v", result)
	}

	if e.CurrentEnv() != e.Globals() {
		t.Error("environment chain not restored after the unwind")
	}
	val, ok := e.Globals().Get("a")
	if !ok || val.(*object.String).Value != "kept" {
		t.Error("outer binding should be untouched after the error")
	}
}

func TestGroupingEvaluatesInnerExpression(t *testing.T) {
	// deeply nested grouping terminates and yields the inner value
	expectOutput(t, "print ((((42))));", "42\n")
}

func TestStatementsExecuteInSourceOrder(t *testing.T) {
	expectOutput(t, `print 1; print 2; print 3;`, "1\n2\n3\n")
}

func TestRunReturnsLastExpressionValue(t *testing.T) {
	r := run(t, "1 + 2;")
	num, ok := r.result.(*object.Number)
	if !ok || num.Value != 3 {
		t.Errorf("Run should surface the bare expression value, got %v", r.result)
	}
}
