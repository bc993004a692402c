package evaluator

import (
	"fmt"
	"io"
	"log/slog"

	"lox/internal/ast"
	"lox/internal/object"
)

var (
	NIL   = object.NIL
	TRUE  = object.TRUE
	FALSE = object.FALSE
)

// Evaluator walks statements against the current environment chain. It owns
// the global environment (seeded with the natives), the resolver's
// side-table, and the stream print writes to. A single evaluator survives a
// whole REPL session so definitions persist across lines.
type Evaluator struct {
	envStack []*object.Environment
	globals  *object.Environment
	locals   map[ast.Expression]int
	out      io.Writer
}

func New(out io.Writer) *Evaluator {
	globals := object.NewEnvironment()
	registerNatives(globals)

	e := &Evaluator{
		globals: globals,
		locals:  map[ast.Expression]int{},
		out:     out,
	}
	e.envStack = append(e.envStack, globals)
	return e
}

// AddLocals merges a resolver side-table into the evaluator. Entries are
// keyed by node identity so tables from successive REPL lines never collide.
func (e *Evaluator) AddLocals(locals map[ast.Expression]int) {
	for node, depth := range locals {
		e.locals[node] = depth
	}
}

// Globals exposes the global environment so hosts can install additional
// natives next to the built-in ones.
func (e *Evaluator) Globals() *object.Environment {
	return e.globals
}

func (e *Evaluator) PushEnv(env *object.Environment) {
	e.envStack = append(e.envStack, env)
}

func (e *Evaluator) CurrentEnv() *object.Environment {
	return e.envStack[len(e.envStack)-1]
}

func (e *Evaluator) PopEnv() {
	e.envStack = e.envStack[:len(e.envStack)-1]
}

// Run executes a resolved program. The returned object is the value of the
// last statement (the REPL echoes it for bare expressions) or the runtime
// error that aborted execution.
func (e *Evaluator) Run(program *ast.Program) object.Object {
	var result object.Object

	for _, statement := range program.Statements {
		result = e.Eval(statement)
		if e.isError(result) {
			return result
		}
	}

	return result
}

func (e *Evaluator) Eval(node ast.Node) object.Object {
	switch node := node.(type) {

	// Statements
	case *ast.Program:
		return e.Run(node)

	case *ast.ExpressionStatement:
		return e.Eval(node.Expression)

	case *ast.PrintStatement:
		val := e.Eval(node.Value)
		if e.isError(val) {
			return val
		}
		fmt.Fprintln(e.out, val.Inspect())
		return NIL

	case *ast.VarStatement:
		val := object.Object(NIL)
		if node.Value != nil {
			val = e.Eval(node.Value)
			if e.isError(val) {
				return val
			}
		}
		e.CurrentEnv().Define(node.Name.Value, val)
		return NIL

	case *ast.FunctionStatement:
		fn := &object.Function{
			Name:       node.Name.Value,
			Parameters: node.Parameters,
			Body:       node.Body,
			Env:        e.CurrentEnv(),
		}
		e.CurrentEnv().Define(node.Name.Value, fn)
		return NIL

	case *ast.BlockStatement:
		return e.evalBlockStatement(node)

	case *ast.IfStatement:
		return e.evalIfStatement(node)

	case *ast.WhileStatement:
		return e.evalWhileStatement(node)

	case *ast.BreakStatement:
		return object.BREAK

	case *ast.ReturnStatement:
		val := object.Object(NIL)
		if node.ReturnValue != nil {
			val = e.Eval(node.ReturnValue)
			if e.isError(val) {
				return val
			}
		}
		return &object.ReturnValue{Value: val}

	// Expressions
	case *ast.NumberLiteral:
		return &object.Number{Value: node.Value}

	case *ast.StringLiteral:
		return &object.String{Value: node.Value}

	case *ast.Boolean:
		return nativeBoolToBooleanObject(node.Value)

	case *ast.Nil:
		return NIL

	case *ast.GroupedExpression:
		return e.Eval(node.Inner)

	case *ast.Identifier:
		return e.evalIdentifier(node)

	case *ast.AssignExpression:
		return e.evalAssignExpression(node)

	case *ast.PrefixExpression:
		right := e.Eval(node.Right)
		if e.isError(right) {
			return right
		}
		return e.evalPrefixExpression(node, right)

	case *ast.InfixExpression:
		left := e.Eval(node.Left)
		if e.isError(left) {
			return left
		}

		right := e.Eval(node.Right)
		if e.isError(right) {
			return right
		}

		return e.evalInfixExpression(node, left, right)

	case *ast.LogicalExpression:
		return e.evalLogicalExpression(node)

	case *ast.CallExpression:
		return e.evalCallExpression(node)
	}

	return nil
}

// evalBlockStatement runs the block in a fresh environment enclosed by the
// current one. The deferred pop restores the previous environment on every
// exit path: normal completion, runtime error, and break/return unwinds.
func (e *Evaluator) evalBlockStatement(block *ast.BlockStatement) object.Object {
	blockEnv := object.NewEnclosedEnvironment(e.CurrentEnv())
	e.PushEnv(blockEnv)
	defer e.PopEnv()

	return e.evalStatements(block.Statements)
}

func (e *Evaluator) evalStatements(statements []ast.Statement) object.Object {
	var result object.Object

	for _, statement := range statements {
		result = e.Eval(statement)

		if result != nil {
			rt := result.Type()
			if rt == object.RETURN_VALUE_OBJ || rt == object.BREAK_OBJ || rt == object.ERROR_OBJ {
				return result
			}
		}
	}

	return result
}

func (e *Evaluator) evalIfStatement(stmt *ast.IfStatement) object.Object {
	condition := e.Eval(stmt.Condition)
	if e.isError(condition) {
		return condition
	}

	if e.isTruthy(condition) {
		return e.Eval(stmt.ThenBranch)
	} else if stmt.ElseBranch != nil {
		return e.Eval(stmt.ElseBranch)
	}
	return NIL
}

func (e *Evaluator) evalWhileStatement(stmt *ast.WhileStatement) object.Object {
	for {
		condition := e.Eval(stmt.Condition)
		if e.isError(condition) {
			return condition
		}
		if !e.isTruthy(condition) {
			return NIL
		}

		result := e.Eval(stmt.Body)
		if result != nil {
			switch result.Type() {
			case object.BREAK_OBJ:
				// the loop is the construct a break unwinds to
				return NIL
			case object.RETURN_VALUE_OBJ, object.ERROR_OBJ:
				return result
			}
		}
	}
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier) object.Object {
	if depth, ok := e.locals[node]; ok {
		if val, ok := e.CurrentEnv().GetAt(depth, node.Value); ok {
			return val
		}
		return e.newError(node.Token.Position, "Undefined variable '%s'.", node.Value)
	}

	if val, ok := e.globals.Get(node.Value); ok {
		return val
	}

	return e.newError(node.Token.Position, "Undefined variable '%s'.", node.Value)
}

func (e *Evaluator) evalAssignExpression(node *ast.AssignExpression) object.Object {
	val := e.Eval(node.Value)
	if e.isError(val) {
		return val
	}

	if depth, ok := e.locals[node]; ok {
		if !e.CurrentEnv().AssignAt(depth, node.Name.Value, val) {
			return e.newError(node.Name.Token.Position, "Undefined variable '%s'.", node.Name.Value)
		}
		return val
	}

	if !e.globals.Assign(node.Name.Value, val) {
		return e.newError(node.Name.Token.Position, "Undefined variable '%s'.", node.Name.Value)
	}
	return val
}

func (e *Evaluator) evalPrefixExpression(node *ast.PrefixExpression, right object.Object) object.Object {
	switch node.Operator {
	case "!":
		return nativeBoolToBooleanObject(!e.isTruthy(right))
	case "-":
		num, ok := right.(*object.Number)
		if !ok {
			return e.newError(node.Token.Position, "Operand must be a number.")
		}
		return &object.Number{Value: -num.Value}
	default:
		return e.newError(node.Token.Position, "unknown operator: %s%s", node.Operator, right.Type())
	}
}

func (e *Evaluator) evalInfixExpression(node *ast.InfixExpression, left, right object.Object) object.Object {
	switch node.Operator {
	case "==":
		return nativeBoolToBooleanObject(objectsEqual(left, right))
	case "!=":
		return nativeBoolToBooleanObject(!objectsEqual(left, right))
	case "+":
		if l, ok := left.(*object.Number); ok {
			if r, ok := right.(*object.Number); ok {
				return &object.Number{Value: l.Value + r.Value}
			}
		}
		if l, ok := left.(*object.String); ok {
			if r, ok := right.(*object.String); ok {
				return &object.String{Value: l.Value + r.Value}
			}
		}
		return e.newError(node.Token.Position, "Operands must be two numbers or two strings.")
	}

	l, lok := left.(*object.Number)
	r, rok := right.(*object.Number)
	if !lok || !rok {
		return e.newError(node.Token.Position, "Operands must be numbers.")
	}

	switch node.Operator {
	case "-":
		return &object.Number{Value: l.Value - r.Value}
	case "*":
		return &object.Number{Value: l.Value * r.Value}
	case "/":
		return &object.Number{Value: l.Value / r.Value}
	case "<":
		return nativeBoolToBooleanObject(l.Value < r.Value)
	case "<=":
		return nativeBoolToBooleanObject(l.Value <= r.Value)
	case ">":
		return nativeBoolToBooleanObject(l.Value > r.Value)
	case ">=":
		return nativeBoolToBooleanObject(l.Value >= r.Value)
	default:
		return e.newError(node.Token.Position, "unknown operator: %s %s %s",
			left.Type(), node.Operator, right.Type())
	}
}

// evalLogicalExpression short-circuits: the left operand decides whether the
// right is evaluated at all, and the result is one of the operand values,
// not a coerced boolean.
func (e *Evaluator) evalLogicalExpression(node *ast.LogicalExpression) object.Object {
	left := e.Eval(node.Left)
	if e.isError(left) {
		return left
	}

	if node.Operator == "or" {
		if e.isTruthy(left) {
			return left
		}
	} else {
		if !e.isTruthy(left) {
			return left
		}
	}

	return e.Eval(node.Right)
}

func (e *Evaluator) evalCallExpression(node *ast.CallExpression) object.Object {
	callee := e.Eval(node.Function)
	if e.isError(callee) {
		return callee
	}

	var args []object.Object
	for _, arg := range node.Arguments {
		evaluated := e.Eval(arg)
		if e.isError(evaluated) {
			return evaluated
		}
		args = append(args, evaluated)
	}

	return e.applyFunction(callee, args, node.Token.Position)
}

func (e *Evaluator) applyFunction(callee object.Object, args []object.Object, pos int) object.Object {
	switch fn := callee.(type) {
	case *object.Function:
		if len(args) != fn.Arity() {
			return e.newError(pos, "Expected %d arguments but got %d.", fn.Arity(), len(args))
		}

		slog.Debug("applying function",
			slog.String("name", fn.Name),
			slog.Int("args", len(args)))

		// Parameters and body share one frame chained off the captured
		// environment; the resolver computed depths against that shape.
		env := object.NewEnclosedEnvironment(fn.Env)
		for i, param := range fn.Parameters {
			env.Define(param.Value, args[i])
		}

		e.PushEnv(env)
		defer e.PopEnv()

		result := e.evalStatements(fn.Body.Statements)

		if returnValue, ok := result.(*object.ReturnValue); ok {
			return returnValue.Value
		}
		if e.isError(result) {
			return result
		}
		return NIL

	case *object.Native:
		if len(args) != fn.Arity() {
			return e.newError(pos, "Expected %d arguments but got %d.", fn.Arity(), len(args))
		}
		return fn.Fn(args)

	default:
		return e.newError(pos, "Can only call functions and classes.")
	}
}

// isTruthy implements the language's truthiness: nil and false are falsy,
// everything else (including 0 and "") is truthy.
func (e *Evaluator) isTruthy(obj object.Object) bool {
	switch obj {
	case NIL:
		return false
	case TRUE:
		return true
	case FALSE:
		return false
	default:
		if b, ok := obj.(*object.Boolean); ok {
			return b.Value
		}
		return true
	}
}

// objectsEqual is strict by variant: values of different kinds are never
// equal, numbers compare by IEEE equality, callables by identity.
func objectsEqual(a, b object.Object) bool {
	switch a := a.(type) {
	case *object.Nil:
		_, ok := b.(*object.Nil)
		return ok
	case *object.Boolean:
		other, ok := b.(*object.Boolean)
		return ok && a.Value == other.Value
	case *object.Number:
		other, ok := b.(*object.Number)
		return ok && a.Value == other.Value
	case *object.String:
		other, ok := b.(*object.String)
		return ok && a.Value == other.Value
	default:
		return a == b
	}
}

func nativeBoolToBooleanObject(input bool) *object.Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

func (e *Evaluator) newError(pos int, format string, a ...interface{}) *object.Error {
	return &object.Error{Message: fmt.Sprintf(format, a...), Position: pos}
}

func (e *Evaluator) isError(obj object.Object) bool {
	if obj != nil {
		return obj.Type() == object.ERROR_OBJ
	}
	return false
}
