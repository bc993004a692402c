package resolver

import (
	"log/slog"

	"lox/internal/ast"
	"lox/internal/diag"
	"lox/internal/token"
)

type functionType int

const (
	fnNone functionType = iota
	fnFunction
)

// Resolver performs the static pass between parsing and evaluation. It walks
// the program once, tracking the stack of lexical scopes, and records for
// every variable reference how many scopes out the binding lives. References
// it cannot see belong to the global environment and stay unrecorded.
//
// The scope stack only covers block scopes; top-level code runs with an
// empty stack, which is how global re-declaration stays legal.
type Resolver struct {
	bag    *diag.Bag
	scopes []map[string]bool
	locals map[ast.Expression]int

	currentFunction functionType
	loopDepth       int
}

func New(bag *diag.Bag) *Resolver {
	return &Resolver{
		bag:    bag,
		locals: map[ast.Expression]int{},
	}
}

// Resolve walks the program and returns the side-table mapping variable and
// assignment nodes to their scope depth. Entries are inserted once and never
// rewritten.
func (r *Resolver) Resolve(program *ast.Program) map[ast.Expression]int {
	for _, stmt := range program.Statements {
		r.resolveStatement(stmt)
	}
	return r.locals
}

func (r *Resolver) resolveStatement(stmt ast.Statement) {
	switch stmt := stmt.(type) {
	case *ast.BlockStatement:
		r.beginScope()
		for _, s := range stmt.Statements {
			r.resolveStatement(s)
		}
		r.endScope()

	case *ast.VarStatement:
		r.declare(stmt.Name)
		if stmt.Value != nil {
			r.resolveExpression(stmt.Value)
		}
		r.define(stmt.Name)

	case *ast.FunctionStatement:
		// The name is defined before the body resolves so the function can
		// recurse into itself.
		r.declare(stmt.Name)
		r.define(stmt.Name)
		r.resolveFunction(stmt)

	case *ast.ExpressionStatement:
		r.resolveExpression(stmt.Expression)

	case *ast.PrintStatement:
		r.resolveExpression(stmt.Value)

	case *ast.IfStatement:
		r.resolveExpression(stmt.Condition)
		r.resolveStatement(stmt.ThenBranch)
		if stmt.ElseBranch != nil {
			r.resolveStatement(stmt.ElseBranch)
		}

	case *ast.WhileStatement:
		r.resolveExpression(stmt.Condition)
		r.loopDepth++
		r.resolveStatement(stmt.Body)
		r.loopDepth--

	case *ast.BreakStatement:
		if r.loopDepth == 0 {
			r.bag.ErrorAt(diag.StageResolver, stmt.Token, "Must be inside a loop to use 'break'.")
		}

	case *ast.ReturnStatement:
		if r.currentFunction == fnNone {
			r.bag.ErrorAt(diag.StageResolver, stmt.Token, "Can't return from top-level code.")
		}
		if stmt.ReturnValue != nil {
			r.resolveExpression(stmt.ReturnValue)
		}
	}
}

// resolveFunction gives parameters and body statements a single shared
// scope; the evaluator builds call frames the same way, so recorded depths
// line up with the environment chain at run time.
func (r *Resolver) resolveFunction(fn *ast.FunctionStatement) {
	enclosingFunction := r.currentFunction
	r.currentFunction = fnFunction
	enclosingLoopDepth := r.loopDepth
	r.loopDepth = 0

	r.beginScope()
	for _, param := range fn.Parameters {
		r.declare(param)
		r.define(param)
	}
	for _, s := range fn.Body.Statements {
		r.resolveStatement(s)
	}
	r.endScope()

	r.loopDepth = enclosingLoopDepth
	r.currentFunction = enclosingFunction
}

func (r *Resolver) resolveExpression(expr ast.Expression) {
	switch expr := expr.(type) {
	case *ast.Identifier:
		if len(r.scopes) > 0 {
			scope := r.scopes[len(r.scopes)-1]
			if defined, ok := scope[expr.Value]; ok && !defined {
				r.bag.ErrorAt(diag.StageResolver, expr.Token, "Cannot read local variable in its own initializer.")
			}
		}
		r.resolveLocal(expr, expr.Token)

	case *ast.AssignExpression:
		r.resolveExpression(expr.Value)
		r.resolveLocal(expr, expr.Name.Token)

	case *ast.InfixExpression:
		r.resolveExpression(expr.Left)
		r.resolveExpression(expr.Right)

	case *ast.LogicalExpression:
		r.resolveExpression(expr.Left)
		r.resolveExpression(expr.Right)

	case *ast.PrefixExpression:
		r.resolveExpression(expr.Right)

	case *ast.GroupedExpression:
		r.resolveExpression(expr.Inner)

	case *ast.CallExpression:
		r.resolveExpression(expr.Function)
		for _, arg := range expr.Arguments {
			r.resolveExpression(arg)
		}
	}
}

// resolveLocal records the distance between a reference and the scope that
// declares it. No entry means the name resolves in globals at run time.
func (r *Resolver) resolveLocal(expr ast.Expression, name token.Token) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name.Literal]; ok {
			depth := len(r.scopes) - 1 - i
			r.locals[expr] = depth
			slog.Debug("resolved local",
				slog.String("name", name.Literal),
				slog.Int("depth", depth))
			return
		}
	}
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, map[string]bool{})
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

// declare marks a name as existing-but-uninitialized in the innermost scope,
// which is what catches `var a = a;`.
func (r *Resolver) declare(name *ast.Identifier) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.scopes[len(r.scopes)-1]
	if _, ok := scope[name.Value]; ok {
		r.bag.ErrorAt(diag.StageResolver, name.Token, "Already a variable with this name in this scope.")
	}
	scope[name.Value] = false
}

func (r *Resolver) define(name *ast.Identifier) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name.Value] = true
}
