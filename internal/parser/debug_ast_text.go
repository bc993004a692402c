package parser

import (
	"fmt"
	"reflect"
	"strings"

	"lox/internal/ast"
)

// RenderASTAsText produces a human-centric, indented, source-like
// representation of the AST. It is optimized for debugging precedence and
// binding structure, and its output is deterministic: the same program
// always renders to the same string.
func RenderASTAsText(node ast.Node, indent int) string {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return "nil"
	}

	sp := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *ast.Program:
		var sb strings.Builder
		for i, s := range n.Statements {
			if i > 0 {
				sb.WriteString("\n")
			}
			// Root level statements start at indent 0
			sb.WriteString(RenderASTAsText(s, 0))
		}
		return sb.String()

	case *ast.VarStatement:
		if n.Value == nil {
			return fmt.Sprintf("%svar %s;", sp, n.Name.Value)
		}
		return fmt.Sprintf("%svar %s = %s;", sp, n.Name.Value, RenderASTAsText(n.Value, 0))

	case *ast.PrintStatement:
		return fmt.Sprintf("%sprint %s;", sp, RenderASTAsText(n.Value, 0))

	case *ast.ReturnStatement:
		if n.ReturnValue == nil {
			return sp + "return;"
		}
		return fmt.Sprintf("%sreturn %s;", sp, RenderASTAsText(n.ReturnValue, 0))

	case *ast.BreakStatement:
		return sp + "break;"

	case *ast.ExpressionStatement:
		// The statement handles the line's starting indentation
		return sp + RenderASTAsText(n.Expression, 0) + ";"

	case *ast.BlockStatement:
		var sb strings.Builder
		sb.WriteString("{\n")
		for _, s := range n.Statements {
			// Statements inside the block are indented +1
			sb.WriteString(RenderASTAsText(s, indent+1))
			sb.WriteString("\n")
		}
		// The closing brace aligns with the parent's indent
		sb.WriteString(sp + "}")
		return sb.String()

	case *ast.IfStatement:
		res := fmt.Sprintf("%sif (%s) %s", sp, RenderASTAsText(n.Condition, 0), renderBody(n.ThenBranch, indent))
		if n.ElseBranch != nil {
			res += " else " + renderBody(n.ElseBranch, indent)
		}
		return res

	case *ast.WhileStatement:
		return fmt.Sprintf("%swhile (%s) %s", sp, RenderASTAsText(n.Condition, 0), renderBody(n.Body, indent))

	case *ast.FunctionStatement:
		params := []string{}
		for _, p := range n.Parameters {
			params = append(params, p.Value)
		}
		// Body block aligns its closing brace with 'indent'
		return fmt.Sprintf("%sfun %s(%s) %s", sp, n.Name.Value, strings.Join(params, ", "), RenderASTAsText(n.Body, indent))

	case *ast.Identifier:
		return n.Value

	case *ast.AssignExpression:
		return fmt.Sprintf("%s = %s", n.Name.Value, RenderASTAsText(n.Value, 0))

	case *ast.Boolean:
		return n.Token.Literal

	case *ast.Nil:
		return "nil"

	case *ast.NumberLiteral:
		return n.Token.Literal

	case *ast.StringLiteral:
		return fmt.Sprintf("%q", n.Value)

	case *ast.PrefixExpression:
		return fmt.Sprintf("(%s%s)", n.Operator, RenderASTAsText(n.Right, 0))

	case *ast.InfixExpression:
		return fmt.Sprintf("(%s %s %s)", RenderASTAsText(n.Left, 0), n.Operator, RenderASTAsText(n.Right, 0))

	case *ast.LogicalExpression:
		return fmt.Sprintf("(%s %s %s)", RenderASTAsText(n.Left, 0), n.Operator, RenderASTAsText(n.Right, 0))

	case *ast.GroupedExpression:
		return fmt.Sprintf("(group %s)", RenderASTAsText(n.Inner, 0))

	case *ast.CallExpression:
		args := []string{}
		for _, a := range n.Arguments {
			args = append(args, RenderASTAsText(a, 0))
		}
		return fmt.Sprintf("%s(%s)", RenderASTAsText(n.Function, 0), strings.Join(args, ", "))

	default:
		return fmt.Sprintf("<%T>", n)
	}
}

// renderBody keeps block bodies inline with their header and indents any
// other single statement onto its own line.
func renderBody(stmt ast.Statement, indent int) string {
	if block, ok := stmt.(*ast.BlockStatement); ok {
		return RenderASTAsText(block, indent)
	}
	return "\n" + RenderASTAsText(stmt, indent+1)
}
