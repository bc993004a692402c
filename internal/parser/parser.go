package parser

import (
	"strconv"

	"lox/internal/ast"
	"lox/internal/diag"
	"lox/internal/lexer"
	"lox/internal/token"
)

const (
	_          int = iota
	LOWEST
	ASSIGNMENT // =
	LOGIC_OR   // or
	LOGIC_AND  // and
	EQUALS     // == !=
	COMPARISON // > < >= <=
	SUM        // + -
	PRODUCT    // * /
	PREFIX     // -x !x
	CALL       // makeCounter(x)
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:   ASSIGNMENT,
	token.OR:       LOGIC_OR,
	token.AND:      LOGIC_AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       COMPARISON,
	token.LT_EQ:    COMPARISON,
	token.GT:       COMPARISON,
	token.GT_EQ:    COMPARISON,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.SLASH:    PRODUCT,
	token.ASTERISK: PRODUCT,
	token.LPAREN:   CALL,
}

// maxArity bounds both call arguments and function parameters.
const maxArity = 255

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l   *lexer.Lexer
	bag *diag.Bag

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer, bag *diag.Bag) *Parser {
	p := &Parser{
		l:   l,
		bag: bag,
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.NIL, p.parseNil)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	p.registerInfix(token.PLUS, p.parseInfixExpression)
	p.registerInfix(token.MINUS, p.parseInfixExpression)
	p.registerInfix(token.SLASH, p.parseInfixExpression)
	p.registerInfix(token.ASTERISK, p.parseInfixExpression)
	p.registerInfix(token.EQ, p.parseInfixExpression)
	p.registerInfix(token.NOT_EQ, p.parseInfixExpression)
	p.registerInfix(token.LT, p.parseInfixExpression)
	p.registerInfix(token.LT_EQ, p.parseInfixExpression)
	p.registerInfix(token.GT, p.parseInfixExpression)
	p.registerInfix(token.GT_EQ, p.parseInfixExpression)
	p.registerInfix(token.AND, p.parseLogicalExpression)
	p.registerInfix(token.OR, p.parseLogicalExpression)
	p.registerInfix(token.ASSIGN, p.parseAssignExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

// expectPeek advances over the expected token type or reports message at the
// offending token and leaves the stream untouched.
func (p *Parser) expectPeek(t token.TokenType, message string) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.bag.ErrorAt(diag.StageParser, p.peekToken, message)
	return false
}

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		} else {
			p.synchronize()
		}
		p.nextToken()
	}

	return program
}

// synchronize discards tokens up to a statement boundary so one malformed
// declaration does not cascade into a wall of follow-on errors. It stops on
// the semicolon that ends the broken statement (the ParseProgram loop steps
// past it) or just before a token that can begin a new statement.
func (p *Parser) synchronize() {
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			return
		}
		switch p.peekToken.Type {
		case token.FUNCTION, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN, token.BREAK:
			return
		}
		p.nextToken()
	}
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.VAR:
		return p.parseVarStatement()
	case token.FUNCTION:
		return p.parseFunctionStatement()
	case token.PRINT:
		return p.parsePrintStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		return p.parseBreakStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.LBRACE:
		return p.parseBlockStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseVarStatement() ast.Statement {
	stmt := &ast.VarStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT, "Expect variable name.") {
		return nil
	}

	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
		if stmt.Value == nil {
			return nil
		}
	}

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after variable declaration.") {
		return nil
	}

	return stmt
}

func (p *Parser) parseFunctionStatement() ast.Statement {
	stmt := &ast.FunctionStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT, "Expect function name.") {
		return nil
	}

	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(token.LPAREN, "Expect '(' after function name.") {
		return nil
	}

	params, ok := p.parseFunctionParameters()
	if !ok {
		return nil
	}
	stmt.Parameters = params

	if !p.expectPeek(token.LBRACE, "Expect '{' before function body.") {
		return nil
	}

	stmt.Body = p.parseBlock()

	return stmt
}

func (p *Parser) parseFunctionParameters() ([]*ast.Identifier, bool) {
	parameters := []*ast.Identifier{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return parameters, true
	}

	p.nextToken()

	for {
		if len(parameters) >= maxArity {
			p.bag.ErrorAt(diag.StageParser, p.curToken, "Can't have more than 255 parameters.")
		}

		if !p.curTokenIs(token.IDENT) {
			p.bag.ErrorAt(diag.StageParser, p.curToken, "Expect parameter name.")
			return nil, false
		}

		parameters = append(parameters, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken() // consume comma
		p.nextToken() // move to the next parameter
	}

	if !p.expectPeek(token.RPAREN, "Expect ')' after parameters.") {
		return nil, false
	}

	return parameters, true
}

func (p *Parser) parsePrintStatement() ast.Statement {
	stmt := &ast.PrintStatement{Token: p.curToken}

	p.nextToken()

	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after value.") {
		return nil
	}

	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	if !p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		stmt.ReturnValue = p.parseExpression(LOWEST)
		if stmt.ReturnValue == nil {
			return nil
		}
	}

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after return value.") {
		return nil
	}

	return stmt
}

func (p *Parser) parseBreakStatement() ast.Statement {
	stmt := &ast.BreakStatement{Token: p.curToken}

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after 'break'.") {
		return nil
	}

	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN, "Expect '(' after 'if'.") {
		return nil
	}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}

	if !p.expectPeek(token.RPAREN, "Expect ')' after if condition.") {
		return nil
	}

	p.nextToken()
	stmt.ThenBranch = p.parseStatement()
	if stmt.ThenBranch == nil {
		return nil
	}

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		stmt.ElseBranch = p.parseStatement()
		if stmt.ElseBranch == nil {
			return nil
		}
	}

	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN, "Expect '(' after 'while'.") {
		return nil
	}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}

	if !p.expectPeek(token.RPAREN, "Expect ')' after condition.") {
		return nil
	}

	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}

	return stmt
}

// parseForStatement desugars the for loop into the equivalent block/while
// tree, so the resolver and evaluator never see a dedicated loop node:
//
//	for (init; cond; inc) body  =>  { init; while (cond) { body; inc; } }
//
// Missing clauses are simply omitted; a missing condition becomes `true`.
func (p *Parser) parseForStatement() ast.Statement {
	forToken := p.curToken

	if !p.expectPeek(token.LPAREN, "Expect '(' after 'for'.") {
		return nil
	}

	p.nextToken()
	var init ast.Statement
	switch p.curToken.Type {
	case token.SEMICOLON:
		// no initializer
	case token.VAR:
		init = p.parseVarStatement()
		if init == nil {
			return nil
		}
	default:
		init = p.parseExpressionStatement()
		if init == nil {
			return nil
		}
	}

	var cond ast.Expression
	if !p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		cond = p.parseExpression(LOWEST)
		if cond == nil {
			return nil
		}
	}
	if !p.expectPeek(token.SEMICOLON, "Expect ';' after loop condition.") {
		return nil
	}

	var inc ast.Expression
	if !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		inc = p.parseExpression(LOWEST)
		if inc == nil {
			return nil
		}
	}
	if !p.expectPeek(token.RPAREN, "Expect ')' after for clauses.") {
		return nil
	}

	p.nextToken()
	body := p.parseStatement()
	if body == nil {
		return nil
	}

	if inc != nil {
		body = &ast.BlockStatement{
			Token: forToken,
			Statements: []ast.Statement{
				body,
				&ast.ExpressionStatement{Token: forToken, Expression: inc},
			},
		}
	}

	if cond == nil {
		cond = &ast.Boolean{
			Token: token.Token{Type: token.TRUE, Literal: "true", Position: forToken.Position},
			Value: true,
		}
	}

	var loop ast.Statement = &ast.WhileStatement{Token: forToken, Condition: cond, Body: body}

	if init != nil {
		loop = &ast.BlockStatement{
			Token:      forToken,
			Statements: []ast.Statement{init, loop},
		}
	}

	return loop
}

func (p *Parser) parseBlockStatement() ast.Statement {
	return p.parseBlock()
}

func (p *Parser) parseBlock() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		} else {
			p.synchronize()
		}
		p.nextToken()
	}

	if !p.curTokenIs(token.RBRACE) {
		p.bag.ErrorAt(diag.StageParser, p.curToken, "Expect '}' after block.")
	}

	return block
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}

	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		return nil
	}

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after expression.") {
		return nil
	}

	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.bag.ErrorAt(diag.StageParser, p.curToken, "Expect expression.")
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}

	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}

	return LOWEST
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.bag.ErrorAt(diag.StageParser, p.curToken, "Invalid number literal.")
		return nil
	}

	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.Boolean{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNil() ast.Expression {
	return &ast.Nil{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}

	p.nextToken()

	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseLogicalExpression(left ast.Expression) ast.Expression {
	expression := &ast.LogicalExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

// parseAssignExpression rewrites `target = value` into an assignment node
// when the target turns out to be a plain variable. Anything else is
// reported at the '=' and parsing carries on with the target expression, so
// the error does not cascade.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	equals := p.curToken

	p.nextToken()
	value := p.parseExpression(ASSIGNMENT - 1) // right-associative
	if value == nil {
		return nil
	}

	name, ok := left.(*ast.Identifier)
	if !ok {
		p.bag.ErrorAt(diag.StageParser, equals, "Invalid assignment target.")
		return left
	}

	return &ast.AssignExpression{Token: equals, Name: name, Value: value}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	exp := &ast.GroupedExpression{Token: p.curToken}

	p.nextToken()

	exp.Inner = p.parseExpression(LOWEST)
	if exp.Inner == nil {
		return nil
	}

	if !p.expectPeek(token.RPAREN, "Expect ')' after expression.") {
		return nil
	}

	return exp
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Function: function}

	args, rparen, ok := p.parseCallArguments()
	if !ok {
		return nil
	}
	exp.Arguments = args
	exp.Token = rparen

	return exp
}

func (p *Parser) parseCallArguments() ([]ast.Expression, token.Token, bool) {
	args := []ast.Expression{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args, p.curToken, true
	}

	p.nextToken()

	for {
		if len(args) >= maxArity {
			p.bag.ErrorAt(diag.StageParser, p.curToken, "Can't have more than 255 arguments.")
		}

		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil, token.Token{}, false
		}
		args = append(args, arg)

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
	}

	if !p.expectPeek(token.RPAREN, "Expect ')' after arguments.") {
		return nil, token.Token{}, false
	}

	return args, p.curToken, true
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}
