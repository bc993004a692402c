package repl

import (
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"

	"lox/internal/ast"
	"lox/internal/diag"
	"lox/internal/evaluator"
	"lox/internal/lexer"
	"lox/internal/object"
	"lox/internal/parser"
	"lox/internal/resolver"
	"lox/internal/util"
)

// Start runs the interactive loop. Every line goes through the whole
// pipeline — scan, parse, resolve, execute — against one long-lived
// evaluator, so definitions persist while errors reset between lines.
// A line consisting solely of the NUL character ends the session cleanly,
// as do Ctrl-D and Ctrl-C at the prompt.
func Start(cfg util.Configuration, out io.Writer, errOut io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if cfg.HistoryFile != "" {
		if f, err := os.Open(cfg.HistoryFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	e := evaluator.New(out)

	for {
		input, err := line.Prompt(cfg.Prompt)
		if err != nil {
			// io.EOF on Ctrl-D, ErrPromptAborted on Ctrl-C
			break
		}
		if input == "\x00" {
			break
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		runLine(e, input, out, errOut)
	}

	if cfg.HistoryFile != "" {
		if f, err := os.Create(cfg.HistoryFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
}

func runLine(e *evaluator.Evaluator, input string, out io.Writer, errOut io.Writer) {
	bag := diag.NewBag(input, errOut)

	l := lexer.New(input, bag)
	p := parser.New(l, bag)
	program := p.ParseProgram()
	if bag.HadError() {
		return
	}

	locals := resolver.New(bag).Resolve(program)
	if bag.HadError() {
		return
	}
	e.AddLocals(locals)

	result := e.Run(program)
	if errObj, ok := result.(*object.Error); ok {
		bag.Runtime(errObj.Position, errObj.Message)
		return
	}

	// Echo the value of a bare expression line, REPL-only sugar.
	if len(program.Statements) > 0 && result != nil {
		last := program.Statements[len(program.Statements)-1]
		if _, ok := last.(*ast.ExpressionStatement); ok {
			fmt.Fprintln(out, result.Inspect())
		}
	}
}
