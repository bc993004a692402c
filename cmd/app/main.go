package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"lox/internal/diag"
	"lox/internal/evaluator"
	"lox/internal/lexer"
	"lox/internal/object"
	"lox/internal/parser"
	"lox/internal/repl"
	"lox/internal/resolver"
	"lox/internal/util"
)

var (
	// Version is the current version of the lox binary, stamped via ldflags.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"

	help    bool
	version bool
	// logging
	logLevel string
	logFile  string
	// config vars
	configPath   string
	debugJsonAST bool
	debugTxtAST  bool
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	// interpreter config
	flag.StringVar(&configPath, "config", "", "Path to a TOML configuration file")
	// parser config
	flag.BoolVar(&debugJsonAST, "debug-ast-json", false, "Render the AST as a JSON file next to the script")
	flag.BoolVar(&debugTxtAST, "debug-ast-text", false, "Render the AST as indented text on stderr")
	// log config
	flag.StringVar(&logLevel, "log-level", "none", "Log level: debug, info, warn, error, none")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	flag.Parse()

	// Creates a new Logger that uses a JSONHandler to write to the log file,
	// or to standard error when none is set
	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(logLevel),
	}
	logWriter := configureLogWriter()
	defaultLogger := slog.New(slog.NewJSONHandler(logWriter, loggerOptions))
	slog.SetDefault(defaultLogger)

	if version {
		printVersion()
		return
	}

	if help {
		printHelp()
		return
	}

	cfg, err := util.LoadConfiguration(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v; continuing with defaults\n", err)
	}
	cfg.Version = Version
	cfg.BuildDate = BuildDate
	cfg.Commit = Commit
	if debugJsonAST {
		cfg.DebugJsonAST = true
	}
	if debugTxtAST {
		cfg.DebugTxtAST = true
	}

	args := flag.Args()
	switch {
	case len(args) > 1:
		fmt.Fprintln(os.Stderr, "Usage: lox [script]")
		os.Exit(64)
	case len(args) == 1:
		os.Exit(runFile(args[0], cfg))
	default:
		repl.Start(cfg, os.Stdout, os.Stderr)
	}
}

// runFile executes a script once and maps the outcome onto the process exit
// code: 74 when the script cannot be read, 65 for static errors, 70 for a
// runtime error, 0 otherwise.
func runFile(path string, cfg util.Configuration) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read '%s': %v\n", path, err)
		return 74
	}

	bag := diag.NewBag(string(src), os.Stderr)

	l := lexer.New(string(src), bag)
	p := parser.New(l, bag)
	program := p.ParseProgram()
	if bag.HadError() {
		return 65
	}

	if cfg.DebugTxtAST {
		fmt.Fprintln(os.Stderr, parser.RenderASTAsText(program, 0))
	}
	if cfg.DebugJsonAST {
		if rendered, err := parser.RenderASTAsJSON(program); err == nil {
			if werr := os.WriteFile(path+".ast.json", []byte(rendered), 0o644); werr != nil {
				fmt.Fprintf(os.Stderr, "failed to write AST dump: %v\n", werr)
			}
		}
	}

	locals := resolver.New(bag).Resolve(program)
	if bag.HadError() {
		return 65
	}

	e := evaluator.New(os.Stdout)
	e.AddLocals(locals)

	result := e.Run(program)
	if errObj, ok := result.(*object.Error); ok {
		bag.Runtime(errObj.Position, errObj.Message)
		return 70
	}

	return 0
}

func configureLogWriter() *os.File {
	var logWriter *os.File
	var err error
	if logFile != "" {
		logWriter, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
			logWriter = os.Stderr
		}
	} else {
		logWriter = os.Stderr
	}
	return logWriter
}

func printVersion() {
	fmt.Printf("lox version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: lox [options] [script]

Options:
  -config <path>     Path to a TOML configuration file.
  -debug-ast-json    Render the AST as a JSON file next to the script.
  -debug-ast-text    Render the AST as indented text on stderr.
  -help              Display this help information and exit.
  -version           Display version information and exit.
  -log-level <level> Set the log level: debug, info, warn, error. Default is 'none'.
  -log-file <path>   Specify a log file to write logs. Default is stderr.

Details:
Run with a script path to execute it, or with no arguments for an
interactive session. In the REPL a line consisting solely of the NUL
character ends the session.

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		// anything else effectively disables logging
		return slog.Level(127)
	}
}
