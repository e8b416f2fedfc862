package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// config holds the parsed command line.
type config struct {
	SchemaPath   string
	DataPath     string
	FixturesPath string
	AddPath      string
	Class        string
	Field        string
	Dump         bool
	ShowOps      bool
	LogLevel     slog.Level
}

// parse processes command-line arguments. It reports whether the program
// should exit cleanly, e.g. after printing help.
func parse(args []string, output io.Writer) (*config, bool, error) {
	fs := flag.NewFlagSet("docmap", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Usage = func() {
		fmt.Fprint(output, `
docmap - export a document set the way it would be stored.

Usage:
  docmap export -schema FILE -data FILE -class NAME -field KEY [options]

Options:
`)
		fs.PrintDefaults()
	}

	var cfg config

	fs.StringVar(&cfg.SchemaPath, "schema", "", "Schema file (.yaml or .hcl).")
	fs.StringVar(&cfg.DataPath, "data", "", "YAML file holding the stored parent document.")
	fs.StringVar(&cfg.FixturesPath, "db", "", "YAML file mapping collection names to documents, used to resolve references.")
	fs.StringVar(&cfg.AddPath, "add", "", "YAML file with a list of documents to append to the set.")
	fs.StringVar(&cfg.Class, "class", "", "Class of the parent document.")
	fs.StringVar(&cfg.Field, "field", "", "Document set field of the parent document.")
	fs.BoolVar(&cfg.Dump, "dump", false, "Print a Go value dump instead of YAML.")
	fs.BoolVar(&cfg.ShowOps, "ops", false, "Also print the pending update operations of the parent document.")
	level := fs.String("log-level", "warn", "Logging level: 'debug', 'info', 'warn' or 'error'.")

	if len(args) == 0 {
		fs.Usage()
		return nil, true, nil
	}

	if args[0] != "export" {
		if args[0] == "-h" || args[0] == "-help" || args[0] == "--help" {
			fs.Usage()
			return nil, true, nil
		}

		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q (expected 'export')", args[0])}
	}

	err := fs.Parse(args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}

		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	err = cfg.LogLevel.UnmarshalText([]byte(strings.ToLower(*level)))
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	var missing []string

	for _, f := range []struct{ name, value string }{
		{"schema", cfg.SchemaPath},
		{"data", cfg.DataPath},
		{"class", cfg.Class},
		{"field", cfg.Field},
	} {
		if f.value == "" {
			missing = append(missing, "-"+f.name)
		}
	}

	if len(missing) > 0 {
		return nil, false, &ExitError{Code: 2, Message: "missing required flags: " + strings.Join(missing, ", ")}
	}

	return &cfg, false, nil
}
