// Package cli parses the simulator's command line into run options.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// ExitError is a parse or run failure with a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Options is the parsed simulator configuration.
type Options struct {
	PlatformPath string

	Chips             int
	VUART             bool
	BARConfigured     bool
	FailBARRead       bool
	ExistingConsole   bool
	ExistingInventory bool

	DumpTree        bool
	CheckIdempotent bool
	NoColor         bool

	LogFormat string
	LogLevel  string
}

// Parse processes command-line arguments. It returns the populated Options,
// a boolean indicating the program should exit cleanly (help requested), or
// an ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("bringup-sim", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
bringup-sim - run the early bring-up sequence against simulated hardware.

Usage:
  bringup-sim [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	opts := &Options{}
	flagSet.StringVar(&opts.PlatformPath, "platform", "", "Path to an HCL platform override file. Empty uses the built-in defaults.")
	flagSet.IntVar(&opts.Chips, "chips", 1, "Number of simulated processing chips.")
	flagSet.BoolVar(&opts.VUART, "vuart", false, "Simulate a firmware image with the virtual UART path enabled.")
	flagSet.BoolVar(&opts.BARConfigured, "bar-configured", false, "Seed the base-address register as already configured.")
	flagSet.BoolVar(&opts.FailBARRead, "fail-bar-read", false, "Inject a transport error on the base-address register read.")
	flagSet.BoolVar(&opts.ExistingConsole, "existing-console", false, "Pre-describe the console node in the tree.")
	flagSet.BoolVar(&opts.ExistingInventory, "existing-inventory", false, "Pre-describe the inventory controller in the tree.")
	flagSet.BoolVar(&opts.DumpTree, "dump", false, "Print the resulting hardware description tree as YAML.")
	flagSet.BoolVar(&opts.CheckIdempotent, "check-idempotent", false, "Run the tree fixups a second time and fail on any difference.")
	flagSet.BoolVar(&opts.NoColor, "no-color", false, "Disable colored summary output.")
	flagSet.StringVar(&opts.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flagSet.StringVar(&opts.LogLevel, "log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() > 0 {
		return nil, false, &ExitError{
			Code:    2,
			Message: fmt.Sprintf("unexpected argument %q", flagSet.Arg(0)),
		}
	}
	if opts.Chips < 1 {
		return nil, false, &ExitError{Code: 2, Message: "-chips must be at least 1"}
	}

	switch strings.ToLower(opts.LogFormat) {
	case "text", "json":
		opts.LogFormat = strings.ToLower(opts.LogFormat)
	default:
		return nil, false, &ExitError{
			Code:    2,
			Message: fmt.Sprintf("invalid -log-format %q, expected 'text' or 'json'", opts.LogFormat),
		}
	}

	return opts, false, nil
}
