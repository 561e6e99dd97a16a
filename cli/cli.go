// Package cli implements the brainfuck command line: run one program file
// with an optional input line and print the timing and the output.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MarcinKonowalczyk/bfvm/bf"
	"github.com/MarcinKonowalczyk/bfvm/config"
	"github.com/containerd/log"
)

// comptime override for debug flag
// set with `-ldflags="-X 'github.com/MarcinKonowalczyk/bfvm/cli.debug=true'"`
var debug string

// ErrUsage is returned when the program file argument is missing.
var ErrUsage = errors.New("missing program file")

// OutputMarker separates the timing line from the program output.
const OutputMarker = "--- output ---"

// ErrorOutput replaces the output of a failed run.
const ErrorOutput = "error"

func Usage(name string) string {
	return fmt.Sprintf("Usage: %s [-config file] [-debug] <program> [<input>]", name)
}

type options struct {
	configPath string
	debug      bool
	program    string
	input      string
}

func parseArgs(args []string) (*options, error) {
	var o options
	fs := flag.NewFlagSet("brainfuck", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.configPath, "config", "", "TOML or YAML configuration file")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	rest := fs.Args()
	if len(rest) < 1 {
		return nil, ErrUsage
	}
	o.program = rest[0]
	if len(rest) > 1 {
		o.input = rest[1] + "\n"
	}
	return &o, nil
}

func loadConfig(o *options) (config.Config, error) {
	c := config.Default()
	if o.configPath != "" {
		var err error
		if c, err = c.Load(o.configPath); err != nil {
			return c, err
		}
	}
	c, envErr := c.FromEnv()
	c.Debug = c.Debug || o.debug || debug != ""
	return c, errors.Join(envErr, c.Validate())
}

// Run executes the command line args (without the program name) and
// writes the report to stdout. A failed execution is not an error: its
// output is reported as "error".
func Run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseArgs(args)
	if err != nil {
		return err
	}

	c, err := loadConfig(o)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.Debug {
		if err := log.SetLevel("debug"); err != nil {
			return err
		}
	}

	source, err := os.ReadFile(o.program)
	if err != nil {
		return fmt.Errorf("failed to read program: %w", err)
	}

	start := time.Now()
	output, err := bf.ExecuteContext(ctx, string(source), o.input, c.Options()...)
	elapsed := time.Since(start)
	if err != nil {
		log.G(ctx).WithError(err).WithField("program", o.program).Debug("execution failed")
		output = ErrorOutput
	}

	fmt.Fprintf(stdout, "execution took %d ms\n", elapsed.Milliseconds())
	fmt.Fprintln(stdout, OutputMarker)
	_, err = io.WriteString(stdout, output)
	return err
}

// Main runs the command line and exits the process on failure.
func Main(ctx context.Context, name string, args []string) {
	err := Run(ctx, args, os.Stdout)
	if errors.Is(err, ErrUsage) {
		fmt.Println(Usage(name))
		os.Exit(1)
	}
	if err != nil {
		log.G(ctx).WithError(err).Fatal("brainfuck")
	}
}
