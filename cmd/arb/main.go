// arb runs arborate programs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/arborate/manifest"
	"github.com/chazu/arborate/runner"
	"github.com/chazu/arborate/vm"
)

var log = commonlog.GetLogger("arborate.cli")

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options are the parsed command line flags.
type options struct {
	config      string
	entries     string
	entriesSet  bool
	disasm      bool
	fingerprint bool
	trace       bool
	verbose     bool
	workers     int
	program     string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("arb", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.config, "config", "", "Configuration file (default: nearest arborate.toml)")
	fs.StringVar(&o.entries, "f", "", "Function(s) to run: index or name, comma separated")
	fs.BoolVar(&o.disasm, "disasm", false, "Print the program listing")
	fs.BoolVar(&o.fingerprint, "fingerprint", false, "Print the program fingerprint")
	fs.BoolVar(&o.trace, "trace", false, "Log every executed instruction (implies -v)")
	fs.BoolVar(&o.verbose, "v", false, "Verbose output")
	fs.IntVar(&o.workers, "workers", 0, "Worker goroutines for multiple functions (default from config)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: arb [options] [program.toml]\n\n")
		fmt.Fprintf(stderr, "Verifies and runs an arborate program.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  arb pow.toml                  # Run function 0\n")
		fmt.Fprintf(stderr, "  arb -f pow,main pow.toml      # Run two functions concurrently\n")
		fmt.Fprintf(stderr, "  arb -disasm pow.toml          # Print the listing\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "f" {
			o.entriesSet = true
		}
	})
	switch fs.NArg() {
	case 0:
	case 1:
		o.program = fs.Arg(0)
	default:
		fs.Usage()
		return nil, fmt.Errorf("expected one program, got %d", fs.NArg())
	}
	return &o, nil
}

func loadConfig(o *options) (*manifest.Config, error) {
	if o.config != "" {
		return manifest.LoadFile(o.config)
	}
	cfg, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = manifest.Default()
	}
	return cfg, nil
}

// run is main without the process exit, so it can be tested.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	verbosity := cfg.Log.Verbosity
	if o.verbose || o.trace {
		verbosity = max(verbosity, 2)
	}
	commonlog.Initialize(verbosity, cfg.LogPath())

	path := o.program
	if path == "" {
		path = cfg.ProgramPath()
	}
	if path == "" {
		fmt.Fprintf(stderr, "Error: no program given and none configured in %s\n", manifest.FileName)
		return exitUsage
	}

	program, err := manifest.LoadProgram(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	opts := cfg.Options()
	if o.trace {
		opts = append(opts, vm.WithTrace(true))
	}
	m, err := program.Machine(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
		return exitError
	}
	log.Infof("loaded %d functions from %s", m.FunctionCount(), path)

	if o.disasm {
		fmt.Fprint(stdout, m.Disassemble())
	}
	if o.fingerprint {
		fp, err := m.Fingerprint()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		fmt.Fprintln(stdout, fp)
	}
	if (o.disasm || o.fingerprint) && !o.entriesSet {
		return exitOK
	}

	selection := cfg.Run.Entry
	if o.entriesSet {
		selection = o.entries
	}
	jobs, err := resolveJobs(program, selection)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if len(jobs) == 1 {
		values, err := m.ExecuteFunction(ctx, jobs[0].Entry)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		printValues(stdout, values)
		return exitOK
	}

	workers := cfg.Run.Workers
	if o.workers > 0 {
		workers = o.workers
	}
	pool := runner.NewPool(m, workers)
	defer pool.Stop()

	results, err := runner.RunAll(ctx, pool, jobs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	for _, r := range results {
		fmt.Fprintf(stdout, "; %s\n", r.Job.Label)
		if r.Err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", r.Job.Label, r.Err)
			continue
		}
		printValues(stdout, r.Values)
	}
	if failed := runner.Failed(results); len(failed) > 0 {
		fmt.Fprintf(stderr, "%d of %d functions failed\n", len(failed), len(results))
		return exitError
	}
	return exitOK
}

func resolveJobs(program *manifest.Program, selection string) ([]runner.Job, error) {
	var jobs []runner.Job
	for _, entry := range strings.Split(selection, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		index, err := program.Index(entry)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, runner.Job{Entry: index, Label: entry})
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no function selected")
	}
	return jobs, nil
}

// printValues writes one "Type value" line per result, bottom of the stack
// first.
func printValues(w io.Writer, values []vm.Value) {
	for _, v := range values {
		fmt.Fprintf(w, "%s %s\n", v.Type(), v)
	}
}
