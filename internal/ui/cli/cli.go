package cli

import (
	"flag"
	"fmt"
	"io"
)

const versionString = "1.0.0"

const longHelp = `refactorimports analyzes a tree of Python packages.

A directory root is walked recursively; only directories containing an
__init__.py are packages, and every .py file inside one is a module. A single
file root is analyzed on its own.

Modes (combinable):
  --all       print a "from M import N" line for every exportable symbol
  --usages    print each module's distinct call targets
  --imports   import each module in a python worker and print a unified diff
              replacing "from M import *" with the names it actually bound
  --dump      print the syntax tree of every module

Patches are printed, never applied. Configuration is read from
refactorimports.toml (or --config) and REFACTOR_IMPORTS_* variables,
including those in a .env file.
`

type cliOptions struct {
	configPath string
	topDir     string
	all        bool
	usages     bool
	imports    bool
	dump       bool
	watch      bool
	verbosity  int
	verbose    bool
	logFile    string
	version    bool
	longHelp   bool
	args       []string
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("refactorimports", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file (default ./refactorimports.toml when present)")
	fs.StringVar(&opts.topDir, "top_dir", ".", "Directory containing the packages to analyze, or a single .py file")
	fs.BoolVar(&opts.all, "all", false, "List imports for all exportable symbols in the package hierarchy")
	fs.BoolVar(&opts.usages, "usages", false, "List call targets used by each module")
	fs.BoolVar(&opts.imports, "imports", false, "Print patches that replace bulk imports with explicit ones")
	fs.BoolVar(&opts.dump, "dump", false, "Dump the syntax tree of each module")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run the selected modes whenever a .py file changes")
	fs.IntVar(&opts.verbosity, "verbosity", 2, "Verbosity: 0=none, 1=errors, 2=info+errors, 3+=debug")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging (same as --verbosity 3)")
	fs.StringVar(&opts.logFile, "logfile", "", "Also write log messages to this file")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.BoolVar(&opts.longHelp, "longhelp", false, "Print extended help and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}

// root is the positional argument when given, --top_dir otherwise.
func (o cliOptions) root() (string, error) {
	switch len(o.args) {
	case 0:
		return o.topDir, nil
	case 1:
		return o.args[0], nil
	default:
		return "", fmt.Errorf("expected at most one root argument, got %d", len(o.args))
	}
}
