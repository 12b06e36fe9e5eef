// Package cmd provides the command-line interface of ptsim.
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ptsim/command"
	"github.com/sarchlab/ptsim/config"
)

var errUsage = errors.New("usage: ptsim commands")

// options are the values of the flags shared by the run commands.
type options struct {
	envFile    string
	trace      string
	tracePath  string
	tlbEntries int
	strict     bool
	logLevel   string
	stats      bool
	uniqueIDs  bool
}

func (o *options) addFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.envFile, "env-file", config.DefaultEnvFile,
		"file to read PTSIM_* settings from")
	f.StringVar(&o.trace, "trace", "",
		"record engine events, one of csv, json, sqlite")
	f.StringVar(&o.tracePath, "trace-path", "",
		"trace file name without extension")
	f.IntVar(&o.tlbEntries, "tlb-entries", 0,
		"cache translations in a TLB of this many entries, 0 to disable")
	f.BoolVar(&o.strict, "strict", false,
		"report a page fault instead of using page 0 for unmapped pages")
	f.StringVar(&o.logLevel, "log-level", "",
		"one of debug, info, warn, error")
	f.BoolVar(&o.stats, "stats", false,
		"print event counts to stderr after the run")
	f.BoolVar(&o.uniqueIDs, "unique-ids", false,
		"give trace tasks globally unique IDs instead of sequential ones")
}

// resolve merges the configuration from the environment with the flags that
// were set explicitly.
func (o *options) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return config.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("trace") {
		cfg.Trace = o.trace
	}

	if f.Changed("trace-path") {
		cfg.TracePath = o.tracePath
	}

	if f.Changed("tlb-entries") {
		cfg.TLBEntries = o.tlbEntries
	}

	if f.Changed("strict") {
		cfg.Strict = o.strict
	}

	if f.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	return cfg, nil
}

// NewRootCmd creates the ptsim command tree writing to the given streams.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "ptsim [flags] command...",
		Short: "Simulate paged virtual memory.",
		Long: `ptsim simulates a 16 KiB physical memory of 64 pages shared by ` +
			`processes with their own page tables. Commands:

  pfm                      print the page free map
  ppt <pid>                print the page table of a process
  np  <pid> <pages>        create a process with a number of pages
  kp  <pid>                kill a process
  sb  <pid> <vaddr> <val>  store a byte at a virtual address
  lb  <pid> <vaddr>        load a byte from a virtual address`,
		Example:       "  ptsim np 1 2 pfm ppt 1 sb 1 3 300 lb 1 3",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errUsage
			}

			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}

			return run(cfg, opts, args, stdout, stderr)
		},
	}

	rootCmd.Flags().SetInterspersed(false)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	opts.addFlags(rootCmd)

	rootCmd.AddCommand(
		newServeCmd(opts, stdout, stderr),
		newInfoCmd(stdout),
		newTraceCmd(stdout),
	)

	return rootCmd
}

// Execute runs ptsim with the arguments and returns the exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	return 0
}

func run(
	cfg config.Config,
	opts *options,
	args []string,
	stdout, stderr io.Writer,
) error {
	s, err := newSession(cfg, opts.uniqueIDs, stderr)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(stdout)
	d := command.NewDispatcher(s.engine, out, s.logger)
	runErr := d.Execute(args)

	err = out.Flush()
	if err != nil {
		return err
	}

	if opts.stats {
		s.reportStats(stderr)
	}

	return errors.Join(runErr, s.close())
}
