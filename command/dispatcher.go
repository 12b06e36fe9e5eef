// Package command runs the ptsim command language against a page-memory
// engine.
//
// A command line is a flat list of tokens. Each command name is followed by a
// fixed number of numeric arguments:
//
//	pfm                  print the page free map
//	ppt <pid>            print the page table of a process
//	np  <pid> <pages>    create a process
//	kp  <pid>            kill a process
//	sb  <pid> <vaddr> <value>   store a byte
//	lb  <pid> <vaddr>    load a byte
package command

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/ptsim/inspect"
	"github.com/sarchlab/ptsim/mem/vm"
)

type handler func(d *Dispatcher, args []int) error

type spec struct {
	numArgs int
	handle  handler
}

var commands = map[string]spec{
	"pfm": {0, (*Dispatcher).printFreeMap},
	"ppt": {1, (*Dispatcher).printPageTable},
	"np":  {2, (*Dispatcher).newProcess},
	"kp":  {1, (*Dispatcher).killProcess},
	"sb":  {3, (*Dispatcher).storeByte},
	"lb":  {2, (*Dispatcher).loadByte},
}

// IsCommand tells if the token names a command.
func IsCommand(token string) bool {
	_, ok := commands[token]
	return ok
}

// A Dispatcher parses command tokens and calls into the engine.
type Dispatcher struct {
	engine *vm.Engine
	out    io.Writer
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher that writes its output to out. A nil
// logger discards log records.
func NewDispatcher(
	engine *vm.Engine,
	out io.Writer,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Dispatcher{
		engine: engine,
		out:    out,
		logger: logger,
	}
}

// Execute runs the commands in order. Out-of-memory conditions and page
// faults are printed and do not stop the run. Unknown tokens are skipped. A
// command missing trailing arguments reads them as 0.
//
// The returned error is non-nil only if the engine reports an error this
// dispatcher does not know how to print.
func (d *Dispatcher) Execute(tokens []string) error {
	for i := 0; i < len(tokens); i++ {
		name := tokens[i]

		cmd, ok := commands[name]
		if !ok {
			d.logger.Warn("skipping unknown command", "token", name, "pos", i)
			continue
		}

		args := make([]int, cmd.numArgs)
		for a := range args {
			i++
			if i < len(tokens) {
				args[a] = atoi(tokens[i])
			}
		}

		d.logger.Debug("command", "name", name, "args", args)

		err := cmd.handle(d, args)
		if err != nil {
			return err
		}
	}

	return nil
}

func (d *Dispatcher) report(err error) error {
	var oom *vm.OutOfMemoryError
	var fault *vm.PageFaultError

	switch {
	case err == nil:
		return nil
	case errors.As(err, &oom), errors.As(err, &fault):
		d.logger.Info("engine reported", "err", err)
		fmt.Fprintln(d.out, err)
		return nil
	default:
		return err
	}
}

func (d *Dispatcher) printFreeMap(_ []int) error {
	inspect.PrintFreeMap(d.out, d.engine)
	return nil
}

func (d *Dispatcher) printPageTable(args []int) error {
	inspect.PrintPageTable(d.out, d.engine, args[0])
	return nil
}

func (d *Dispatcher) newProcess(args []int) error {
	return d.report(d.engine.NewProcess(args[0], args[1]))
}

func (d *Dispatcher) killProcess(args []int) error {
	d.engine.KillProcess(args[0])
	return nil
}

func (d *Dispatcher) storeByte(args []int) error {
	a, err := d.engine.Store(args[0], args[1], args[2])
	if err != nil {
		return d.report(err)
	}

	fmt.Fprintf(d.out, "Store proc %d: %d => %d, value=%d\n",
		a.PID, a.VAddr, a.PAddr, a.Value)

	return nil
}

func (d *Dispatcher) loadByte(args []int) error {
	a, err := d.engine.Load(args[0], args[1])
	if err != nil {
		return d.report(err)
	}

	fmt.Fprintf(d.out, "Load proc %d: %d => %d, value=%d\n",
		a.PID, a.VAddr, a.PAddr, a.Value)

	return nil
}
