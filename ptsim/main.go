// Command ptsim runs a paged virtual memory simulator driven by commands
// given on the command line.
package main

import (
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/ptsim/ptsim/cmd"
)

func main() {
	atexit.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
