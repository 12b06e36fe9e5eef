package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ptsim/mem"
)

func newInfoCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the geometry of the simulated memory.",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			printInfo(stdout)
		},
	}
}

func printInfo(w io.Writer) {
	fmt.Fprintf(w, "page size:     %s (shift %d)\n",
		humanize.IBytes(mem.PageSize), mem.PageShift)
	fmt.Fprintf(w, "page count:    %d\n", mem.PageCount)
	fmt.Fprintf(w, "memory size:   %s\n", humanize.IBytes(mem.MemSize))
	fmt.Fprintf(w, "free map:      page 0, bytes 0-%d\n", mem.PageCount-1)
	fmt.Fprintf(w, "pointer table: page 0, bytes %d-%d (%d processes)\n",
		mem.PTPOffset, mem.PageSize-1, mem.PageSize-mem.PTPOffset)
}
