// Package inspect prints the state of a page-memory engine for humans.
package inspect

import (
	"fmt"
	"io"

	"github.com/sarchlab/ptsim/mem"
	"github.com/sarchlab/ptsim/mem/vm"
)

const (
	freeMapColumns   = 16
	dumpBytesPerLine = 16
)

// PrintFreeMap prints one character per physical page, '.' for a free page and
// '#' for an allocated one, 16 pages per line.
func PrintFreeMap(w io.Writer, e *vm.Engine) {
	fmt.Fprintf(w, "--- PAGE FREE MAP ---\n")

	for page, allocated := range e.AllocationMap() {
		c := '.'
		if allocated {
			c = '#'
		}

		fmt.Fprintf(w, "%c", c)

		if (page+1)%freeMapColumns == 0 {
			fmt.Fprint(w, "\n")
		}
	}
}

// PrintPageTable prints the used entries of a process page table as
// "vpage -> ppage" in two-digit hex.
func PrintPageTable(w io.Writer, e *vm.Engine, pid int) {
	fmt.Fprintf(w, "--- PROCESS %d PAGE TABLE ---\n", pid)

	for _, m := range e.Mappings(pid) {
		fmt.Fprintf(w, "%02x -> %02x\n", m.VPage, m.PPage)
	}
}

// HexDump prints the bytes of one physical page, 16 bytes per line, each line
// prefixed with its physical address.
func HexDump(w io.Writer, e *vm.Engine, page int) error {
	data, err := e.Storage().Read(mem.Address(page, 0), mem.PageSize)
	if err != nil {
		return err
	}

	for i := 0; i < len(data); i += dumpBytesPerLine {
		fmt.Fprintf(w, "%04x:", mem.Address(page, i))

		for _, b := range data[i : i+dumpBytesPerLine] {
			fmt.Fprintf(w, " %02x", b)
		}

		fmt.Fprint(w, "\n")
	}

	return nil
}
