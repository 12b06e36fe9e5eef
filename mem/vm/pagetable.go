package vm

import "github.com/sarchlab/ptsim/mem"

// A Mapping is a used entry of a process page table.
type Mapping struct {
	VPage int `json:"vpage"`
	PPage int `json:"ppage"`
}

// PageTable returns the physical page that holds the page table of the
// process. Zero means the process has never been allocated.
func (e *Engine) PageTable(pid int) int {
	return int(e.storage.Byte(mem.Address(0, mem.PTPOffset+pid)))
}

func (e *Engine) setPageTable(pid, page int) {
	e.storage.SetByte(mem.Address(0, mem.PTPOffset+pid), byte(page))
}

func (e *Engine) tableEntry(table, vpn int) int {
	return int(e.storage.Byte(mem.Address(table, vpn)))
}

func (e *Engine) setTableEntry(table, vpn, page int) {
	e.storage.SetByte(mem.Address(table, vpn), byte(page))
}

// Mappings lists the nonzero entries among the first PageCount slots of the
// process page table, in virtual page order.
func (e *Engine) Mappings(pid int) []Mapping {
	table := e.PageTable(pid)

	var mappings []Mapping
	for vpn := 0; vpn < mem.PageCount; vpn++ {
		page := e.tableEntry(table, vpn)
		if page != 0 {
			mappings = append(mappings, Mapping{VPage: vpn, PPage: page})
		}
	}

	return mappings
}

// isTablePage tells if the page is page 0 or the page table of any process
// whose pointer table entry lives in page 0.
func (e *Engine) isTablePage(page int) bool {
	if page == 0 {
		return true
	}

	for pid := 0; pid < maxCachedPID; pid++ {
		if e.PageTable(pid) == page {
			return true
		}
	}

	return false
}
