// Package vm implements the page-memory engine: physical page allocation,
// per-process page tables, and virtual to physical address translation over a
// flat physical memory.
//
// Page 0 of the physical memory holds the engine's own bookkeeping. Its first
// PageCount bytes are the allocation bitmap, one byte per physical page, and
// starting from byte PTPOffset it holds the pointer table that maps a process
// number to the physical page of its page table.
package vm

import (
	"github.com/sarchlab/ptsim/mem"
	"github.com/sarchlab/ptsim/sim"
)

// AccessKind tells if an Access is a store or a load.
type AccessKind string

// Kinds of Access.
const (
	StoreAccess AccessKind = "store"
	LoadAccess  AccessKind = "load"
)

// An Access records one store or load transaction. For stores, Value is the
// value as requested by the caller, before being truncated to a byte.
type Access struct {
	Kind  AccessKind `json:"kind"`
	PID   int        `json:"pid"`
	VAddr int        `json:"vaddr"`
	PAddr int        `json:"paddr"`
	Value int        `json:"value"`
}

// A ProcessEvent describes the pages touched by a process allocation or
// teardown.
type ProcessEvent struct {
	PID       int   `json:"pid"`
	TablePage int   `json:"table_page"`
	Pages     []int `json:"pages"`
}

// Stats summarizes the state of the engine.
type Stats struct {
	AllocatedPages int    `json:"allocated_pages"`
	FreePages      int    `json:"free_pages"`
	TLBEnabled     bool   `json:"tlb_enabled"`
	TLBHits        uint64 `json:"tlb_hits"`
	TLBMisses      uint64 `json:"tlb_misses"`
}

// Engine is the page-memory engine. It is the exclusive owner of its
// storage and is not safe for concurrent use.
type Engine struct {
	*sim.HookableBase

	storage             *mem.Storage
	tlb                 *tlb
	pageFaultOnUnmapped bool
}

// Init zeroes the physical memory and marks page 0 as allocated.
func (e *Engine) Init() {
	e.storage.Reset()
	e.markAllocated(0)
	e.tlb.flush()
}

// Close releases the resources held by the TLB.
func (e *Engine) Close() {
	e.tlb.close()
}

// Storage returns the physical memory of the engine.
func (e *Engine) Storage() *mem.Storage {
	return e.storage
}

// IsAllocated tells if the physical page is marked as allocated.
func (e *Engine) IsAllocated(page int) bool {
	return e.storage.Byte(mem.Address(0, page)) != 0
}

// AllocationMap returns the allocation state of every physical page.
func (e *Engine) AllocationMap() []bool {
	m := make([]bool, mem.PageCount)
	for page := range m {
		m[page] = e.IsAllocated(page)
	}

	return m
}

// Stats returns a summary of the engine state.
func (e *Engine) Stats() Stats {
	s := Stats{TLBEnabled: e.tlb != nil}

	for _, allocated := range e.AllocationMap() {
		if allocated {
			s.AllocatedPages++
		} else {
			s.FreePages++
		}
	}

	if e.tlb != nil {
		s.TLBHits = e.tlb.hits
		s.TLBMisses = e.tlb.misses
	}

	return s
}

func (e *Engine) markAllocated(page int) {
	e.storage.SetByte(mem.Address(0, page), 1)
}

func (e *Engine) markFree(page int) {
	e.storage.SetByte(mem.Address(0, page), 0)
}

// firstFreePage scans the bitmap from the given page upward.
func (e *Engine) firstFreePage(from int) (int, bool) {
	for page := from; page < mem.PageCount; page++ {
		if !e.IsAllocated(page) {
			return page, true
		}
	}

	return 0, false
}

// NewProcess allocates a page table page and pageCount data pages for the
// process, always taking the lowest free physical page. The data pages are
// mapped to virtual pages 0, 1, 2, ... in allocation order.
//
// When memory runs out, NewProcess returns an *OutOfMemoryError naming the
// step that failed. Pages claimed before the failure stay allocated.
func (e *Engine) NewProcess(pid, pageCount int) error {
	event := ProcessEvent{PID: pid}

	tablePage, found := e.firstFreePage(1)
	if !found {
		return e.outOfMemory(pid, PageTableResource, event)
	}

	e.markAllocated(tablePage)
	e.setPageTable(pid, tablePage)
	e.tlb.flush()

	table := e.PageTable(pid)
	event.TablePage = table

	for vpn := 0; vpn < pageCount; vpn++ {
		page, found := e.firstFreePage(0)
		if !found {
			return e.outOfMemory(pid, DataPageResource, event)
		}

		e.markAllocated(page)
		e.setTableEntry(table, vpn, page)
		event.Pages = append(event.Pages, page)
	}

	e.invokeHook(HookPosNewProcess, event, nil)

	return nil
}

func (e *Engine) outOfMemory(
	pid int,
	resource Resource,
	event ProcessEvent,
) error {
	err := &OutOfMemoryError{PID: pid, Resource: resource}
	e.invokeHook(HookPosOutOfMemory, err, event)

	return err
}

// KillProcess frees the page table page and then the data pages it lists.
// Process 0 can never be killed. The pointer table entry of the process is
// left untouched.
//
// The table page is freed before it is scanned. For a process without a page
// table, the scan then reads the already cleared bitmap of page 0.
func (e *Engine) KillProcess(pid int) {
	if pid == 0 {
		return
	}

	table := e.PageTable(pid)
	event := ProcessEvent{PID: pid, TablePage: table}

	e.markFree(table)

	for vpn := 0; vpn < mem.PageCount; vpn++ {
		page := e.tableEntry(table, vpn)
		if page != 0 {
			e.markFree(page)
			event.Pages = append(event.Pages, page)
		}
	}

	e.tlb.flush()

	e.invokeHook(HookPosKillProcess, event, nil)
}

// Translate converts a virtual address of a process into a physical address.
//
// By default, translation never fails. An unmapped virtual page reads entry 0
// and resolves into physical page 0. If the engine is built with
// WithPageFaultOnUnmapped, a *PageFaultError is returned instead.
func (e *Engine) Translate(pid, vaddr int) (int, error) {
	vpn := vaddr >> mem.PageShift
	offset := vaddr & mem.OffsetMask

	page, found := e.tlb.lookup(pid, vpn)
	if !found {
		table := e.PageTable(pid)
		page = e.tableEntry(table, vpn)

		if e.pageFaultOnUnmapped && (table == 0 || page == 0) {
			err := &PageFaultError{PID: pid, VAddr: vaddr}
			e.invokeHook(HookPosPageFault, err, nil)

			return 0, err
		}

		e.tlb.insert(pid, vpn, page)
	}

	return mem.Address(page, offset), nil
}

// Store writes the lowest byte of value to the virtual address of the process.
func (e *Engine) Store(pid, vaddr, value int) (Access, error) {
	paddr, err := e.Translate(pid, vaddr)
	if err != nil {
		return Access{}, err
	}

	e.storage.SetByte(paddr, byte(value))

	if e.tlb != nil && e.isTablePage(mem.PageOf(paddr)%mem.PageCount) {
		e.tlb.flush()
	}

	access := Access{
		Kind:  StoreAccess,
		PID:   pid,
		VAddr: vaddr,
		PAddr: paddr,
		Value: value,
	}
	e.invokeHook(HookPosStore, access, nil)

	return access, nil
}

// Load reads one byte from the virtual address of the process.
func (e *Engine) Load(pid, vaddr int) (Access, error) {
	paddr, err := e.Translate(pid, vaddr)
	if err != nil {
		return Access{}, err
	}

	access := Access{
		Kind:  LoadAccess,
		PID:   pid,
		VAddr: vaddr,
		PAddr: paddr,
		Value: int(e.storage.Byte(paddr)),
	}
	e.invokeHook(HookPosLoad, access, nil)

	return access, nil
}

func (e *Engine) invokeHook(pos *sim.HookPos, item, detail interface{}) {
	if e.NumHooks() == 0 {
		return
	}

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
