package vm

import (
	"github.com/sarchlab/ptsim/mem"
	"github.com/sarchlab/ptsim/sim"
)

// A Builder can build page-memory engines.
type Builder struct {
	storage             *mem.Storage
	tlbEntries          int
	pageFaultOnUnmapped bool
	hooks               []sim.Hook
}

// MakeBuilder creates a new builder with the TLB disabled and unmapped pages
// aliasing onto page 0.
func MakeBuilder() Builder {
	return Builder{}
}

// WithStorage sets the physical memory the engine works on. The storage must
// be exactly MemSize bytes.
func (b Builder) WithStorage(storage *mem.Storage) Builder {
	b.storage = storage
	return b
}

// WithTLBEntries enables a translation cache with the given number of
// entries. Zero disables the cache.
func (b Builder) WithTLBEntries(n int) Builder {
	b.tlbEntries = n
	return b
}

// WithPageFaultOnUnmapped makes translations of unmapped virtual pages fail
// with a *PageFaultError.
func (b Builder) WithPageFaultOnUnmapped(enabled bool) Builder {
	b.pageFaultOnUnmapped = enabled
	return b
}

// WithHook registers a hook on the engine being built.
func (b Builder) WithHook(hook sim.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], hook)
	return b
}

// Build creates an initialized engine.
func (b Builder) Build() *Engine {
	storage := b.storage
	if storage == nil {
		storage = mem.NewStorage(mem.MemSize)
	}

	if storage.Capacity() != mem.MemSize {
		panic("storage capacity does not match the memory size")
	}

	if b.tlbEntries < 0 {
		panic("number of TLB entries must not be negative")
	}

	e := &Engine{
		HookableBase:        sim.NewHookableBase(),
		storage:             storage,
		pageFaultOnUnmapped: b.pageFaultOnUnmapped,
	}

	if b.tlbEntries > 0 {
		e.tlb = newTLB(b.tlbEntries)
	}

	for _, h := range b.hooks {
		e.AcceptHook(h)
	}

	e.Init()

	return e
}
