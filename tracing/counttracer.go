package tracing

import (
	"sort"

	"github.com/sarchlab/ptsim/sim"
)

// CountTracer counts the engine events by kind.
type CountTracer struct {
	filter TaskFilter
	counts map[string]uint64
}

// NewCountTracer creates a new CountTracer. A nil filter counts everything.
func NewCountTracer(filter TaskFilter) *CountTracer {
	if filter == nil {
		filter = func(Task) bool { return true }
	}

	return &CountTracer{
		filter: filter,
		counts: make(map[string]uint64),
	}
}

// Func counts the event carried by the hook context.
func (t *CountTracer) Func(ctx sim.HookCtx) {
	task, ok := TaskFromHookCtx(ctx)
	if !ok || !t.filter(task) {
		return
	}

	t.counts[task.Kind]++
}

// Count returns the number of events of the kind.
func (t *CountTracer) Count(kind string) uint64 {
	return t.counts[kind]
}

// Kinds returns the kinds that have been counted, sorted.
func (t *CountTracer) Kinds() []string {
	kinds := make([]string, 0, len(t.counts))
	for k := range t.counts {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	return kinds
}
