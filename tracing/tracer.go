package tracing

import (
	"fmt"
	"strings"

	"github.com/sarchlab/ptsim/mem/vm"
	"github.com/sarchlab/ptsim/sim"
)

// A Tracer is a hook that converts engine events into tasks and sends them to
// a TraceWriter.
type Tracer struct {
	writer TraceWriter
	idGen  sim.IDGenerator
	filter TaskFilter
	step   uint64
}

// NewTracer creates a tracer that records every task into the writer. The
// writer must already be initialized.
func NewTracer(writer TraceWriter) *Tracer {
	return &Tracer{
		writer: writer,
		idGen:  sim.GetIDGenerator(),
		filter: func(Task) bool { return true },
	}
}

// WithFilter only records the tasks that the filter accepts.
func (t *Tracer) WithFilter(filter TaskFilter) *Tracer {
	t.filter = filter
	return t
}

// WithIDGenerator sets the generator of task IDs.
func (t *Tracer) WithIDGenerator(g sim.IDGenerator) *Tracer {
	t.idGen = g
	return t
}

// Func records the event carried by the hook context.
func (t *Tracer) Func(ctx sim.HookCtx) {
	task, ok := TaskFromHookCtx(ctx)
	if !ok {
		return
	}

	t.step++
	task.Step = t.step

	if !t.filter(task) {
		return
	}

	task.ID = t.idGen.Generate()
	t.writer.Write(task)
}

// Close flushes and closes the writer.
func (t *Tracer) Close() error {
	return t.writer.Close()
}

// TaskFromHookCtx converts the context of an engine hook into a task. It
// returns false for contexts that do not come from an engine hook position.
func TaskFromHookCtx(ctx sim.HookCtx) (Task, bool) {
	task := Task{Kind: ctx.Pos.Name}

	switch item := ctx.Item.(type) {
	case vm.Access:
		task.What = string(item.Kind)
		task.PID = item.PID
		task.VAddr = item.VAddr
		task.PAddr = item.PAddr
		task.Value = item.Value
	case vm.ProcessEvent:
		task.What = pagesString(item.Pages)
		task.PID = item.PID
		task.PAddr = item.TablePage
		task.Value = len(item.Pages)
	case *vm.OutOfMemoryError:
		task.What = string(item.Resource)
		task.PID = item.PID
	case *vm.PageFaultError:
		task.What = "unmapped"
		task.PID = item.PID
		task.VAddr = item.VAddr
	default:
		return Task{}, false
	}

	task.Location = fmt.Sprintf("proc %d", task.PID)

	return task, true
}

func pagesString(pages []int) string {
	s := make([]string, len(pages))
	for i, p := range pages {
		s[i] = fmt.Sprintf("%d", p)
	}

	return strings.Join(s, " ")
}
