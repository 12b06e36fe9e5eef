// Package tracing records the events of a page-memory engine as tasks.
package tracing

// A Task is one engine event. All fields are flat so that a Task can be
// stored as a database row.
type Task struct {
	ID       string `json:"id"`
	Step     uint64 `json:"step"`
	Kind     string `json:"kind"`
	What     string `json:"what"`
	Location string `json:"location"`
	PID      int    `json:"pid"`
	VAddr    int    `json:"vaddr"`
	PAddr    int    `json:"paddr"`
	Value    int    `json:"value"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// A TraceWriter stores tasks.
type TraceWriter interface {
	// Init prepares the destination of the trace.
	Init()

	// Write records a task. Writers may buffer.
	Write(task Task)

	// Flush writes the buffered tasks.
	Flush()

	// Close flushes and releases the destination.
	Close() error
}
