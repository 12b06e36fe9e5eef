package tracing

import "github.com/sarchlab/ptsim/datarecording"

// TraceTableName is the table that DBTraceWriter records tasks in.
const TraceTableName = "trace"

// DBTraceWriter stores tasks through a DataRecorder.
type DBTraceWriter struct {
	backend datarecording.DataRecorder
}

// NewDBTraceWriter creates a new DBTraceWriter.
func NewDBTraceWriter(backend datarecording.DataRecorder) *DBTraceWriter {
	return &DBTraceWriter{backend: backend}
}

// Init creates the trace table.
func (t *DBTraceWriter) Init() {
	t.backend.CreateTable(TraceTableName, Task{})
}

// Write buffers a task in the backend.
func (t *DBTraceWriter) Write(task Task) {
	t.backend.InsertData(TraceTableName, task)
}

// Flush flushes the backend.
func (t *DBTraceWriter) Flush() {
	t.backend.Flush()
}

// Close flushes and closes the backend.
func (t *DBTraceWriter) Close() error {
	return t.backend.Close()
}
