package tracing

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/xid"
)

// CSVTraceWriter is a task tracer that can store the tasks into a CSV file.
type CSVTraceWriter struct {
	path string
	w    io.Writer
	file *os.File

	tasks      []Task
	bufferSize int
}

// NewCSVTraceWriter creates a writer that writes to path + ".csv". An empty
// path picks a unique name.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// NewCSVTraceWriterTo creates a writer that writes to w.
func NewCSVTraceWriterTo(w io.Writer) *CSVTraceWriter {
	return &CSVTraceWriter{
		w:          w,
		bufferSize: 1000,
	}
}

// Init creates the tracing csv file and writes the header. It panics if the
// file already exists.
func (t *CSVTraceWriter) Init() {
	if t.w == nil {
		t.createFile()
	}

	fmt.Fprintf(t.w, "ID, Step, Kind, What, Location, PID, VAddr, PAddr, Value\n")
}

func (t *CSVTraceWriter) createFile() {
	if t.path == "" {
		t.path = "ptsim_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Trace recorded in %s\n", filename)

	t.file = file
	t.w = file
}

// Write buffers a task.
func (t *CSVTraceWriter) Write(task Task) {
	t.tasks = append(t.tasks, task)
	if len(t.tasks) >= t.bufferSize {
		t.Flush()
	}
}

// Flush flushes the tasks to the CSV file.
func (t *CSVTraceWriter) Flush() {
	for _, task := range t.tasks {
		fmt.Fprintf(t.w, "%s, %d, %s, %s, %s, %d, %d, %d, %d\n",
			task.ID,
			task.Step,
			task.Kind,
			task.What,
			task.Location,
			task.PID,
			task.VAddr,
			task.PAddr,
			task.Value,
		)
	}

	t.tasks = nil
}

// Close flushes the tasks and closes the file if the writer created one.
func (t *CSVTraceWriter) Close() error {
	t.Flush()

	if t.file == nil {
		return nil
	}

	err := t.file.Close()
	t.file = nil

	return err
}
