package tracing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/xid"
)

// JSONTraceWriter writes tasks as one JSON array.
type JSONTraceWriter struct {
	path      string
	w         io.Writer
	file      *os.File
	firstTask bool
	closed    bool
}

// NewJSONTraceWriter creates a writer that writes to path + ".json". An empty
// path picks a unique name.
func NewJSONTraceWriter(path string) *JSONTraceWriter {
	return &JSONTraceWriter{path: path}
}

// NewJSONTraceWriterTo creates a writer that writes to w.
func NewJSONTraceWriterTo(w io.Writer) *JSONTraceWriter {
	return &JSONTraceWriter{w: w}
}

// Init creates the file and opens the JSON array.
func (t *JSONTraceWriter) Init() {
	if t.w == nil {
		if t.path == "" {
			t.path = "ptsim_trace_" + xid.New().String()
		}

		filename := t.path + ".json"
		f, err := os.Create(filename)
		if err != nil {
			panic(err)
		}

		fmt.Fprintf(os.Stderr, "Trace recorded in %s\n", filename)

		t.file = f
		t.w = f
	}

	t.firstTask = true
	t.mustWrite([]byte("[\n"))
}

// Write appends one task to the array.
func (t *JSONTraceWriter) Write(task Task) {
	if t.firstTask {
		t.firstTask = false
	} else {
		t.mustWrite([]byte(",\n"))
	}

	b, err := json.Marshal(task)
	if err != nil {
		panic(err)
	}

	t.mustWrite(b)
}

// Flush does nothing. Tasks are written as they come.
func (t *JSONTraceWriter) Flush() {
}

// Close terminates the JSON array and closes the file if the writer created
// one.
func (t *JSONTraceWriter) Close() error {
	if t.closed {
		return nil
	}

	t.closed = true
	t.mustWrite([]byte("\n]\n"))

	if t.file == nil {
		return nil
	}

	return t.file.Close()
}

func (t *JSONTraceWriter) mustWrite(b []byte) {
	_, err := t.w.Write(b)
	if err != nil {
		panic(err)
	}
}
