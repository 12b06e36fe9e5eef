// Package monitoring serves a live page-memory engine over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/ptsim/command"
	"github.com/sarchlab/ptsim/inspect"
	"github.com/sarchlab/ptsim/mem"
	"github.com/sarchlab/ptsim/mem/vm"
	"github.com/sarchlab/ptsim/monitoring/web"
)

// Monitor turns an engine into a server that can be inspected and driven
// from a browser. Every access to the engine holds one lock, so requests are
// served one at a time.
type Monitor struct {
	lock       sync.Mutex
	engine     *vm.Engine
	logger     *slog.Logger
	portNumber int
}

// NewMonitor creates a new Monitor of the engine.
func NewMonitor(engine *vm.Engine) *Monitor {
	return &Monitor{
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger used by the commands run through the monitor.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// Exec runs command tokens against the engine and returns what they print.
func (m *Monitor) Exec(tokens []string) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	buf := new(bytes.Buffer)
	d := command.NewDispatcher(m.engine, buf, m.logger)
	err := d.Execute(tokens)

	return buf.String(), err
}

// Router returns the handler of all the monitor endpoints.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/freemap", m.freeMap).Methods(http.MethodGet)
	r.HandleFunc("/api/pagetable/{pid}", m.pageTable).Methods(http.MethodGet)
	r.HandleFunc("/api/page/{page}", m.page).Methods(http.MethodGet)
	r.HandleFunc("/api/exec", m.exec).Methods(http.MethodPost)
	r.HandleFunc("/api/stats", m.stats).Methods(http.MethodGet)
	r.HandleFunc("/api/field/{json}", m.listFieldValue).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitor.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	router := m.Router()
	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	return url, nil
}

type freeMapRsp struct {
	Allocated []bool `json:"allocated"`
	Text      string `json:"text"`
}

func (m *Monitor) freeMap(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	buf := new(bytes.Buffer)
	inspect.PrintFreeMap(buf, m.engine)

	writeJSON(w, freeMapRsp{
		Allocated: m.engine.AllocationMap(),
		Text:      buf.String(),
	})
}

type pageTableRsp struct {
	PID       int          `json:"pid"`
	TablePage int          `json:"table_page"`
	Mappings  []vm.Mapping `json:"mappings"`
	Text      string       `json:"text"`
}

func (m *Monitor) pageTable(w http.ResponseWriter, r *http.Request) {
	pid, ok := intVarOr400(w, r, "pid")
	if !ok {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	buf := new(bytes.Buffer)
	inspect.PrintPageTable(buf, m.engine, pid)

	mappings := m.engine.Mappings(pid)
	if mappings == nil {
		mappings = []vm.Mapping{}
	}

	writeJSON(w, pageTableRsp{
		PID:       pid,
		TablePage: m.engine.PageTable(pid),
		Mappings:  mappings,
		Text:      buf.String(),
	})
}

type pageRsp struct {
	Page      int    `json:"page"`
	Allocated bool   `json:"allocated"`
	Dump      string `json:"dump"`
}

func (m *Monitor) page(w http.ResponseWriter, r *http.Request) {
	page, ok := intVarOr400(w, r, "page")
	if !ok {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	buf := new(bytes.Buffer)
	err := inspect.HexDump(buf, m.engine, page)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "page %d not found", page)
		return
	}

	writeJSON(w, pageRsp{
		Page:      page,
		Allocated: m.engine.IsAllocated(page),
		Dump:      buf.String(),
	})
}

type execReq struct {
	Args []string `json:"args"`
}

type execRsp struct {
	Output string `json:"output"`
}

func (m *Monitor) exec(w http.ResponseWriter, r *http.Request) {
	req := execReq{}

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	output, err := m.Exec(req.Args)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	writeJSON(w, execRsp{Output: output})
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	stats := m.engine.Stats()
	m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&stats)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

// engineView is the tree that /api/field walks.
type engineView struct {
	Stats        vm.Stats
	Allocated    []bool
	PointerTable []int
}

func (m *Monitor) view() *engineView {
	v := &engineView{
		Stats:        m.engine.Stats(),
		Allocated:    m.engine.AllocationMap(),
		PointerTable: make([]int, mem.PageSize-mem.PTPOffset),
	}

	for pid := range v.PointerTable {
		v.PointerTable[pid] = m.engine.PageTable(pid)
	}

	return v
}

type fieldReq struct {
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	m.lock.Lock()
	root := m.view()
	m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(root)
	serializer.SetMaxDepth(1)

	if req.FieldName != "" {
		err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Error: %s", err)
			return
		}
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func intVarOr400(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s must be an integer", name)
		return 0, false
	}

	return v, true
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
