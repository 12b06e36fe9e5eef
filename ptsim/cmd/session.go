package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/ptsim/config"
	"github.com/sarchlab/ptsim/datarecording"
	"github.com/sarchlab/ptsim/mem/vm"
	"github.com/sarchlab/ptsim/sim"
	"github.com/sarchlab/ptsim/tracing"
)

// A session is an engine with the hooks a run asked for.
type session struct {
	engine  *vm.Engine
	logger  *slog.Logger
	tracer  *tracing.Tracer
	counter *tracing.CountTracer
	closed  bool
}

func newSession(
	cfg config.Config,
	uniqueIDs bool,
	stderr io.Writer,
) (*session, error) {
	s := &session{
		logger:  config.NewLogger(stderr, cfg.LogLevel),
		counter: tracing.NewCountTracer(nil),
	}

	if cfg.TLBEntries < 0 {
		return nil, fmt.Errorf("negative TLB size %d", cfg.TLBEntries)
	}

	writer, err := newTraceWriter(cfg.Trace, cfg.TracePath)
	if err != nil {
		return nil, err
	}

	b := vm.MakeBuilder().
		WithTLBEntries(cfg.TLBEntries).
		WithPageFaultOnUnmapped(cfg.Strict).
		WithHook(s.counter)

	if config.ParseLevel(cfg.LogLevel) <= slog.LevelDebug {
		b = b.WithHook(sim.NewLogHook(s.logger, slog.LevelDebug))
	}

	if writer != nil {
		writer.Init()
		s.tracer = tracing.NewTracer(writer)
		if uniqueIDs {
			s.tracer.WithIDGenerator(sim.NewUniqueIDGenerator())
		}

		b = b.WithHook(s.tracer)

		atexit.Register(func() { _ = s.close() })
	}

	s.engine = b.Build()

	s.logger.Debug("engine ready",
		"tlb_entries", cfg.TLBEntries,
		"strict", cfg.Strict,
		"trace", cfg.Trace)

	return s, nil
}

func newTraceWriter(kind, path string) (tracing.TraceWriter, error) {
	switch kind {
	case "":
		return nil, nil
	case "csv":
		return tracing.NewCSVTraceWriter(path), nil
	case "json":
		return tracing.NewJSONTraceWriter(path), nil
	case "sqlite":
		return tracing.NewDBTraceWriter(datarecording.New(path)), nil
	default:
		return nil, fmt.Errorf("unknown trace format %q", kind)
	}
}

func (s *session) close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	s.engine.Close()

	if s.tracer == nil {
		return nil
	}

	return s.tracer.Close()
}

func (s *session) reportStats(w io.Writer) {
	for _, kind := range s.counter.Kinds() {
		fmt.Fprintf(w, "%s: %d\n", kind, s.counter.Count(kind))
	}

	st := s.engine.Stats()
	fmt.Fprintf(w, "allocated pages: %d\n", st.AllocatedPages)
	fmt.Fprintf(w, "free pages: %d\n", st.FreePages)

	if st.TLBEnabled {
		fmt.Fprintf(w, "tlb hits: %d\n", st.TLBHits)
		fmt.Fprintf(w, "tlb misses: %d\n", st.TLBMisses)
	}
}
