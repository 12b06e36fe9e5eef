// Package config reads the run configuration of ptsim from the environment
// and from .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that configure a run.
const (
	EnvLogLevel    = "PTSIM_LOG_LEVEL"
	EnvTrace       = "PTSIM_TRACE"
	EnvTracePath   = "PTSIM_TRACE_PATH"
	EnvTLBEntries  = "PTSIM_TLB_ENTRIES"
	EnvStrict      = "PTSIM_STRICT"
	EnvMonitorPort = "PTSIM_MONITOR_PORT"
)

// DefaultEnvFile is the file that Load reads when no file is given.
const DefaultEnvFile = ".env"

// Config holds the settings of a run. Command line flags take precedence over
// these values.
type Config struct {
	LogLevel    string
	Trace       string
	TracePath   string
	TLBEntries  int
	Strict      bool
	MonitorPort int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel: "warn",
	}
}

// Load builds a configuration from the process environment and the given
// .env files. Variables already set in the environment win over the files,
// and earlier files win over later ones. Files that do not exist are ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}

	fileVars := make(map[string]string)
	for _, f := range envFiles {
		vars, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", f, err)
		}

		for k, v := range vars {
			if _, ok := fileVars[k]; !ok {
				fileVars[k] = v
			}
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := fileVars[key]

		return v, ok
	}

	return fromLookup(lookup)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()

	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}

	if v, ok := lookup(EnvTrace); ok {
		c.Trace = strings.ToLower(strings.TrimSpace(v))
	}

	if v, ok := lookup(EnvTracePath); ok {
		c.TracePath = v
	}

	var err error

	if v, ok := lookup(EnvTLBEntries); ok {
		c.TLBEntries, err = strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvTLBEntries, err)
		}
	}

	if v, ok := lookup(EnvStrict); ok {
		c.Strict, err = strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvStrict, err)
		}
	}

	if v, ok := lookup(EnvMonitorPort); ok {
		c.MonitorPort, err = strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvMonitorPort, err)
		}
	}

	return c, nil
}

// ParseLevel converts a level name into a slog level. Unknown names map to
// info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a text logger that writes to w at the named level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	return slog.New(handler).With("module", "ptsim")
}
