// Package pprof exposes runtime profiles of the router, either live over
// HTTP or as files written when the router stops.
package pprof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	netpprof "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"

	"github.com/codefionn/linechat/internal/consts"
	"github.com/codefionn/linechat/internal/logger"
)

// Config selects which profiles to collect. Empty fields are disabled.
type Config struct {
	HTTPAddr         string // e.g. "localhost:6060"
	CPUProfile       string // written from Start to Stop
	HeapProfile      string // written at Stop
	GoroutineProfile string // written at Stop; one goroutine pair per session
}

// Enabled reports whether any profile is configured
func (c Config) Enabled() bool {
	return c.HTTPAddr != "" || c.CPUProfile != "" || c.HeapProfile != "" || c.GoroutineProfile != ""
}

// Handler manages pprof profiling
type Handler struct {
	config   Config
	server   *http.Server
	listener net.Listener
	cpuFile  *os.File

	mu       sync.Mutex
	stopping bool
}

// NewHandler creates a new pprof handler with the given configuration
func NewHandler(config Config) *Handler {
	return &Handler{config: config}
}

// Start begins CPU profiling and the HTTP endpoint, as configured
func (h *Handler) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.config.CPUProfile != "" {
		f, err := create(h.config.CPUProfile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to start CPU profiling: %w", err)
		}
		h.cpuFile = f
	}

	if h.config.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", netpprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", netpprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", netpprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", netpprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", netpprof.Trace)

		ln, err := net.Listen("tcp", h.config.HTTPAddr)
		if err != nil {
			h.stopCPU()
			return fmt.Errorf("failed to bind pprof HTTP server: %w", err)
		}

		h.listener = ln
		h.server = &http.Server{
			Handler:  mux,
			ErrorLog: logger.StdLogger(logger.Global(), slog.LevelWarn),
		}

		go func() {
			if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("pprof server error: %v", err)
			}
		}()
		logger.Info("pprof listening on http://%s/debug/pprof/", ln.Addr())
	}

	return nil
}

// Addr returns the HTTP listen address, or nil when disabled
func (h *Handler) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// Stop ends CPU profiling, writes the snapshot profiles and shuts the HTTP
// endpoint down
func (h *Handler) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopping {
		return nil
	}
	h.stopping = true

	var errs []error
	if err := h.stopCPU(); err != nil {
		errs = append(errs, err)
	}
	if h.config.HeapProfile != "" {
		errs = append(errs, writeProfile("heap", h.config.HeapProfile))
	}
	if h.config.GoroutineProfile != "" {
		errs = append(errs, writeProfile("goroutine", h.config.GoroutineProfile))
	}

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), consts.Timeout5Seconds)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown pprof server: %w", err))
		}
		h.server = nil
		h.listener = nil
	}

	return errors.Join(errs...)
}

func (h *Handler) stopCPU() error {
	if h.cpuFile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := h.cpuFile.Close()
	h.cpuFile = nil
	if err != nil {
		return fmt.Errorf("failed to close CPU profile: %w", err)
	}
	return nil
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile file: %w", err)
	}
	return f, nil
}

// writeProfile writes a named profile to a file
func writeProfile(name, path string) error {
	p := pprof.Lookup(name)
	if p == nil {
		return fmt.Errorf("profile %q not found", name)
	}
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := p.WriteTo(f, 0); err != nil {
		return fmt.Errorf("failed to write %s profile: %w", name, err)
	}
	return nil
}
