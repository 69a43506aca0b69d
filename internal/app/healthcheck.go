package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vk/bndl/internal/ctxlog"
)

// buildStatus records the outcome of the latest watch-mode build.
type buildStatus struct {
	mu     sync.Mutex
	report statusReport
}

type statusReport struct {
	OK     bool      `json:"ok"`
	Builds int       `json:"builds"`
	Path   string    `json:"path,omitempty"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

func (s *buildStatus) record(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Builds++
	s.report.OK = err == nil
	s.report.Path = path
	s.report.Error = ""
	if err != nil {
		s.report.Error = err.Error()
	}
	s.report.Time = time.Now().UTC()
}

func (s *buildStatus) snapshot() statusReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// healthHandler answers 200 while the latest build succeeded and 503 after a
// failed one, with the status as JSON.
func (a *App) healthHandler(status *buildStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		report := status.snapshot()

		w.Header().Set("Content-Type", "application/json")
		if report.OK {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// startHealthcheckServer initializes and runs the health check HTTP server.
func (a *App) startHealthcheckServer(ctx context.Context, port int, status *buildStatus) *http.Server {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring health check server.")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler(status))

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return srv
}

func (a *App) closeHealthcheckServer(ctx context.Context, srv *http.Server) {
	logger := ctxlog.FromContext(ctx)

	// ctx is usually canceled by now.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return
	}
	logger.Debug("Health check server shut down gracefully.")
}
