package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// healthHandler reports liveness.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

type graphInfo struct {
	Name        string   `json:"name"`
	Fingerprint string   `json:"fingerprint"`
	Dispatches  int      `json:"dispatches"`
	Args        []string `json:"args"`
}

// graphsHandler lists the compiled graphs. It answers 503 until Run has
// compiled or loaded them.
func (a *App) graphsHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Graphs endpoint hit.", "remote_addr", r.RemoteAddr)
	m := a.Module()
	if m == nil {
		http.Error(w, "graphs are not compiled yet", http.StatusServiceUnavailable)
		return
	}

	infos := make([]graphInfo, 0, m.Len())
	for _, name := range m.Names() {
		g, _ := m.Graph(name)
		infos = append(infos, graphInfo{
			Name:        name,
			Fingerprint: g.Fingerprint(),
			Dispatches:  g.DispatchCount(),
			Args:        g.ArgNames(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		a.logger.Warn("Failed to write graphs response.", "error", err)
	}
}

func (a *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/graphs", a.graphsHandler)
	return mux
}

// startHealthcheckServer binds the port synchronously so that a taken port
// fails Run, then serves in the background.
func (a *App) startHealthcheckServer(port int) error {
	a.logger.Debug("Configuring health check server.")
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("health check server: %w", err)
	}

	a.httpServer = &http.Server{Handler: a.healthMux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeHealthcheckServer(ctx context.Context) error {
	if a.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	a.logger.Debug("Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	return nil
}
