// Package web hosts this process's plain HTTP surface: a health endpoint
// and the HTTP leaf of this process's MCP server role (spec.md §4.6 — the
// runtime is both an MCP client and an MCP server). There is no browser UI;
// the teacher's chat/agent SSE handlers and HTML template are out of scope
// under the "no GUI" non-goal and were removed rather than adapted (see
// DESIGN.md).
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketomega/axon/internal/mcp"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	mux           *http.ServeMux
	dispatcher    *mcp.Dispatcher // nil disables the /mcp endpoint
	healthHandler *HealthHandler
}

// NewServer creates a web server exposing healthInfo at /api/health and, if
// dispatcher is non-nil, this process's own MCP tool/resource surface at
// /mcp for remote clients to connect to over HTTP.
func NewServer(dispatcher *mcp.Dispatcher, healthInfo HealthInfo) *Server {
	s := &Server{
		mux:           http.NewServeMux(),
		dispatcher:    dispatcher,
		healthHandler: NewHealthHandler(healthInfo),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/health", s.healthHandler.ServeHTTP)
	if s.dispatcher != nil {
		s.mux.HandleFunc("/mcp", s.handleMCP)
	}
}

type mcpHTTPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type mcpHTTPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type mcpHTTPResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *mcpHTTPError   `json:"error,omitempty"`
}

// handleMCP serves this process's Dispatcher over plain HTTP POST, the
// server-side counterpart of the HTTP Transport leaf in internal/mcp.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req mcpHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, rpcErr := s.dispatcher.Handle(r.Context(), req.Method, req.Params)
	resp := mcpHTTPResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
	if rpcErr != nil {
		resp.Error = &mcpHTTPError{Code: rpcErr.Code, Message: rpcErr.Message}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[Web] encode MCP response: %v", err)
	}
}

// Start begins listening on the configured port with graceful shutdown.
// On SIGINT/SIGTERM, it waits up to 10s for in-flight requests to complete.
func (s *Server) Start() error {
	port := os.Getenv("WEB_PORT")
	if port == "" {
		port = "8080"
	}

	// Default to localhost to avoid unintentional LAN exposure for a local tool.
	host := os.Getenv("WEB_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	addr := host + ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("received signal %v, shutting down gracefully", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown error: %v", err)
		}
	}()

	log.Printf("axon server running at http://%s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		log.Println("server stopped gracefully")
		return nil
	}
	return err
}
