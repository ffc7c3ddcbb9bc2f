// Package httpapi is the gateway's public HTTP surface: one route per
// upstream under its name, plus "/" and "/status" for discovery.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Bigsy/mcp-gateway/internal/config"
	"github.com/Bigsy/mcp-gateway/internal/gwlog"
	"github.com/Bigsy/mcp-gateway/internal/registry"
)

const (
	name    = "mcp-gateway"
	version = "1.0.0"
)

var log = gwlog.Named("httpapi")

// Server is the gateway's front-end HTTP listener.
type Server struct {
	cfg      *config.ResolvedConfig
	registry *registry.Registry
	listener net.Listener
	server   *http.Server
}

// New builds a Server bound to cfg.Proxy.Host:Port. Call Start to accept
// connections.
func New(cfg *config.ResolvedConfig, reg *registry.Registry) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Proxy.Host, cfg.Proxy.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	s := &Server{cfg: cfg, registry: reg, listener: listener}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withCORS(s.handleRoot))
	mux.HandleFunc("/status", s.withCORS(s.handleStatus))
	mux.HandleFunc("/{name}", s.withCORS(s.handleUpstream))

	s.server = &http.Server{Handler: mux}
	return s, nil
}

// Addr returns the address the server is actually listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// withCORS always sends the permissive CORS headers the reference proxy
// sends on every response, and answers OPTIONS preflight with 200 + no body.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	upstreams := s.registry.List()
	endpoints := make([]string, 0, len(upstreams)+1)
	endpoints = append(endpoints, "/status")
	for _, u := range upstreams {
		endpoints = append(endpoints, "/"+u.Name)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":      name,
		"version":   version,
		"upstreams": upstreams,
		"endpoints": endpoints,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"upstreams": s.registry.List(),
		"processes": s.registry.Snapshot(),
	})
}

func (s *Server) handleUpstream(w http.ResponseWriter, r *http.Request) {
	upstreamName := r.PathValue("name")

	switch r.Method {
	case http.MethodGet:
		s.listTools(w, r, upstreamName)
	case http.MethodPost:
		s.callTool(w, r, upstreamName)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request, upstreamName string) {
	tools, err := s.registry.ListTools(r.Context(), upstreamName)
	if err != nil {
		writeUpstreamError(w, upstreamName, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"server": upstreamName, "tools": tools})
}

func (s *Server) callTool(w http.ResponseWriter, r *http.Request, upstreamName string) {
	var body struct {
		Tool      string `json:"tool"`
		Arguments any    `json:"arguments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if body.Tool == "" {
		writeError(w, http.StatusBadRequest, "Missing 'tool' parameter")
		return
	}

	result, err := s.registry.CallTool(r.Context(), upstreamName, body.Tool, body.Arguments)
	if err != nil {
		writeUpstreamError(w, upstreamName, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"server": upstreamName,
		"tool":   body.Tool,
		"result": result,
	})
}

func writeUpstreamError(w http.ResponseWriter, upstreamName string, err error) {
	var notFound *registry.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Server not found: %s", upstreamName))
		return
	}
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error calling tool: %v", err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}
