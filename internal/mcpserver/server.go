package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pmadusud/salesagent/internal/search"
)

// ServerName identifies this server to MCP clients
const ServerName = "salesagent-mcp-server"

// Server exposes the hybrid search tool over stdio or streamable HTTP
type Server struct {
	sdkServer  *mcp.Server
	config     *ServerConfig
	logger     *log.Logger
	version    string
	mutex      sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

// NewServer registers handler's tool on a new SDK server
func NewServer(config *ServerConfig, handler *HybridSearchHandler, version string) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("server config cannot be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("search handler cannot be nil")
	}
	if version == "" {
		version = "dev"
	}

	sdkServer := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	sdkServer.AddTool(handler.Tool(), handler.HandleSDKToolCall)

	return &Server{
		sdkServer: sdkServer,
		config:    config,
		logger:    log.New(log.Writer(), "[MCPServer] ", log.LstdFlags),
		version:   version,
	}, nil
}

// SDKServer returns the underlying SDK server
func (s *Server) SDKServer() *mcp.Server {
	return s.sdkServer
}

// RunStdio serves a single client on stdin/stdout until ctx is done or the client disconnects
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Printf("Serving %s over stdio", ServerName)
	return s.sdkServer.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the HTTP routes: the streamable MCP endpoint on / and /mcp plus /health
func (s *Server) Handler() http.Handler {
	getServer := func(*http.Request) *mcp.Server { return s.sdkServer }
	mcpHandler := mcp.NewStreamableHTTPHandler(getServer, nil)

	mux := http.NewServeMux()
	mux.Handle("/", mcpHandler)
	mux.Handle("/mcp", mcpHandler)
	mux.HandleFunc("/health", s.handleHealthCheck)
	return s.loggingMiddleware(mux)
}

// Start listens on the configured address and serves HTTP in the background
func (s *Server) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.httpServer != nil {
		return fmt.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}

	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.httpServer = server
	s.listener = listener
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("HTTP server error: %v", err)
		}
	}(s.done)

	s.logger.Printf("MCP server listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound listener address, or "" when not running
func (s *Server) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down, forcing close after the shutdown timeout
func (s *Server) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.httpServer == nil {
		return fmt.Errorf("server is not running")
	}

	s.logger.Printf("Stopping MCP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	var stopErr error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("Graceful shutdown failed: %v, forcing immediate shutdown", err)
		stopErr = s.httpServer.Close()
	}
	<-s.done

	s.httpServer = nil
	s.listener = nil
	s.logger.Printf("MCP server stopped")
	return stopErr
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":  "healthy",
		"server":  ServerName,
		"version": s.version,
		"tools":   []string{search.ToolName},
	}); err != nil {
		s.logger.Printf("Failed to write response: %v", err)
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	return &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += int64(n)
	return n, err
}

// Flush keeps streamed MCP responses working through the wrapper.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := newLoggingResponseWriter(w)
		next.ServeHTTP(lrw, r)

		s.logger.Printf(
			"Request: %s %s status=%d bytes=%d duration=%s remote=%s client_ip=%s user_agent=%q",
			r.Method,
			r.URL.Path,
			lrw.status,
			lrw.size,
			time.Since(start),
			r.RemoteAddr,
			clientIP(r),
			r.Header.Get("User-Agent"),
		)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, _ := strings.Cut(xff, ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
