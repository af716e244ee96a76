// Package server implements the bridge server: validation gate, middleware chain,
// dispatch to an executor, HTTP surface, and graceful shutdown.
//
// Request processing pipeline:
//
//	POST <path> → read body (MaxBodyBytes) → Handle
//	  → parseEnvelope (step 1) → Middleware Chain → validateBody (step 2) → dispatch
//	    → executor.Execute → envelope or raw bytes → write response
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"netbridge/executor"
	"netbridge/middleware"
	"netbridge/registry"
	"netbridge/schema"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ServiceName is the name bridge servers announce themselves under.
const ServiceName = "netbridge"

// DefaultMaxBodyBytes bounds an incoming envelope. Attachments travel as int
// arrays, roughly four wire bytes per payload byte.
const DefaultMaxBodyBytes = 32 << 20

// Server validates incoming envelopes and dispatches them to an executor.
type Server struct {
	exec         executor.Executor
	schemas      *schema.Registry
	path         string
	maxBodyBytes int64
	logger       *zap.Logger

	middlewares []middleware.Middleware // applied in the order added
	chainOnce   sync.Once
	handler     middleware.HandlerFunc // middleware(middleware(...(serveRequest)))

	mu            sync.Mutex
	httpServer    *http.Server
	listener      net.Listener
	registry      registry.Registry // nil if not using discovery
	advertiseAddr string            // target URL registered for this server
	shutdown      atomic.Bool
}

type Option func(*Server)

// WithLogger sets the server logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithSchemas replaces the body schemas (schema.Default by default).
func WithSchemas(schemas *schema.Registry) Option {
	return func(s *Server) { s.schemas = schemas }
}

// WithPath sets the route envelopes are posted to. Default "/".
func WithPath(path string) Option {
	return func(s *Server) { s.path = path }
}

// WithMaxBodyBytes bounds the request body; larger bodies get 413.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBodyBytes = n }
}

// NewServer creates a bridge server running requests against exec.
func NewServer(exec executor.Executor, opts ...Option) *Server {
	s := &Server{
		exec:         exec,
		schemas:      schema.Default(),
		path:         "/",
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Use registers a middleware. Middlewares are applied in the order they are added
// and must all be registered before the first request.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// chain builds the middleware chain once (not per-request):
//
//	Chain(A, B, C)(handler) → A(B(C(handler)))
func (svr *Server) chain() middleware.HandlerFunc {
	svr.chainOnce.Do(func() {
		svr.handler = middleware.Chain(svr.middlewares...)(svr.serveRequest)
	})
	return svr.handler
}

// Serve listens on address, optionally registers with reg, and serves HTTP until
// Shutdown.
//
// Parameters:
//   - advertiseAddr: the host:port clients should use (e.g. "127.0.0.1:8080").
//     This differs from the listen address because ":8080" is not routable.
//   - reg: the registry implementation. Pass nil to skip service discovery.
func (svr *Server) Serve(network, address string, advertiseAddr string, reg registry.Registry) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}

	svr.mu.Lock()
	svr.listener = listener
	svr.httpServer = &http.Server{
		Handler:           svr.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(svr.logger.Named("http")),
	}
	httpServer := svr.httpServer
	if reg != nil {
		if advertiseAddr == "" {
			advertiseAddr = listener.Addr().String()
		}
		svr.registry = reg
		svr.advertiseAddr = "http://" + advertiseAddr + svr.path
	}
	svr.mu.Unlock()

	if reg != nil {
		// TTL = 10 seconds, KeepAlive renews automatically
		if err := reg.Register(ServiceName, registry.ServiceInstance{Addr: svr.advertiseAddr, Weight: 10}, 10); err != nil {
			listener.Close()
			return fmt.Errorf("server: register %s: %w", svr.advertiseAddr, err)
		}
	}

	svr.logger.Info("bridge server listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", svr.path))

	err = httpServer.Serve(listener)
	// During shutdown, Serve returns ErrServerClosed. Check the flag to
	// distinguish intentional close from real errors.
	if errors.Is(err, http.ErrServerClosed) && svr.shutdown.Load() {
		return nil
	}
	return err
}

// Addr returns the listener address, or nil before Serve.
func (svr *Server) Addr() net.Addr {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.listener == nil {
		return nil
	}
	return svr.listener.Addr()
}

// Shutdown performs graceful shutdown:
//  1. Deregister from the registry (clients stop picking this server)
//  2. Set shutdown flag (so Serve returns nil)
//  3. Stop accepting and wait for in-flight requests, bounded by timeout
func (svr *Server) Shutdown(timeout time.Duration) error {
	svr.mu.Lock()
	reg, addr, httpServer := svr.registry, svr.advertiseAddr, svr.httpServer
	svr.mu.Unlock()

	// Deregister FIRST, so clients stop resolving this server
	if reg != nil {
		if err := reg.Deregister(ServiceName, addr); err != nil {
			svr.logger.Warn("deregister failed", zap.String("addr", addr), zap.Error(err))
		}
	}

	svr.shutdown.Store(true)
	if httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("timeout waiting for ongoing requests to finish: %w", err)
	}
	return nil
}
