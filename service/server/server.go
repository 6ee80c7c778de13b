package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dropxhq/dropx/service/db"
	"github.com/dropxhq/dropx/service/metrics"
	"github.com/dropxhq/dropx/service/wallet"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Console is the surface of the wallet console the HTTP layer drives.
type Console interface {
	Account() string
	Network() string
	Busy() bool

	Balance() string
	Tokens() []wallet.TokenHolding
	History() []wallet.HistoryEntry

	RefreshBalance(ctx context.Context) string
	RefreshTokens(ctx context.Context) ([]wallet.TokenHolding, error)
	RefreshHistory(ctx context.Context) ([]wallet.HistoryEntry, error)
	SwitchNetwork(ctx context.Context, label string) error

	RequestAirdrop(ctx context.Context, amount string) (*wallet.Receipt, error)
	SendSOL(ctx context.Context, recipient, amount string) (*wallet.Receipt, error)
	SendToken(ctx context.Context, tokenID int, recipient, amount string) (*wallet.Receipt, error)
}

// Server represents the HTTP server for the wallet console.
type Server struct {
	addr    string
	console Console
	store   *db.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The store is optional - if nil, the archive endpoint won't be available.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, console Console, store *db.Store, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:    addr,
		console: console,
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Wallet view routes
	s.handle(mux, "GET /api/v1/wallet", "/api/v1/wallet", handleGetWallet(s.console, s.logger))
	s.handle(mux, "GET /api/v1/balance", "/api/v1/balance", handleGetBalance(s.console, s.logger))
	s.handle(mux, "GET /api/v1/tokens", "/api/v1/tokens", handleGetTokens(s.console, s.logger))
	s.handle(mux, "GET /api/v1/history", "/api/v1/history", handleGetHistory(s.console, s.logger))

	// Operation routes
	s.handle(mux, "POST /api/v1/airdrop", "/api/v1/airdrop", handleAirdrop(s.console, s.logger))
	s.handle(mux, "POST /api/v1/transfers/sol", "/api/v1/transfers/sol", handleSendSOL(s.console, s.logger))
	s.handle(mux, "POST /api/v1/transfers/token", "/api/v1/transfers/token", handleSendToken(s.console, s.logger))

	// Network routes
	s.handle(mux, "GET /api/v1/network", "/api/v1/network", handleGetNetwork(s.console, s.logger))
	s.handle(mux, "PUT /api/v1/network", "/api/v1/network", handleSwitchNetwork(s.console, s.logger))

	// Operation archive (if a store is configured)
	if s.store != nil {
		s.handle(mux, "GET /api/v1/operations", "/api/v1/operations", handleListOperations(s.store, s.console, s.logger))
	} else {
		s.logger.Warn("operation store not configured, archive endpoint disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Operations block while confirmation polling runs, so the write
		// deadline must cover a full attempt budget.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// handle registers a handler, wrapping it with metrics middleware when a
// collector is configured.
func (s *Server) handle(mux *http.ServeMux, pattern, name string, h http.Handler) {
	if s.metrics != nil {
		h = metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}
	mux.Handle(pattern, h)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
