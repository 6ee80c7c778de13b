package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropxhq/dropx/service/config"
	"github.com/dropxhq/dropx/service/db"
	"github.com/dropxhq/dropx/service/metrics"
	"github.com/dropxhq/dropx/service/nats"
	"github.com/dropxhq/dropx/service/registry"
	"github.com/dropxhq/dropx/service/server"
	"github.com/dropxhq/dropx/service/wallet"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"default_network", cfg.DefaultNetwork,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signer, err := buildSigner(cfg)
	if err != nil {
		logger.Error("failed to initialize signer", "error", err)
		os.Exit(1)
	}
	if signer.Connected() {
		logger.Info("wallet signer ready", "account", signer.PublicKey().String())
	} else {
		logger.Warn("no wallet configured, console starts disconnected")
	}

	// Token metadata directory. A fetch failure degrades token names to
	// their fallbacks, so it does not block startup.
	directory, err := registry.Fetch(ctx, cfg.TokenListURL, nil, logger)
	if err != nil {
		logger.Warn("failed to fetch token directory", "error", err)
		directory = registry.NewDirectory(nil)
	} else {
		logger.Info("loaded token directory", "tokens", directory.Len())
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// Optional operation archive
	var store *db.Store
	var recorder wallet.Recorder
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store = db.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to apply database schema", "error", err)
			os.Exit(1)
		}
		recorder = store
		logger.Info("connected to database")
	}

	// Optional NATS operation event stream. The notifier resolves the
	// wallet address and network lazily so it can be wired before the
	// console exists.
	var console *wallet.Console
	notifiers := []wallet.Notifier{wallet.NewLogNotifier(logger)}
	if cfg.NATSURL != "" {
		pub, err := nats.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer pub.Close()

		notifiers = append(notifiers, nats.NewNotifier(pub,
			func() string { return console.Account() },
			func() string { return console.Network() },
			logger,
		))
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	}

	console, err = wallet.NewConsole(wallet.ConsoleConfig{
		Endpoints: buildEndpoints(cfg),
		Signer:    signer,
		Policy: wallet.ConfirmPolicy{
			Interval:            cfg.ConfirmInterval,
			AirdropMaxAttempts:  cfg.AirdropMaxAttempts,
			TransferMaxAttempts: cfg.TransferMaxAttempts,
			TokenMaxAttempts:    cfg.TokenMaxAttempts,
			AirdropCeiling:      cfg.AirdropCeiling,
		},
		Directory:    directory,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       logger,
		Metrics:      m,
		Notifier:     wallet.MultiNotifier(notifiers...),
		Recorder:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialize console", "error", err)
		os.Exit(1)
	}

	// Prime the cached view so the first reads are served warm.
	if signer.Connected() {
		primeConsole(ctx, console, logger)
	}

	httpServer := server.New(cfg.ServerAddr, console, store, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// buildSigner selects the signing mode from configuration: a keypair
// file signs, a bare public key watches, neither yields a disconnected
// console.
func buildSigner(cfg *config.Config) (wallet.Signer, error) {
	if cfg.WalletKeypairPath != "" {
		return wallet.NewLocalSignerFromFile(cfg.WalletKeypairPath)
	}
	if cfg.WalletPublicKey != "" {
		pub, err := solanago.PublicKeyFromBase58(cfg.WalletPublicKey)
		if err != nil {
			return nil, err
		}
		return wallet.NewWatchOnlySigner(pub), nil
	}
	return wallet.DisconnectedSigner{}, nil
}

// buildEndpoints orders the two fixed networks so the configured default
// is active on startup.
func buildEndpoints(cfg *config.Config) []wallet.Endpoint {
	devnet := wallet.Endpoint{Label: config.NetworkDevnet, URL: cfg.SolanaDevnetRPCURL}
	mainnet := wallet.Endpoint{Label: config.NetworkMainnet, URL: cfg.SolanaMainnetRPCURL}
	if cfg.DefaultNetwork == config.NetworkMainnet {
		return []wallet.Endpoint{mainnet, devnet}
	}
	return []wallet.Endpoint{devnet, mainnet}
}

// primeConsole performs the initial refresh of balance, tokens, and
// history. Failures are logged and tolerated; the caches stay empty
// until the next refresh.
func primeConsole(ctx context.Context, console *wallet.Console, logger *slog.Logger) {
	console.RefreshBalance(ctx)
	if _, err := console.RefreshTokens(ctx); err != nil {
		logger.Warn("initial token refresh failed", "error", err)
	}
	if _, err := console.RefreshHistory(ctx); err != nil {
		logger.Warn("initial history refresh failed", "error", err)
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
