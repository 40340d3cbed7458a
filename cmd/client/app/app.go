// Package app wires a dex.Controller from a client configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/openclaw/claw-dex-client-go/cmd/client/config"
	"github.com/openclaw/claw-dex-client-go/pkg/chains"
	"github.com/openclaw/claw-dex-client-go/pkg/dex"
	"github.com/openclaw/claw-dex-client-go/pkg/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App bundles the controller with the connections it owns.
type App struct {
	Config     *config.ClientConfig
	Controller *dex.Controller
	Logger     *slog.Logger

	public  *ethclient.Client
	wallet  *wallet.RPCProvider
	metrics *http.Server
	logFile *os.File
}

// NewLogger opens path for appending and returns a JSON logger writing to it.
func NewLogger(path string) (*slog.Logger, *os.File, error) {
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(logFile, nil)), logFile, nil
}

// New dials the public RPC endpoint and, when configured, the wallet
// provider, verifies the public endpoint serves the configured chain, and
// builds the controller.
func New(ctx context.Context, cfg *config.ClientConfig, registry prometheus.Registerer) (*App, error) {
	logger, logFile, err := NewLogger(cfg.LogFile)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, logFile: logFile}

	if err := a.wire(ctx, registry); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, registry prometheus.Registerer) error {
	cfg := a.Config
	logger := a.Logger

	public, err := ethclient.DialContext(ctx, cfg.PublicRPCURL)
	if err != nil {
		logger.Error("Failed to dial public RPC", "url", cfg.PublicRPCURL, "error", err)
		return fmt.Errorf("failed to dial public RPC: %w", err)
	}
	a.public = public

	verifyCtx, cancel := a.CallContext(ctx)
	defer cancel()
	if err := chains.Verify(verifyCtx, cfg.PublicRPCURL, public, cfg.ChainID); err != nil {
		logger.Error("Public RPC chain check failed", "error", err)
		return err
	}

	var provider wallet.Provider
	if cfg.WalletRPCURL != "" {
		walletCfg := wallet.Config{
			URL:    cfg.WalletRPCURL,
			Logger: logger.With("component", "wallet"),
		}
		if cfg.Keystore != nil {
			walletCfg.Keystore = &wallet.KeystoreConfig{
				Dir:        cfg.Keystore.Dir,
				Passphrase: cfg.KeystorePassphrase(),
			}
		}
		rpcProvider, err := wallet.Dial(ctx, walletCfg)
		if err != nil {
			logger.Error("Failed to dial wallet provider", "url", cfg.WalletRPCURL, "error", err)
			return err
		}
		a.wallet = rpcProvider
		provider = rpcProvider
	} else {
		logger.Warn("No wallet provider configured; connect will fail")
	}

	var metrics *dex.Metrics
	if registry != nil {
		metrics = dex.NewMetrics(registry)
	}

	controller, err := dex.NewController(dex.Config{
		Logger:    logger.With("component", "controller"),
		Wallet:    provider,
		PublicRPC: public,
		ChainID:   cfg.ChainID,
		Tokens:    cfg.Tokens(),
		Pair:      cfg.Pair(),
		Decimals:  cfg.Decimals,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}
	a.Controller = controller

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}
	return nil
}

// serveMetrics exposes the default gatherer on addr/metrics.
func (a *App) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux}

	go func() {
		a.Logger.Info("Serving metrics", "addr", addr)
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Metrics server stopped", "error", err)
		}
	}()
}

// CallContext bounds a single remote operation by the configured timeout.
func (a *App) CallContext(parent context.Context) (context.Context, context.CancelFunc) {
	if a.Config.CallTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.Config.CallTimeout)
}

// Close releases every connection and the log file.
func (a *App) Close() {
	if a.metrics != nil {
		_ = a.metrics.Close()
	}
	if a.wallet != nil {
		a.wallet.Close()
	}
	if a.public != nil {
		a.public.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
