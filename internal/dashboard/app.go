// Package dashboard wires the market clients, the followed set, the price
// monitor and the HTTP server into one running service.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"cryptoboard/config"
	"cryptoboard/internal/advisor"
	"cryptoboard/internal/market"
	"cryptoboard/internal/monitor"
	"cryptoboard/internal/selection"
	"cryptoboard/internal/series"
	"cryptoboard/internal/server"
	"cryptoboard/pkg/chatgpt"
	"cryptoboard/pkg/coingecko"
	"cryptoboard/pkg/cryptocompare"

	"go.uber.org/zap"
)

type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   Store
	catalog *market.Catalog
	monitor *monitor.Monitor
	server  *server.Server
}

// New opens the store and builds every component. Nothing is polled or
// served until Serve.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	logger.Info("store ready", zap.String("driver", cfg.Storage.Driver))

	followed := selection.New(ctx, store, logger.Named("selection"))
	agg := series.NewAggregator(cfg.Monitor.MaxPoints)

	gecko := coingecko.NewRESTClient(cfg.Market.CoinGeckoURL, cfg.Market.Timeout)
	catalog := market.NewCatalog(gecko, cfg.Market.Currency, logger.Named("market"))
	prices := cryptocompare.NewRESTClient(cfg.Market.CryptoCompareURL, cfg.Market.Timeout)

	apiKey := cfg.OpenAI.Key(cfg.Log.Environment)
	if apiKey == "" {
		logger.Warn("no completions API key configured; recommendations will fall back to defaults")
	}
	gpt := chatgpt.NewClient(apiKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	adv := advisor.New(catalog, gpt, cfg.OpenAI.RequestPause, logger.Named("advisor"))

	srv := server.New(server.Deps{
		Catalog:   catalog,
		Selection: followed,
		Series:    agg,
		Advisor:   adv,
		Store:     store,
	}, logger.Named("http"))

	mon := monitor.New(followed, catalog, prices, agg, monitor.Options{
		Interval:     cfg.Monitor.Interval,
		CycleTimeout: cfg.Monitor.CycleTimeout,
		Currency:     cfg.Market.Currency,
	}, logger.Named("monitor"))
	mon.Subscribe(srv.Publish)

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		catalog: catalog,
		monitor: mon,
		server:  srv,
	}, nil
}

// Serve runs the monitor and the HTTP server on ln until ctx is cancelled,
// then shuts both down and closes the store.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	defer func() {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	// Warm the catalog so the first polling cycle does not pay for it.
	go func() {
		if _, err := a.catalog.Currencies(ctx); err != nil {
			a.logger.Warn("failed to preload currency list", zap.Error(err))
		}
	}()

	if err := a.monitor.Start(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errCh <- httpServer.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.monitor.Stop()
	a.server.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", serveErr)
	}
	a.logger.Info("dashboard stopped")
	return nil
}

// Run listens on server.addr and serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	app, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		_ = app.store.Close()
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	return app.Serve(ctx, ln)
}
