// Package main runs the swap vault HTTP service:
// - Settlement API (/v1/vaults, /v1/quote)
// - Health, status and Prometheus metrics
// - Optional oracle price stream over WebSocket
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-swap-vault/internal/api"
	"solana-swap-vault/internal/app"
	"solana-swap-vault/internal/config"
	"solana-swap-vault/internal/logging"
	"solana-swap-vault/internal/verification"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	cfg, err := config.Load(*configPath,
		config.WithHTTPAddr(*httpAddr),
		config.WithMemoryStorage(*useMemory),
	)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		logrus.WithError(err).Fatal("configure logging")
	}
	log := logging.WithComponent(logger, "server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, closeStores, err := app.OpenStores(ctx, cfg.Storage, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create stores")
	}
	defer closeStores()

	prices, closePricing, err := app.BuildPricing(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build pricing")
	}
	defer closePricing()

	custody, err := app.NewCustody(cfg.Custody)
	if err != nil {
		log.WithError(err).Fatal("failed to seed custody")
	}

	svc, err := app.NewService(cfg, stores, custody, prices.Strategy, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create settlement service")
	}

	srv := &http.Server{
		Addr: cfg.Service.HTTPAddr,
		Handler: api.New(api.Config{
			Settlement: svc,
			Verifier:   verification.NewVerifier(stores.Vaults, stores.Ledger),
			Logger:     log,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to signal completion
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Error("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(cfg.Service.ShutdownTimeout + 5*time.Second):
			log.Error("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"pricing": prices.Strategy.Describe(),
			"memory":  cfg.Storage.UseMemory,
		}).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	close(done)
	if err != nil {
		log.WithError(err).Fatal("server error")
	}
	log.Info("shutdown complete")
}
