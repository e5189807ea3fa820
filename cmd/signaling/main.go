package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mossy-p/snp-signaling/config"
	"github.com/mossy-p/snp-signaling/internal/handlers"
	"github.com/mossy-p/snp-signaling/internal/logging"
	"github.com/mossy-p/snp-signaling/internal/metrics"
	"github.com/mossy-p/snp-signaling/internal/redis"
	"github.com/mossy-p/snp-signaling/internal/registry"
	"github.com/mossy-p/snp-signaling/internal/router"
	"github.com/mossy-p/snp-signaling/internal/server"
	"github.com/mossy-p/snp-signaling/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()
	for _, w := range cfg.Warnings {
		log.Warn("config: " + w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	opts := router.Options{Metrics: m}

	// Optional presence mirror
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		presence := redis.NewPresence(client, log.Named("presence"), 0)
		if err := presence.Reset(ctx); err != nil {
			log.Warn("could not clear stale presence", zap.Error(err))
		}
		go presence.Run(ctx)
		opts.Presence = presence
		log.Info("redis presence mirror enabled", zap.String("host", cfg.Redis.Host))
	}

	rt := router.New(log.Named("router"), registry.New(), opts)
	hub := server.NewHub(log.Named("session"), rt, session.Options{
		QueueSize:     cfg.SendQueue,
		MaxFrameBytes: cfg.MaxFrameBytes,
	})

	tcp, err := server.ListenTCP(log.Named("tcp"), hub, cfg.SignalAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.SignalAddr, err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr(),
		Handler: handlers.NewRouter(cfg, handlers.Deps{
			Base:     ctx,
			Log:      log.Named("http"),
			Hub:      hub,
			Gatherer: prometheus.DefaultGatherer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("signaling listener started", zap.String("addr", tcp.Addr().String()))
		errCh <- tcp.Serve(ctx)
	}()
	go func() {
		log.Info("http server started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	tcp.Close()

	done := make(chan struct{})
	go func() {
		hub.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("sessions still open at shutdown", zap.Int("peers", hub.Registry().Len()))
	}
	return err
}
