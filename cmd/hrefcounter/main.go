// Package main wires together the counter service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/alvarolinarescabre/href-counter/internal/api"
	"github.com/alvarolinarescabre/href-counter/internal/cache"
	"github.com/alvarolinarescabre/href-counter/internal/config"
	"github.com/alvarolinarescabre/href-counter/internal/fetcher"
	"github.com/alvarolinarescabre/href-counter/internal/logging"
	"github.com/alvarolinarescabre/href-counter/internal/matcher"
	"github.com/alvarolinarescabre/href-counter/internal/pipeline"
	"github.com/alvarolinarescabre/href-counter/internal/session"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("cache init failed", zap.Error(err))
	}
	sess := session.New(&cfg, store, logger.Named("session"))

	match, err := matcher.New(cfg.Analyzer.Pattern)
	if err != nil {
		logger.Fatal("pattern compile failed", zap.Error(err))
	}

	pipe := pipeline.New(
		sess,
		fetcher.New(sess, &cfg, logger.Named("fetcher")),
		match,
		cfg.Analyzer.Sites,
		logger.Named("pipeline"),
	)

	apiServer := api.NewServer(pipe, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started",
			zap.Int("port", cfg.Server.Port),
			zap.String("cache_backend", cfg.Cache.Backend),
			zap.Int64("gate_capacity", sess.GateCapacity()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := pipe.Shutdown(); err != nil {
		logger.Error("pipeline shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
