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

	"incident-insights-go/internal/app"
	"incident-insights-go/internal/config"
	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/sampler"
)

func main() {
	cfg, err := config.Load(envOr("CONFIG_PATH", "incident.toml"))
	if err != nil {
		logger.New().WithError(err).Fatal("failed to load config")
	}

	log := logger.NewWithOptions(logger.Options{Environment: cfg.Server.Environment, Level: cfg.Server.LogLevel})
	log.WithField("service", "incident-insights-go").Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build pipeline")
	}
	defer rt.Close()

	openVideo := func(ctx context.Context, path string) (sampler.Decoder, error) {
		return rt.OpenVideo(ctx, path)
	}
	s := &server{
		analyzer:   rt.Pipeline,
		openVideo:  openVideo,
		videoInput: rt.VideoInput,
		maxUpload:  int64(cfg.Server.MaxUploadMB) << 20,
		log:        log,
	}

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.RequestTimeout() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown incomplete")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
