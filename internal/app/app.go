// Package app wires configuration into a ready analysis pipeline. Both the
// HTTP service and the CLI start from Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"incident-insights-go/internal/cache"
	"incident-insights-go/internal/classifier"
	"incident-insights-go/internal/config"
	"incident-insights-go/internal/credentials"
	"incident-insights-go/internal/dispatcher"
	"incident-insights-go/internal/imaging"
	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/oracle"
	"incident-insights-go/internal/pipeline"
	"incident-insights-go/internal/sampler"
	"incident-insights-go/internal/sampler/ffmpeg"
	"incident-insights-go/internal/transcription"
	"incident-insights-go/internal/types"
)

type Runtime struct {
	Config    *config.Config
	Pipeline  *pipeline.Pipeline
	Annotator *imaging.FrameAnnotator
	closers   []func() error
	log       *logger.Logger
}

func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	if log == nil {
		log = logger.Discard()
	}
	rt := &Runtime{Config: cfg, log: log.WithComponent("app")}

	pool, err := credentials.NewPool(cfg.Oracle.APIKeys)
	if err != nil {
		return nil, err
	}

	orc, err := newOracle(cfg, log)
	if err != nil {
		return nil, err
	}

	opts := []classifier.Option{
		classifier.WithLogger(log),
		classifier.WithOptions(classifier.Options{
			Temperature:       cfg.Oracle.Temperature,
			SafetyThreshold:   cfg.Oracle.SafetyThreshold,
			MaxImageDimension: cfg.Sampling.MaxImageDimension,
		}),
	}
	if cfg.Annotate.Dir != "" {
		ann, err := imaging.NewFrameAnnotator(cfg.Annotate.Dir, cfg.Sampling.MaxImageDimension)
		if err != nil {
			return nil, err
		}
		rt.Annotator = ann
		opts = append(opts, classifier.WithAnnotator(ann))
	}
	store, err := rt.newCache(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, classifier.WithCache(store))
	}

	stt, err := newSpeechToText(cfg, log)
	if err != nil {
		return nil, err
	}

	cls := classifier.New(orc, pool, opts...)
	rt.Pipeline = pipeline.New(cls, stt, pipeline.Options{
		RequestTimeout: cfg.RequestTimeout(),
		Dispatch: dispatcher.Config{
			SequentialThreshold: cfg.Dispatch.SequentialThreshold,
			BatchSize:           cfg.Dispatch.BatchSize,
			ConcurrencyCap:      cfg.Dispatch.ConcurrencyCap,
			SubmissionDelay:     cfg.SubmissionDelay(),
		},
	}, log)

	log.WithField("oracle", cfg.Oracle.Provider).
		WithField("credentials", pool.Size()).
		WithField("transcription", cfg.Transcription.Provider).
		WithField("cache", cfg.Cache.Backend).
		WithField("annotate", cfg.Annotate.Dir != "").
		Info("pipeline ready")
	return rt, nil
}

func newOracle(cfg *config.Config, log *logger.Logger) (oracle.Oracle, error) {
	oc := oracle.Config{
		BaseURL:      cfg.Oracle.BaseURL,
		Model:        cfg.Oracle.Model,
		Timeout:      cfg.OracleTimeout(),
		MaxRetryTime: cfg.OracleMaxRetry(),
	}
	switch cfg.Oracle.Provider {
	case config.ProviderGemini:
		return oracle.NewGemini(oc, log), nil
	case config.ProviderGateway:
		return oracle.NewGateway(oc, log), nil
	case config.ProviderMock:
		return oracle.Mock{}, nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}
}

func newSpeechToText(cfg *config.Config, log *logger.Logger) (transcription.SpeechToText, error) {
	switch cfg.Transcription.Provider {
	case config.ProviderMock:
		return transcription.Mock{}, nil
	case config.ProviderWhisper:
		return transcription.NewWhisper(transcription.WhisperConfig{
			BaseURL: cfg.Transcription.URL,
			APIKey:  cfg.Transcription.APIKey,
			Model:   cfg.Transcription.Model,
			Timeout: cfg.TranscriptionTimeout(),
		}, log)
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Transcription.Provider)
	}
}

func (r *Runtime) newCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheMemory:
		return cache.NewMemory(cfg.CacheTTL(), cfg.Cache.MaxEntries), nil
	case config.CacheRedis:
		rc := cache.NewRedis(cache.RedisOptions{
			Address:  cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.CacheTTL(),
		}, log)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		r.closers = append(r.closers, rc.Close)
		return rc, nil
	default:
		return nil, nil
	}
}

// OpenVideo probes a video file with the configured ffmpeg binaries.
func (r *Runtime) OpenVideo(ctx context.Context, path string) (*ffmpeg.Decoder, error) {
	return ffmpeg.Open(ctx, path,
		ffmpeg.WithFFprobe(r.Config.Sampling.FFprobeBinary),
		ffmpeg.WithFFmpeg(r.Config.Sampling.FFmpegBinary),
	)
}

// VideoInput builds a pipeline video input, applying configured defaults
// where interval or workers are unset.
func (r *Runtime) VideoInput(dec sampler.Decoder, interval float64, workers int) *pipeline.VideoInput {
	if interval == 0 {
		interval = r.Config.Sampling.IntervalSeconds
	}
	if workers <= 0 {
		workers = r.Config.Sampling.Workers
	}
	return &pipeline.VideoInput{Decoder: dec, IntervalSeconds: interval, Workers: workers}
}

// ReadAudio loads an audio file for speech-to-text.
func ReadAudio(path string) (types.AudioClip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.AudioClip{}, fmt.Errorf("read audio: %w", err)
	}
	return types.AudioClip{
		Name:     filepath.Base(path),
		Data:     data,
		MIMEType: mime.TypeByExtension(filepath.Ext(path)),
	}, nil
}

func (r *Runtime) Close() error {
	if r.Annotator != nil && r.log != nil {
		saved, dropped := r.Annotator.Stats()
		r.log.WithField("annotated_frames", saved).WithField("dropped_frames", dropped).Info("frame annotation finished")
	}
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
