package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"incident-insights-go/internal/fusion"
	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/pipeline"
	"incident-insights-go/internal/sampler"
	"incident-insights-go/internal/types"
)

const (
	msgNoInput     = "No valid input provided. Please upload video, audio, or provide text."
	maxMemoryBytes = 32 << 20
)

type analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (*types.SessionResult, error)
	Categories() []string
}

type videoOpener func(ctx context.Context, path string) (sampler.Decoder, error)

type videoDefaults func(dec sampler.Decoder, interval float64, workers int) *pipeline.VideoInput

type server struct {
	analyzer   analyzer
	openVideo  videoOpener
	videoInput videoDefaults
	maxUpload  int64
	log        *logger.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.log.WithRequest(r).Debug("health check")
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"categories": s.analyzer.Categories()}, s.log)
	})

	mux.HandleFunc("/analyze", s.handleAnalyze)
	return mux
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "analyze")
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", s.log)
		return
	}

	if s.maxUpload > 0 {
		if r.ContentLength > s.maxUpload {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", s.log)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", s.log)
			return
		}
		reqLog.WithError(err).Warn("malformed form")
		writeError(w, http.StatusBadRequest, "malformed form data", s.log)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	var req pipeline.Request

	if file, header, err := r.FormFile("video"); err == nil {
		defer file.Close()
		interval, workers, err := videoParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), s.log)
			return
		}
		path, err := spool(file, header)
		if err != nil {
			reqLog.WithError(err).Error("failed to store video upload")
			writeError(w, http.StatusInternalServerError, "failed to store video", s.log)
			return
		}
		defer os.Remove(path)

		dec, err := s.openVideo(r.Context(), path)
		if err != nil {
			reqLog.WithError(err).WithField("filename", header.Filename).Warn("video not readable")
			writeError(w, http.StatusUnprocessableEntity, "could not read video", s.log)
			return
		}
		req.Video = s.videoInput(dec, interval, workers)
	}

	if file, header, err := r.FormFile("audio"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			reqLog.WithError(err).Warn("failed to read audio upload")
			writeError(w, http.StatusBadRequest, "failed to read audio", s.log)
			return
		}
		req.Audio = &types.AudioClip{
			Name:     header.Filename,
			Data:     data,
			MIMEType: header.Header.Get("Content-Type"),
		}
	}

	if vals, ok := r.Form["text"]; ok && len(vals) > 0 {
		text := vals[0]
		req.Text = &text
	}

	start := time.Now()
	res, err := s.analyzer.Analyze(r.Context(), req)
	reqLog = reqLog.WithField("duration_ms", time.Since(start).Milliseconds())
	switch {
	case err == nil:
	case errors.Is(err, fusion.ErrNoModality):
		reqLog.Warn("no evidence supplied")
		writeError(w, http.StatusBadRequest, msgNoInput, s.log)
		return
	case errors.Is(err, sampler.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, err.Error(), s.log)
		return
	case errors.Is(err, pipeline.ErrUnusableMedia):
		reqLog.Warn("video produced no frames")
		writeError(w, http.StatusUnprocessableEntity, err.Error(), s.log)
		return
	default:
		reqLog.WithError(err).Error("analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis failed", s.log)
		return
	}

	reqLog.WithField("session_id", res.SessionID).WithField("events", res.Events).Info("analysis served")
	writeJSON(w, http.StatusOK, res, s.log)
}

// videoParams reads the optional interval and workers fields.
func videoParams(r *http.Request) (float64, int, error) {
	var (
		interval float64
		workers  int
		err      error
	)
	if v := r.FormValue("interval"); v != "" {
		if interval, err = strconv.ParseFloat(v, 64); err != nil {
			return 0, 0, fmt.Errorf("invalid interval %q", v)
		}
	}
	if v := r.FormValue("workers"); v != "" {
		if workers, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("invalid workers %q", v)
		}
	}
	return interval, workers, nil
}

// spool copies an upload to a temp file so ffmpeg can seek in it.
func spool(file multipart.File, header *multipart.FileHeader) (string, error) {
	tmp, err := os.CreateTemp("", "evidence-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string, log *logger.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, log)
}
