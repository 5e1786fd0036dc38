package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/types"
)

const (
	DefaultWhisperModel = "whisper-1"

	defaultWhisperTimeout = 60 * time.Second
	defaultWhisperRetry   = 30 * time.Second
)

type WhisperConfig struct {
	// BaseURL of an OpenAI-compatible API, e.g. https://api.openai.com/v1.
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetryTime time.Duration
	HTTPClient   *http.Client
}

// WhisperClient calls the /audio/transcriptions and /audio/translations
// endpoints with verbose_json output.
type WhisperClient struct {
	cfg  WhisperConfig
	http *http.Client
	log  *logger.Logger
}

func NewWhisper(cfg WhisperConfig, log *logger.Logger) (*WhisperClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("TRANSCRIBE_URL not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultWhisperModel
	}
	if cfg.MaxRetryTime <= 0 {
		cfg.MaxRetryTime = defaultWhisperRetry
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultWhisperTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &WhisperClient{cfg: cfg, http: client, log: log.WithComponent("transcription")}, nil
}

func (w *WhisperClient) Transcribe(ctx context.Context, clip types.AudioClip) (Recognition, error) {
	body, err := w.post(ctx, "/audio/transcriptions", clip)
	if err != nil {
		return Recognition{}, err
	}
	rec := Recognition{
		Language: gjson.GetBytes(body, "language").String(),
		Text:     gjson.GetBytes(body, "text").String(),
	}
	w.log.WithField("language", rec.Language).WithField("chars", len(rec.Text)).Info("audio transcribed")
	return rec, nil
}

func (w *WhisperClient) Translate(ctx context.Context, clip types.AudioClip) (string, error) {
	body, err := w.post(ctx, "/audio/translations", clip)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "text").String(), nil
}

func (w *WhisperClient) post(ctx context.Context, path string, clip types.AudioClip) ([]byte, error) {
	if len(clip.Data) == 0 {
		return nil, errors.New("empty audio clip")
	}
	endpoint := strings.TrimRight(w.cfg.BaseURL, "/") + path

	bo := backoff.WithContext(newBackoff(w.cfg.MaxRetryTime), ctx)
	var lastErr error
	var out []byte
	op := func() error {
		payload, contentType, err := multipartBody(clip, w.cfg.Model)
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)
		if w.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
		}

		resp, err := w.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("whisper server error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			return lastErr
		}
		if resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("whisper http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			return backoff.Permanent(lastErr)
		}
		if !gjson.ValidBytes(body) {
			lastErr = fmt.Errorf("whisper json decode error: body=%s", string(body))
			return lastErr
		}
		out = body
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return out, nil
}

func newBackoff(maxElapsed time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	return bo
}

func multipartBody(clip types.AudioClip, model string) (*bytes.Buffer, string, error) {
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	name := clip.Name
	if name == "" {
		name = "audio.wav"
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(clip.Data); err != nil {
		return nil, "", err
	}
	_ = mw.WriteField("model", model)
	_ = mw.WriteField("response_format", "verbose_json")
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &b, mw.FormDataContentType(), nil
}
