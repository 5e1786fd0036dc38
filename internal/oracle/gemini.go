package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"incident-insights-go/internal/logger"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.0-flash"
)

// Gemini calls the generateContent REST endpoint with an inline image part.
type Gemini struct {
	cfg Config
	hc  *http.Client
	log *logger.Logger
}

func NewGemini(cfg Config, log *logger.Logger) *Gemini {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Gemini{cfg: cfg, hc: cfg.httpClient(), log: log.WithComponent("oracle-gemini")}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiSafety struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
	SafetySettings []geminiSafety `json:"safetySettings,omitempty"`
}

func (g *Gemini) buildBody(req Request) ([]byte, error) {
	var body geminiRequest
	parts := []geminiPart{{Text: req.Prompt}}
	if len(req.Image) > 0 {
		mime := req.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MIMEType: mime,
			Data:     base64.StdEncoding.EncodeToString(req.Image),
		}})
	}
	body.Contents = append(body.Contents, struct {
		Parts []geminiPart `json:"parts"`
	}{Parts: parts})
	body.GenerationConfig.Temperature = req.Temperature
	threshold := req.SafetyThreshold
	if threshold == "" {
		threshold = DefaultSafetyThreshold
	}
	body.SafetySettings = []geminiSafety{{Category: DefaultSafetyCategory, Threshold: threshold}}
	return json.Marshal(body)
}

// Generate returns the concatenated candidate text. A response without any
// text part (blocked or empty) yields "" and no error.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return "", fmt.Errorf("gemini: %w: missing credential", ErrNotConfigured)
	}
	data, err := g.buildBody(req)
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model)

	var text string
	var lastErr error
	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", req.Credential)

		resp, err := g.hc.Do(httpReq)
		if err != nil {
			lastErr = err
			g.log.WithError(err).Warn("gemini request failed")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 300 {
			lastErr = &statusError{Code: resp.StatusCode, Body: string(body)}
			return classify(lastErr)
		}
		if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
			lastErr = fmt.Errorf("gemini api error: %s", msg.String())
			return backoff.Permanent(lastErr)
		}
		var sb strings.Builder
		gjson.GetBytes(body, "candidates.0.content.parts.#.text").ForEach(func(_, v gjson.Result) bool {
			sb.WriteString(v.String())
			return true
		})
		text = sb.String()
		if text == "" {
			g.log.WithField("block_reason", gjson.GetBytes(body, "promptFeedback.blockReason").String()).
				Debug("gemini returned no text")
		}
		lastErr = nil
		return nil
	}

	if err := backoff.Retry(op, g.cfg.retryPolicy(ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return "", fmt.Errorf("gemini generate: %w", lastErr)
	}
	return text, nil
}
