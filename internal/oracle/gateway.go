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

// Gateway talks to an OpenAI-compatible chat completions endpoint
// (LLM_GATEWAY_URL). Images travel as data: URLs.
type Gateway struct {
	cfg Config
	hc  *http.Client
	log *logger.Logger
}

func NewGateway(cfg Config, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.Discard()
	}
	return &Gateway{cfg: cfg, hc: cfg.httpClient(), log: log.WithComponent("oracle-gateway")}
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

func (g *Gateway) buildBody(req Request) ([]byte, error) {
	var content any = req.Prompt
	if len(req.Image) > 0 {
		mime := req.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		content = []contentPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &imageURL{
				URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image),
			}},
		}
	}
	return json.Marshal(map[string]any{
		"model": g.cfg.Model,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
		"temperature": req.Temperature,
	})
}

func (g *Gateway) Generate(ctx context.Context, req Request) (string, error) {
	if g.cfg.BaseURL == "" || strings.TrimSpace(req.Credential) == "" {
		return "", fmt.Errorf("llm gateway: %w", ErrNotConfigured)
	}
	data, err := g.buildBody(req)
	if err != nil {
		return "", fmt.Errorf("llm gateway: encode request: %w", err)
	}
	g.log.WithField("payload_len", len(data)).Debug("llm request payload")

	var text string
	var lastErr error
	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(data))
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := g.hc.Do(httpReq)
		if err != nil {
			lastErr = err
			g.log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		g.log.WithField("http_status", resp.StatusCode).Debug("llm raw:\n" + string(body))

		if resp.StatusCode >= 300 {
			lastErr = &statusError{Code: resp.StatusCode, Body: string(body)}
			return classify(lastErr)
		}
		// choices[0].message.content (OpenAI-like); fall back to the raw body
		// so a gateway that returns the model text directly still works.
		if c := gjson.GetBytes(body, "choices.0.message.content"); c.Exists() {
			text = c.String()
		} else if !gjson.ValidBytes(body) || !gjson.GetBytes(body, "choices").Exists() {
			text = string(body)
		}
		lastErr = nil
		return nil
	}

	if err := backoff.Retry(op, g.cfg.retryPolicy(ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return "", fmt.Errorf("llm gateway generate: %w", lastErr)
	}
	return text, nil
}
