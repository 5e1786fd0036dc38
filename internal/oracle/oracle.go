// Package oracle talks to the external generative model used as a black-box
// classifier. Callers pass a prompt, an optional image and generation options
// and receive raw model text; parsing that text is the classifier's job.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultTemperature     = 0.2
	DefaultSafetyCategory  = "HARM_CATEGORY_DANGEROUS_CONTENT"
	DefaultSafetyThreshold = "BLOCK_ONLY_HIGH"

	defaultHTTPTimeout  = 25 * time.Second
	defaultMaxRetryTime = 45 * time.Second
)

var ErrNotConfigured = errors.New("oracle not configured")

// Request is one generate call. Credential is chosen by the caller per call.
type Request struct {
	Credential      string
	Prompt          string
	Image           []byte
	MIMEType        string
	Temperature     float64
	SafetyThreshold string
}

type Oracle interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config is shared by the HTTP-backed oracles.
type Config struct {
	BaseURL      string
	Model        string
	Timeout      time.Duration
	MaxRetryTime time.Duration
	HTTPClient   *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c Config) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.MaxRetryTime
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = defaultMaxRetryTime
	}
	return backoff.WithContext(b, ctx)
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("oracle http %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// classify wraps client errors (4xx other than 408/429) as permanent so the
// retry loop gives up immediately.
func classify(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		if se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests && se.Code != http.StatusRequestTimeout {
			return backoff.Permanent(err)
		}
	}
	return err
}
