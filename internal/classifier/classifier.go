// Package classifier turns one analysis unit into a validated classification
// by prompting the oracle and sanitizing whatever it returns.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"incident-insights-go/internal/cache"
	"incident-insights-go/internal/credentials"
	"incident-insights-go/internal/imaging"
	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/oracle"
	"incident-insights-go/internal/types"
)

const (
	// DefaultMinTranscriptLength is the shortest audio transcript worth sending.
	DefaultMinTranscriptLength = 10

	InsufficientAudio = "Insufficient audio content for analysis"
)

// Annotator persists a labelled copy of a classified frame.
type Annotator interface {
	Annotate(unit types.AnalysisUnit, c types.Classification) (string, error)
}

type Options struct {
	Temperature         float64
	SafetyThreshold     string
	MaxImageDimension   int
	MinTranscriptLength int
}

// DefaultOptions is what New uses without WithOptions. Temperature is taken
// as given by WithOptions, so zero stays zero.
func DefaultOptions() Options {
	return Options{Temperature: oracle.DefaultTemperature}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.SafetyThreshold == "" {
		o.SafetyThreshold = oracle.DefaultSafetyThreshold
	}
	if o.MaxImageDimension <= 0 {
		o.MaxImageDimension = imaging.DefaultMaxDimension
	}
	if o.MinTranscriptLength <= 0 {
		o.MinTranscriptLength = DefaultMinTranscriptLength
	}
	return o
}

type Client struct {
	oracle    oracle.Oracle
	creds     *credentials.Pool
	opts      Options
	annotator Annotator
	cache     cache.Store
	log       *logger.Logger
}

type Option func(*Client)

func WithAnnotator(a Annotator) Option { return func(c *Client) { c.annotator = a } }
func WithCache(s cache.Store) Option   { return func(c *Client) { c.cache = s } }
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
func WithOptions(o Options) Option { return func(c *Client) { c.opts = o } }

func New(o oracle.Oracle, creds *credentials.Pool, opts ...Option) *Client {
	c := &Client{oracle: o, creds: creds, log: logger.Discard(), opts: DefaultOptions()}
	for _, opt := range opts {
		opt(c)
	}
	c.opts = c.opts.withDefaults()
	c.log = c.log.WithComponent("classifier")
	return c
}

// Classify never returns an error: transport failures come back as category
// "error", unusable oracle output as "unknown".
func (c *Client) Classify(ctx context.Context, unit types.AnalysisUnit, categories []string) types.Classification {
	return c.ClassifyUnit(ctx, unit, categories).Classification
}

// ClassifyUnit is Classify plus per-unit bookkeeping: error text and the path
// of the annotated frame, if one was written.
func (c *Client) ClassifyUnit(ctx context.Context, unit types.AnalysisUnit, categories []string) types.UnitResult {
	res := types.UnitResult{UnitIndex: unit.Index, Timestamp: unit.Timestamp}

	cls, err := c.classify(ctx, unit, categories)
	res.Classification = cls
	if err != nil {
		res.Error = err.Error()
		c.log.WithField("unit", unit.Index).WithField("kind", unit.Kind).WithError(err).Warn("classification failed")
		return res
	}

	if unit.Kind == types.KindVideo && c.annotator != nil {
		path, aerr := c.annotator.Annotate(unit, cls)
		if aerr != nil {
			c.log.WithField("unit", unit.Index).WithError(aerr).Warn("annotate frame failed")
		} else {
			res.AnnotatedPath = path
		}
	}
	return res
}

func (c *Client) classify(ctx context.Context, unit types.AnalysisUnit, categories []string) (types.Classification, error) {
	if err := ctx.Err(); err != nil {
		return errorResult(err), err
	}

	req, short := c.request(unit, categories)
	if short != nil {
		return *short, nil
	}

	var key string
	if c.cache != nil {
		key = cache.Key(unit, categories)
		if hit, ok := c.cache.Get(ctx, key); ok {
			return hit, nil
		}
	}

	if c.creds == nil || c.creds.Size() == 0 {
		return errorResult(credentials.ErrEmptyPool), credentials.ErrEmptyPool
	}
	req.Credential = c.creds.Next()

	raw, err := c.oracle.Generate(ctx, req)
	if err != nil {
		return errorResult(err), err
	}

	cls := parseClassification(raw, vocabulary(categories))
	if c.cache != nil && cache.Cacheable(cls) {
		c.cache.Set(ctx, key, cls)
	}
	return cls, nil
}

// request builds the oracle call for unit, or a final classification when the
// unit is not worth sending.
func (c *Client) request(unit types.AnalysisUnit, categories []string) (oracle.Request, *types.Classification) {
	req := oracle.Request{
		Temperature:     c.opts.Temperature,
		SafetyThreshold: c.opts.SafetyThreshold,
	}

	switch unit.Kind {
	case types.KindVideo:
		if len(unit.Payload) == 0 {
			cls := degraded(types.CategoryUnknown, "Empty frame")
			return req, &cls
		}
		img, mime, err := imaging.Shrink(unit.Payload, c.opts.MaxImageDimension)
		if err != nil {
			cls := degraded(types.CategoryUnknown, fmt.Sprintf("Undecodable frame: %v", err))
			return req, &cls
		}
		if mime == "" {
			mime = unit.MIMEType
		}
		if mime == "" {
			mime = "image/jpeg"
		}
		req.Prompt = buildPrompt(unit.Kind, categories, "")
		req.Image = img
		req.MIMEType = mime
	case types.KindAudio:
		text := strings.TrimSpace(string(unit.Payload))
		if utf8.RuneCountInString(text) < c.opts.MinTranscriptLength {
			cls := degraded(types.CategoryUnknown, InsufficientAudio)
			return req, &cls
		}
		req.Prompt = buildPrompt(unit.Kind, categories, text)
	default:
		text := strings.TrimSpace(string(unit.Payload))
		if text == "" {
			cls := degraded(types.CategoryUnknown, "Empty text")
			return req, &cls
		}
		req.Prompt = buildPrompt(types.KindText, categories, text)
	}
	return req, nil
}

func vocabulary(categories []string) map[string]bool {
	v := make(map[string]bool, len(categories))
	for _, c := range categories {
		v[types.NormalizeCategory(c)] = true
	}
	return v
}

func errorResult(err error) types.Classification {
	return degraded(types.CategoryError, fmt.Sprintf("Error analyzing: %v", err))
}
