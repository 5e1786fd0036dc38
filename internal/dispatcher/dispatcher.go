// Package dispatcher fans analysis units out to a classifier with bounded
// concurrency and gathers one result per unit.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/types"
)

const notDispatched = "not dispatched: analysis cancelled"

// Classifier evaluates a single unit. Implementations must not return an
// error; failures are encoded in the result.
type Classifier interface {
	ClassifyUnit(ctx context.Context, unit types.AnalysisUnit, categories []string) types.UnitResult
}

type ClassifierFunc func(ctx context.Context, unit types.AnalysisUnit, categories []string) types.UnitResult

func (f ClassifierFunc) ClassifyUnit(ctx context.Context, unit types.AnalysisUnit, categories []string) types.UnitResult {
	return f(ctx, unit, categories)
}

type Config struct {
	// SequentialThreshold is the largest unit count handled inline.
	SequentialThreshold int
	BatchSize           int
	ConcurrencyCap      int
	// SubmissionDelay spaces batch submissions to stay under oracle rate limits.
	SubmissionDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		SequentialThreshold: 5,
		BatchSize:           2,
		ConcurrencyCap:      4,
		SubmissionDelay:     500 * time.Millisecond,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.SequentialThreshold < 0 {
		c.SequentialThreshold = def.SequentialThreshold
	}
	if c.BatchSize < 1 {
		c.BatchSize = def.BatchSize
	}
	if c.ConcurrencyCap < 1 {
		c.ConcurrencyCap = def.ConcurrencyCap
	}
	if c.SubmissionDelay < 0 {
		c.SubmissionDelay = 0
	}
	return c
}

type Dispatcher struct {
	cfg        Config
	classifier Classifier
	categories []string
	log        *logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(c Classifier, categories []string, cfg Config, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{
		cfg:        cfg.normalize(),
		classifier: c,
		categories: categories,
		log:        log.WithComponent("dispatcher"),
		sleep:      sleepCtx,
	}
}

// Run classifies every unit and returns exactly one result per unit, in no
// particular order. limit caps worker count (further capped by
// ConcurrencyCap). On cancellation, units not yet handed to a worker get
// error results and ctx.Err() is returned with the full result set.
func (d *Dispatcher) Run(ctx context.Context, units []types.AnalysisUnit, limit int) ([]types.UnitResult, error) {
	if len(units) == 0 {
		return []types.UnitResult{}, nil
	}
	if limit < 1 {
		limit = 1
	}
	if len(units) <= d.cfg.SequentialThreshold {
		return d.runSequential(ctx, units)
	}
	return d.runConcurrent(ctx, units, min(limit, d.cfg.ConcurrencyCap))
}

func (d *Dispatcher) runSequential(ctx context.Context, units []types.AnalysisUnit) ([]types.UnitResult, error) {
	results := make([]types.UnitResult, 0, len(units))
	for i, u := range units {
		if ctx.Err() != nil {
			results = append(results, failAll(units[i:], notDispatched)...)
			break
		}
		results = append(results, d.runBatch(ctx, []types.AnalysisUnit{u})...)
	}
	return results, ctx.Err()
}

func (d *Dispatcher) runConcurrent(ctx context.Context, units []types.AnalysisUnit, workers int) ([]types.UnitResult, error) {
	batches := chunk(units, d.cfg.BatchSize)
	d.log.WithField("units", len(units)).WithField("batches", len(batches)).
		WithField("workers", workers).Debug("dispatching")

	var (
		mu      sync.Mutex
		results = make([]types.UnitResult, 0, len(units))
	)
	collect := func(rs []types.UnitResult) {
		mu.Lock()
		results = append(results, rs...)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, batch := range batches {
		if i > 0 && d.cfg.SubmissionDelay > 0 {
			_ = d.sleep(ctx, d.cfg.SubmissionDelay)
		}
		if ctx.Err() != nil {
			var rest []types.AnalysisUnit
			for _, b := range batches[i:] {
				rest = append(rest, b...)
			}
			collect(failAll(rest, notDispatched))
			d.log.WithField("skipped", len(rest)).Warn("dispatch cancelled")
			break
		}
		batch := batch
		g.Go(func() error {
			collect(d.runBatch(ctx, batch))
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

// runBatch classifies batch members in order. A panic fails the members that
// had not finished; earlier results are kept.
func (d *Dispatcher) runBatch(ctx context.Context, batch []types.AnalysisUnit) (out []types.UnitResult) {
	out = make([]types.UnitResult, 0, len(batch))
	defer func() {
		if r := recover(); r != nil {
			d.log.WithField("unit", batch[len(out)].Index).WithField("panic", fmt.Sprint(r)).Error("classifier panicked")
			out = append(out, failAll(batch[len(out):], fmt.Sprintf("classifier panic: %v", r))...)
		}
	}()
	for _, u := range batch {
		out = append(out, d.classifier.ClassifyUnit(ctx, u, d.categories))
	}
	return out
}

func failAll(units []types.AnalysisUnit, reason string) []types.UnitResult {
	out := make([]types.UnitResult, 0, len(units))
	for _, u := range units {
		out = append(out, types.UnitResult{
			UnitIndex: u.Index,
			Timestamp: u.Timestamp,
			Classification: types.Classification{
				Category:    types.CategoryError,
				Description: reason,
			},
			Error: reason,
		})
	}
	return out
}

func chunk(units []types.AnalysisUnit, size int) [][]types.AnalysisUnit {
	batches := make([][]types.AnalysisUnit, 0, (len(units)+size-1)/size)
	for start := 0; start < len(units); start += size {
		end := min(start+size, len(units))
		batches = append(batches, units[start:end])
	}
	return batches
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
