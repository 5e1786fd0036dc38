// Package pipeline runs one multi-modal analysis request end to end: video
// sampling and dispatch, audio transcription, text classification and fusion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"incident-insights-go/internal/aggregator"
	"incident-insights-go/internal/dispatcher"
	"incident-insights-go/internal/fusion"
	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/sampler"
	"incident-insights-go/internal/transcription"
	"incident-insights-go/internal/types"
)

const (
	DefaultIntervalSeconds = 2.0
	DefaultWorkers         = 2
)

var ErrUnusableMedia = errors.New("pipeline: video produced no analyzable frames")

type VideoInput struct {
	Decoder sampler.Decoder
	// IntervalSeconds between sampled frames; zero selects the default.
	IntervalSeconds float64
	// Workers requested for dispatch; zero selects the default.
	Workers int
}

// Request names the evidence of one session. Nil fields are absent
// modalities; a non-nil empty Text still counts as supplied.
type Request struct {
	Video *VideoInput
	Audio *types.AudioClip
	Text  *string
}

func (r Request) modalities() int {
	n := 0
	if r.Video != nil {
		n++
	}
	if r.Audio != nil {
		n++
	}
	if r.Text != nil {
		n++
	}
	return n
}

type Options struct {
	Categories     []string
	RequestTimeout time.Duration
	Dispatch       dispatcher.Config
}

type Pipeline struct {
	classifier dispatcher.Classifier
	stt        transcription.SpeechToText
	sampler    *sampler.Sampler
	dispatcher *dispatcher.Dispatcher
	opts       Options
	log        *logger.Logger
}

func New(cls dispatcher.Classifier, stt transcription.SpeechToText, opts Options, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	if len(opts.Categories) == 0 {
		opts.Categories = types.CategoryNames(types.DefaultCategories)
	}
	return &Pipeline{
		classifier: cls,
		stt:        stt,
		sampler:    sampler.New(log),
		dispatcher: dispatcher.New(cls, opts.Categories, opts.Dispatch, log),
		opts:       opts,
		log:        log.WithComponent("pipeline"),
	}
}

func (p *Pipeline) Categories() []string {
	return append([]string(nil), p.opts.Categories...)
}

// Analyze returns a best-effort verdict for every supplied modality. Input
// errors (nothing supplied, bad interval, a lone unusable video) fail the
// request; a deadline returns the partial result with TimedOut set.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*types.SessionResult, error) {
	if req.modalities() == 0 {
		return nil, fusion.ErrNoModality
	}
	if req.Video != nil && req.Video.IntervalSeconds < 0 {
		return nil, fmt.Errorf("video: %w", sampler.ErrInvalidInterval)
	}

	asm := fusion.NewAssembler()
	log := p.log.WithSession(asm.SessionID())
	start := time.Now()

	runCtx := ctx
	if p.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.opts.RequestTimeout)
		defer cancel()
	}

	var g errgroup.Group
	if req.Video != nil {
		g.Go(func() error {
			return p.analyzeVideo(runCtx, asm, *req.Video, req.modalities() == 1, log)
		})
	}
	if req.Audio != nil {
		g.Go(func() error {
			p.analyzeAudio(runCtx, asm, *req.Audio, log)
			return nil
		})
	}
	if req.Text != nil {
		g.Go(func() error {
			p.analyzeText(runCtx, asm, *req.Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		asm.MarkTimedOut()
		asm.AddWarning(fmt.Sprintf("Analysis timed out after %s; results are partial", p.opts.RequestTimeout))
		log.WithField("timeout", p.opts.RequestTimeout.String()).Warn("analysis timed out")
	}

	res, err := asm.Result()
	if err != nil {
		return nil, err
	}
	log.WithField("events", res.Events).WithField("elapsed_ms", time.Since(start).Milliseconds()).Info("analysis complete")
	return res, nil
}

func (p *Pipeline) analyzeVideo(ctx context.Context, asm *fusion.Assembler, in VideoInput, only bool, log *logger.Logger) error {
	if in.Decoder == nil {
		if only {
			return ErrUnusableMedia
		}
		asm.AddVideo(unusableVideo(), nil)
		return nil
	}
	interval := in.IntervalSeconds
	if interval == 0 {
		interval = DefaultIntervalSeconds
	}
	workers := in.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	units, err := p.sampler.Sample(ctx, asm.SessionID(), in.Decoder, interval)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("sample video: %w", err)
	}
	if len(units) == 0 {
		if only && ctx.Err() == nil {
			return ErrUnusableMedia
		}
		asm.AddVideo(unusableVideo(), nil)
		return nil
	}

	results, err := p.dispatcher.Run(ctx, units, workers)
	if err != nil {
		log.WithError(err).WithField("units", len(units)).Warn("dispatch interrupted")
	}
	types.SortUnitResults(results)
	asm.AddVideo(aggregator.Aggregate(results), results)
	return nil
}

func (p *Pipeline) analyzeAudio(ctx context.Context, asm *fusion.Assembler, clip types.AudioClip, log *logger.Logger) {
	var transcript types.Transcript
	if p.stt == nil {
		transcript = types.Transcript{Language: transcription.LanguageUnknown, Error: "speech-to-text not configured"}
	} else {
		transcript = transcription.TranscribeAndTranslate(ctx, p.stt, clip)
	}
	if transcript.Error != "" {
		log.WithField("error", transcript.Error).Warn("audio transcript degraded")
	}

	unit := types.AnalysisUnit{
		Kind:     types.KindAudio,
		Session:  asm.SessionID(),
		Payload:  []byte(transcript.TranslatedText),
		MIMEType: "text/plain",
	}
	cls := p.classifier.ClassifyUnit(ctx, unit, p.opts.Categories).Classification
	asm.AddAudio(aggregator.Single(types.KindAudio, cls), transcript)
}

func (p *Pipeline) analyzeText(ctx context.Context, asm *fusion.Assembler, text string) {
	unit := types.AnalysisUnit{
		Kind:     types.KindText,
		Session:  asm.SessionID(),
		Payload:  []byte(text),
		MIMEType: "text/plain",
	}
	cls := p.classifier.ClassifyUnit(ctx, unit, p.opts.Categories).Classification
	asm.AddText(aggregator.Single(types.KindText, cls), text)
}

func unusableVideo() types.ModalityVerdict {
	return types.ModalityVerdict{
		Modality: types.KindVideo,
		Events:   []string{types.CategoryUnknown},
		Summary:  aggregator.SummaryNoFrames,
		Warning:  "Video produced no analyzable frames",
	}
}
