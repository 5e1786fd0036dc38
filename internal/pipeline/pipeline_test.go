package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-insights-go/internal/dispatcher"
	"incident-insights-go/internal/fusion"
	"incident-insights-go/internal/sampler"
	"incident-insights-go/internal/transcription"
	"incident-insights-go/internal/types"
)

type fakeDecoder struct {
	fps   float64
	count int
}

func (d fakeDecoder) FrameRate() float64 { return d.fps }
func (d fakeDecoder) FrameCount() int    { return d.count }
func (d fakeDecoder) ReadFrame(_ context.Context, i int) ([]byte, error) {
	if i >= d.count {
		return nil, io.EOF
	}
	return []byte(fmt.Sprintf("frame-%d", i)), nil
}

// scripted answers by unit index for video and by kind for audio/text.
type scripted struct {
	mu     sync.Mutex
	video  map[int]types.Classification
	byKind map[types.Kind]types.Classification
	seen   map[types.Kind][]string
}

func (s *scripted) ClassifyUnit(_ context.Context, u types.AnalysisUnit, _ []string) types.UnitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = map[types.Kind][]string{}
	}
	s.seen[u.Kind] = append(s.seen[u.Kind], string(u.Payload))
	cls, ok := s.video[u.Index]
	if u.Kind != types.KindVideo {
		cls, ok = s.byKind[u.Kind]
	}
	if !ok {
		cls = types.Classification{Category: types.CategoryUnknown}
	}
	return types.UnitResult{UnitIndex: u.Index, Classification: cls}
}

func testOptions() Options {
	cfg := dispatcher.DefaultConfig()
	cfg.SubmissionDelay = 0
	return Options{Dispatch: cfg}
}

func strPtr(s string) *string { return &s }

func TestAnalyzeRequiresModality(t *testing.T) {
	p := New(&scripted{}, transcription.Mock{}, testOptions(), nil)
	_, err := p.Analyze(context.Background(), Request{})
	assert.ErrorIs(t, err, fusion.ErrNoModality)
}

func TestAnalyzeVideoEndToEnd(t *testing.T) {
	cats := []string{"arson", "arson", "normal", "normal", "normal", "normal", "unknown", "error", "shooting", "arson"}
	confs := []float64{0.9, 0.7, 0.6, 0.6, 0.5, 0.4, 0, 0, 0.2, 0.8}
	video := map[int]types.Classification{}
	for i := range cats {
		// 1 fps at a 2s interval samples every second frame
		video[i*2] = types.Classification{Category: cats[i], Confidence: confs[i]}
	}
	cls := &scripted{video: video}
	p := New(cls, nil, testOptions(), nil)

	res, err := p.Analyze(context.Background(), Request{
		Video: &VideoInput{Decoder: fakeDecoder{fps: 1, count: 20}, IntervalSeconds: 2, Workers: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"arson"}, res.Events)
	assert.InDelta(t, 0.8, res.Confidence[types.KindVideo], 1e-9)
	assert.Equal(t, "Detected potential incidents: arson (0.80) with overall confidence 0.80.", res.Summaries[types.KindVideo])
	require.Len(t, res.Units, 10)
	for i, u := range res.Units {
		assert.Equal(t, i*2, u.UnitIndex)
	}
	assert.False(t, res.TimedOut)
}

func TestAnalyzeAllModalities(t *testing.T) {
	cls := &scripted{
		video: map[int]types.Classification{
			0:  {Category: "normal", Confidence: 0.8},
			60: {Category: "normal", Confidence: 0.7},
		},
		byKind: map[types.Kind]types.Classification{
			types.KindAudio: {Category: "shooting", Confidence: 0.75, Description: "shots fired"},
			types.KindText:  {Category: "assault", Confidence: 0.6, Description: "a fight"},
		},
	}
	stt := transcription.Mock{Language: "fr", Text: "des coups de feu", Translation: "shots fired near the gate"}
	p := New(cls, stt, testOptions(), nil)

	res, err := p.Analyze(context.Background(), Request{
		Video: &VideoInput{Decoder: fakeDecoder{fps: 30, count: 90}},
		Audio: &types.AudioClip{Name: "a.wav", Data: []byte("wav")},
		Text:  strPtr("someone punched the guard"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"assault", "normal", "shooting"}, res.Events)
	assert.InDelta(t, 0.75, res.Confidence[types.KindVideo], 1e-9)
	assert.Equal(t, 0.75, res.Confidence[types.KindAudio])
	assert.Equal(t, "a fight", res.Summaries[types.KindText])
	require.NotNil(t, res.Transcript)
	assert.True(t, res.Transcript.NeedsTranslation)
	assert.Equal(t, "shots fired near the gate", res.Transcript.TranslatedText)
	assert.Equal(t, "someone punched the guard", res.Text)
	assert.Equal(t, []string{"shots fired near the gate"}, cls.seen[types.KindAudio])
}

func TestAnalyzeLoneEmptyVideoIsUnusable(t *testing.T) {
	p := New(&scripted{}, nil, testOptions(), nil)
	_, err := p.Analyze(context.Background(), Request{Video: &VideoInput{Decoder: fakeDecoder{fps: 30}}})
	assert.ErrorIs(t, err, ErrUnusableMedia)
}

func TestAnalyzeEmptyVideoWithTextDegrades(t *testing.T) {
	cls := &scripted{byKind: map[types.Kind]types.Classification{
		types.KindText: {Category: "vandalism", Confidence: 0.7},
	}}
	p := New(cls, nil, testOptions(), nil)

	res, err := p.Analyze(context.Background(), Request{
		Video: &VideoInput{Decoder: fakeDecoder{fps: 30}},
		Text:  strPtr("graffiti on the wall"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"vandalism"}, res.Events)
	assert.Contains(t, res.Warnings, "Video produced no analyzable frames")
	assert.Zero(t, res.Confidence[types.KindVideo])
}

func TestAnalyzeRejectsNegativeInterval(t *testing.T) {
	p := New(&scripted{}, nil, testOptions(), nil)
	_, err := p.Analyze(context.Background(), Request{
		Video: &VideoInput{Decoder: fakeDecoder{fps: 30, count: 30}, IntervalSeconds: -1},
	})
	assert.ErrorIs(t, err, sampler.ErrInvalidInterval)
}

func TestAnalyzeTimeoutReturnsPartial(t *testing.T) {
	slow := dispatcher.ClassifierFunc(func(ctx context.Context, u types.AnalysisUnit, _ []string) types.UnitResult {
		<-ctx.Done()
		return types.UnitResult{UnitIndex: u.Index, Classification: types.Classification{Category: types.CategoryError}, Error: ctx.Err().Error()}
	})
	opts := testOptions()
	opts.RequestTimeout = 50 * time.Millisecond
	p := New(slow, nil, opts, nil)

	res, err := p.Analyze(context.Background(), Request{
		Video: &VideoInput{Decoder: fakeDecoder{fps: 1, count: 20}},
		Text:  strPtr("hello there"),
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, []string{"unknown"}, res.Events)
	assert.Len(t, res.Units, 10)
	assert.NotEmpty(t, res.Warnings)
}

func TestAnalyzeShortAudioUsesTranscript(t *testing.T) {
	cls := &scripted{byKind: map[types.Kind]types.Classification{
		types.KindAudio: {Category: "unknown", Description: "Insufficient audio content for analysis"},
	}}
	p := New(cls, transcription.Mock{Text: "ok"}, testOptions(), nil)
	res, err := p.Analyze(context.Background(), Request{Audio: &types.AudioClip{Data: []byte("wav")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"unknown"}, res.Events)
	assert.Equal(t, "en", res.Transcript.Language)
}

type untranslatable struct{ transcription.Mock }

func (untranslatable) Translate(context.Context, types.AudioClip) (string, error) {
	return "", fmt.Errorf("translation backend unavailable")
}

func TestAnalyzeAudioTranslationFailureSendsNoForeignText(t *testing.T) {
	cls := &scripted{byKind: map[types.Kind]types.Classification{
		types.KindAudio: {Category: "unknown", Description: "Insufficient audio content for analysis"},
	}}
	stt := untranslatable{transcription.Mock{Language: "fr", Text: "au secours il y a un incendie"}}
	p := New(cls, stt, testOptions(), nil)

	res, err := p.Analyze(context.Background(), Request{Audio: &types.AudioClip{Data: []byte("wav")}})
	require.NoError(t, err)
	require.NotNil(t, res.Transcript)
	assert.Equal(t, transcription.LanguageUnknown, res.Transcript.Language)
	assert.Empty(t, res.Transcript.TranslatedText)
	assert.Equal(t, []string{""}, cls.seen[types.KindAudio])
	assert.Equal(t, []string{"unknown"}, res.Events)
}
