// Package fusion merges per-modality verdicts into one session result.
package fusion

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"incident-insights-go/internal/types"
)

var ErrNoModality = errors.New("fusion: no modality supplied")

// Assembler collects the verdicts of one request. It is safe for concurrent
// use so modality branches can report as they finish.
type Assembler struct {
	mu         sync.Mutex
	sessionID  string
	verdicts   map[types.Modality]types.ModalityVerdict
	units      []types.UnitResult
	transcript *types.Transcript
	text       string
	warnings   []string
	timedOut   bool
}

func NewAssembler() *Assembler {
	return NewAssemblerWithID(uuid.New().String())
}

func NewAssemblerWithID(sessionID string) *Assembler {
	return &Assembler{
		sessionID: sessionID,
		verdicts:  make(map[types.Modality]types.ModalityVerdict, 3),
	}
}

func (a *Assembler) SessionID() string { return a.sessionID }

func (a *Assembler) AddVideo(v types.ModalityVerdict, units []types.UnitResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v.Modality = types.KindVideo
	a.verdicts[types.KindVideo] = v
	a.units = append([]types.UnitResult(nil), units...)
	types.SortUnitResults(a.units)
}

func (a *Assembler) AddAudio(v types.ModalityVerdict, t types.Transcript) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v.Modality = types.KindAudio
	a.verdicts[types.KindAudio] = v
	a.transcript = &t
}

func (a *Assembler) AddText(v types.ModalityVerdict, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v.Modality = types.KindText
	a.verdicts[types.KindText] = v
	a.text = text
}

func (a *Assembler) AddWarning(w string) {
	if w == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.warnings = append(a.warnings, w)
}

func (a *Assembler) MarkTimedOut() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timedOut = true
}

// Result builds the session result from everything added so far. Events are
// the sorted union of modality events; "unknown" only survives when no
// modality produced anything else.
func (a *Assembler) Result() (*types.SessionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.verdicts) == 0 {
		return nil, ErrNoModality
	}

	res := &types.SessionResult{
		SessionID:  a.sessionID,
		Confidence: make(map[types.Modality]float64, len(a.verdicts)),
		Summaries:  make(map[types.Modality]string, len(a.verdicts)),
		Units:      append([]types.UnitResult{}, a.units...),
		Text:       a.text,
		TimedOut:   a.timedOut,
	}
	if a.transcript != nil {
		t := *a.transcript
		res.Transcript = &t
	}

	seen := map[string]bool{}
	for _, m := range []types.Modality{types.KindVideo, types.KindAudio, types.KindText} {
		v, ok := a.verdicts[m]
		if !ok {
			continue
		}
		res.Confidence[m] = v.Confidence
		res.Summaries[m] = v.Summary
		if v.Warning != "" {
			res.Warnings = append(res.Warnings, v.Warning)
		}
		for _, e := range v.Events {
			if e != "" && e != types.CategoryUnknown {
				seen[e] = true
			}
		}
	}
	res.Warnings = append(res.Warnings, a.warnings...)

	for e := range seen {
		res.Events = append(res.Events, e)
	}
	sort.Strings(res.Events)
	if len(res.Events) == 0 {
		res.Events = []string{types.CategoryUnknown}
	}
	return res, nil
}

// Assemble is the one-shot form for callers holding all verdicts already.
// Nil verdicts are absent modalities.
func Assemble(video, audio, text *types.ModalityVerdict) (*types.SessionResult, error) {
	a := NewAssembler()
	if video != nil {
		a.AddVideo(*video, nil)
	}
	if audio != nil {
		a.AddAudio(*audio, types.Transcript{})
	}
	if text != nil {
		a.AddText(*text, "")
	}
	return a.Result()
}
