package types

import (
	"sort"
	"time"
)

type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindText  Kind = "text"
)

// Modality names a verdict slot in the session result. Values match Kind.
type Modality = Kind

// AnalysisUnit is one piece of evidence sent to the oracle. Index is the frame
// number for video and 0 for audio/text. Units are never mutated after creation.
type AnalysisUnit struct {
	Index     int           `json:"index"`
	Kind      Kind          `json:"kind"`
	Session   string        `json:"session,omitempty"`
	Timestamp time.Duration `json:"timestamp_ns,omitempty"`
	Payload   []byte        `json:"-"`
	MIMEType  string        `json:"mime_type,omitempty"`
}

type Classification struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

type UnitResult struct {
	UnitIndex      int            `json:"frame_idx"`
	Timestamp      time.Duration  `json:"timestamp_ns,omitempty"`
	Classification Classification `json:"classification"`
	Error          string         `json:"error,omitempty"`
	AnnotatedPath  string         `json:"annotated_path,omitempty"`
}

type ModalityVerdict struct {
	Modality   Modality           `json:"modality"`
	Events     []string           `json:"events"`
	Confidence float64            `json:"confidence"`
	Summary    string             `json:"summary"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	Warning    string             `json:"warning,omitempty"`
}

// Transcript is the English-facing result of speech-to-text for one clip.
type Transcript struct {
	Language         string `json:"detected_language"`
	Transcription    string `json:"transcription"`
	TranslatedText   string `json:"translated_text"`
	NeedsTranslation bool   `json:"needs_translation"`
	Error            string `json:"error,omitempty"`
}

type SessionResult struct {
	SessionID  string               `json:"session_id"`
	Events     []string             `json:"events"`
	Confidence map[Modality]float64 `json:"confidence"`
	Summaries  map[Modality]string  `json:"detailed_summary"`
	Units      []UnitResult         `json:"framewise_images"`
	Warnings   []string             `json:"warnings,omitempty"`
	Transcript *Transcript          `json:"audio_transcript,omitempty"`
	Text       string               `json:"org_text,omitempty"`
	TimedOut   bool                 `json:"timed_out,omitempty"`
}

// AudioClip is an in-memory audio upload handed to speech-to-text.
type AudioClip struct {
	Name     string
	Data     []byte
	MIMEType string
}

// SortUnitResults orders results by unit index in place. Dispatch completes
// out of order, so callers sort before presenting or aggregating.
func SortUnitResults(results []UnitResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].UnitIndex < results[j].UnitIndex
	})
}
