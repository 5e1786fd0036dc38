package transcription

import (
	"context"

	"incident-insights-go/internal/types"
)

// Mock is the offline speech-to-text enabled by USE_MOCK_TRANSCRIBE=true.
type Mock struct {
	Language    string
	Text        string
	Translation string
}

func (m Mock) Transcribe(ctx context.Context, _ types.AudioClip) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	rec := Recognition{Language: m.Language, Text: m.Text}
	if rec.Language == "" {
		rec.Language = "en"
	}
	if rec.Text == "" {
		rec.Text = "MOCK TRANSCRIPT: someone is shouting for help near the parking lot."
	}
	return rec, nil
}

func (m Mock) Translate(ctx context.Context, _ types.AudioClip) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Translation != "" {
		return m.Translation, nil
	}
	return m.Text, nil
}
