// Package transcription produces an English transcript for an audio clip,
// translating only when the detected language is not English.
package transcription

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"incident-insights-go/internal/types"
)

const LanguageUnknown = "unknown"

// Recognition is the outcome of a transcription pass.
type Recognition struct {
	Language string
	Text     string
}

type SpeechToText interface {
	Transcribe(ctx context.Context, clip types.AudioClip) (Recognition, error)
	// Translate returns an English rendering of the clip.
	Translate(ctx context.Context, clip types.AudioClip) (string, error)
}

// TranscribeAndTranslate never fails. A failed transcription or translation
// yields empty text in language "unknown" with Error recorded.
func TranscribeAndTranslate(ctx context.Context, stt SpeechToText, clip types.AudioClip) types.Transcript {
	rec, err := stt.Transcribe(ctx, clip)
	if err != nil {
		return types.Transcript{
			Language: LanguageUnknown,
			Error:    fmt.Sprintf("transcription failed: %v", err),
		}
	}

	lang := NormalizeLanguage(rec.Language)
	text := strings.TrimSpace(rec.Text)
	out := types.Transcript{
		Language:       lang,
		Transcription:  text,
		TranslatedText: text,
	}
	if lang == "en" || lang == LanguageUnknown {
		return out
	}

	out.NeedsTranslation = true
	translated, err := stt.Translate(ctx, clip)
	if err != nil {
		return types.Transcript{
			Language: LanguageUnknown,
			Error:    fmt.Sprintf("translation failed: %v", err),
		}
	}
	if translated = strings.TrimSpace(translated); translated != "" {
		out.TranslatedText = translated
	}
	return out
}

// whisperLanguages are the codes Whisper can detect; their English names are
// what verbose_json reports.
var whisperLanguages = []string{
	"af", "ar", "hy", "az", "be", "bs", "bg", "ca", "zh", "hr", "cs", "da",
	"nl", "en", "et", "fi", "fr", "gl", "de", "el", "he", "hi", "hu", "is",
	"id", "it", "ja", "kn", "kk", "ko", "lv", "lt", "mk", "ms", "mr", "mi",
	"ne", "no", "fa", "pl", "pt", "ro", "ru", "sr", "sk", "sl", "es", "sw",
	"sv", "tl", "ta", "th", "tr", "uk", "ur", "vi", "cy", "bn", "gu", "pa",
	"te", "ml",
}

var (
	namesOnce sync.Once
	byName    map[string]string
)

func languageNames() map[string]string {
	namesOnce.Do(func() {
		namer := display.English.Languages()
		byName = make(map[string]string, len(whisperLanguages)+4)
		for _, code := range whisperLanguages {
			tag := language.Make(code)
			if name := namer.Name(tag); name != "" {
				byName[strings.ToLower(name)] = code
			}
		}
		// Whisper spellings that differ from CLDR display names
		byName["castilian"] = "es"
		byName["mandarin"] = "zh"
		byName["tagalog"] = "tl"
		byName["persian"] = "fa"
	})
	return byName
}

// NormalizeLanguage maps a BCP 47 tag or an English language name to an
// ISO 639-1 code, or "unknown".
func NormalizeLanguage(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == LanguageUnknown {
		return LanguageUnknown
	}
	if code, ok := languageNames()[s]; ok {
		return code
	}
	tag, err := language.Parse(s)
	if err != nil {
		return LanguageUnknown
	}
	base, conf := tag.Base()
	if conf == language.No {
		return LanguageUnknown
	}
	return base.String()
}
