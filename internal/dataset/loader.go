// Package dataset reads batch manifests of evidence and writes analysis
// results back out as spreadsheets.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrEmptyManifest = errors.New("manifest has no data rows")

// Entry is one case of a batch manifest. Relative media paths are resolved
// against the manifest's directory.
type Entry struct {
	Row             int     `json:"row"`
	CaseID          string  `json:"case_id"`
	VideoPath       string  `json:"video_path,omitempty"`
	AudioPath       string  `json:"audio_path,omitempty"`
	Text            string  `json:"text,omitempty"`
	IntervalSeconds float64 `json:"interval_seconds,omitempty"`
}

func (e Entry) HasEvidence() bool {
	return e.VideoPath != "" || e.AudioPath != "" || e.Text != ""
}

type columns struct {
	id, video, audio, text, interval int
}

// detectColumns maps header names to column positions by keyword.
func detectColumns(header []string) columns {
	c := columns{id: -1, video: -1, audio: -1, text: -1, interval: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "video") || strings.Contains(l, "footage") || strings.Contains(l, "clip"):
			if c.video == -1 {
				c.video = i
			}
		case strings.Contains(l, "audio") || strings.Contains(l, "recording") || strings.Contains(l, "voice"):
			if c.audio == -1 {
				c.audio = i
			}
		case strings.Contains(l, "interval"):
			if c.interval == -1 {
				c.interval = i
			}
		case strings.Contains(l, "text") || strings.Contains(l, "report") || strings.Contains(l, "description") || strings.Contains(l, "note"):
			if c.text == -1 {
				c.text = i
			}
		case strings.Contains(l, "case") || strings.Contains(l, "id"):
			if c.id == -1 {
				c.id = i
			}
		}
	}
	return c
}

// LoadManifest reads the first sheet of an .xlsx manifest. Rows without any
// evidence column filled are skipped.
func LoadManifest(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, ErrEmptyManifest
	}

	cols := detectColumns(rows[0])
	if cols.video == -1 && cols.audio == -1 && cols.text == -1 {
		return nil, fmt.Errorf("manifest header %v has no video, audio or text column", rows[0])
	}
	base := filepath.Dir(path)

	var out []Entry
	for i, r := range rows {
		if i == 0 {
			continue
		}
		e := Entry{Row: i + 1}
		e.CaseID = cell(r, cols.id)
		e.VideoPath = resolve(base, cell(r, cols.video))
		e.AudioPath = resolve(base, cell(r, cols.audio))
		e.Text = cell(r, cols.text)
		if v := cell(r, cols.interval); v != "" {
			e.IntervalSeconds, _ = strconv.ParseFloat(v, 64)
		}
		if !e.HasEvidence() {
			continue
		}
		if e.CaseID == "" {
			e.CaseID = fmt.Sprintf("row-%d", e.Row)
		}
		out = append(out, e)
	}
	return out, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
