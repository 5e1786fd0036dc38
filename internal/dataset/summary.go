package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"incident-insights-go/internal/actionable"
	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/types"
)

const (
	sheetCases  = "Cases"
	sheetFrames = "Frames"
)

// Outcome pairs a manifest entry with its analysis.
type Outcome struct {
	Entry  Entry
	Result *types.SessionResult
	Err    error
}

type BatchSummary struct {
	TotalCases  int            `json:"total_cases"`
	Failed      int            `json:"failed"`
	TimedOut    int            `json:"timed_out"`
	ByEvent     map[string]int `json:"by_event"`
	TopIncident []string       `json:"top_incidents"`
}

// Summarize counts events across successful outcomes.
func Summarize(outcomes []Outcome) BatchSummary {
	s := BatchSummary{TotalCases: len(outcomes), ByEvent: map[string]int{}}
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			s.Failed++
			continue
		}
		if o.Result.TimedOut {
			s.TimedOut++
		}
		for _, e := range o.Result.Events {
			s.ByEvent[e]++
		}
	}
	type ec struct {
		e string
		c int
	}
	var arr []ec
	for e, c := range s.ByEvent {
		if e == types.CategoryNormal || types.IsSentinel(e) {
			continue
		}
		arr = append(arr, ec{e, c})
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].c != arr[j].c {
			return arr[i].c > arr[j].c
		}
		return arr[i].e < arr[j].e
	})
	for i := 0; i < len(arr) && i < 3; i++ {
		s.TopIncident = append(s.TopIncident, arr[i].e)
	}
	return s
}

// WriteResults saves one row per case and one row per analysed frame.
func WriteResults(path string, outcomes []Outcome, log *logger.Logger) error {
	if log == nil {
		log = logger.Discard()
	}
	entry := log.WithComponent("dataset.export").WithField("path", path)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetCases); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetFrames); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	caseHeader := []any{"Case ID", "Session ID", "Events", "Video Confidence", "Audio Confidence", "Text Confidence",
		"Video Summary", "Audio Summary", "Text Summary", "English Transcript", "Warnings", "Recommended Action", "Priority", "Error"}
	if err := f.SetSheetRow(sheetCases, "A1", &caseHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	frameHeader := []any{"Case ID", "Frame", "Category", "Confidence", "Description", "Error"}
	if err := f.SetSheetRow(sheetFrames, "A1", &frameHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	frameRow := 2
	for i, o := range outcomes {
		row := []any{o.Entry.CaseID}
		if o.Err != nil || o.Result == nil {
			msg := "no result"
			if o.Err != nil {
				msg = o.Err.Error()
			}
			row = append(row, "", "", "", "", "", "", "", "", "", "", "", "", msg)
		} else {
			r := o.Result
			card := actionable.Generate(r)
			transcript := ""
			if r.Transcript != nil {
				transcript = r.Transcript.TranslatedText
			}
			row = append(row,
				r.SessionID,
				strings.Join(r.Events, ", "),
				confidenceCell(r, types.KindVideo),
				confidenceCell(r, types.KindAudio),
				confidenceCell(r, types.KindText),
				r.Summaries[types.KindVideo],
				r.Summaries[types.KindAudio],
				r.Summaries[types.KindText],
				transcript,
				strings.Join(r.Warnings, "; "),
				card.Action,
				card.Priority,
				"",
			)
			for _, u := range r.Units {
				fr := []any{o.Entry.CaseID, u.UnitIndex, u.Classification.Category, u.Classification.Confidence, u.Classification.Description, u.Error}
				cellRef, _ := excelize.CoordinatesToCellName(1, frameRow)
				if err := f.SetSheetRow(sheetFrames, cellRef, &fr); err != nil {
					return fmt.Errorf("write frame row: %w", err)
				}
				frameRow++
			}
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetCases, cellRef, &row); err != nil {
			return fmt.Errorf("write case row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		entry.WithError(err).Error("save failed")
		return fmt.Errorf("save: %w", err)
	}
	entry.WithField("cases", len(outcomes)).WithField("frames", frameRow-2).Info("results workbook written")
	return nil
}

func confidenceCell(r *types.SessionResult, m types.Modality) any {
	v, ok := r.Confidence[m]
	if !ok {
		return ""
	}
	return v
}
