package dataset

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"incident-insights-go/internal/types"
)

func writeManifest(t *testing.T, rows [][]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestLoadManifestDetectsColumns(t *testing.T) {
	path := writeManifest(t, [][]any{
		{"Case ID", "Witness Report", "CCTV Video", "Audio Recording", "Frame Interval"},
		{"C-1", "smoke from the warehouse", "clips/c1.mp4", "", 1.5},
		{"", "", "", "/abs/c2.wav", ""},
		{"C-3", "", "", "", ""},
	})

	entries, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "C-1", entries[0].CaseID)
	assert.Equal(t, "smoke from the warehouse", entries[0].Text)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "clips/c1.mp4"), entries[0].VideoPath)
	assert.Equal(t, 1.5, entries[0].IntervalSeconds)

	assert.Equal(t, "row-3", entries[1].CaseID)
	assert.Equal(t, "/abs/c2.wav", entries[1].AudioPath)
}

func TestLoadManifestWithoutEvidenceColumns(t *testing.T) {
	path := writeManifest(t, [][]any{{"Case ID", "Officer"}, {"C-1", "Smith"}})
	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestLoadManifestHeaderOnly(t *testing.T) {
	path := writeManifest(t, [][]any{{"Case ID", "Text"}})
	_, err := LoadManifest(path)
	assert.ErrorIs(t, err, ErrEmptyManifest)
}

func sampleOutcomes() []Outcome {
	return []Outcome{
		{
			Entry: Entry{CaseID: "C-1"},
			Result: &types.SessionResult{
				SessionID:  "s-1",
				Events:     []string{"arson"},
				Confidence: map[types.Modality]float64{types.KindVideo: 0.8},
				Summaries:  map[types.Modality]string{types.KindVideo: "Detected potential incidents: arson (0.80) with overall confidence 0.80."},
				Units: []types.UnitResult{
					{UnitIndex: 0, Classification: types.Classification{Category: "arson", Confidence: 0.9}},
					{UnitIndex: 60, Classification: types.Classification{Category: "arson", Confidence: 0.7}},
				},
			},
		},
		{
			Entry:  Entry{CaseID: "C-2"},
			Result: &types.SessionResult{SessionID: "s-2", Events: []string{"arson", "fighting"}, TimedOut: true},
		},
		{Entry: Entry{CaseID: "C-3"}, Err: errors.New("ffprobe inspect: exit status 1")},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleOutcomes())
	assert.Equal(t, 3, s.TotalCases)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.TimedOut)
	assert.Equal(t, map[string]int{"arson": 2, "fighting": 1}, s.ByEvent)
	assert.Equal(t, []string{"arson", "fighting"}, s.TopIncident)
}

func TestWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteResults(path, sampleOutcomes(), nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	cases, err := f.GetRows(sheetCases)
	require.NoError(t, err)
	require.Len(t, cases, 4)
	assert.Equal(t, "C-1", cases[1][0])
	assert.Equal(t, "arson", cases[1][2])
	assert.Equal(t, "Notify fire services", cases[1][11])
	assert.Equal(t, "ffprobe inspect: exit status 1", cases[3][len(cases[3])-1])

	frames, err := f.GetRows(sheetFrames)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, "60", frames[2][1])
}
