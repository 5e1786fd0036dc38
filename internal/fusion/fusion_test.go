package fusion

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-insights-go/internal/types"
)

func verdict(events []string, conf float64, summary string) *types.ModalityVerdict {
	return &types.ModalityVerdict{Events: events, Confidence: conf, Summary: summary}
}

func TestAssembleNothingIsError(t *testing.T) {
	_, err := Assemble(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoModality)
}

func TestAssembleAudioOnly(t *testing.T) {
	res, err := Assemble(nil, verdict([]string{"shooting"}, 0.7, "gunshots heard"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"shooting"}, res.Events)
	assert.Equal(t, map[types.Modality]float64{types.KindAudio: 0.7}, res.Confidence)
	assert.Equal(t, map[types.Modality]string{types.KindAudio: "gunshots heard"}, res.Summaries)
	_, err = uuid.Parse(res.SessionID)
	assert.NoError(t, err)
}

func TestAssembleAudioOnlyUnknown(t *testing.T) {
	res, err := Assemble(nil, verdict([]string{"unknown"}, 0, "Insufficient audio content for analysis"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"unknown"}, res.Events)
}

func TestAssembleSuppressesUnknownWhenSignalExists(t *testing.T) {
	res, err := Assemble(
		verdict([]string{"unknown"}, 0, "Analysis inconclusive."),
		verdict([]string{"fighting"}, 0.8, "shouting"),
		verdict([]string{"fighting", "assault"}, 0.9, "a brawl"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"assault", "fighting"}, res.Events)
	assert.Len(t, res.Confidence, 3)
}

func TestAssemblerCarriesDetails(t *testing.T) {
	a := NewAssemblerWithID("session-1")
	a.AddVideo(types.ModalityVerdict{Events: []string{"arson"}, Confidence: 0.8, Warning: "Low confidence in analysis: only 1 valid frames detected"},
		[]types.UnitResult{{UnitIndex: 120}, {UnitIndex: 0}, {UnitIndex: 60}})
	a.AddAudio(types.ModalityVerdict{Events: []string{"normal"}, Confidence: 0.6}, types.Transcript{Language: "en", Transcription: "all good"})
	a.AddText(types.ModalityVerdict{Events: []string{"arson"}, Confidence: 0.9}, "the shed is burning")
	a.AddWarning("video branch slow")
	a.MarkTimedOut()

	res, err := a.Result()
	require.NoError(t, err)
	assert.Equal(t, "session-1", res.SessionID)
	assert.Equal(t, []string{"arson", "normal"}, res.Events)
	assert.Equal(t, []int{0, 60, 120}, []int{res.Units[0].UnitIndex, res.Units[1].UnitIndex, res.Units[2].UnitIndex})
	assert.Equal(t, "all good", res.Transcript.Transcription)
	assert.Equal(t, "the shed is burning", res.Text)
	assert.Equal(t, []string{"Low confidence in analysis: only 1 valid frames detected", "video branch slow"}, res.Warnings)
	assert.True(t, res.TimedOut)
}

func TestAssemblerConcurrentAdds(t *testing.T) {
	a := NewAssembler()
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		a.AddVideo(types.ModalityVerdict{Events: []string{"arson"}}, nil)
	}()
	go func() {
		defer wg.Done()
		a.AddAudio(types.ModalityVerdict{Events: []string{"arson"}}, types.Transcript{})
	}()
	go func() {
		defer wg.Done()
		a.AddText(types.ModalityVerdict{Events: []string{"vandalism"}}, "x")
	}()
	wg.Wait()

	res, err := a.Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"arson", "vandalism"}, res.Events)
}

func TestDistinctSessionIDs(t *testing.T) {
	assert.NotEqual(t, NewAssembler().SessionID(), NewAssembler().SessionID())
}
