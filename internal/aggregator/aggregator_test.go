package aggregator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-insights-go/internal/types"
)

func results(cats []string, confs []float64) []types.UnitResult {
	out := make([]types.UnitResult, len(cats))
	for i := range cats {
		out[i] = types.UnitResult{
			UnitIndex:      i * 60,
			Classification: types.Classification{Category: cats[i], Confidence: confs[i]},
		}
	}
	return out
}

func TestAggregateEmpty(t *testing.T) {
	v := Aggregate(nil)
	assert.Equal(t, types.KindVideo, v.Modality)
	assert.Equal(t, []string{"unknown"}, v.Events)
	assert.Zero(t, v.Confidence)
	assert.Equal(t, SummaryNoFrames, v.Summary)
}

func TestAggregateAllErrors(t *testing.T) {
	v := Aggregate(results(
		[]string{"error", "error", "error", "error"},
		[]float64{0, 0, 0, 0},
	))
	assert.Equal(t, []string{"unknown"}, v.Events)
	assert.Zero(t, v.Confidence)
	assert.Equal(t, SummaryInconclusive, v.Summary)
	assert.Equal(t, "Low confidence in analysis: only 0 valid frames detected", v.Warning)
}

func TestAggregateTwoArsonOfFive(t *testing.T) {
	v := Aggregate(results(
		[]string{"arson", "arson", "normal", "fighting", "vandalism"},
		[]float64{0.9, 0.8, 0.7, 0.6, 0.5},
	))
	assert.Equal(t, []string{"arson"}, v.Events)
	assert.InDelta(t, 0.85, v.Confidence, 1e-9)
	assert.InDelta(t, 0.85, v.Scores["arson"], 1e-9)
	assert.Equal(t, "Detected potential incidents: arson (0.85) with overall confidence 0.85.", v.Summary)
	assert.Empty(t, v.Warning)
}

func TestAggregateNormalMajority(t *testing.T) {
	v := Aggregate(results(
		[]string{"normal", "normal", "normal", "normal", "fighting", "arson"},
		[]float64{0.9, 0.8, 0.7, 0.6, 0.9, 0.9},
	))
	assert.Equal(t, []string{"normal"}, v.Events)
	assert.InDelta(t, 0.75, v.Confidence, 1e-9)
	assert.Equal(t, "No significant incidents detected. Overall confidence: 0.75.", v.Summary)
}

func TestAggregateNormalNotMajorityIsInconclusive(t *testing.T) {
	v := Aggregate(results(
		[]string{"normal", "normal", "fighting", "arson"},
		[]float64{0.9, 0.8, 0.9, 0.9},
	))
	assert.Equal(t, []string{"unknown"}, v.Events)
	assert.Zero(t, v.Confidence)
	assert.Equal(t, SummaryInconclusive, v.Summary)
}

func TestAggregateEndToEndBatch(t *testing.T) {
	v := Aggregate(results(
		[]string{"arson", "arson", "normal", "normal", "normal", "normal", "unknown", "error", "shooting", "arson"},
		[]float64{0.9, 0.7, 0.6, 0.6, 0.5, 0.4, 0, 0, 0.2, 0.8},
	))
	assert.Equal(t, []string{"arson"}, v.Events)
	assert.InDelta(t, 0.8, v.Scores["arson"], 1e-9)
	assert.InDelta(t, 0.8, v.Confidence, 1e-9)
	assert.NotContains(t, v.Events, "shooting")
}

func TestAggregateTiesSurviveTogether(t *testing.T) {
	v := Aggregate(results(
		[]string{"fighting", "assault", "fighting", "assault"},
		[]float64{0.8, 0.6, 0.6, 0.6},
	))
	assert.Equal(t, []string{"assault", "fighting"}, v.Events)
	assert.InDelta(t, 0.65, v.Confidence, 1e-9)
	assert.Equal(t, "Detected potential incidents: assault (0.60), fighting (0.70) with overall confidence 0.65.", v.Summary)
}

func TestAggregateGateScalesWithValidCount(t *testing.T) {
	// 12 valid: threshold is 3, so two fighting frames are noise
	cats := []string{"fighting", "fighting"}
	confs := []float64{0.9, 0.9}
	for i := 0; i < 10; i++ {
		cats = append(cats, "normal")
		confs = append(confs, 0.7)
	}
	v := Aggregate(results(cats, confs))
	assert.Equal(t, []string{"normal"}, v.Events)
}

func TestAggregateSmallBatchDoesNotFallBack(t *testing.T) {
	v := Aggregate(results([]string{"unknown", "arson"}, []float64{0, 0.2}))
	assert.Empty(t, v.Warning)
	assert.Equal(t, []string{"unknown"}, v.Events)
	assert.Equal(t, SummaryNoFrames, v.Summary)
}

func TestAggregateLowConfidenceFallbackUsesAllResults(t *testing.T) {
	v := Aggregate(results(
		[]string{"arson", "arson", "arson", "normal"},
		[]float64{0.3, 0.2, 0.25, 0.9},
	))
	assert.Equal(t, "Low confidence in analysis: only 1 valid frames detected", v.Warning)
	assert.Equal(t, []string{"arson"}, v.Events)
	assert.InDelta(t, 0.25, v.Confidence, 1e-9)
}

func TestAggregatePermutationInvariant(t *testing.T) {
	base := results(
		[]string{"arson", "arson", "normal", "normal", "normal", "normal", "unknown", "error", "shooting", "arson", "fighting", "fighting"},
		[]float64{0.91, 0.73, 0.6, 0.61, 0.5, 0.4, 0, 0, 0.2, 0.87, 0.55, 0.66},
	)
	want := Aggregate(base)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]types.UnitResult(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, Aggregate(shuffled))
	}
}

func TestAggregateNeverEmitsEmptyEvents(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	cats := []string{"arson", "normal", "unknown", "error", "fighting"}
	for i := 0; i < 200; i++ {
		n := rng.Intn(12)
		rs := make([]types.UnitResult, n)
		for j := range rs {
			rs[j] = types.UnitResult{UnitIndex: j, Classification: types.Classification{
				Category:   cats[rng.Intn(len(cats))],
				Confidence: rng.Float64(),
			}}
		}
		v := Aggregate(rs)
		require.NotEmpty(t, v.Events)
		require.GreaterOrEqual(t, v.Confidence, 0.0)
		require.LessOrEqual(t, v.Confidence, 1.0)
	}
}

func TestSingle(t *testing.T) {
	v := Single(types.KindAudio, types.Classification{Category: "shooting", Confidence: 0.72, Description: "gunshots"})
	assert.Equal(t, types.KindAudio, v.Modality)
	assert.Equal(t, []string{"shooting"}, v.Events)
	assert.Equal(t, 0.72, v.Confidence)
	assert.Equal(t, "gunshots", v.Summary)

	e := Single(types.KindText, types.Classification{Category: "error", Description: "Error analyzing: timeout"})
	assert.Equal(t, []string{"unknown"}, e.Events)
	assert.Zero(t, e.Confidence)
	assert.Equal(t, "Error analyzing: timeout", e.Summary)
}
