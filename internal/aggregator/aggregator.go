// Package aggregator turns many noisy per-frame classifications into one
// verdict for a modality.
package aggregator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"incident-insights-go/internal/types"
)

const (
	// MinConfidence is the exclusive lower bound for a result to count as valid.
	MinConfidence = 0.3
	// MinSupport is the floor of the consistency gate.
	MinSupport = 2

	SummaryNoFrames     = "Video analysis failed: no valid frames detected"
	SummaryInconclusive = "Analysis inconclusive. Consider adjusting frame interval or video quality."
)

// Aggregate votes over video unit results. The outcome does not depend on
// the order of results.
func Aggregate(results []types.UnitResult) types.ModalityVerdict {
	v := types.ModalityVerdict{Modality: types.KindVideo}

	valid := make([]types.Classification, 0, len(results))
	for _, r := range results {
		if isValid(r.Classification) {
			valid = append(valid, r.Classification)
		}
	}
	if len(valid) < 2 && len(results) > 2 {
		v.Warning = fmt.Sprintf("Low confidence in analysis: only %d valid frames detected", len(valid))
		valid = valid[:0]
		for _, r := range results {
			valid = append(valid, r.Classification)
		}
	}

	if len(valid) == 0 {
		v.Events = []string{types.CategoryUnknown}
		v.Summary = SummaryNoFrames
		return v
	}

	tally := map[string][]float64{}
	normals := make([]float64, 0, len(valid))
	for _, c := range valid {
		switch c.Category {
		case types.CategoryNormal:
			normals = append(normals, c.Confidence)
		case types.CategoryUnknown, types.CategoryError:
		default:
			tally[c.Category] = append(tally[c.Category], c.Confidence)
		}
	}

	threshold := max(MinSupport, len(valid)/4)
	var events []string
	for cat, confs := range tally {
		if len(confs) >= threshold {
			events = append(events, cat)
		}
	}

	if len(events) > 0 {
		// sorted so summation order never depends on map iteration
		sort.Strings(events)
		var sum float64
		v.Scores = make(map[string]float64, len(events))
		for _, cat := range events {
			m := mean(tally[cat])
			sum += m
			v.Scores[cat] = round2(m)
		}
		v.Events = events
		v.Confidence = round2(sum / float64(len(events)))
		v.Summary = detectedSummary(events, v.Scores, v.Confidence)
		return v
	}

	// Over half of the valid results must be normal.
	if 2*len(normals) > len(valid) {
		v.Events = []string{types.CategoryNormal}
		v.Confidence = round2(mean(normals))
		v.Summary = fmt.Sprintf("No significant incidents detected. Overall confidence: %.2f.", v.Confidence)
		return v
	}

	v.Events = []string{types.CategoryUnknown}
	v.Summary = SummaryInconclusive
	return v
}

// Single wraps the classification of a one-unit modality (audio or text).
// Transport failures surface as unknown so they cannot masquerade as events.
func Single(modality types.Modality, c types.Classification) types.ModalityVerdict {
	v := types.ModalityVerdict{
		Modality:   modality,
		Events:     []string{c.Category},
		Confidence: c.Confidence,
		Summary:    c.Description,
	}
	if c.Category == "" || c.Category == types.CategoryError {
		v.Events = []string{types.CategoryUnknown}
		v.Confidence = 0
	}
	return v
}

func isValid(c types.Classification) bool {
	return !types.IsSentinel(c.Category) && c.Confidence > MinConfidence
}

func detectedSummary(events []string, scores map[string]float64, overall float64) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, fmt.Sprintf("%s (%.2f)", e, scores[e]))
	}
	return fmt.Sprintf("Detected potential incidents: %s with overall confidence %.2f.", strings.Join(parts, ", "), overall)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	var s float64
	for _, x := range sorted {
		s += x
	}
	return s / float64(len(xs))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
