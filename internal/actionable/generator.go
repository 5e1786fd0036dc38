package actionable

import (
	"fmt"
	"sort"
	"strings"

	"incident-insights-go/internal/types"
)

type ActionCard struct {
	Insight  string `json:"insight"`
	Action   string `json:"action"`
	Priority string `json:"priority"`
}

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// responders maps an incident category to the service it is routed to.
var responders = map[string]string{
	"abuse":         "Notify police and social services",
	"arson":         "Notify fire services",
	"assault":       "Dispatch police",
	"burglary":      "File police report",
	"explosion":     "Notify fire and emergency medical services",
	"fighting":      "Dispatch police",
	"road_accident": "Dispatch police and ambulance",
	"shooting":      "Dispatch armed response and ambulance",
	"shoplifting":   "File police report",
	"stealing":      "File police report",
	"vandalism":     "File police report",
}

// Generate turns a session result into a recommended follow-up.
func Generate(res *types.SessionResult) ActionCard {
	var incidents []string
	for _, e := range res.Events {
		if e != types.CategoryNormal && !types.IsSentinel(e) {
			incidents = append(incidents, e)
		}
	}
	if len(incidents) == 0 {
		if len(res.Events) == 1 && res.Events[0] == types.CategoryUnknown {
			return ActionCard{
				Insight:  "Evidence was inconclusive",
				Action:   "Review evidence manually",
				Priority: PriorityMedium,
			}
		}
		return ActionCard{
			Insight:  "No incident detected",
			Action:   "No action required",
			Priority: PriorityLow,
		}
	}
	sort.Strings(incidents)

	highest := 0.0
	for _, c := range res.Confidence {
		highest = max(highest, c)
	}

	seen := map[string]bool{}
	var actions []string
	for _, e := range incidents {
		a, ok := responders[e]
		if !ok {
			a = "Escalate to duty officer"
		}
		if !seen[a] {
			seen[a] = true
			actions = append(actions, a)
		}
	}

	return ActionCard{
		Insight:  fmt.Sprintf("Possible %s (confidence %.0f%%)", strings.Join(incidents, ", "), highest*100),
		Action:   strings.Join(actions, "; "),
		Priority: priority(highest, res.TimedOut),
	}
}

func priority(confidence float64, partial bool) string {
	switch {
	case confidence >= 0.7:
		return PriorityHigh
	case confidence >= 0.35 || partial:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
