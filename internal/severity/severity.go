// Package severity scores an alerting frame into an incident severity tier.
package severity

import (
	"strings"

	"sentinel-worker-go/internal/models"
)

// DefaultHazardKeywords flag a label set as crash-indicative
var DefaultHazardKeywords = []string{"crash", "accident", "severe", "collision", "damage"}

// Engine maps (vehicle count, peak confidence, label set) to a severity tier.
// Pure function of its inputs: identical inputs always yield identical tiers.
type Engine struct {
	hazardKeywords []string
}

// NewEngine creates a severity engine with the given hazard keyword list
func NewEngine(hazardKeywords []string) *Engine {
	if len(hazardKeywords) == 0 {
		hazardKeywords = DefaultHazardKeywords
	}
	return &Engine{hazardKeywords: hazardKeywords}
}

// Score evaluates the decision table in order, first match wins:
//
//	1. vehicleCount >= 3                                          -> SEVERE
//	2. crash keyword AND vehicleCount >= 2 AND peakConf > 0.7     -> SEVERE
//	3. vehicleCount == 2 AND crash keyword                        -> MODERATE
//	4. otherwise                                                  -> MINOR
//
// Zero vehicles still terminates and returns MINOR.
func (e *Engine) Score(vehicleCount int, peakConfidence float64, labels []string) models.Severity {
	hasCrash := e.hasCrashKeyword(labels)

	switch {
	case vehicleCount >= 3:
		return models.SeveritySevere
	case hasCrash && vehicleCount >= 2 && peakConfidence > 0.7:
		return models.SeveritySevere
	case vehicleCount == 2 && hasCrash:
		return models.SeverityModerate
	default:
		return models.SeverityMinor
	}
}

func (e *Engine) hasCrashKeyword(labels []string) bool {
	for _, label := range labels {
		labelLower := strings.ToLower(label)
		for _, kw := range e.hazardKeywords {
			if strings.Contains(labelLower, kw) {
				return true
			}
		}
	}
	return false
}
