package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		confidence   float64
		vehicleCount int
		indicators   []string
		want         string
	}{
		{"multi vehicle high conf with hazards", 0.95, 3, []string{"severe damage", "fire hazard", "casualty"}, "Critical"},
		{"high conf two vehicles one hazard", 0.92, 2, []string{"damage"}, "High"},
		{"moderate everything", 0.8, 2, nil, "Medium"},
		{"single vehicle low conf", 0.5, 1, nil, "Low"},
		{"hazard count capped", 0.95, 3, []string{"fire", "explosion", "injury", "casualty", "damage"}, "Critical"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, severityLevel(tt.confidence, tt.vehicleCount, tt.indicators))
		})
	}
}

func TestAnalyzeAccident(t *testing.T) {
	t.Parallel()

	resp := analyzeAccident(analyzeRequest{
		Confidence:         0.95,
		VehicleCount:       3,
		SeverityIndicators: []string{"severe damage", "fire hazard", "potential casualties"},
		Latitude:           15.4589,
		Longitude:          75.0078,
	})

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Critical", resp.SeverityLevel)
	assert.Equal(t, "IMMEDIATE", resp.DispatchPriority)
	assert.Equal(t, 2, resp.Resources.Ambulances)
	assert.Equal(t, 1, resp.Resources.FireBrigade)
	assert.NotEmpty(t, resp.DispatchStrategy)
	require.LessOrEqual(t, len(resp.MedicalInstructions), 3)
	assert.GreaterOrEqual(t, resp.ResponseTimeMinutes, 8)
	assert.LessOrEqual(t, resp.ResponseTimeMinutes, 12)
	assert.Contains(t, resp.SeverityJustification, "Multiple vehicles involved")
	assert.Contains(t, resp.SeverityJustification, "Fire/explosion hazard detected")
}

func TestAnalyzeAccidentLowSeverity(t *testing.T) {
	t.Parallel()

	resp := analyzeAccident(analyzeRequest{
		Confidence:   0.52,
		VehicleCount: 1,
	})

	assert.Equal(t, "Low", resp.SeverityLevel)
	assert.Equal(t, "STANDARD", resp.DispatchPriority)
	assert.Equal(t, 0, resp.Resources.Ambulances)
	assert.Equal(t, 1, resp.Resources.Police)
	assert.Equal(t, "Police Units: 1", resp.ResourcesNeeded)
	assert.Equal(t, "Standard accident analysis applied", resp.SeverityJustification)
}

func TestFormatResources(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Non-emergency response", formatResources(resourceAllocation{}))
	assert.Equal(t,
		"Ambulances: 2, Fire Brigade Units: 1, Police Units: 2, Traffic Control Officers: 1",
		formatResources(resourcesByLevel["Critical"]))
}

func TestIncidentHistory(t *testing.T) {
	t.Parallel()

	history := incidentHistory(5)
	assert.Equal(t, "success", history["status"])

	records, ok := history["incidents"].([]historyIncident)
	require.True(t, ok)
	require.Len(t, records, 5)
	for _, rec := range records {
		assert.Regexp(t, `^INC-2026-\d{5}$`, rec.IncidentID)
		assert.GreaterOrEqual(t, rec.VehicleCount, 1)
		assert.LessOrEqual(t, rec.VehicleCount, 5)
	}

	// Limit is capped at ten records
	assert.Len(t, incidentHistory(50)["incidents"], 10)
}
