package main

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

type resourceAllocation struct {
	Ambulances     int `json:"ambulances"`
	FireBrigade    int `json:"fire_brigade"`
	Police         int `json:"police"`
	TrafficControl int `json:"traffic_control"`
}

type analysisResponse struct {
	Status                string             `json:"status"`
	AnalysisTimestamp     string             `json:"analysis_timestamp"`
	SeverityLevel         string             `json:"severity_level"`
	ConfidenceScore       float64            `json:"confidence_score"`
	VehicleCount          int                `json:"vehicle_count"`
	DispatchPriority      string             `json:"dispatch_priority"`
	DispatchStrategy      string             `json:"dispatch_strategy"`
	ResourcesNeeded       string             `json:"resources_needed"`
	Resources             resourceAllocation `json:"resources_json"`
	MedicalInstructions   []string           `json:"medical_dispatch_list"`
	ResponseTimeMinutes   int                `json:"estimated_response_time_minutes"`
	Latitude              float64            `json:"latitude"`
	Longitude             float64            `json:"longitude"`
	SeverityJustification string             `json:"severity_justification"`
}

var resourcesByLevel = map[string]resourceAllocation{
	"Critical": {Ambulances: 2, FireBrigade: 1, Police: 2, TrafficControl: 1},
	"High":     {Ambulances: 1, FireBrigade: 0, Police: 1, TrafficControl: 1},
	"Medium":   {Ambulances: 1, FireBrigade: 0, Police: 1, TrafficControl: 0},
	"Low":      {Ambulances: 0, FireBrigade: 0, Police: 1, TrafficControl: 0},
}

var dispatchStrategies = map[string][]string{
	"Critical": {
		"IMMEDIATE dispatch required. Multi-trauma assessment. Alert trauma center. Activate full emergency response protocol. ETA: 8-10 minutes.",
		"Life-threatening injuries suspected. Deploy all available ambulances with paramedic teams. Contact nearest hospital ICU.",
		"Severe crash with potential entrapment. Dispatch fire brigade for extrication. Multiple casualty management required.",
	},
	"High": {
		"Urgent response needed. Moderate injuries likely. Standard ambulance dispatch sufficient. ETA: 10-12 minutes.",
		"Significant vehicle damage detected. Deploy ambulance with basic life support. Clear accident scene within 30 minutes.",
		"Injury probability high. Dispatch paramedic unit. Coordinate with traffic control for vehicle removal.",
	},
	"Medium": {
		"Standard response appropriate. Minor to moderate injuries expected. Single ambulance sufficient.",
		"Moderate damage without severe injury indicators. Police for traffic management only.",
		"Non-critical incident. Police dispatch for incident report. Traffic flow will resume within 20 minutes.",
	},
	"Low": {
		"Low risk incident. Police dispatch for traffic control. Standard response time acceptable.",
		"Minimal damage and low injury risk. Log incident for records. Traffic disruption minimal.",
		"Non-emergency incident. Arrange police visit for routine documentation.",
	},
}

var medicalConsiderations = map[string][]string{
	"Critical": {
		"Spinal injury protocol mandatory until cleared",
		"Prepare for multiple casualties triage",
		"Arrange trauma surgery availability",
		"Monitor for internal bleeding",
		"Prepare ICU bed immediately",
	},
	"High": {
		"Standard trauma assessment protocol",
		"Monitor vital signs continuously",
		"Arrange hospital admission capability",
		"Assess for hidden injuries",
	},
	"Medium": {
		"Basic trauma assessment",
		"Monitor for delayed shock symptoms",
		"Hospital observation recommended",
	},
	"Low": {
		"First aid treatment sufficient",
		"Advise on follow-up medical consultation",
		"Document for insurance purposes",
	},
}

var responseTimeRange = map[string][2]int{
	"Critical": {8, 12},
	"High":     {10, 15},
	"Medium":   {15, 20},
	"Low":      {20, 30},
}

var hazardKeywords = []string{"fire", "explosion", "injury", "casualty", "damage", "severe"}

func analyzeAccident(req analyzeRequest) analysisResponse {
	level := severityLevel(req.Confidence, req.VehicleCount, req.SeverityIndicators)
	resources := resourcesByLevel[level]
	timeRange := responseTimeRange[level]

	considerations := medicalConsiderations[level]
	picked := make([]string, len(considerations))
	copy(picked, considerations)
	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if len(picked) > 3 {
		picked = picked[:3]
	}

	priority := "STANDARD"
	switch level {
	case "Critical":
		priority = "IMMEDIATE"
	case "High":
		priority = "URGENT"
	}

	strategies := dispatchStrategies[level]

	return analysisResponse{
		Status:                "success",
		AnalysisTimestamp:     time.Now().Format(time.RFC3339),
		SeverityLevel:         level,
		ConfidenceScore:       req.Confidence,
		VehicleCount:          req.VehicleCount,
		DispatchPriority:      priority,
		DispatchStrategy:      strategies[rand.Intn(len(strategies))],
		ResourcesNeeded:       formatResources(resources),
		Resources:             resources,
		MedicalInstructions:   picked,
		ResponseTimeMinutes:   timeRange[0] + rand.Intn(timeRange[1]-timeRange[0]+1),
		Latitude:              req.Latitude,
		Longitude:             req.Longitude,
		SeverityJustification: severityJustification(req.Confidence, req.VehicleCount, req.SeverityIndicators),
	}
}

// severityLevel scores confidence, vehicle count, and hazard indicators into
// one of the four dispatch levels
func severityLevel(confidence float64, vehicleCount int, indicators []string) string {
	score := 0.0

	switch {
	case confidence > 0.9:
		score += 0.3
	case confidence > 0.75:
		score += 0.2
	default:
		score += 0.1
	}

	switch {
	case vehicleCount >= 3:
		score += 0.3
	case vehicleCount == 2:
		score += 0.2
	default:
		score += 0.1
	}

	hazards := 0
	for _, ind := range indicators {
		lower := strings.ToLower(ind)
		for _, kw := range hazardKeywords {
			if strings.Contains(lower, kw) {
				hazards++
				break
			}
		}
	}
	score += min(0.3, float64(hazards)*0.1)

	switch {
	case score >= 0.7:
		return "Critical"
	case score >= 0.5:
		return "High"
	case score >= 0.3:
		return "Medium"
	default:
		return "Low"
	}
}

func formatResources(r resourceAllocation) string {
	parts := []string{}
	if r.Ambulances > 0 {
		parts = append(parts, fmt.Sprintf("Ambulances: %d", r.Ambulances))
	}
	if r.FireBrigade > 0 {
		parts = append(parts, fmt.Sprintf("Fire Brigade Units: %d", r.FireBrigade))
	}
	if r.Police > 0 {
		parts = append(parts, fmt.Sprintf("Police Units: %d", r.Police))
	}
	if r.TrafficControl > 0 {
		parts = append(parts, fmt.Sprintf("Traffic Control Officers: %d", r.TrafficControl))
	}
	if len(parts) == 0 {
		return "Non-emergency response"
	}
	return strings.Join(parts, ", ")
}

func severityJustification(confidence float64, vehicleCount int, indicators []string) string {
	reasons := []string{}

	if confidence > 0.85 {
		reasons = append(reasons, fmt.Sprintf("High detection confidence (%.0f%%)", confidence*100))
	}
	if vehicleCount >= 3 {
		reasons = append(reasons, fmt.Sprintf("Multiple vehicles involved (%d vehicles)", vehicleCount))
	} else if vehicleCount == 2 {
		reasons = append(reasons, "Two vehicles involved in accident")
	}

	joined := strings.ToLower(strings.Join(indicators, " "))
	if strings.Contains(joined, "fire") || strings.Contains(joined, "explosion") {
		reasons = append(reasons, "Fire/explosion hazard detected")
	}
	if strings.Contains(joined, "injury") || strings.Contains(joined, "casualty") {
		reasons = append(reasons, "Potential casualties indicated")
	}
	if strings.Contains(joined, "severe") || strings.Contains(joined, "damage") {
		reasons = append(reasons, "Significant vehicle damage noted")
	}

	if len(reasons) == 0 {
		return "Standard accident analysis applied"
	}
	return "Determination based on: " + strings.Join(reasons, "; ")
}

type historyIncident struct {
	IncidentID          string  `json:"incident_id"`
	Timestamp           string  `json:"timestamp"`
	Severity            string  `json:"severity"`
	VehicleCount        int     `json:"vehicle_count"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	ResponseTimeMinutes int     `json:"response_time_minutes"`
}

func incidentHistory(limit int) map[string]interface{} {
	levels := []string{"Critical", "High", "Medium", "Low"}
	if limit > 10 {
		limit = 10
	}

	records := make([]historyIncident, 0, limit)
	for i := 0; i < limit; i++ {
		records = append(records, historyIncident{
			IncidentID:          fmt.Sprintf("INC-2026-%05d", 2000+i),
			Timestamp:           time.Now().Add(-time.Duration(rand.Intn(72)) * time.Hour).Format(time.RFC3339),
			Severity:            levels[rand.Intn(len(levels))],
			VehicleCount:        1 + rand.Intn(5),
			Latitude:            15.4 + rand.Float64() - 0.5,
			Longitude:           75.0 + rand.Float64() - 0.5,
			ResponseTimeMinutes: 8 + rand.Intn(23),
		})
	}

	return map[string]interface{}{
		"status":          "success",
		"total_incidents": 20 + rand.Intn(81),
		"incidents":       records,
	}
}
