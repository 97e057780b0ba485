package models

import (
	"context"
	"time"
)

// VehicleType is the closed category a free-text detector label maps to
type VehicleType string

const (
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeTruck      VehicleType = "truck"
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeBus        VehicleType = "bus"
	VehicleTypeBicycle    VehicleType = "bicycle"
	VehicleTypePerson     VehicleType = "person"
	VehicleTypeOther      VehicleType = "other"
)

// Severity represents the incident severity tier
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityMinor    Severity = "MINOR"
	SeverityModerate Severity = "MODERATE"
	SeveritySevere   Severity = "SEVERE"
)

// DispatchOutcome is the result of a single gated dispatch attempt
type DispatchOutcome string

const (
	DispatchTriggered       DispatchOutcome = "TRIGGERED"
	DispatchOnCooldown      DispatchOutcome = "ON_COOLDOWN"
	DispatchAuthFailed      DispatchOutcome = "AUTH_FAILED"
	DispatchTransportFailed DispatchOutcome = "TRANSPORT_FAILED"
)

// Location is a camera or incident position
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Detection is one labeled, confidence-scored bounding box for a single frame
type Detection struct {
	Label       string      `json:"label"`
	Confidence  float64     `json:"conf"`
	BBox        []float64   `json:"bbox"`
	VehicleType VehicleType `json:"type"`
}

// QueueInfo carries the queue length / clearance estimate for a frame
type QueueInfo struct {
	EstimatedQueueLengthM float64 `json:"estimated_queue_length_m"`
	EstimatedWaitTimeS    int     `json:"estimated_wait_time_s"`
	VehicleCount          int     `json:"vehicle_count"`
}

// Incident is one recorded alert occurrence, kept by the incident tracker
type Incident struct {
	Location  Location  `json:"location"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// FrameResult is the per-frame record pushed to the live consumer.
// Created fresh per frame, never persisted.
type FrameResult struct {
	FrameID            int64               `json:"frame_id"`
	Timestamp          time.Time           `json:"timestamp"`
	Detections         []Detection         `json:"detections"`
	AccidentAlert      bool                `json:"accident_alert"`
	AgentStatus        string              `json:"agent_status"`
	Severity           Severity            `json:"severity"`
	VehicleCountByType map[VehicleType]int `json:"vehicle_count_by_type"`
	TotalVehicles      int                 `json:"total_vehicles"`
	HeatmapHotspots    []Incident          `json:"heatmap_hotspots"`
	QueueInfo          QueueInfo           `json:"queue_info"`
}

// RawFrame is a single frame pulled from the frame source
type RawFrame struct {
	CameraID  string
	FrameID   int64
	Data      []byte // JPEG-encoded
	Width     int
	Height    int
	Timestamp time.Time
}

// AgentReport is the stateless request sent to the agent-trigger transport
type AgentReport struct {
	Confidence   float64   `json:"confidence"`
	Severity     Severity  `json:"severity"`
	VehicleCount int       `json:"vehicle_count"`
	Location     string    `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
}

// Evidence is an alerting frame plus context, bound for the archive and the
// notification channel
type Evidence struct {
	CameraID  string
	Image     []byte
	Severity  Severity
	Caption   string
	Location  Location
	Timestamp time.Time
}

// AlertPayload is the record fanned out over NATS for every alerting frame
type AlertPayload struct {
	CameraID           string              `json:"camera_id"`
	FrameID            int64               `json:"frame_id"`
	Severity           Severity            `json:"severity"`
	PeakConfidence     float64             `json:"peak_confidence"`
	TotalVehicles      int                 `json:"total_vehicles"`
	VehicleCountByType map[VehicleType]int `json:"vehicle_count_by_type"`
	Location           Location            `json:"location"`
	QueueInfo          QueueInfo           `json:"queue_info"`
	Timestamp          time.Time           `json:"timestamp"`
}

// FrameSource yields raw frames or a transient failure signal
type FrameSource interface {
	ReadFrame(ctx context.Context) (*RawFrame, error)
	Close() error
}

// Classifier is the external per-frame object detector
type Classifier interface {
	Detect(ctx context.Context, frameData []byte, minConfidence float64) ([]Detection, error)
}

// AgentDispatcher triggers the downstream conversational-agent workflow
type AgentDispatcher interface {
	Trigger(ctx context.Context, report AgentReport) error
}

// EvidenceSink archives an alerting frame and notifies the evidence channel
type EvidenceSink interface {
	Capture(ctx context.Context, ev Evidence) error
}

// MessagePublisher publishes alert payloads to a messaging subject
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}
