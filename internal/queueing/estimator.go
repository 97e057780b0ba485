// Package queueing estimates queue length and clearance wait time from a
// vehicle count. The wait is capped at one signal cycle: a fixed-duration
// traffic signal cannot clear an unbounded queue in one cycle.
package queueing

import "sentinel-worker-go/internal/models"

// Estimator holds the site parameters for queue estimation
type Estimator struct {
	avgVehicleLengthM float64
	signalCycleSecs   int
	secsPerVehicle    int
}

// NewEstimator creates an estimator; zero or negative parameters fall back to
// the stock values (4.5 m per vehicle, 90 s cycle, 2 s clearance per vehicle).
func NewEstimator(avgVehicleLengthM float64, signalCycleSecs, secsPerVehicle int) *Estimator {
	if avgVehicleLengthM <= 0 {
		avgVehicleLengthM = 4.5
	}
	if signalCycleSecs <= 0 {
		signalCycleSecs = 90
	}
	if secsPerVehicle <= 0 {
		secsPerVehicle = 2
	}
	return &Estimator{
		avgVehicleLengthM: avgVehicleLengthM,
		signalCycleSecs:   signalCycleSecs,
		secsPerVehicle:    secsPerVehicle,
	}
}

// QueueLength returns the estimated queue length in meters
func (e *Estimator) QueueLength(vehicleCount int) float64 {
	if vehicleCount <= 0 {
		return 0
	}
	return float64(vehicleCount) * e.avgVehicleLengthM
}

// WaitTime returns the estimated clearance wait in seconds, clamped to
// [0, signal cycle]
func (e *Estimator) WaitTime(vehicleCount int) int {
	wait := vehicleCount * e.secsPerVehicle
	if wait < 0 {
		return 0
	}
	if wait > e.signalCycleSecs {
		return e.signalCycleSecs
	}
	return wait
}

// Estimate returns the full queue record for a frame
func (e *Estimator) Estimate(vehicleCount int) models.QueueInfo {
	return models.QueueInfo{
		EstimatedQueueLengthM: e.QueueLength(vehicleCount),
		EstimatedWaitTimeS:    e.WaitTime(vehicleCount),
		VehicleCount:          vehicleCount,
	}
}
