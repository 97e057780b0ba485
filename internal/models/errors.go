package models

import "errors"

// Error taxonomy for the frame pipeline. Every error here is transient from the
// pipeline's point of view: none of them may abort frame processing, only
// frame-source exhaustion terminates the loop.
var (
	// ErrSourceUnavailable signals a transient frame source failure; retry next cycle.
	ErrSourceUnavailable = errors.New("frame source unavailable")

	// ErrSourceClosed signals the frame source is exhausted and the loop must stop.
	ErrSourceClosed = errors.New("frame source closed")

	// ErrClassifier signals the detector failed for this frame; skip and continue.
	ErrClassifier = errors.New("classifier error")

	// ErrDispatchAuth signals the agent transport rejected our credentials.
	// Must not consume the dispatch cooldown.
	ErrDispatchAuth = errors.New("dispatch authentication failed")

	// ErrDispatchTransport signals the agent transport call itself failed.
	// Must not consume the dispatch cooldown.
	ErrDispatchTransport = errors.New("dispatch transport failed")

	// ErrEvidenceWrite signals the evidence image could not be archived; the
	// downstream notification for that evidence is skipped.
	ErrEvidenceWrite = errors.New("evidence write failed")
)
