package screening

import (
	"time"

	"github.com/smallsteps/growthscreen/internal/domain/growth"
	"github.com/smallsteps/growthscreen/pkg/metrics"
)

// ScanAngle identifies the capture orientation of a scan image.
type ScanAngle string

const (
	AngleFront     ScanAngle = "front"
	AngleBack      ScanAngle = "back"
	AngleSideLeft  ScanAngle = "side_left"
	AngleSideRight ScanAngle = "side_right"
)

// Valid reports whether the angle is one the capture flow produces.
func (a ScanAngle) Valid() bool {
	switch a {
	case AngleFront, AngleBack, AngleSideLeft, AngleSideRight:
		return true
	}
	return false
}

// AnalysisRequest carries one scan through the pipeline. Never mutated after
// creation; retries and offline replay construct new requests.
type AnalysisRequest struct {
	ImageData  []byte     `json:"image_data"`
	AgeMonths  int        `json:"age_months"`
	Sex        growth.Sex `json:"sex"`
	ScanAngle  ScanAngle  `json:"scan_angle"`
	SessionID  string     `json:"session_id"`
	CapturedAt time.Time  `json:"captured_at"`
}

// ModelInfo describes the model that produced a result.
type ModelInfo struct {
	Version             string  `json:"version"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	ProcessingTimeMs    int64   `json:"processing_time_ms"`
}

// ResultSource records which path produced a result.
type ResultSource string

const (
	SourceRemote   ResultSource = "remote"
	SourceFallback ResultSource = "fallback"
)

// AnalysisResult is the pipeline output. Success implies fully populated
// measurements and nutritional status; a failed result never carries
// partial measurements.
type AnalysisResult struct {
	Measurements      growth.MeasurementSet    `json:"measurements"`
	NutritionalStatus growth.NutritionalStatus `json:"nutritional_status"`
	ModelInfo         ModelInfo                `json:"model_info"`
	Source            ResultSource             `json:"source,omitempty"`
	Stats             *metrics.ProcessingStats `json:"stats,omitempty"`
	Success           bool                     `json:"success"`
	Error             string                   `json:"error,omitempty"`
}

// QueueItem is one pending analysis awaiting online reconciliation.
// Attempts only increases and survives process restarts.
type QueueItem struct {
	ID         string          `json:"id"`
	Request    AnalysisRequest `json:"request"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempts   int             `json:"attempts"`
	Processed  bool            `json:"processed"`
}

// DrainReport summarizes one offline queue drain cycle.
type DrainReport struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// QueueStatus is the operational view of the offline queue.
type QueueStatus struct {
	Pending      int       `json:"pending"`
	OldestQueued time.Time `json:"oldest_queued,omitempty"`
}

// FailureResult wraps an error into the structured failure shape callers
// always receive for expected failure modes.
func FailureResult(err error) AnalysisResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return AnalysisResult{Success: false, Error: msg}
}
