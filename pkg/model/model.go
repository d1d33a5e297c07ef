// Package model holds the data types shared across the video, audio and
// shot-engine pipelines: trace points, raw detector keypoints, detector
// parameters, calibration state and the shot-lifecycle state machine's
// tagged variant.
package model

import "fmt"

// TracePoint is a single (x, y) target-space sample, in millimetres
// relative to the target centre after calibration, with TimeS measured
// in seconds since the current shot's shot_start.
type TracePoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	TimeS float64 `json:"time"`
}

// Keypoint is a raw blob-detector result in frame pixel coordinates.
type Keypoint struct {
	CxPx       float64
	CyPx       float64
	DiameterPx float64
}

// DetectorParams configures the blob detector. It is an immutable value;
// callers construct a new DetectorParams rather than mutating one in place.
type DetectorParams struct {
	MinThreshold float64
	MaxThreshold float64

	FilterByColor bool

	FilterByArea bool
	MinArea      float64
	MaxArea      float64

	FilterByConvexity bool

	FilterByCircularity bool
	MinCircularity      float64

	FilterByInertia bool
	MinInertiaRatio float64
}

// DefaultDetectorParams returns the detector configuration mandated by
// spec §4.4: area filtering in [450, 10000] px², circularity >= 0.70,
// inertia ratio >= 0.85, color and convexity filtering disabled.
// MinThreshold/MaxThreshold are left at their caller-supplied values.
func DefaultDetectorParams(minThreshold, maxThreshold float64) DetectorParams {
	return DetectorParams{
		MinThreshold: minThreshold,
		MaxThreshold: maxThreshold,

		FilterByColor:     false,
		FilterByConvexity: false,

		FilterByArea: true,
		MinArea:      450,
		MaxArea:      10000,

		FilterByCircularity: true,
		MinCircularity:      0.70,

		FilterByInertia: true,
		MinInertiaRatio: 0.85,
	}
}

// CalibrationPoint is the learned pixel position of the aim centre on the
// paper target.
type CalibrationPoint struct {
	XPx float64
	YPx float64
}

// FineAdjust is a user-supplied additive offset, in millimetres, applied
// after coordinate mapping to compensate for residual zero error.
type FineAdjust struct {
	DxMM float64
	DyMM float64
}

// ShotState is the shot-lifecycle tagged variant. It replaces the
// overlapping boolean flags (shot_started, shot_point.is_some()) that the
// original implementation used to encode four states in two booleans.
type ShotState int

const (
	// StateIdle: no shot in progress, waiting for the aim to rise above
	// the upper edge (or, with up/down mode off, waiting for any blob).
	StateIdle ShotState = iota
	// StateArmed: the aim rose above the upper edge and is awaited to
	// descend back into the target before a shot is considered started.
	StateArmed
	// StateRunning: shot in progress, collecting before_trace.
	StateRunning
	// StateFired: trigger received, collecting after_trace, interpolation pending.
	StateFired
	// StateClosing: impact interpolated, flushing the trailing after_trace.
	StateClosing
)

func (s ShotState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	case StateFired:
		return "fired"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Shot is the payload emitted once a shot completes: the aim trace before
// the trigger, the interpolated impact point, and the trailing trace.
type Shot struct {
	BeforeTrace []TracePoint `json:"before_trace"`
	ShotPoint   TracePoint   `json:"shot_point"`
	AfterTrace  []TracePoint `json:"after_trace"`
}
