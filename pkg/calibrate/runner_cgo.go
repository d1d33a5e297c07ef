//go:build cgo
// +build cgo

package calibrate

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/sirupsen/logrus"

	"github.com/msundarmsa/stasys/pkg/blob"
	"github.com/msundarmsa/stasys/pkg/eventbus"
	"github.com/msundarmsa/stasys/pkg/model"
)

// Runner drives a Session from decoded camera frames: it owns the blob
// detector, drains the non-blocking trigger channel, and stops feeding
// frames once the Session has finished.
type Runner struct {
	session  *Session
	detector *blob.Detector
	triggers <-chan time.Time
	sink     eventbus.Sink
}

// NewRunner builds a Runner. triggers delivers trigger instants recorded
// by the audio pipeline; it may be nil if no audio source is wired yet.
func NewRunner(now time.Time, params model.DetectorParams, triggers <-chan time.Time, sink eventbus.Sink, log *logrus.Entry) *Runner {
	return &Runner{
		session:  NewSession(now, log),
		detector: blob.New(params),
		triggers: triggers,
		sink:     sink,
	}
}

// Close releases the underlying OpenCV detector.
func (r *Runner) Close() error {
	return r.detector.Close()
}

// OnFrame is the camera worker's per-frame callback. It returns false
// once the run has finished and the camera worker should stop.
func (r *Runner) OnFrame(frame gocv.Mat) bool {
	now := time.Now()

	var trigger *time.Time
	if r.triggers != nil {
		select {
		case t := <-r.triggers:
			trigger = &t
		default:
		}
	}

	keypoints := r.detector.Detect(frame)
	detected := len(keypoints) == 1
	var kp model.Keypoint
	if detected {
		kp = keypoints[0]
	}

	return r.session.OnFrame(now, detected, kp, trigger, r.sink)
}
