//go:build cgo
// +build cgo

package shotengine

import (
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/sirupsen/logrus"

	"github.com/msundarmsa/stasys/pkg/blob"
	"github.com/msundarmsa/stasys/pkg/eventbus"
	"github.com/msundarmsa/stasys/pkg/model"
)

// Runner drives an Engine from decoded camera frames: each frame it
// crops around the calibration point, runs the blob detector on the
// crop, drains any pending audio trigger, and steps the Engine.
type Runner struct {
	engine   *Engine
	detector *blob.Detector
	triggers <-chan time.Time
	sink     eventbus.Sink
}

// NewRunner builds a Runner for one shoot session.
func NewRunner(now time.Time, calibratePoint model.CalibrationPoint, fineAdjust model.FineAdjust, upDown bool, params model.DetectorParams, triggers <-chan time.Time, sink eventbus.Sink, log *logrus.Entry) *Runner {
	return &Runner{
		engine:   NewEngine(now, calibratePoint, fineAdjust, upDown, log),
		detector: blob.New(params),
		triggers: triggers,
		sink:     sink,
	}
}

// Close releases the underlying OpenCV detector.
func (r *Runner) Close() error {
	return r.detector.Close()
}

// State returns the engine's current lifecycle state, for diagnostics.
func (r *Runner) State() model.ShotState {
	return r.engine.State()
}

// OnFrame is the camera worker's per-frame callback: it crops frame
// around the calibration point, detects blobs on the crop, and steps
// the engine. It never returns false — a shoot session runs until the
// controller explicitly stops the worker.
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

	x, y, w, h := r.engine.CropRect(frame.Cols(), frame.Rows())
	if w <= 0 || h <= 0 {
		r.engine.Step(now, trigger, false, model.Keypoint{}, 0, 0, r.sink)
		return true
	}

	crop := frame.Region(image.Rect(x, y, x+w, y+h))
	defer crop.Close()

	keypoints := r.detector.Detect(crop)
	detected := len(keypoints) == 1
	var kp model.Keypoint
	if detected {
		kp = keypoints[0]
	}

	r.engine.Step(now, trigger, detected, kp, crop.Rows(), crop.Cols(), r.sink)
	return true
}
