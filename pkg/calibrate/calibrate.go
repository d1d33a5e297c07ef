// Package calibrate implements the Calibrator (spec §4.7): it runs on
// the camera worker during the calibration step, collects the detected
// aim position every frame, and once a trigger arrives selects the
// steadiest contiguous 1-second window of the run as the calibration
// point.
//
// The frame-detection and OpenCV concerns are kept out of this file —
// Session.OnFrame takes an already-detected keypoint count/position, so
// the selection algorithm and timeouts can be unit tested without cgo.
// See runner_cgo.go for the camera-frame-driving wrapper.
package calibrate

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/msundarmsa/stasys/pkg/eventbus"
	"github.com/msundarmsa/stasys/pkg/model"
)

const (
	undetectedTimeout = 60 * time.Second
	overallTimeout     = 120 * time.Second

	windowMin = 1.0
	windowMax = 1.1
)

// Session holds the per-run calibration state: the frame index, the wall
// time the run started, the accumulated before-trace, and whether the
// run has finished. The trigger instant is passed to each OnFrame call
// rather than stored.
type Session struct {
	log *logrus.Entry

	frameIndex    int
	shotStartTime time.Time
	beforeTrace   []model.TracePoint
	finished      bool
}

// NewSession starts a new calibration run beginning now.
func NewSession(now time.Time, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		log:           log,
		shotStartTime: now,
	}
}

// OnFrame processes one camera frame. detected/kp describe the blob
// detector's result on this frame (kp is meaningful only if detected is
// true); trigger, if non-nil, is the just-received audio trigger instant.
// It returns false once the session has finished (success or failure) —
// callers must stop feeding frames after that.
func (s *Session) OnFrame(now time.Time, detected bool, kp model.Keypoint, trigger *time.Time, sink eventbus.Sink) bool {
	if s.finished {
		return false
	}

	var timeSinceStart float64
	if s.frameIndex != 0 {
		timeSinceStart = now.Sub(s.shotStartTime).Seconds()
	}

	if !detected {
		if now.Sub(s.shotStartTime) >= undetectedTimeout {
			s.log.Info("calibration failed: target undetected for 1 minute")
			s.finish(sink, eventbus.CalibrationResult{
				Success:  false,
				ErrorMsg: "Target was not detected for 1min",
			})
			return false
		}
		return true
	}

	if now.Sub(s.shotStartTime) >= overallTimeout {
		s.log.Info("calibration failed: overall timeout")
		s.finish(sink, eventbus.CalibrationResult{
			Success:  false,
			ErrorMsg: "Calibrating for more than 2min - timeout",
		})
		return false
	}

	s.beforeTrace = append(s.beforeTrace, model.TracePoint{
		X:     kp.CxPx,
		Y:     kp.CyPx,
		TimeS: timeSinceStart,
	})

	if trigger != nil {
		point, ok := Select(s.beforeTrace)
		if ok {
			s.log.Info("calibration success")
			s.finish(sink, eventbus.CalibrationResult{
				Success:        true,
				CalibratePoint: [2]float64{point.X, point.Y},
			})
		} else {
			s.log.Info("calibration failed: shot too quickly")
			s.finish(sink, eventbus.CalibrationResult{
				Success:  false,
				ErrorMsg: "Shot too quickly",
			})
		}
		return false
	}

	s.frameIndex++
	return true
}

func (s *Session) finish(sink eventbus.Sink, result eventbus.CalibrationResult) {
	s.finished = true
	eventbus.EmitCalibrationFinished(sink, result)
}

// Select implements the selection algorithm of spec §4.7: walking
// before_trace from newest to oldest, it buckets contiguous samples and,
// whenever a bucket's span exceeds 1.0s but stays under 1.1s, evaluates
// it as a candidate calibration window: the candidate with the lowest
// mean radial deviation from its own centroid wins. Returns false if no
// window in range was ever found.
func Select(beforeTrace []model.TracePoint) (model.TracePoint, bool) {
	var best model.TracePoint
	bestMeanDist := -1.0
	found := false

	var bucket []model.TracePoint

	for i := len(beforeTrace) - 1; i >= 0; i-- {
		curr := beforeTrace[i]
		if len(bucket) == 0 {
			bucket = append(bucket, curr)
			continue
		}

		duration := bucket[0].TimeS - curr.TimeS
		if duration > windowMin && duration < windowMax {
			centroid, meanDist := centroidAndMeanDist(bucket)
			if !found || meanDist < bestMeanDist {
				found = true
				bestMeanDist = meanDist
				best = centroid
			}
			bucket = nil
		} else {
			bucket = append(bucket, curr)
		}
	}

	return best, found
}

func centroidAndMeanDist(points []model.TracePoint) (model.TracePoint, float64) {
	n := float64(len(points))
	var centroid model.TracePoint
	for _, p := range points {
		centroid.X += p.X / n
		centroid.Y += p.Y / n
	}

	var meanDist float64
	for _, p := range points {
		dx := p.X - centroid.X
		dy := p.Y - centroid.Y
		meanDist += math.Sqrt(dx*dx+dy*dy) / n
	}
	return centroid, meanDist
}
