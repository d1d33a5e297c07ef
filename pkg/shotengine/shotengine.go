// Package shotengine implements the shot-lifecycle state machine (spec
// §4.8): it consumes per-frame aim detections and audio triggers,
// segments each shot into a before-trace/shot-point/after-trace, and
// reconstructs the precise impact point by natural cubic spline
// interpolation across the trigger instant.
//
// Engine.Step is pure Go and takes an already-detected keypoint (plus
// the dimensions of the crop it was detected in), so the full state
// machine — including the scenarios in spec §8 — is unit testable
// without cgo. See runner_cgo.go for the OpenCV-backed frame/crop/detect
// wrapper that drives it from a live camera worker.
package shotengine

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/msundarmsa/stasys/pkg/eventbus"
	"github.com/msundarmsa/stasys/pkg/model"
	"github.com/msundarmsa/stasys/pkg/spline"
)

const (
	// TargetSizeMM is the usable square side of the paper target.
	TargetSizeMM = 170.0
	// PxToMM is the pixel-to-mm ratio given the calibration card geometry
	// (170mm card spans 254 detected pixels).
	PxToMM = 170.0 / 254.0

	halfTargetMM = TargetSizeMM / 2

	lostTargetTimeout = 2 * time.Second
	runningTimeout    = 60 * time.Second
	closeDelay        = 1.0 // seconds after the trigger before a shot closes
)

// CropSidePx is the side, in pixels, of the square crop taken around the
// calibration point: floor(1.75 * TARGET_SIZE_MM / PX_TO_MM).
var CropSidePx = int(math.Floor(1.75 * TargetSizeMM / PxToMM))

// CropRect returns the clipped crop rectangle (x, y, width, height) for a
// frame of size frameW x frameH, centred on calibratePoint.
func CropRect(calibratePoint model.CalibrationPoint, frameW, frameH int) (x, y, w, h int) {
	width := float64(CropSidePx)
	height := width

	cx := calibratePoint.XPx - width/2
	cy := calibratePoint.YPx - height/2

	cx = math.Max(cx, 0)
	cy = math.Max(cy, 0)

	if cx+width > float64(frameW) {
		width = float64(frameW) - cx
	}
	if cy+height > float64(frameH) {
		height = float64(frameH) - cy
	}

	return int(cx), int(cy), int(width), int(height)
}

// Engine is the per-session shot state machine.
type Engine struct {
	log *logrus.Entry

	calibratePoint model.CalibrationPoint
	fineAdjust     model.FineAdjust
	upDown         bool

	state            model.ShotState
	frameIndex       uint64
	shotStartTime    time.Time
	lastInTargetTime time.Time

	beforeTrace []model.TracePoint
	shotPoint   *model.TracePoint
	afterTrace  []model.TracePoint
	preTrace    []model.TracePoint

	triggerPending *time.Time
}

// NewEngine builds an Engine. now is the wall-clock instant the session
// starts; calibratePoint, fineAdjust and upDown are fixed for the
// session's lifetime (fineAdjust and upDown may only change by starting
// a new shoot session, matching the original implementation).
func NewEngine(now time.Time, calibratePoint model.CalibrationPoint, fineAdjust model.FineAdjust, upDown bool, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		log:              log,
		calibratePoint:   calibratePoint,
		fineAdjust:       fineAdjust,
		upDown:           upDown,
		state:            model.StateIdle,
		shotStartTime:    now,
		lastInTargetTime: now,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() model.ShotState {
	return e.state
}

// CropRect returns the crop rectangle this engine's calibration point
// implies for a frame of the given dimensions.
func (e *Engine) CropRect(frameW, frameH int) (x, y, w, h int) {
	return CropRect(e.calibratePoint, frameW, frameH)
}

// Step processes one camera frame captured at instant now. trigger, if
// non-nil, is a just-received audio trigger instant. detected/kp
// describe the blob detector's result on the crop taken per CropRect;
// cropRows/cropCols are that crop's actual (clipped) dimensions, used by
// the coordinate-mapping formula in spec §4.8 step 4.
func (e *Engine) Step(now time.Time, trigger *time.Time, detected bool, kp model.Keypoint, cropRows, cropCols int, sink eventbus.Sink) {
	if trigger != nil {
		e.triggerPending = trigger
	}

	shotStarted := e.state != model.StateIdle && e.state != model.StateArmed

	if shotStarted {
		timeSinceShotStart := e.timeSinceShotStart(now)

		if now.Sub(e.lastInTargetTime) > lostTargetTimeout {
			e.resetToIdle(sink)
			shotStarted = false
		} else if timeSinceShotStart > runningTimeout.Seconds() && e.shotPoint == nil {
			e.clearTraces(sink)
			e.shotStartTime = now
		} else if e.shotPoint != nil && timeSinceShotStart-e.shotPoint.TimeS >= closeDelay {
			e.finishShot(sink)
			shotStarted = false
		}
	}

	if detected {
		x := (-kp.CyPx+float64(cropRows)/2)*PxToMM + e.fineAdjust.DxMM
		y := (kp.CxPx-float64(cropCols)/2)*PxToMM + e.fineAdjust.DyMM
		center := model.TracePoint{
			X:     x,
			Y:     y,
			TimeS: now.Sub(e.shotStartTime).Seconds(),
		}

		if math.Abs(x) <= halfTargetMM && math.Abs(y) <= halfTargetMM {
			e.lastInTargetTime = now
		}

		if !shotStarted {
			e.handleArming(now, center, sink)
		} else {
			e.handleShotInProgress(center, sink)
		}
	}

	if e.state == model.StateIdle {
		e.triggerPending = nil
	}

	e.frameIndex++
}

func (e *Engine) timeSinceShotStart(now time.Time) float64 {
	if e.frameIndex == 0 {
		return 0
	}
	return now.Sub(e.shotStartTime).Seconds()
}

// handleArming runs the Idle-state pre-trace logic: with up/down mode,
// a shot starts once the aim has risen above the upper edge and
// descended back below it across two consecutive detections; without
// up/down mode, a shot starts on the first detected frame.
func (e *Engine) handleArming(now time.Time, center model.TracePoint, sink eventbus.Sink) {
	started := false

	if e.upDown {
		if len(e.preTrace) <= 1 {
			e.preTrace = append(e.preTrace, center)
		} else {
			e.preTrace[0] = e.preTrace[1]
			e.preTrace[1] = center
		}
		if len(e.preTrace) == 2 {
			started = e.preTrace[0].Y > halfTargetMM && e.preTrace[1].Y < halfTargetMM
		}
	} else {
		started = true
	}

	if started {
		e.beforeTrace = nil
		e.shotPoint = nil
		e.afterTrace = nil
		e.preTrace = nil
		eventbus.EmitClearTrace(sink)
		e.shotStartTime = now
		e.state = model.StateRunning
	}
}

// handleShotInProgress runs the Running/Fired/Closing detected-frame
// logic: building before_trace, resolving the shot point around the
// trigger instant, running the spline interpolation once three
// after-trace samples are available, and appending the closing tail.
func (e *Engine) handleShotInProgress(center model.TracePoint, sink eventbus.Sink) {
	if e.shotPoint == nil {
		if e.triggerPending != nil {
			trigger := *e.triggerPending
			if trigger.After(timeOfTrace(center, e.shotStartTime)) {
				e.beforeTrace = append(e.beforeTrace, center)
				eventbus.EmitAddBefore(sink, center)
			} else {
				e.afterTrace = append(e.afterTrace, center)
				eventbus.EmitAddAfter(sink, center)
			}
			point := center
			e.shotPoint = &point
			e.state = model.StateFired
		} else {
			e.beforeTrace = append(e.beforeTrace, center)
			eventbus.EmitAddBefore(sink, center)
		}
		return
	}

	switch {
	case len(e.afterTrace) < 2:
		e.afterTrace = append(e.afterTrace, center)
	case len(e.afterTrace) == 2:
		e.afterTrace = append(e.afterTrace, center)
		shotPoint := e.interpolate()
		e.shotPoint = &shotPoint
		eventbus.EmitAddBefore(sink, shotPoint)
		eventbus.EmitAddAfter(sink, shotPoint)
		eventbus.EmitAddShot(sink, shotPoint)
		e.triggerPending = nil
		e.state = model.StateClosing
	default:
		e.afterTrace = append(e.afterTrace, center)
		eventbus.EmitAddAfter(sink, center)
	}
}

// timeOfTrace reconstructs the wall-clock instant a TracePoint was
// captured at, from its shot-relative TimeS and the session's
// shot_start origin — used to compare the trigger instant against the
// frame's capture time per spec §4.8's Running->Fired condition.
func timeOfTrace(p model.TracePoint, shotStart time.Time) time.Time {
	return shotStart.Add(time.Duration(p.TimeS * float64(time.Second)))
}

// interpolate reconstructs the impact point by building natural cubic
// splines over the last 3 before_trace samples and first 3 after_trace
// samples and evaluating at the trigger instant. If fewer than 3
// before_trace samples are available it skips interpolation and returns
// the frame point already captured at the Running->Fired transition,
// guarding the panic the original implementation was subject to (spec
// §9).
func (e *Engine) interpolate() model.TracePoint {
	if len(e.beforeTrace) < 3 || e.triggerPending == nil || e.shotPoint == nil {
		if e.shotPoint != nil {
			return *e.shotPoint
		}
		return model.TracePoint{}
	}

	n := len(e.beforeTrace)
	beforeSamples := e.beforeTrace[n-3:]
	afterSamples := e.afterTrace[:3]

	ptsX := make([]spline.Point, 0, 6)
	ptsY := make([]spline.Point, 0, 6)
	for _, p := range beforeSamples {
		ptsX = append(ptsX, spline.Point{X: p.TimeS, Y: p.X})
		ptsY = append(ptsY, spline.Point{X: p.TimeS, Y: p.Y})
	}
	for _, p := range afterSamples {
		ptsX = append(ptsX, spline.Point{X: p.TimeS, Y: p.X})
		ptsY = append(ptsY, spline.Point{X: p.TimeS, Y: p.Y})
	}

	sx, err := spline.NewNatural(ptsX)
	if err != nil {
		e.log.WithError(err).Warn("spline interpolation failed, using captured shot point")
		return *e.shotPoint
	}
	sy, err := spline.NewNatural(ptsY)
	if err != nil {
		e.log.WithError(err).Warn("spline interpolation failed, using captured shot point")
		return *e.shotPoint
	}

	triggerT := e.triggerPending.Sub(e.shotStartTime).Seconds()
	return model.TracePoint{
		X:     sx.Eval(triggerT),
		Y:     sy.Eval(triggerT),
		TimeS: triggerT,
	}
}

func (e *Engine) clearTraces(sink eventbus.Sink) {
	e.beforeTrace = nil
	e.shotPoint = nil
	e.afterTrace = nil
	eventbus.EmitClearTrace(sink)
}

func (e *Engine) resetToIdle(sink eventbus.Sink) {
	e.clearTraces(sink)
	e.preTrace = nil
	e.state = model.StateIdle
}

func (e *Engine) finishShot(sink eventbus.Sink) {
	shot := model.Shot{
		BeforeTrace: append([]model.TracePoint(nil), e.beforeTrace...),
		ShotPoint:   *e.shotPoint,
		AfterTrace:  append([]model.TracePoint(nil), e.afterTrace...),
	}
	eventbus.EmitShotFinished(sink, shot)

	e.beforeTrace = nil
	e.shotPoint = nil
	e.afterTrace = nil
	e.preTrace = nil
	e.state = model.StateIdle
}
