package shotengine

import (
	"math"
	"testing"
	"time"

	"github.com/msundarmsa/stasys/pkg/eventbus"
	"github.com/msundarmsa/stasys/pkg/model"
)

// centeredKeypoint returns a keypoint that, on a rows x cols crop, maps
// to target-space (x, y) with zero fine adjust.
func centeredKeypoint(x, y float64, rows, cols int) model.Keypoint {
	return model.Keypoint{
		CyPx: float64(rows)/2 - x/PxToMM,
		CxPx: y/PxToMM + float64(cols)/2,
	}
}

func drainEvents(t *testing.T, sink *eventbus.ChannelSink) []eventbus.Event {
	t.Helper()
	var events []eventbus.Event
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestShotHappyPathNonUpDown(t *testing.T) {
	sink := eventbus.NewChannelSink(64, nil)
	start := time.Now()
	e := NewEngine(start, model.CalibrationPoint{XPx: 500, YPx: 500}, model.FineAdjust{}, false, nil)

	rows, cols := 100, 100
	center := centeredKeypoint(0, 0, rows, cols)

	// first detected frame starts the shot immediately (up/down off).
	e.Step(start, nil, true, center, rows, cols, sink)
	if e.State() != model.StateRunning {
		t.Fatalf("expected Running after first detection, got %v", e.State())
	}

	// a few more before_trace samples, so the shot point is later resolved
	// by spline interpolation rather than the <3-sample guard.
	t2 := start.Add(10 * time.Millisecond)
	e.Step(t2, nil, true, center, rows, cols, sink)
	t2b := start.Add(15 * time.Millisecond)
	e.Step(t2b, nil, true, center, rows, cols, sink)
	t3 := start.Add(20 * time.Millisecond)
	e.Step(t3, nil, true, center, rows, cols, sink)

	// trigger fired in the past relative to this frame capture -> after_trace.
	triggerTime := t3.Add(1 * time.Millisecond)
	t4 := t3.Add(5 * time.Millisecond)
	e.Step(t4, &triggerTime, true, center, rows, cols, sink)
	if e.State() != model.StateFired {
		t.Fatalf("expected Fired after trigger, got %v", e.State())
	}

	t5 := t4.Add(5 * time.Millisecond)
	e.Step(t5, nil, true, center, rows, cols, sink)
	t6 := t5.Add(5 * time.Millisecond)
	e.Step(t6, nil, true, center, rows, cols, sink)
	if e.State() != model.StateClosing {
		t.Fatalf("expected Closing after 3rd after_trace sample, got %v", e.State())
	}

	finish := t6.Add(2 * time.Second)
	e.Step(finish, nil, false, model.Keypoint{}, rows, cols, sink)
	if e.State() != model.StateIdle {
		t.Fatalf("expected Idle after close delay elapses, got %v", e.State())
	}

	events := drainEvents(t, sink)
	var names []eventbus.Name
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	if names[0] != eventbus.ClearTrace {
		t.Errorf("expected first event to be clear_trace, got %v", names)
	}
	if names[len(names)-1] != eventbus.ShotFinished {
		t.Errorf("expected last event to be shot_finished, got %v", names)
	}

	var sawShot bool
	for _, ev := range events {
		if ev.Name == eventbus.ShotFinished {
			sawShot = true
			shot := ev.Payload.(model.Shot)
			if math.Abs(shot.ShotPoint.X) > 1e-6 || math.Abs(shot.ShotPoint.Y) > 1e-6 {
				t.Errorf("expected shot point near origin, got %+v", shot.ShotPoint)
			}
		}
	}
	if !sawShot {
		t.Error("expected a shot_finished event")
	}
}

func TestShotResetOnLostTarget(t *testing.T) {
	sink := eventbus.NewChannelSink(16, nil)
	start := time.Now()
	e := NewEngine(start, model.CalibrationPoint{XPx: 500, YPx: 500}, model.FineAdjust{}, false, nil)

	rows, cols := 100, 100
	center := centeredKeypoint(0, 0, rows, cols)
	e.Step(start, nil, true, center, rows, cols, sink)
	if e.State() != model.StateRunning {
		t.Fatalf("expected Running, got %v", e.State())
	}

	lost := start.Add(3 * time.Second)
	e.Step(lost, nil, false, model.Keypoint{}, rows, cols, sink)
	if e.State() != model.StateIdle {
		t.Fatalf("expected Idle after losing the target for >2s, got %v", e.State())
	}
}

func TestArmedUpDownRequiresRiseAndDescend(t *testing.T) {
	sink := eventbus.NewChannelSink(16, nil)
	start := time.Now()
	e := NewEngine(start, model.CalibrationPoint{XPx: 500, YPx: 500}, model.FineAdjust{}, true, nil)

	rows, cols := 100, 100
	above := centeredKeypoint(0, 100, rows, cols)
	e.Step(start, nil, true, above, rows, cols, sink)
	if e.State() != model.StateIdle {
		t.Fatalf("expected to stay Idle on a single above-edge sample, got %v", e.State())
	}

	below := centeredKeypoint(0, 0, rows, cols)
	t2 := start.Add(10 * time.Millisecond)
	e.Step(t2, nil, true, below, rows, cols, sink)
	if e.State() != model.StateRunning {
		t.Fatalf("expected Running after rise-then-descend, got %v", e.State())
	}
}

func TestArmedUpDownNoDescendStaysIdle(t *testing.T) {
	sink := eventbus.NewChannelSink(16, nil)
	start := time.Now()
	e := NewEngine(start, model.CalibrationPoint{XPx: 500, YPx: 500}, model.FineAdjust{}, true, nil)

	rows, cols := 100, 100
	above := centeredKeypoint(0, 100, rows, cols)

	e.Step(start, nil, true, above, rows, cols, sink)
	t2 := start.Add(10 * time.Millisecond)
	e.Step(t2, nil, true, above, rows, cols, sink)
	if e.State() != model.StateIdle {
		t.Fatalf("expected to stay Idle while both samples are above the edge, got %v", e.State())
	}

	below := centeredKeypoint(0, 0, rows, cols)
	t3 := start.Add(20 * time.Millisecond)
	e.Step(t3, nil, true, below, rows, cols, sink)
	if e.State() != model.StateRunning {
		t.Fatalf("expected Running once the sliding window sees a descend, got %v", e.State())
	}
}

func TestRunningTimeoutResetsTraceButStaysRunning(t *testing.T) {
	sink := eventbus.NewChannelSink(16, nil)
	start := time.Now()
	e := NewEngine(start, model.CalibrationPoint{XPx: 500, YPx: 500}, model.FineAdjust{}, false, nil)

	rows, cols := 100, 100
	center := centeredKeypoint(0, 0, rows, cols)
	e.Step(start, nil, true, center, rows, cols, sink)
	if e.State() != model.StateRunning {
		t.Fatalf("expected Running, got %v", e.State())
	}

	// keep the target in view so the 2s lost-target reset doesn't fire first.
	for i := 1; i <= 61; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		e.Step(now, nil, true, center, rows, cols, sink)
	}
	if e.State() != model.StateRunning {
		t.Fatalf("expected to stay Running after the 60s no-trigger reset, got %v", e.State())
	}
}

func TestSplineGuardUsesCapturedShotPointWithFewBeforeSamples(t *testing.T) {
	sink := eventbus.NewChannelSink(16, nil)
	start := time.Now()
	e := NewEngine(start, model.CalibrationPoint{XPx: 500, YPx: 500}, model.FineAdjust{}, false, nil)

	rows, cols := 100, 100
	armKp := centeredKeypoint(0, 0, rows, cols)
	shotPointKp := centeredKeypoint(12, -7, rows, cols)

	// first detected frame only arms the shot (Idle -> Running).
	e.Step(start, nil, true, armKp, rows, cols, sink)
	if e.State() != model.StateRunning {
		t.Fatalf("expected Running, got %v", e.State())
	}

	// a trigger already pending on the next Running-state frame resolves
	// the shot point immediately, leaving before_trace with fewer than 3
	// samples.
	triggerTime := start.Add(-1 * time.Millisecond)
	t2 := start.Add(5 * time.Millisecond)
	e.Step(t2, &triggerTime, true, shotPointKp, rows, cols, sink)
	if e.State() != model.StateFired {
		t.Fatalf("expected Fired, got %v", e.State())
	}

	other := centeredKeypoint(0, 0, rows, cols)
	for i := 1; i <= 3; i++ {
		now := t2.Add(time.Duration(i*5) * time.Millisecond)
		e.Step(now, nil, true, other, rows, cols, sink)
	}
	if e.State() != model.StateClosing {
		t.Fatalf("expected Closing, got %v", e.State())
	}

	events := drainEvents(t, sink)
	var shot *model.TracePoint
	for _, ev := range events {
		if ev.Name == eventbus.AddShot {
			p := ev.Payload.(model.TracePoint)
			shot = &p
		}
	}
	if shot == nil {
		t.Fatal("expected an add_shot event")
	}
	if math.Abs(shot.X-12) > 1e-6 || math.Abs(shot.Y-(-7)) > 1e-6 {
		t.Errorf("expected the guard to fall back to the captured shot point (12,-7), got %+v", *shot)
	}
}

func TestCropRectClampsToFrameBounds(t *testing.T) {
	x, y, w, h := CropRect(model.CalibrationPoint{XPx: 5, YPx: 5}, 640, 480)
	if x != 0 || y != 0 {
		t.Errorf("expected crop to clamp to the frame origin, got (%d,%d)", x, y)
	}
	if w <= 0 || h <= 0 {
		t.Errorf("expected a positive crop size, got (%d,%d)", w, h)
	}

	x2, y2, w2, h2 := CropRect(model.CalibrationPoint{XPx: 1000, YPx: 1000}, 640, 480)
	if x2+w2 > 640 || y2+h2 > 480 {
		t.Errorf("expected crop clipped within frame bounds, got x=%d w=%d y=%d h=%d", x2, w2, y2, h2)
	}
}
