package eventbus

import (
	"testing"
	"time"

	"github.com/msundarmsa/stasys/pkg/model"
)

func TestChannelSinkDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(8, nil)

	EmitClearTrace(sink)
	EmitAddBefore(sink, model.TracePoint{X: 1, TimeS: 0.1})
	EmitAddShot(sink, model.TracePoint{X: 2, TimeS: 0.2})
	EmitAddAfter(sink, model.TracePoint{X: 3, TimeS: 0.3})
	EmitShotFinished(sink, model.Shot{})

	want := []Name{ClearTrace, AddBefore, AddShot, AddAfter, ShotFinished}
	for i, w := range want {
		ev := <-sink.Events()
		if ev.Name != w {
			t.Fatalf("event %d: got %s, want %s", i, ev.Name, w)
		}
	}
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink := NewChannelSink(1, nil)

	EmitClearTrace(sink)
	// second emit should be dropped, not block
	done := make(chan struct{})
	go func() {
		EmitClearTrace(sink)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full channel")
	}
}

func TestCalibrationFinishedPayload(t *testing.T) {
	sink := NewChannelSink(1, nil)
	EmitCalibrationFinished(sink, CalibrationResult{Success: true, CalibratePoint: [2]float64{640, 360}})

	ev := <-sink.Events()
	result, ok := ev.Payload.(CalibrationResult)
	if !ok {
		t.Fatalf("expected CalibrationResult payload, got %T", ev.Payload)
	}
	if !result.Success || result.CalibratePoint != [2]float64{640, 360} {
		t.Errorf("unexpected payload: %+v", result)
	}
}
