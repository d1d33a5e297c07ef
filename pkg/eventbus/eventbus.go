// Package eventbus is the typed egress from the sensor core to the UI
// layer. Delivery is best-effort and in-process: a failure to deliver
// (a full channel) is logged and swallowed, never allowed to block a
// sensor worker.
package eventbus

import (
	"github.com/sirupsen/logrus"

	"github.com/msundarmsa/stasys/pkg/model"
)

// Name identifies an event's payload shape.
type Name string

const (
	GrabCameraFrame     Name = "grab_camera_frame"
	GrabMicFrame        Name = "grab_mic_frame"
	CalibrationFinished Name = "calibration_finished"
	ClearTrace          Name = "clear_trace"
	AddBefore           Name = "add_before"
	AddAfter            Name = "add_after"
	AddShot             Name = "add_shot"
	ShotFinished        Name = "shot_finished"
)

// CalibrationResult is the payload for CalibrationFinished.
type CalibrationResult struct {
	Success        bool       `json:"success"`
	CalibratePoint [2]float64 `json:"calibrate_point"`
	ErrorMsg       string     `json:"error_msg"`
}

// Event is a single egress message: Name identifies the payload's
// concrete type, which the consumer type-switches on (or ignores, for
// ClearTrace which carries no payload).
type Event struct {
	Name    Name
	Payload any
}

// Sink is the egress a worker emits events to. Implementations must not
// block the caller for longer than it takes to enqueue the event.
type Sink interface {
	Emit(name Name, payload any)
}

// ChannelSink is the default Sink: a single buffered channel the
// embedding application drains. It is safe for concurrent use by
// multiple emitting goroutines.
type ChannelSink struct {
	ch  chan Event
	log *logrus.Entry
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
// log, if nil, falls back to logrus.StandardLogger().
func NewChannelSink(capacity int, log *logrus.Entry) *ChannelSink {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ChannelSink{
		ch:  make(chan Event, capacity),
		log: log,
	}
}

// Events returns the channel events are delivered on.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Emit delivers an event, logging and dropping it if the channel is full.
func (s *ChannelSink) Emit(name Name, payload any) {
	select {
	case s.ch <- Event{Name: name, Payload: payload}:
	default:
		s.log.WithField("event", string(name)).Warn("event dropped: sink is full")
	}
}

// Close closes the underlying channel. Callers must ensure no further
// Emit calls occur afterwards.
func (s *ChannelSink) Close() {
	close(s.ch)
}

// Helpers for emitting each typed payload, mirroring spec §4.9 exactly.

func EmitClearTrace(s Sink) {
	s.Emit(ClearTrace, nil)
}

func EmitAddBefore(s Sink, p model.TracePoint) {
	s.Emit(AddBefore, p)
}

func EmitAddAfter(s Sink, p model.TracePoint) {
	s.Emit(AddAfter, p)
}

func EmitAddShot(s Sink, p model.TracePoint) {
	s.Emit(AddShot, p)
}

func EmitShotFinished(s Sink, shot model.Shot) {
	s.Emit(ShotFinished, shot)
}

func EmitCalibrationFinished(s Sink, result CalibrationResult) {
	s.Emit(CalibrationFinished, result)
}

func EmitGrabCameraFrame(s Sink, base64PNG string) {
	s.Emit(GrabCameraFrame, base64PNG)
}

func EmitGrabMicFrame(s Sink, rms float64) {
	s.Emit(GrabMicFrame, rms)
}
