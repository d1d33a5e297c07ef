// Package volume implements the Volume Meter (spec §4.6): it forwards
// every audio callback's RMS value to the event bus as grab_mic_frame,
// with no trigger or threshold logic of its own.
package volume

import (
	"github.com/msundarmsa/stasys/pkg/audiosrc"
	"github.com/msundarmsa/stasys/pkg/eventbus"
)

// NewSink returns an audiosrc.OnSample that forwards every RMS reading
// to sink as grab_mic_frame.
func NewSink(sink eventbus.Sink) audiosrc.OnSample {
	return func(rms float64) {
		eventbus.EmitGrabMicFrame(sink, rms)
	}
}
