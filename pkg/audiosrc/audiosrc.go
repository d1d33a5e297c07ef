// Package audiosrc is the Audio Source (spec §4.3): it opens a named
// capture device and computes the RMS volume of each callback buffer.
//
// The RMS math and the Windows gain-compensation rule are plain Go,
// kept free of cgo so they're unit testable anywhere; the malgo device
// wiring lives in runner_cgo.go.
package audiosrc

import (
	"errors"
	"math"
	"runtime"
)

// ErrUnsupportedFormat is returned when a capture device's native
// sample format is neither F32 nor S16.
var ErrUnsupportedFormat = errors.New("unsupported capture sample format")

// windowsGain compensates for a platform-specific quiet default input
// level, matching the original implementation's `cfg!(windows)` gate
// verbatim — it has no audio-theoretic justification beyond parity.
const windowsGain = 200.0

// RMSFloat32 computes the root-mean-square volume of an F32 sample
// buffer, applying the Windows gain compensation when running on
// windows.
func RMSFloat32(samples []float32) float64 {
	rms := rmsFloat32(samples)
	if runtime.GOOS == "windows" {
		rms *= windowsGain
	}
	return rms
}

func rmsFloat32(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		v := float64(s)
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// RMSInt16 computes the root-mean-square volume of an S16 sample
// buffer. No gain compensation is applied, matching the original
// implementation's integer-format path.
func RMSInt16(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		v := float64(s)
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// OnSample is the per-callback-buffer consumer: rms is the volume
// computed for the most recent buffer.
type OnSample func(rms float64)
