// Package preview implements the Camera-Feed Renderer (spec §4.5): a
// rate-limited debug view that draws detected blobs over the raw
// camera frame and emits the result as base64-encoded raw RGBA bytes
// for the settings UI, independent of any shoot or calibration session.
//
// The 30ms throttle decision is plain Go so it's unit testable
// without cgo; the OpenCV drawing/resize/encode pipeline lives in
// runner_cgo.go.
package preview

import "time"

// FrameInterval is the minimum gap between processed frames: the
// renderer emits at most one frame every 30ms (about 33fps) regardless
// of the camera's native frame rate.
const FrameInterval = 30 * time.Millisecond

// ShouldSkip reports whether the frame captured at now should be
// skipped to hold the renderer to FrameInterval. The very first frame
// (frameIndex == 0) is always processed, matching the original
// implementation's unconditional first-frame log/process path.
func ShouldSkip(prevFrameTime, now time.Time, frameIndex uint64) bool {
	if frameIndex == 0 {
		return false
	}
	return now.Sub(prevFrameTime) < FrameInterval
}
