// Package blob wraps OpenCV's SimpleBlobDetector to find circular
// keypoints in a frame: grayscale conversion, a 9x9 Gaussian blur, then
// blob detection under configurable thresholds (spec §4.4).
package blob

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/msundarmsa/stasys/pkg/model"
)

// blurKernel is the fixed 9x9 Gaussian blur kernel spec §4.4 mandates.
var blurKernel = image.Pt(9, 9)

// Detector detects circular blobs under the configured model.DetectorParams.
// It owns a gocv.SimpleBlobDetector and must be closed by the caller.
type Detector struct {
	params   model.DetectorParams
	detector gocv.SimpleBlobDetector
}

// New builds a Detector for the given parameters.
func New(params model.DetectorParams) *Detector {
	return &Detector{
		params:   params,
		detector: gocv.NewSimpleBlobDetectorWithParams(toGocvParams(params)),
	}
}

// Params returns the parameters this detector was constructed with.
func (d *Detector) Params() model.DetectorParams {
	return d.params
}

// Close releases the underlying OpenCV detector.
func (d *Detector) Close() error {
	return d.detector.Close()
}

// Detect converts frame to grayscale (if it is not already single
// channel), applies the 9x9 Gaussian blur with an automatically derived
// sigma, and runs blob detection. frame is not modified.
func (d *Detector) Detect(frame gocv.Mat) []model.Keypoint {
	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() == 3 {
		gocv.CvtColor(frame, &gray, gocv.ColorRGBToGray)
	} else if frame.Channels() == 4 {
		gocv.CvtColor(frame, &gray, gocv.ColorRGBAToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, blurKernel, 0, 0, gocv.BorderDefault)

	keypoints := d.detector.Detect(blurred)
	out := make([]model.Keypoint, len(keypoints))
	for i, kp := range keypoints {
		out[i] = model.Keypoint{
			CxPx:       kp.X,
			CyPx:       kp.Y,
			DiameterPx: kp.Size,
		}
	}
	return out
}

func toGocvParams(p model.DetectorParams) gocv.SimpleBlobDetectorParams {
	params := gocv.NewSimpleBlobDetectorParams()
	params.MinThreshold = float32(p.MinThreshold)
	params.MaxThreshold = float32(p.MaxThreshold)

	params.FilterByColor = p.FilterByColor
	params.FilterByConvexity = p.FilterByConvexity

	params.FilterByArea = p.FilterByArea
	params.MinArea = float32(p.MinArea)
	params.MaxArea = float32(p.MaxArea)

	params.FilterByCircularity = p.FilterByCircularity
	params.MinCircularity = float32(p.MinCircularity)

	params.FilterByInertia = p.FilterByInertia
	params.MinInertiaRatio = float32(p.MinInertiaRatio)

	return params
}

// Rebuild closes the current underlying detector and constructs a new one
// with params. Used to apply threshold updates without leaking the
// previous OpenCV detector instance.
func (d *Detector) Rebuild(params model.DetectorParams) {
	_ = d.detector.Close()
	d.params = params
	d.detector = gocv.NewSimpleBlobDetectorWithParams(toGocvParams(params))
}
