//go:build cgo
// +build cgo

package preview

import (
	"encoding/base64"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/sirupsen/logrus"

	"github.com/msundarmsa/stasys/pkg/blob"
	"github.com/msundarmsa/stasys/pkg/eventbus"
	"github.com/msundarmsa/stasys/pkg/model"
)

// gocv.Circle writes its color.RGBA argument into the Mat's channels in
// BGR order; OnFrame's frame has already gone through videosrc's
// BGR->RGB conversion, so the red channel now sits where gocv expects
// blue. Swapping R and B here keeps the drawn circle visually red.
var (
	blobColor   = color.RGBA{B: 255, A: 0}
	centerColor = color.RGBA{G: 255, A: 0}
)

const centerDotRadiusPx = 10

// Renderer draws detected blobs over the live feed and emits it as a
// base64-encoded raw RGBA byte payload, throttled to FrameInterval.
type Renderer struct {
	log *logrus.Entry

	detector *blob.Detector

	outWidth  int
	outHeight int

	thresholds <-chan model.DetectorParams
	sink       eventbus.Sink

	prevFrameTime time.Time
	frameIndex    uint64
}

// NewRenderer builds a Renderer targeting outWidth x outHeight output
// frames. thresholds delivers detector-parameter updates (from the
// settings UI); it may be nil if thresholds never change mid-session.
func NewRenderer(params model.DetectorParams, outWidth, outHeight int, thresholds <-chan model.DetectorParams, sink eventbus.Sink, log *logrus.Entry) *Renderer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Renderer{
		log:        log,
		detector:   blob.New(params),
		outWidth:   outWidth,
		outHeight:  outHeight,
		thresholds: thresholds,
		sink:       sink,
	}
}

// Close releases the underlying blob detector.
func (r *Renderer) Close() error {
	return r.detector.Close()
}

// OnFrame is the camera worker's per-frame callback.
func (r *Renderer) OnFrame(frame gocv.Mat) bool {
	now := time.Now()
	if ShouldSkip(r.prevFrameTime, now, r.frameIndex) {
		r.frameIndex++
		return true
	}
	r.prevFrameTime = now

	if r.thresholds != nil {
	drain:
		for {
			select {
			case params := <-r.thresholds:
				r.detector.Rebuild(params)
			default:
				break drain
			}
		}
	}

	keypoints := r.detector.Detect(frame)

	drawn := frame.Clone()
	defer drawn.Close()

	for _, kp := range keypoints {
		center := image.Pt(int(kp.CxPx), int(kp.CyPx))
		radius := int(kp.DiameterPx / 2)
		gocv.Circle(&drawn, center, radius, blobColor, -1)
	}

	centerPt := image.Pt(drawn.Cols()/2, drawn.Rows()/2)
	gocv.Circle(&drawn, centerPt, centerDotRadiusPx, centerColor, -1)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(drawn, &resized, image.Pt(r.outWidth, r.outHeight), 0, 0, gocv.InterpolationLinear)

	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(resized, &rgba, gocv.ColorRGBToRGBA)

	encoded := base64.StdEncoding.EncodeToString(rgba.ToBytes())
	eventbus.EmitGrabCameraFrame(r.sink, encoded)

	r.frameIndex++
	return true
}
