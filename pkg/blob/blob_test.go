//go:build cgo
// +build cgo

package blob

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/msundarmsa/stasys/pkg/model"
)

// syntheticCircleFrame builds a white RGB frame with a single filled
// black circle of the given radius centered at (cx, cy).
func syntheticCircleFrame(width, height, cx, cy, radius int) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(255, 255, 255, 0))
	gocv.Circle(&mat, image.Pt(cx, cy), radius, color.RGBA{R: 0, G: 0, B: 0, A: 255}, -1)
	return mat
}

func TestDetectorDefaultParamsFindsOneBlob(t *testing.T) {
	params := model.DefaultDetectorParams(10, 200)
	d := New(params)
	defer d.Close()

	frame := syntheticCircleFrame(640, 480, 320, 240, 30) // area ~2827 px^2, within [450,10000]
	defer frame.Close()

	keypoints := d.Detect(frame)
	if len(keypoints) != 1 {
		t.Fatalf("expected exactly 1 keypoint, got %d", len(keypoints))
	}
	kp := keypoints[0]
	if kp.CxPx < 300 || kp.CxPx > 340 || kp.CyPx < 220 || kp.CyPx > 260 {
		t.Errorf("keypoint center %v,%v far from expected 320,240", kp.CxPx, kp.CyPx)
	}
}

func TestDetectorNoBlobOnBlankFrame(t *testing.T) {
	params := model.DefaultDetectorParams(10, 200)
	d := New(params)
	defer d.Close()

	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(255, 255, 255, 0))
	defer mat.Close()

	keypoints := d.Detect(mat)
	if len(keypoints) != 0 {
		t.Errorf("expected no keypoints on blank frame, got %d", len(keypoints))
	}
}

func TestDetectorRebuildAppliesNewThresholds(t *testing.T) {
	d := New(model.DefaultDetectorParams(10, 50))
	defer d.Close()

	d.Rebuild(model.DefaultDetectorParams(20, 220))
	if d.Params().MinThreshold != 20 || d.Params().MaxThreshold != 220 {
		t.Errorf("rebuild did not update params: %+v", d.Params())
	}
}

func TestDefaultDetectorParamsConstants(t *testing.T) {
	p := model.DefaultDetectorParams(5, 90)
	if p.FilterByColor || p.FilterByConvexity {
		t.Error("expected color and convexity filtering disabled")
	}
	if !p.FilterByArea || p.MinArea != 450 || p.MaxArea != 10000 {
		t.Errorf("unexpected area filter: %+v", p)
	}
	if !p.FilterByCircularity || p.MinCircularity != 0.70 {
		t.Errorf("unexpected circularity filter: %+v", p)
	}
	if !p.FilterByInertia || p.MinInertiaRatio != 0.85 {
		t.Errorf("unexpected inertia filter: %+v", p)
	}
}
