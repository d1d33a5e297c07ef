//go:build cgo
// +build cgo

package videosrc

import (
	"gocv.io/x/gocv"

	"github.com/sirupsen/logrus"
)

// Source is a live capture device opened per SelectBackend/FPSForLabel.
type Source struct {
	log    *logrus.Entry
	label  string
	webcam *gocv.VideoCapture
}

// Open opens label with the backend SelectBackend picks for it and
// requests the FPS FPSForLabel returns.
func Open(label string, log *logrus.Entry) (*Source, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	var api gocv.VideoCaptureAPI
	switch SelectBackend(label) {
	case BackendAVFoundation:
		api = gocv.VideoCaptureAVFoundation
	case BackendDshow:
		api = gocv.VideoCaptureDshow
	case BackendFile:
		api = gocv.VideoCaptureFFMPEG
	default:
		api = gocv.VideoCaptureV4L2
	}

	webcam, err := gocv.OpenVideoCaptureWithAPI(label, api)
	if err != nil {
		return nil, &VideoError{Kind: DeviceOpen, Label: label, Err: err}
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, &VideoError{Kind: DeviceOpen, Label: label, Err: errNotOpened}
	}

	webcam.Set(gocv.VideoCaptureFPS, float64(FPSForLabel(label)))

	log.WithFields(logrus.Fields{
		"label":   label,
		"backend": SelectBackend(label).String(),
		"fps":     FPSForLabel(label),
	}).Info("video source opened")

	return &Source{log: log, label: label, webcam: webcam}, nil
}

var errNotOpened = &notOpenedError{}

type notOpenedError struct{}

func (*notOpenedError) Error() string { return "capture device not found or unavailable" }

// Close releases the underlying capture device.
func (s *Source) Close() error {
	return s.webcam.Close()
}

// DecodeStep reads and decodes one frame as RGB24. The returned Mat
// must be closed by the caller.
func (s *Source) DecodeStep() (gocv.Mat, error) {
	mat := gocv.NewMat()
	if ok := s.webcam.Read(&mat); !ok {
		mat.Close()
		return gocv.NewMat(), &VideoError{Kind: DecodeStep, Label: s.label, Err: errReadFailed}
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), &VideoError{Kind: DecodeStep, Label: s.label, Err: errEmptyFrame}
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)
	mat.Close()
	return rgb, nil
}

var (
	errReadFailed = &readFailedError{}
	errEmptyFrame = &emptyFrameError{}
)

type readFailedError struct{}

func (*readFailedError) Error() string { return "failed to read frame" }

type emptyFrameError struct{}

func (*emptyFrameError) Error() string { return "captured frame is empty" }

// Stream decodes frames in a loop, invoking onFrame for each until it
// returns false, cancel is closed, or a decode error occurs.
func (s *Source) Stream(cancel <-chan struct{}, onFrame func(gocv.Mat) bool) error {
	for {
		select {
		case <-cancel:
			return nil
		default:
		}

		frame, err := s.DecodeStep()
		if err != nil {
			s.log.WithError(err).Warn("video source stopping on decode error")
			return err
		}

		cont := onFrame(frame)
		frame.Close()
		if !cont {
			return nil
		}
	}
}
