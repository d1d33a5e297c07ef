//go:build cgo
// +build cgo

// Package controller implements the Controller (spec §4.10): it honors
// the UI's start/stop commands, owns the live camera and mic worker
// handles and the channels between them, and is the only component
// that touches more than one worker's state at a time.
package controller

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/msundarmsa/stasys/pkg/audiosrc"
	"github.com/msundarmsa/stasys/pkg/calibrate"
	"github.com/msundarmsa/stasys/pkg/eventbus"
	"github.com/msundarmsa/stasys/pkg/model"
	"github.com/msundarmsa/stasys/pkg/preview"
	"github.com/msundarmsa/stasys/pkg/shotengine"
	"github.com/msundarmsa/stasys/pkg/videosrc"
	"github.com/msundarmsa/stasys/pkg/volume"
	"github.com/msundarmsa/stasys/pkg/worker"
)

// ErrCameraRunning/ErrMicRunning are returned when a start command
// targets a worker class that already has a live instance. The
// original implementation left this case undefined (spec §9); this
// Controller chooses to enforce stop-first instead.
var (
	ErrCameraRunning = errors.New("a camera worker is already running")
	ErrMicRunning    = errors.New("a mic worker is already running")

	triggerDebounce = 5 * time.Second
)

// Controller owns the camera and mic worker handles. Only one of each
// class may be live at a time.
type Controller struct {
	mu   sync.Mutex
	log  *logrus.Entry
	sink eventbus.Sink

	camera *worker.Handle
	mic    *worker.Handle

	thresholds chan model.DetectorParams
	triggers   chan time.Time

	detectorParams model.DetectorParams
}

// New builds a Controller emitting events to sink.
func New(sink eventbus.Sink, detectorParams model.DetectorParams, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{
		log:            log,
		sink:           sink,
		detectorParams: detectorParams,
	}
}

// Snapshot is a read-only diagnostic view of the Controller's live
// workers (expansion, spec §4.10 — not part of the UI command set).
type Snapshot struct {
	CameraRunning bool
	MicRunning    bool
}

// Snapshot returns the current worker liveness, for diagnostics/logging.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		CameraRunning: c.camera != nil,
		MicRunning:    c.mic != nil,
	}
}

// SettingsChooseCamera opens label as a raw preview feed at width x
// height, with no calibration or shoot session attached.
func (c *Controller) SettingsChooseCamera(label string, width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.camera != nil {
		return ErrCameraRunning
	}

	source, err := videosrc.Open(label, c.log)
	if err != nil {
		return fmt.Errorf("settings_choose_camera: %w", err)
	}

	thresholds := make(chan model.DetectorParams, 1)
	renderer := preview.NewRenderer(c.detectorParams, width, height, thresholds, c.sink, c.log)
	c.thresholds = thresholds

	c.camera = worker.New("camera-preview", c.log, func(cancel <-chan struct{}) {
		defer source.Close()
		defer renderer.Close()
		source.Stream(cancel, renderer.OnFrame)
	})
	return nil
}

// SettingsCloseCamera stops the live camera worker, if any. Idempotent.
func (c *Controller) SettingsCloseCamera() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCameraLocked()
}

func (c *Controller) stopCameraLocked() error {
	if c.camera == nil {
		return nil
	}
	c.camera.Terminate()
	c.camera = nil
	c.thresholds = nil
	return nil
}

// SettingsChooseMic opens label as a volume-meter feed, emitting
// grab_mic_frame per callback with no trigger logic.
func (c *Controller) SettingsChooseMic(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mic != nil {
		return ErrMicRunning
	}

	runner, err := volume.Open(label, c.sink, c.log)
	if err != nil {
		return fmt.Errorf("settings_choose_mic: %w", err)
	}

	c.mic = worker.New("mic-volume", c.log, func(cancel <-chan struct{}) {
		<-cancel
		runner.Close()
	})
	return nil
}

// SettingsCloseMic stops the live mic worker, if any. Idempotent.
func (c *Controller) SettingsCloseMic() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopMicLocked()
}

func (c *Controller) stopMicLocked() error {
	if c.mic == nil {
		return nil
	}
	c.mic.Terminate()
	c.mic = nil
	c.triggers = nil
	return nil
}

// SettingsThreshsChanged hot-reloads the preview session's blob
// detector thresholds (spec: shot-engine thresholds are fixed for a
// session and are not affected by this call).
func (c *Controller) SettingsThreshsChanged(params model.DetectorParams) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detectorParams = params
	if c.thresholds == nil {
		return
	}
	select {
	case c.thresholds <- params:
	default:
		c.log.Warn("dropping threshold update: preview channel full")
	}
}

// StartAudio starts the trigger-producing mic worker: every callback
// buffer crossing threshold, debounced by 5s, is forwarded on the
// Controller's trigger channel for a concurrently-running calibration
// or shoot session to consume.
func (c *Controller) StartAudio(label string, threshold float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mic != nil {
		return ErrMicRunning
	}

	triggers := make(chan time.Time, 1)
	var lastTrigger time.Time

	onSample := func(rms float64) {
		now := time.Now()
		if rms < threshold {
			return
		}
		if !lastTrigger.IsZero() && now.Sub(lastTrigger) < triggerDebounce {
			return
		}
		lastTrigger = now
		select {
		case triggers <- now:
		default:
		}
	}

	source, err := audiosrc.Open(label, onSample, c.log)
	if err != nil {
		return fmt.Errorf("start_audio: %w", err)
	}

	c.triggers = triggers
	c.mic = worker.New("mic-trigger", c.log, func(cancel <-chan struct{}) {
		<-cancel
		source.Close()
	})
	return nil
}

// StartCalibVideo starts a calibration session on label, consuming
// triggers from a concurrently-running StartAudio worker.
func (c *Controller) StartCalibVideo(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.camera != nil {
		return ErrCameraRunning
	}

	source, err := videosrc.Open(label, c.log)
	if err != nil {
		return fmt.Errorf("start_calib_video: %w", err)
	}

	runner := calibrate.NewRunner(time.Now(), c.detectorParams, c.triggers, c.sink, c.log)

	c.camera = worker.New("camera-calibrate", c.log, func(cancel <-chan struct{}) {
		defer source.Close()
		defer runner.Close()
		source.Stream(cancel, func(frame gocv.Mat) bool {
			return runner.OnFrame(frame)
		})
	})
	return nil
}

// StartShootVideo starts a shoot session on label. calibratePoint and
// fineAdjust are supplied once here and held for the session's
// lifetime (spec §9 supplement); upDown selects the Armed-phase
// up/down gating behavior.
func (c *Controller) StartShootVideo(label string, calibratePoint model.CalibrationPoint, fineAdjust model.FineAdjust, upDown bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.camera != nil {
		return ErrCameraRunning
	}

	source, err := videosrc.Open(label, c.log)
	if err != nil {
		return fmt.Errorf("start_shoot_video: %w", err)
	}

	runner := shotengine.NewRunner(time.Now(), calibratePoint, fineAdjust, upDown, c.detectorParams, c.triggers, c.sink, c.log)

	c.camera = worker.New("camera-shoot", c.log, func(cancel <-chan struct{}) {
		defer source.Close()
		defer runner.Close()
		source.Stream(cancel, runner.OnFrame)
	})
	return nil
}

// StopWebcamAndMic stops both the camera and mic workers, if live.
// Idempotent.
func (c *Controller) StopWebcamAndMic() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.stopCameraLocked(); err != nil {
		return err
	}
	return c.stopMicLocked()
}
