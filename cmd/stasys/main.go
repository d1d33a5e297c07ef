// Package main provides the CLI wrapper for STASYS, driving the
// Controller directly for manual/headless testing. There is no bundled
// UI; a real frontend would talk to the Controller and Event Bus over
// whatever IPC layer hosts it (e.g. a Tauri or gRPC shim) instead of
// this binary.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/msundarmsa/stasys/internal/applog"
	"github.com/msundarmsa/stasys/internal/config"
	"github.com/msundarmsa/stasys/pkg/eventbus"
	"github.com/msundarmsa/stasys/pkg/model"
	"github.com/msundarmsa/stasys/pkg/previewwindow"

	"github.com/msundarmsa/stasys/pkg/controller"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	cameraLabel := flag.String("camera", "", "Camera device label or file path (overrides config)")
	micLabel := flag.String("mic", "", "Microphone device label (overrides config)")
	mode := flag.String("mode", "preview", "Session mode: preview, calibrate, or shoot")
	upDown := flag.Bool("up-down", false, "Require rise-then-descend before arming a shoot session (overrides config)")
	preview := flag.Bool("preview", false, "Show a native camera preview window (debug mode)")
	verbose := flag.Bool("verbose", false, "Log the session settings and every received event")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "STASYS - real-time shooting-sports sensor pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -mode preview                      # stream a raw annotated preview\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mode calibrate -camera 0 -mic default\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mode shoot -up-down               # start a shoot session\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mode preview -preview             # also show a native preview window\n", os.Args[0])
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("STASYS version %s\n", version)
		os.Exit(0)
	}

	logger := applog.New()
	log := logger.WithField("component", "cmd")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *cameraLabel != "" {
		cfg.Camera.Label = *cameraLabel
	}
	if *micLabel != "" {
		cfg.Audio.Label = *micLabel
	}
	if *upDown {
		cfg.Shoot.UpDown = true
	}

	if *verbose {
		log.Infof("camera: label=%s %dx%d", cfg.Camera.Label, cfg.Camera.Width, cfg.Camera.Height)
		log.Infof("audio: label=%s threshold=%.3f", cfg.Audio.Label, cfg.Audio.Threshold)
		log.Infof("detector: min=%.1f max=%.1f", cfg.Detector.MinThreshold, cfg.Detector.MaxThreshold)
	}

	sink := eventbus.NewChannelSink(64, log)
	defer sink.Close()

	var previewWin *previewwindow.Window
	if *preview {
		previewWin = previewwindow.New("STASYS Preview")
		defer previewWin.Close()
		log.Info("preview window enabled")
	}

	params := model.DefaultDetectorParams(cfg.Detector.MinThreshold, cfg.Detector.MaxThreshold)
	ctrl := controller.New(sink, params, log)

	switch *mode {
	case "preview":
		if err := ctrl.SettingsChooseCamera(cfg.Camera.Label, cfg.Camera.Width, cfg.Camera.Height); err != nil {
			log.Fatalf("failed to start preview: %v", err)
		}
	case "calibrate":
		if err := ctrl.StartAudio(cfg.Audio.Label, cfg.Audio.Threshold); err != nil {
			log.Fatalf("failed to start audio trigger: %v", err)
		}
		if err := ctrl.StartCalibVideo(cfg.Camera.Label); err != nil {
			log.Fatalf("failed to start calibration: %v", err)
		}
	case "shoot":
		if err := ctrl.StartAudio(cfg.Audio.Label, cfg.Audio.Threshold); err != nil {
			log.Fatalf("failed to start audio trigger: %v", err)
		}
		calibratePoint := model.CalibrationPoint{XPx: cfg.Calibration.XPx, YPx: cfg.Calibration.YPx}
		fineAdjust := model.FineAdjust{DxMM: cfg.Shoot.FineAdjustXMM, DyMM: cfg.Shoot.FineAdjustYMM}
		if err := ctrl.StartShootVideo(cfg.Camera.Label, calibratePoint, fineAdjust, cfg.Shoot.UpDown); err != nil {
			log.Fatalf("failed to start shoot session: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q: expected preview, calibrate, or shoot", *mode)
	}

	log.Info("session started, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case sig := <-sigCh:
			log.Infof("received signal %v, shutting down", sig)
			ctrl.StopWebcamAndMic()
			return

		case ev, ok := <-sink.Events():
			if !ok {
				return
			}
			if *verbose {
				log.Infof("event: %s", ev.Name)
			}
			if previewWin != nil && ev.Name == eventbus.GrabCameraFrame {
				showPreviewFrame(previewWin, ev.Payload, cfg.Camera.Width, cfg.Camera.Height, log)
			}
		}
	}
}

// showPreviewFrame decodes a grab_camera_frame payload (base64-encoded
// raw RGBA bytes at width x height, per pkg/preview's renderer) back
// into a Mat and shows it in the debug preview window.
func showPreviewFrame(win *previewwindow.Window, payload any, width, height int, log *logrus.Entry) {
	encoded, ok := payload.(string)
	if !ok {
		return
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		log.WithError(err).Warn("failed to decode preview frame")
		return
	}
	frame, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, raw)
	if err != nil {
		log.WithError(err).Warn("failed to decode preview frame")
		return
	}
	defer frame.Close()
	win.Show(frame)
}
