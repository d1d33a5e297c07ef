//go:build cgo
// +build cgo

// Package previewwindow provides an optional on-screen debug window for
// manual smoke testing from cmd/stasys. It is not part of the
// production pipeline, which delivers frames to the UI as base64
// events over the Event Bus instead.
package previewwindow

import (
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// Window displays frames in a native OpenCV window. OpenCV UI calls
// must happen from a single dedicated OS thread, so Window runs its
// own loop goroutine locked to one.
type Window struct {
	window   *gocv.Window
	frameCh  chan gocv.Mat
	closeCh  chan struct{}
	doneCh   chan struct{}
	once     sync.Once
	initDone chan struct{}
}

// New creates a debug preview window with the given title. Must be
// called from the main goroutine.
func New(title string) *Window {
	w := &Window{
		frameCh:  make(chan gocv.Mat, 1),
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
		initDone: make(chan struct{}),
	}

	go w.loop(title)
	<-w.initDone

	return w
}

func (w *Window) loop(title string) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	w.window = gocv.NewWindow(title)
	close(w.initDone)

	for {
		select {
		case frame := <-w.frameCh:
			w.window.IMShow(frame)
			w.window.WaitKey(1)
			frame.Close()

		case <-w.closeCh:
			if w.window != nil {
				w.window.Close()
			}
			close(w.doneCh)
			return
		}
	}
}

// Show displays frame in the window. The frame is cloned internally,
// so the caller retains ownership of the original. At most one frame
// waits to be shown; a frame arriving while one is already waiting is
// dropped.
func (w *Window) Show(frame gocv.Mat) {
	if frame.Empty() {
		return
	}

	cloned := frame.Clone()

	select {
	case w.frameCh <- cloned:
	default:
		cloned.Close()
	}
}

// Close shuts down the window and its loop goroutine. Idempotent.
func (w *Window) Close() error {
	w.once.Do(func() {
		close(w.closeCh)
		<-w.doneCh
	})
	return nil
}
