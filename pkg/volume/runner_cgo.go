//go:build cgo
// +build cgo

package volume

import (
	"github.com/sirupsen/logrus"

	"github.com/msundarmsa/stasys/pkg/audiosrc"
	"github.com/msundarmsa/stasys/pkg/eventbus"
)

// Runner owns the live audio device backing one volume-meter session.
type Runner struct {
	source *audiosrc.Source
}

// Open starts streaming RMS readings from the named capture device to sink.
func Open(label string, sink eventbus.Sink, log *logrus.Entry) (*Runner, error) {
	source, err := audiosrc.Open(label, NewSink(sink), log)
	if err != nil {
		return nil, err
	}
	return &Runner{source: source}, nil
}

// Close stops the capture device.
func (r *Runner) Close() error {
	return r.source.Close()
}
