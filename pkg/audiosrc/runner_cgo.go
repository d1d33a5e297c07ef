//go:build cgo
// +build cgo

package audiosrc

import (
	"fmt"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"
)

// Source is a live capture device resolved by exact device-name match.
type Source struct {
	log    *logrus.Entry
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// Open resolves label to a capture device by exact name match, builds
// a capture stream in the device's own native format (F32 or S16; any
// other native format is a DeviceOpen error, matching the original
// implementation's cpal::SampleFormat switch), and starts it. onSample
// is invoked, on the device's audio thread, once per callback buffer.
func Open(label string, onSample OnSample, log *logrus.Entry) (*Source, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.WithField("malgo", message).Debug("malgo message")
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("enumerate capture devices: %w", err)
	}

	var deviceID *malgo.DeviceID
	found := false
	for _, info := range infos {
		if info.Name() == label {
			deviceID = &info.ID
			found = true
			break
		}
	}
	if !found {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("capture device %q not found", label)
	}

	full, err := ctx.DeviceInfo(malgo.Capture, *deviceID, malgo.Shared)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("query capture device %q: %w", label, err)
	}
	if full.FormatCount == 0 {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("capture device %q reports no native formats: %w", label, ErrUnsupportedFormat)
	}

	format := full.NativeDataFormats[0].Format
	if format != malgo.FormatF32 && format != malgo.FormatS16 {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("capture device %q: %w", label, ErrUnsupportedFormat)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = format
	deviceConfig.Capture.Channels = 1
	deviceConfig.Capture.DeviceID = deviceID.Pointer()

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			if len(input) == 0 || frameCount == 0 {
				return
			}
			var rms float64
			switch format {
			case malgo.FormatF32:
				rms = RMSFloat32(bytesToFloat32(input))
			case malgo.FormatS16:
				rms = RMSInt16(bytesToInt16(input))
			}
			if onSample != nil {
				onSample(rms)
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("init capture device %q: %w", label, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("start capture device %q: %w", label, err)
	}

	log.WithFields(logrus.Fields{"label": label, "format": format}).Info("audio source opened")

	return &Source{log: log, ctx: ctx, device: device}, nil
}

// Close stops and releases the capture device and context.
func (s *Source) Close() error {
	s.device.Stop()
	s.device.Uninit()
	s.ctx.Uninit()
	s.ctx.Free()
	return nil
}

func bytesToFloat32(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = *(*float32)(unsafe.Pointer(&bits))
	}
	return out
}

func bytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(uint16(b[i*2]) | uint16(b[i*2+1])<<8)
	}
	return out
}
