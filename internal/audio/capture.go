// SPDX-License-Identifier: MIT
/*
Package audio captures microphone input with PortAudio and feeds it to the
analysis sampler.

Thread Safety:
  - The stream callback runs on a PortAudio thread and only touches
    pre-allocated buffers, so the hot path does not allocate.
  - The input peak is published atomically for meters on other goroutines.
*/
package audio

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"vocalscan/internal/config"
	"vocalscan/internal/log"
)

// SampleWriter receives mono int32 samples from the capture callback. It is
// called from the real-time thread and must not block for long.
type SampleWriter interface {
	WriteInt32(samples []int32)
}

// Capture owns one PortAudio input stream.
type Capture struct {
	cfg     config.AudioConfig
	writer  SampleWriter
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream

	mono      []int32 // Channel 0 of an interleaved buffer.
	peak      atomic.Int32
	callbacks atomic.Uint64
}

// NewCapture resolves the configured input device and prepares buffers. The
// stream is opened by Start.
func NewCapture(cfg config.AudioConfig, w SampleWriter) (*Capture, error) {
	if w == nil {
		return nil, errors.New("audio: nil sample writer")
	}
	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	if cfg.InputChannels > device.MaxInputChannels {
		return nil, fmt.Errorf("device %s supports %d input channels, %d requested",
			device.Name, device.MaxInputChannels, cfg.InputChannels)
	}

	c := newCapture(cfg, w)
	c.device = device
	if cfg.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}
	return c, nil
}

func newCapture(cfg config.AudioConfig, w SampleWriter) *Capture {
	return &Capture{
		cfg:    cfg,
		writer: w,
		mono:   make([]int32, cfg.FramesPerBuffer),
	}
}

// Start opens and starts the input stream.
func (c *Capture) Start() error {
	if c.stream != nil {
		return errors.New("audio: capture already started")
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.cfg.InputChannels,
			Device:   c.device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: c.cfg.FramesPerBuffer,
		SampleRate:      c.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.process)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	c.stream = stream

	log.Infof("audio: capturing from %q (%d ch, %.0f Hz, %d frames, latency %s)",
		c.device.Name, c.cfg.InputChannels, c.cfg.SampleRate, c.cfg.FramesPerBuffer, c.latency)
	return nil
}

// Stop stops and closes the stream. It is safe to call more than once.
func (c *Capture) Stop() error {
	if c.stream == nil {
		return nil
	}
	stream := c.stream
	c.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	log.Debugf("audio: capture stopped after %d callbacks", c.callbacks.Load())
	return nil
}

// Close is Stop, for use with defer and io.Closer.
func (c *Capture) Close() error {
	return c.Stop()
}

// DeviceName returns the name of the capture device.
func (c *Capture) DeviceName() string {
	if c.device == nil {
		return ""
	}
	return c.device.Name
}

// Peak returns the absolute peak of the most recent callback buffer in
// [0, 1].
func (c *Capture) Peak() float64 {
	return peakRatio(c.peak.Load())
}

// process is the stream callback. Interleaved input is reduced to channel 0.
func (c *Capture) process(in []int32) {
	c.callbacks.Add(1)

	mono := in
	if ch := c.cfg.InputChannels; ch > 1 {
		frames := min(len(in)/ch, len(c.mono))
		for i := range frames {
			c.mono[i] = in[i*ch]
		}
		mono = c.mono[:frames]
	}

	c.peak.Store(peakAmplitude(mono))
	c.writer.WriteInt32(mono)
}
