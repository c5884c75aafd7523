// SPDX-License-Identifier: MIT
//
// Package sampler turns a stream of audio samples into analysis frames: the
// most recent TransformSize samples, and a smoothed, quantized magnitude
// spectrum of them. It behaves like a browser AnalyserNode, which the
// estimator thresholds are tuned against.
package sampler

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"vocalscan/internal/analysis"
	"vocalscan/pkg/bitint"
)

const (
	MinTransformSize = 32
	MaxTransformSize = 32768

	DefaultTransformSize = 2048
	DefaultSmoothing     = 0.8
	DefaultMinDecibels   = -100.0
	DefaultMaxDecibels   = -30.0

	// int32 capture samples are normalized by 2^31.
	int32Scale = 1.0 / float64(0x80000000)
)

// Config describes the sampler geometry and spectrum mapping.
type Config struct {
	SampleRate    float64
	TransformSize int
	Smoothing     float64 // Weight of the previous spectrum, in [0, 1].
	MinDecibels   float64 // Maps to byte 0.
	MaxDecibels   float64 // Maps to byte 255.
	Window        WindowFunc
}

// DefaultConfig returns the reference analyser settings at sampleRate.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		SampleRate:    sampleRate,
		TransformSize: DefaultTransformSize,
		Smoothing:     DefaultSmoothing,
		MinDecibels:   DefaultMinDecibels,
		MaxDecibels:   DefaultMaxDecibels,
		Window:        Blackman,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("sample rate must be positive, got %v", c.SampleRate)
	}
	if !bitint.IsPowerOfTwo(c.TransformSize) || c.TransformSize < MinTransformSize || c.TransformSize > MaxTransformSize {
		return fmt.Errorf("transform size must be a power of 2 in [%d, %d], got %d (nearest %d)",
			MinTransformSize, MaxTransformSize, c.TransformSize, bitint.NextPowerOfTwo(c.TransformSize))
	}
	if !(c.Smoothing >= 0 && c.Smoothing <= 1) {
		return fmt.Errorf("smoothing must be in [0, 1], got %v", c.Smoothing)
	}
	if !(c.MinDecibels < c.MaxDecibels) {
		return fmt.Errorf("min decibels %v must be below max decibels %v", c.MinDecibels, c.MaxDecibels)
	}
	return nil
}

// Pre-allocated buffers, guarded by Sampler.mu.
type workspace struct {
	ring     []float64    // Last TransformSize samples, ring[pos] is the oldest.
	pos      int          // Next write index.
	input    []float64    // Windowed copy of the ring.
	coeffs   []complex128 // Transform output, N/2+1 values.
	smoothed []float64    // Smoothed linear magnitudes, N/2 values.
	window   []float64
}

// Sampler is safe for one writer (the capture callback) and concurrent
// readers.
type Sampler struct {
	cfg   Config
	fft   *fourier.FFT
	scale float64 // 255 / (max - min)
	mu    sync.Mutex
	ws    workspace
}

// New creates a Sampler. The ring starts silent.
func New(cfg Config) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	coeffs, err := cfg.Window.coefficients(cfg.TransformSize)
	if err != nil {
		return nil, err
	}
	n := cfg.TransformSize
	return &Sampler{
		cfg:   cfg,
		fft:   fourier.NewFFT(n),
		scale: 255 / (cfg.MaxDecibels - cfg.MinDecibels),
		ws: workspace{
			ring:     make([]float64, n),
			input:    make([]float64, n),
			coeffs:   make([]complex128, n/2+1),
			smoothed: make([]float64, n/2),
			window:   coeffs,
		},
	}, nil
}

// SampleRate returns the configured rate in Hz.
func (s *Sampler) SampleRate() float64 { return s.cfg.SampleRate }

// TransformSize returns the number of samples per frame.
func (s *Sampler) TransformSize() int { return s.cfg.TransformSize }

// BinCount returns the number of spectrum bins, TransformSize/2.
func (s *Sampler) BinCount() int { return s.cfg.TransformSize / 2 }

// Config returns the settings in use.
func (s *Sampler) Config() Config { return s.cfg }

// Write appends normalized samples. Only the newest TransformSize are kept.
func (s *Sampler) Write(samples []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.ws.ring)
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	for _, v := range samples {
		s.ws.ring[s.ws.pos] = v
		s.ws.pos++
		if s.ws.pos == n {
			s.ws.pos = 0
		}
	}
}

// WriteInt32 appends full-scale int32 samples as delivered by the capture
// stream. It does not allocate.
func (s *Sampler) WriteInt32(samples []int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.ws.ring)
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	for _, v := range samples {
		s.ws.ring[s.ws.pos] = float64(v) * int32Scale
		s.ws.pos++
		if s.ws.pos == n {
			s.ws.pos = 0
		}
	}
}

// Frame fills time with the newest samples, oldest first, and spectrum with the
// quantized magnitudes of the same samples, as one consistent snapshot. time
// must hold TransformSize values and spectrum BinCount values.
func (s *Sampler) Frame(time []float64, spectrum []uint8) error {
	if err := s.checkLengths(len(time), len(spectrum)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.copyTime(time)
	s.transform()
	s.quantize(spectrum)
	return nil
}

// AnalysisFrame wraps the buffers filled by Frame with the sampler geometry.
func (s *Sampler) AnalysisFrame(time []float64, spectrum []uint8) (analysis.Frame, error) {
	if err := s.Frame(time, spectrum); err != nil {
		return analysis.Frame{}, err
	}
	return analysis.Frame{
		Time:          time,
		Spectrum:      spectrum,
		SampleRate:    s.cfg.SampleRate,
		TransformSize: s.cfg.TransformSize,
	}, nil
}

// TimeDomainInto copies the newest TransformSize samples into dst, oldest
// first. It and FrequencyInto serve consumers that need only one of the two
// views; the analysis loop reads both through Frame so they describe the same
// samples.
func (s *Sampler) TimeDomainInto(dst []float64) error {
	if len(dst) != s.cfg.TransformSize {
		return fmt.Errorf("time buffer length %d does not match transform size %d", len(dst), s.cfg.TransformSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.copyTime(dst)
	return nil
}

// FrequencyInto computes a new smoothed spectrum and quantizes it into dst.
// Every call advances the smoothing, as with Frame.
func (s *Sampler) FrequencyInto(dst []uint8) error {
	if len(dst) != s.BinCount() {
		return fmt.Errorf("spectrum buffer length %d does not match bin count %d", len(dst), s.BinCount())
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transform()
	s.quantize(dst)
	return nil
}

// Reset silences the ring and clears the smoothing history.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.ws.ring)
	clear(s.ws.smoothed)
	s.ws.pos = 0
}

func (s *Sampler) checkLengths(timeLen, spectrumLen int) error {
	if timeLen != s.cfg.TransformSize {
		return fmt.Errorf("time buffer length %d does not match transform size %d", timeLen, s.cfg.TransformSize)
	}
	if spectrumLen != s.BinCount() {
		return fmt.Errorf("spectrum buffer length %d does not match bin count %d", spectrumLen, s.BinCount())
	}
	return nil
}

func (s *Sampler) copyTime(dst []float64) {
	k := copy(dst, s.ws.ring[s.ws.pos:])
	copy(dst[k:], s.ws.ring[:s.ws.pos])
}

// transform windows the ring, runs the FFT and folds |X|/N into the smoothed
// magnitudes.
func (s *Sampler) transform() {
	s.copyTime(s.ws.input)
	for i, w := range s.ws.window {
		s.ws.input[i] *= w
	}
	s.fft.Coefficients(s.ws.coeffs, s.ws.input)

	tau := s.cfg.Smoothing
	norm := 1 / float64(s.cfg.TransformSize)
	for i := range s.ws.smoothed {
		mag := cmplx.Abs(s.ws.coeffs[i]) * norm
		v := tau*s.ws.smoothed[i] + (1-tau)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		s.ws.smoothed[i] = v
	}
}

// quantize maps the smoothed magnitudes from [MinDecibels, MaxDecibels] onto
// [0, 255].
func (s *Sampler) quantize(dst []uint8) {
	for i, mag := range s.ws.smoothed {
		db := 20 * math.Log10(mag)
		dst[i] = toByte(s.scale * (db - s.cfg.MinDecibels))
	}
}

func toByte(v float64) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
