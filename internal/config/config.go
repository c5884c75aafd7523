// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"vocalscan/internal/analysis"
	"vocalscan/internal/log"
	"vocalscan/internal/sampler"
)

// Core configuration constants that define the boundaries and defaults of
// the capture and analysis pipeline.
const (
	DefaultChannels        = 1
	DefaultDeviceID        = MinDeviceID
	DefaultFramesPerBuffer = 512
	DefaultLowLatency      = false
	DefaultSampleRate      = 44100
	DefaultLogLevel        = "info"
	DefaultTickInterval    = 16 * time.Millisecond // ~60 analysis frames per second.
	DefaultRecordDuration  = 10 * time.Second
	DefaultWSAddress       = ":8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPSendInterval = 33 * time.Millisecond
	DefaultMetricsPath     = "/metrics"

	// Hardware and processing limits.
	MinDeviceID     = -1 // System default input device.
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MaxChannels     = 32
)

// Config represents the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Sampler   SamplerConfig   `yaml:"sampler"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Session   SessionConfig   `yaml:"session"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AudioConfig holds the capture device settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low input latency.
	InputChannels   int     `yaml:"input_channels"`    // Channel 0 is analysed.
}

// SamplerConfig shapes the analysis frames.
type SamplerConfig struct {
	TransformSize int     `yaml:"transform_size"`
	Smoothing     float64 `yaml:"smoothing"`
	MinDecibels   float64 `yaml:"min_decibels"`
	MaxDecibels   float64 `yaml:"max_decibels"`
	Window        string  `yaml:"window"`
}

// AnalysisConfig exposes the estimator tuning and the summary gate.
type AnalysisConfig struct {
	analysis.Params `yaml:",inline"`
	Gate            analysis.AccumulatorParams `yaml:"gate"`
}

// SessionConfig controls the analysis loop.
type SessionConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Duration     time.Duration `yaml:"duration"` // Length of a headless recording.
}

// TransportConfig holds settings for publishing frames and summaries.
type TransportConfig struct {
	WebSocketEnabled  bool          `yaml:"ws_enabled"`
	WebSocketAddress  string        `yaml:"ws_address"`
	WebSocketSpectrum bool          `yaml:"ws_spectrum"` // Include quantized bins in frame messages.
	LogFrames         bool          `yaml:"log_frames"`  // Log every message at debug level.
	UDPEnabled        bool          `yaml:"udp_enabled"`
	UDPTargetAddress  string        `yaml:"udp_target_address"`
	UDPSendInterval   time.Duration `yaml:"udp_send_interval"`
}

// MetricsConfig controls the Prometheus endpoint, served next to the socket.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultChannels,
		},
		Sampler: SamplerConfig{
			TransformSize: sampler.DefaultTransformSize,
			Smoothing:     sampler.DefaultSmoothing,
			MinDecibels:   sampler.DefaultMinDecibels,
			MaxDecibels:   sampler.DefaultMaxDecibels,
			Window:        sampler.Blackman.String(),
		},
		Analysis: AnalysisConfig{
			Params: analysis.DefaultParams(),
			Gate:   analysis.DefaultAccumulatorParams(),
		},
		Session: SessionConfig{
			TickInterval: DefaultTickInterval,
			Duration:     DefaultRecordDuration,
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			WebSocketAddress: DefaultWSAddress,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

// Level returns the effective log level; Debug wins over LogLevel.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// SamplerConfig builds the sampler settings for the configured sample rate.
func (c *Config) SamplerConfig() (sampler.Config, error) {
	window, err := sampler.ParseWindowFunc(c.Sampler.Window)
	if err != nil {
		return sampler.Config{}, err
	}
	return sampler.Config{
		SampleRate:    c.Audio.SampleRate,
		TransformSize: c.Sampler.TransformSize,
		Smoothing:     c.Sampler.Smoothing,
		MinDecibels:   c.Sampler.MinDecibels,
		MaxDecibels:   c.Sampler.MaxDecibels,
		Window:        window,
	}, nil
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	errs = append(errs, c.Audio.validate())

	if sc, err := c.SamplerConfig(); err != nil {
		errs = append(errs, fmt.Errorf("sampler: %w", err))
	} else if err := sc.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sampler: %w", err))
	}

	errs = append(errs, c.Analysis.validate(), c.Session.validate(), c.Transport.validate())
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		errs = append(errs, errors.New("metrics.path must be set when metrics are enabled"))
	}
	return errors.Join(errs...)
}

func (a AudioConfig) validate() error {
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %v", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be in [1, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels < 1 || a.InputChannels > MaxChannels {
		return fmt.Errorf("audio.input_channels must be in [1, %d], got %d", MaxChannels, a.InputChannels)
	}
	return nil
}

func (a AnalysisConfig) validate() error {
	p := a.Params
	switch {
	case !(p.CorrelationThreshold > 0 && p.CorrelationThreshold < 1):
		return fmt.Errorf("analysis.correlation_threshold must be in (0, 1), got %v", p.CorrelationThreshold)
	case p.MinLag < 2:
		return fmt.Errorf("analysis.min_lag must be >= 2, got %d", p.MinLag)
	case p.SmoothingHalfWindow < 0:
		return fmt.Errorf("analysis.smoothing_half_window must be >= 0, got %d", p.SmoothingHalfWindow)
	case p.MinPeakBin < 1:
		return fmt.Errorf("analysis.min_peak_bin must be >= 1, got %d", p.MinPeakBin)
	case !(p.BinCorrection > 0):
		return fmt.Errorf("analysis.bin_correction must be positive, got %v", p.BinCorrection)
	case !(p.F1Band.LowHz < p.F1Band.HighHz):
		return fmt.Errorf("analysis.f1_band is empty: %+v", p.F1Band)
	case !(p.F2Band.LowHz < p.F2Band.HighHz):
		return fmt.Errorf("analysis.f2_band is empty: %+v", p.F2Band)
	}
	return nil
}

func (s SessionConfig) validate() error {
	if s.TickInterval <= 0 {
		return fmt.Errorf("session.tick_interval must be positive, got %s", s.TickInterval)
	}
	if s.Duration < 0 {
		return fmt.Errorf("session.duration must not be negative, got %s", s.Duration)
	}
	return nil
}

func (t TransportConfig) validate() error {
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return errors.New("transport.ws_address must be set when the websocket is enabled")
	}
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return errors.New("transport.udp_target_address must be set when UDP is enabled")
		}
		if _, _, err := net.SplitHostPort(t.UDPTargetAddress); err != nil {
			return fmt.Errorf("transport.udp_target_address %q is invalid: %w", t.UDPTargetAddress, err)
		}
		if t.UDPSendInterval <= 0 {
			return errors.New("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	return nil
}
