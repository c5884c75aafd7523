// SPDX-License-Identifier: MIT
package sampler

import (
	"math"
	"testing"

	"vocalscan/internal/analysis"
	"vocalscan/internal/testsignal"
)

const (
	testSampleRate    = 44100
	testTransformSize = 2048
)

func newTestSampler(t *testing.T, mutate func(*Config)) *Sampler {
	t.Helper()
	cfg := DefaultConfig(testSampleRate)
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Default", func(*Config) {}, false},
		{"Smallest", func(c *Config) { c.TransformSize = 32 }, false},
		{"Largest", func(c *Config) { c.TransformSize = 32768 }, false},
		{"Not Power Of Two", func(c *Config) { c.TransformSize = 2000 }, true},
		{"Too Small", func(c *Config) { c.TransformSize = 16 }, true},
		{"Too Large", func(c *Config) { c.TransformSize = 65536 }, true},
		{"Zero Sample Rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"NaN Sample Rate", func(c *Config) { c.SampleRate = math.NaN() }, true},
		{"Negative Smoothing", func(c *Config) { c.Smoothing = -0.1 }, true},
		{"Smoothing Above One", func(c *Config) { c.Smoothing = 1.1 }, true},
		{"Inverted Range", func(c *Config) { c.MinDecibels, c.MaxDecibels = -30, -100 }, true},
		{"Unknown Window", func(c *Config) { c.Window = WindowFunc(99) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(testSampleRate)
			tt.mutate(&cfg)
			_, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGeometry(t *testing.T) {
	s := newTestSampler(t, nil)
	if s.SampleRate() != testSampleRate || s.TransformSize() != testTransformSize || s.BinCount() != testTransformSize/2 {
		t.Errorf("geometry = (%v, %d, %d)", s.SampleRate(), s.TransformSize(), s.BinCount())
	}
}

func TestTimeDomainOldestFirst(t *testing.T) {
	s := newTestSampler(t, func(c *Config) { c.TransformSize = 32 })

	// Two partial writes that wrap the ring.
	first := make([]float64, 20)
	second := make([]float64, 25)
	for i := range first {
		first[i] = float64(i)
	}
	for i := range second {
		second[i] = float64(len(first) + i)
	}
	s.Write(first)
	s.Write(second)

	got := make([]float64, 32)
	if err := s.TimeDomainInto(got); err != nil {
		t.Fatalf("TimeDomainInto() error = %v", err)
	}
	// 45 samples written; the newest 32 are 13..44.
	for i, v := range got {
		if want := float64(13 + i); v != want {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestWriteLongerThanRing(t *testing.T) {
	s := newTestSampler(t, func(c *Config) { c.TransformSize = 32 })
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i)
	}
	s.Write(samples)

	got := make([]float64, 32)
	_ = s.TimeDomainInto(got)
	if got[0] != 68 || got[31] != 99 {
		t.Errorf("window = [%v .. %v], want [68 .. 99]", got[0], got[31])
	}
}

func TestWriteInt32Normalizes(t *testing.T) {
	s := newTestSampler(t, func(c *Config) { c.TransformSize = 32 })
	s.WriteInt32([]int32{math.MinInt32, 0, math.MaxInt32, 1 << 30})

	got := make([]float64, 32)
	_ = s.TimeDomainInto(got)
	tail := got[28:]
	if tail[0] != -1 || tail[1] != 0 || tail[3] != 0.5 {
		t.Errorf("normalized = %v, want [-1 0 ~1 0.5]", tail)
	}
	if math.Abs(tail[2]-1) > 1e-9 {
		t.Errorf("MaxInt32 normalized to %v, want ~1", tail[2])
	}
}

func TestSpectrumPeak(t *testing.T) {
	s := newTestSampler(t, func(c *Config) {
		c.Smoothing = 0
		c.MaxDecibels = 0
	})
	const bin = 40
	freq := float64(bin) * testSampleRate / testTransformSize
	s.Write(testsignal.Sine(testTransformSize, testSampleRate, freq, 0.5))

	time := make([]float64, s.TransformSize())
	spectrum := make([]uint8, s.BinCount())
	if err := s.Frame(time, spectrum); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if got := testsignal.PeakBinUint8(spectrum, 1, len(spectrum)-1); got != bin {
		t.Errorf("peak bin = %d, want %d", got, bin)
	}
	if spectrum[bin] == 255 || spectrum[bin] == 0 {
		t.Errorf("peak value = %d, want inside the quantized range", spectrum[bin])
	}
	if spectrum[400] != 0 {
		t.Errorf("far bin = %d, want 0", spectrum[400])
	}
}

func TestSpectrumSilence(t *testing.T) {
	s := newTestSampler(t, nil)
	spectrum := make([]uint8, s.BinCount())
	for i := range spectrum {
		spectrum[i] = 7
	}
	if err := s.FrequencyInto(spectrum); err != nil {
		t.Fatalf("FrequencyInto() error = %v", err)
	}
	for i, v := range spectrum {
		if v != 0 {
			t.Fatalf("bin %d = %d, want 0 for silence", i, v)
		}
	}
}

func TestSpectrumSmoothing(t *testing.T) {
	s := newTestSampler(t, nil)
	const bin = 40
	freq := float64(bin) * testSampleRate / testTransformSize
	s.Write(testsignal.Sine(testTransformSize, testSampleRate, freq, 0.5))

	first := make([]uint8, s.BinCount())
	second := make([]uint8, s.BinCount())
	_ = s.FrequencyInto(first)
	_ = s.FrequencyInto(second)

	// With smoothing the magnitude converges on the steady tone from below.
	if !(second[bin] > first[bin]) {
		t.Errorf("smoothed peak %d -> %d, want rising", first[bin], second[bin])
	}
}

func TestReset(t *testing.T) {
	s := newTestSampler(t, nil)
	s.Write(testsignal.Sine(testTransformSize, testSampleRate, 440, 0.5))
	_ = s.FrequencyInto(make([]uint8, s.BinCount()))
	s.Reset()

	time := make([]float64, s.TransformSize())
	spectrum := make([]uint8, s.BinCount())
	if err := s.Frame(time, spectrum); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	for i := range time {
		if time[i] != 0 {
			t.Fatalf("sample %d = %v after Reset, want 0", i, time[i])
		}
	}
	for i := range spectrum {
		if spectrum[i] != 0 {
			t.Fatalf("bin %d = %d after Reset, want 0", i, spectrum[i])
		}
	}
}

func TestFrameLengthMismatch(t *testing.T) {
	s := newTestSampler(t, nil)
	tests := []struct {
		name       string
		time, bins int
	}{
		{"Short Time", testTransformSize - 1, testTransformSize / 2},
		{"Long Spectrum", testTransformSize, testTransformSize/2 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Frame(make([]float64, tt.time), make([]uint8, tt.bins)); err == nil {
				t.Error("Frame() error = nil, want length error")
			}
		})
	}
	if err := s.TimeDomainInto(make([]float64, 3)); err == nil {
		t.Error("TimeDomainInto() error = nil, want length error")
	}
	if err := s.FrequencyInto(make([]uint8, 3)); err == nil {
		t.Error("FrequencyInto() error = nil, want length error")
	}
}

func TestAnalysisFramePitch(t *testing.T) {
	s := newTestSampler(t, nil)
	s.WriteInt32(testsignal.SineInt32(testTransformSize, testSampleRate, 220, 0.5))

	frame, err := s.AnalysisFrame(make([]float64, s.TransformSize()), make([]uint8, s.BinCount()))
	if err != nil {
		t.Fatalf("AnalysisFrame() error = %v", err)
	}
	if frame.SampleRate != testSampleRate || frame.TransformSize != testTransformSize {
		t.Errorf("frame geometry = (%v, %d)", frame.SampleRate, frame.TransformSize)
	}
	d := analysis.NewAnalyzer(analysis.DefaultParams()).Analyze(frame)
	if math.Abs(d.PitchHz-220)/220 > 0.02 {
		t.Errorf("PitchHz = %f, want ~220", d.PitchHz)
	}
}

func TestFrameZeroAllocs(t *testing.T) {
	s := newTestSampler(t, nil)
	s.Write(testsignal.Vowel(testTransformSize, testSampleRate, 180, 0.4))
	time := make([]float64, s.TransformSize())
	spectrum := make([]uint8, s.BinCount())
	input := testsignal.SineInt32(256, testSampleRate, 440, 0.5)

	allocs := testing.AllocsPerRun(50, func() {
		s.WriteInt32(input)
		_ = s.Frame(time, spectrum)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Frame hot path, got %.1f", allocs)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"", Blackman, false},
		{"Blackman", Blackman, false},
		{"hanning", Hann, false},
		{"HAMMING", Hamming, false},
		{"nuttall", Nuttall, false},
		{"none", Rectangular, false},
		{"kaiser", Blackman, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.name)
			if got != tt.want || (err != nil) != tt.wantErr {
				t.Errorf("ParseWindowFunc(%q) = %v, %v; want %v, wantErr %v", tt.name, got, err, tt.want, tt.wantErr)
			}
		})
	}
	if Hann.String() != "hann" {
		t.Errorf("Hann.String() = %q", Hann.String())
	}
}

func BenchmarkFrame(b *testing.B) {
	s, _ := New(DefaultConfig(testSampleRate))
	s.Write(testsignal.Vowel(testTransformSize, testSampleRate, 180, 0.4))
	time := make([]float64, s.TransformSize())
	spectrum := make([]uint8, s.BinCount())
	b.ReportAllocs()

	for b.Loop() {
		_ = s.Frame(time, spectrum)
	}
}
