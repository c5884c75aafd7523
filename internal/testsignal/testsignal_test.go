// SPDX-License-Identifier: MIT
package testsignal

import (
	"math"
	"testing"
)

func TestSine(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
	}{
		{"A3", 2048, 44100, 220},
		{"A4", 1024, 44100, 440},
		{"Low Sample Rate", 1024, 8000, 440},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Sine(tt.size, tt.sampleRate, tt.frequency, 0.5)
			if len(buf) != tt.size {
				t.Fatalf("Sine() size = %d, want %d", len(buf), tt.size)
			}

			crossings := 0
			for i := 1; i < len(buf); i++ {
				if buf[i-1] < 0 && buf[i] >= 0 {
					crossings++
				}
			}
			cycles := float64(tt.size) * tt.frequency / tt.sampleRate
			if math.Abs(float64(crossings)-cycles) > 1.5 {
				t.Errorf("Sine() rising crossings = %d, want ~%.1f", crossings, cycles)
			}
		})
	}
}

func TestNoiseDeterministic(t *testing.T) {
	a := Noise(256, 0.1, 7)
	b := Noise(256, 0.1, 7)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Noise() sample %d differs between identical seeds", i)
		}
		if math.Abs(a[i]) > 0.1 {
			t.Fatalf("Noise() sample %d = %f exceeds amplitude", i, a[i])
		}
	}
}

func TestSpectrumHumps(t *testing.T) {
	spec := Spectrum(128, 10, Hump{Bin: 12, Peak: 200, Sigma: 3}, Hump{Bin: 35, Peak: 200, Sigma: 3})

	if spec[12] != 200 || spec[35] != 200 {
		t.Errorf("hump centres = %d, %d, want 200, 200", spec[12], spec[35])
	}
	if spec[100] != 10 {
		t.Errorf("floor = %d, want 10", spec[100])
	}
	if got := PeakBinUint8(spec, 0, 20); got != 12 {
		t.Errorf("PeakBinUint8() = %d, want 12", got)
	}
}

func TestFormantBin(t *testing.T) {
	if got := FormantBin(500, 44100, 2048, 2); got != 12 {
		t.Errorf("FormantBin(500) = %d, want 12", got)
	}
	if got := FormantBin(1500, 44100, 2048, 2); got != 35 {
		t.Errorf("FormantBin(1500) = %d, want 35", got)
	}
}

func TestPeakBin(t *testing.T) {
	values := []float64{0, 1, 5, 2, 9, 3}
	tests := []struct {
		start, end, want int
	}{
		{0, 5, 4},
		{0, 3, 2},
		{-3, 99, 4},
	}
	for _, tt := range tests {
		if got := PeakBin(values, tt.start, tt.end); got != tt.want {
			t.Errorf("PeakBin(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
	if got := PeakBin(nil, 0, 3); got != 0 {
		t.Errorf("PeakBin(nil) = %d, want 0", got)
	}
}
