// SPDX-License-Identifier: MIT
//
// Package testsignal generates deterministic audio buffers and spectra for
// tests and benchmarks across the engine.
package testsignal

import (
	"math"
	"math/rand/v2"
)

// Sine returns size samples of a sine wave at frequency Hz with the given peak
// amplitude.
func Sine(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// SineInt32 returns a sine wave scaled to the int32 range, the format delivered
// by the capture callback.
func SineInt32(size int, sampleRate, frequency, amplitude float64) []int32 {
	buffer := make([]int32, size)
	for i, v := range Sine(size, sampleRate, frequency, amplitude) {
		buffer[i] = int32(v * math.MaxInt32)
	}
	return buffer
}

// Vowel returns a voice-like signal: a fundamental with decaying harmonics.
func Vowel(size int, sampleRate, fundamental, amplitude float64) []float64 {
	buffer := make([]float64, size)
	weights := []float64{0.5, 0.3, 0.2}
	for i := range buffer {
		t := float64(i) / sampleRate
		var v float64
		for h, w := range weights {
			v += w * math.Sin(2*math.Pi*fundamental*float64(h+1)*t)
		}
		buffer[i] = amplitude * v
	}
	return buffer
}

// Noise returns uniform white noise in [-amplitude, amplitude] from a seeded
// generator, so repeated calls with the same seed are identical.
func Noise(size int, amplitude float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	buffer := make([]float64, size)
	for i := range buffer {
		buffer[i] = amplitude * (2*rng.Float64() - 1)
	}
	return buffer
}

// Hump describes a Gaussian bump in a quantized spectrum.
type Hump struct {
	Bin   int     // Centre bin.
	Peak  float64 // Value at the centre bin.
	Sigma float64 // Width in bins.
}

// Spectrum returns bins quantized magnitudes resting at floor with the given
// humps added on top. Values are rounded and clamped to [0, 255].
func Spectrum(bins int, floor float64, humps ...Hump) []uint8 {
	out := make([]uint8, bins)
	for i := range out {
		v := floor
		for _, h := range humps {
			d := float64(i - h.Bin)
			v += (h.Peak - floor) * math.Exp(-d*d/(2*h.Sigma*h.Sigma))
		}
		out[i] = uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	return out
}

// FormantBin returns the spectrum bin that the formant estimator maps to hz,
// given its bin correction factor.
func FormantBin(hz, sampleRate float64, transformSize int, correction float64) int {
	return int(math.Round(hz / (sampleRate / float64(transformSize) * correction)))
}

// PeakBin returns the index of the largest value in values[start:end+1].
func PeakBin(values []float64, start, end int) int {
	if len(values) == 0 {
		return 0
	}
	start = max(start, 0)
	end = min(end, len(values)-1)

	peak := start
	for i := start + 1; i <= end; i++ {
		if values[i] > values[peak] {
			peak = i
		}
	}
	return peak
}

// PeakBinUint8 is PeakBin for quantized spectra.
func PeakBinUint8(values []uint8, start, end int) int {
	f := make([]float64, len(values))
	for i, v := range values {
		f[i] = float64(v)
	}
	return PeakBin(f, start, end)
}
