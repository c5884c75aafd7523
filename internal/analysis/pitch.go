// SPDX-License-Identifier: MIT
package analysis

import "math"

// EstimatePitch returns the fundamental frequency of frame in Hz using the
// reference tuning, or 0 when no periodicity is found. It allocates a scratch
// buffer per call; use an Analyzer on the hot path.
func EstimatePitch(frame []float64, sampleRate float64) float64 {
	return pitch(frame, sampleRate, DefaultParams(), nil)
}

// Pitch returns the fundamental frequency of frame in Hz, or 0.
//
// For each lag the similarity 1 - Σ|x[i]-x[i+lag]| / N is computed. Once a lag
// exceeds CorrelationThreshold while still climbing, scanning continues until
// the similarity stops climbing; the best lag is then refined with a parabolic
// shift. This greedy lock finds the first well-formed period, not the global
// maximum. Cost is O(N²).
func (a *Analyzer) Pitch(frame []float64, sampleRate float64) float64 {
	if cap(a.corr) < len(frame) {
		a.corr = make([]float64, len(frame))
	}
	return pitch(frame, sampleRate, a.params, a.corr[:len(frame)])
}

func pitch(frame []float64, sampleRate float64, p Params, corr []float64) float64 {
	size := len(frame)
	if size == 0 || !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return 0
	}
	rms, ok := rootMeanSquare(frame)
	if !ok || rms < p.SilenceRMS {
		return 0
	}
	if len(corr) < size {
		corr = make([]float64, size)
	}

	bestOffset := -1
	bestCorrelation := 0.0
	lastCorrelation := 1.0
	foundGood := false
	n := float64(size)

	for offset := 0; offset < size; offset++ {
		var diff float64
		for i := 0; i < size-offset; i++ {
			diff += math.Abs(frame[i] - frame[i+offset])
		}
		c := 1 - diff/n
		corr[offset] = c

		if c > p.CorrelationThreshold && c > lastCorrelation {
			foundGood = true
			if c > bestCorrelation {
				bestCorrelation = c
				bestOffset = offset
			}
		} else if foundGood {
			// bestOffset >= 1 because lag 0 can never be climbing, and
			// bestOffset+1 <= offset has already been computed.
			shift := (corr[bestOffset+1] - corr[bestOffset-1]) / corr[bestOffset]
			if bestOffset < p.MinLag {
				return 0
			}
			return lagToHz(sampleRate, float64(bestOffset)+p.InterpolationFactor*shift, p.MinLag)
		}
		lastCorrelation = c
	}

	if bestCorrelation > p.MinCorrelation && bestOffset >= p.MinLag {
		return lagToHz(sampleRate, float64(bestOffset), p.MinLag)
	}
	return 0
}

// lagToHz converts a lag in samples to a frequency. Degenerate lags and lags
// shorter than minLag samples (never below two, the Nyquist period) map to the
// undetected sentinel.
func lagToHz(sampleRate, lag float64, minLag int) float64 {
	if !(lag >= float64(max(minLag, 2))) {
		return 0
	}
	hz := sampleRate / lag
	if math.IsNaN(hz) || math.IsInf(hz, 0) {
		return 0
	}
	return hz
}
