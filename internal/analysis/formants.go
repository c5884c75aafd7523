// SPDX-License-Identifier: MIT
package analysis

import "math"

// EstimateFormants returns the first two formant frequencies found in spectrum
// using the reference tuning. Either value is 0 when undetected.
func EstimateFormants(spectrum []uint8, sampleRate float64, transformSize int) (f1, f2 float64) {
	return formants(spectrum, sampleRate, transformSize, DefaultParams(), nil)
}

// Formants smooths spectrum into an envelope, picks its local maxima above
// PeakThreshold and returns the lowest peak inside F1Band and inside F2Band.
// This is a coarse heuristic, not LPC formant tracking.
func (a *Analyzer) Formants(spectrum []uint8, sampleRate float64, transformSize int) (f1, f2 float64) {
	if cap(a.env) < len(spectrum) {
		a.env = make([]float64, len(spectrum))
	}
	return formants(spectrum, sampleRate, transformSize, a.params, a.env[:len(spectrum)])
}

func formants(spectrum []uint8, sampleRate float64, transformSize int, p Params, env []float64) (f1, f2 float64) {
	if len(spectrum) == 0 || transformSize <= 0 || !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return 0, 0
	}
	if len(env) < len(spectrum) {
		env = make([]float64, len(spectrum))
	}
	smoothEnvelope(env, spectrum, p.SmoothingHalfWindow)

	binHz := sampleRate / float64(transformSize)
	start := max(p.MinPeakBin, 1)
	for i := start; i < len(env)-1; i++ {
		if !(env[i] > env[i-1] && env[i] > env[i+1] && env[i] > p.PeakThreshold) {
			continue
		}
		hz := float64(i) * binHz * p.BinCorrection
		if f1 == 0 && p.F1Band.Contains(hz) {
			f1 = hz
		}
		if f2 == 0 && p.F2Band.Contains(hz) {
			f2 = hz
		}
		if f1 != 0 && f2 != 0 {
			break
		}
	}
	return f1, f2
}

// smoothEnvelope writes the centred moving average of src into dst. Near the
// edges the window is clipped and the average taken over the bins that exist.
func smoothEnvelope(dst []float64, src []uint8, halfWindow int) {
	halfWindow = max(halfWindow, 0)
	n := len(src)
	for i := range n {
		lo := max(i-halfWindow, 0)
		hi := min(i+halfWindow, n-1)
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += float64(src[j])
		}
		dst[i] = sum / float64(hi-lo+1)
	}
}
