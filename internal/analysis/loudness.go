// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// unsigned8Midpoint is the zero level of 8-bit offset-binary samples.
const unsigned8Midpoint = 128.0

// EstimateLoudness returns the RMS level of frame in dB using the reference
// tuning. See Analyzer.Loudness.
func EstimateLoudness(frame []float64) float64 {
	return loudness(frame, DefaultLoudnessFloorDb)
}

// Loudness returns 20*log10(rms) of the frame, floored at LoudnessFloorDb. An
// empty frame or one holding non-finite samples yields the floor.
func (a *Analyzer) Loudness(frame []float64) float64 {
	return loudness(frame, a.params.LoudnessFloorDb)
}

func loudness(frame []float64, floorDb float64) float64 {
	rms, ok := rootMeanSquare(frame)
	if !ok {
		return floorDb
	}
	db := 20 * math.Log10(rms)
	if math.IsNaN(db) || db < floorDb {
		return floorDb
	}
	return db
}

// rootMeanSquare returns the RMS of frame, and false when the frame is empty
// or contains NaN or Inf.
func rootMeanSquare(frame []float64) (float64, bool) {
	if len(frame) == 0 {
		return 0, false
	}
	for _, v := range frame {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
	}
	return math.Sqrt(floats.Dot(frame, frame) / float64(len(frame))), true
}

// NormalizeUnsigned8 converts 8-bit samples centred on 128 to [-1, 1) and
// stores them in dst, growing it if needed. The resized slice is returned.
func NormalizeUnsigned8(dst []float64, src []uint8) []float64 {
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		dst[i] = (float64(s) - unsigned8Midpoint) / unsigned8Midpoint
	}
	return dst
}
